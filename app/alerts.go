package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/rescue/core/dispatch"
	"github.com/kilianp07/rescue/core/lifecycle"
	"github.com/kilianp07/rescue/core/model"
)

// Submission is the result of SubmitAlert. Assignment is nil while the
// alert waits for a vehicle.
type Submission struct {
	Alert      model.EmergencyAlert `json:"alert"`
	Assignment *dispatch.Assignment `json:"assignment,omitempty"`
}

// SubmitAlert records a new alert for the requester and tries to dispatch
// it immediately. A missing vehicle is not an error: the alert stays pending
// and the redispatcher picks it up.
func (e *Engine) SubmitAlert(ctx context.Context, requester model.Actor, kind model.AlertKind, loc model.Location, description string) (Submission, error) {
	if requester.ID == "" {
		return Submission{}, fmt.Errorf("requester id required: %w", model.ErrInvalidInput)
	}
	a, err := e.alerts.Create(ctx, kind, loc, requester.ID, description)
	if err != nil {
		return Submission{}, err
	}
	asg, err := e.matcher.Dispatch(ctx, a.ID)
	switch {
	case err == nil:
		return Submission{Alert: asg.Alert, Assignment: &asg}, nil
	case errors.Is(err, model.ErrNoVehicleAvailable):
		e.log.Infof("alert %s pending: no %s vehicle available", a.ID, a.Kind)
	default:
		e.log.Warnf("dispatch %s deferred: %v", a.ID, err)
	}
	cur, gerr := e.alerts.Get(ctx, a.ID)
	if gerr != nil {
		cur = a
	}
	return Submission{Alert: cur}, nil
}

// Dispatch retries the assignment of a pending alert. Only admins may force
// a dispatch.
func (e *Engine) Dispatch(ctx context.Context, actor model.Actor, alertID string) (dispatch.Assignment, error) {
	if err := requireAdmin(actor); err != nil {
		return dispatch.Assignment{}, err
	}
	return e.matcher.Dispatch(ctx, alertID)
}

// GetAlert returns an alert by id.
func (e *Engine) GetAlert(ctx context.Context, id string) (model.EmergencyAlert, error) {
	return e.alerts.Get(ctx, id)
}

// AlertsByRequester lists the requester's alerts, oldest first.
func (e *Engine) AlertsByRequester(ctx context.Context, requesterID string) ([]model.EmergencyAlert, error) {
	return e.alerts.ListByRequester(ctx, requesterID)
}

// Alerts lists every alert, optionally restricted to one status.
func (e *Engine) Alerts(ctx context.Context, status model.AlertStatus) ([]model.EmergencyAlert, error) {
	if status == "" {
		return e.alerts.List(ctx)
	}
	return e.alerts.ListByStatus(ctx, status)
}

// AdvanceMission moves an alert to target. An ambulance entering transport
// without a destination is sent to the nearest hospital. Completing the
// mission frees the vehicle.
func (e *Engine) AdvanceMission(ctx context.Context, actor model.Actor, alertID string, target model.AlertStatus) (model.EmergencyAlert, error) {
	if target == model.StatusCancelled {
		return e.Cancel(ctx, actor, alertID)
	}
	var p lifecycle.Payload
	if target == model.StatusTransport {
		cur, err := e.alerts.Get(ctx, alertID)
		if err != nil {
			return model.EmergencyAlert{}, err
		}
		if cur.Kind == model.AlertAmbulance && cur.HospitalDestination == nil && e.hospitals.Len() > 0 {
			if m, err := e.hospitals.Closest(cur.Location); err == nil {
				h := m.Hospital
				p.Hospital = &h
				e.log.Infof("alert %s routed to %s (%.2f km)", alertID, h.ID, m.DistanceKm)
			}
		}
	}
	a, err := e.alerts.Transition(ctx, alertID, actor, target, p)
	if err != nil {
		return a, err
	}
	if target == model.StatusCompleted {
		e.free(ctx, a)
	}
	return a, nil
}

// AttachHospital sets the destination of an ambulance mission.
func (e *Engine) AttachHospital(ctx context.Context, actor model.Actor, alertID, hospitalID string) (model.EmergencyAlert, error) {
	h, err := e.hospitals.Get(hospitalID)
	if err != nil {
		return model.EmergencyAlert{}, err
	}
	return e.alerts.AttachHospital(ctx, alertID, actor, h)
}

// Cancel ends a pending or assigned alert and releases its vehicle.
func (e *Engine) Cancel(ctx context.Context, actor model.Actor, alertID string) (model.EmergencyAlert, error) {
	a, err := e.alerts.Cancel(ctx, alertID, actor)
	if err != nil {
		return a, err
	}
	e.free(ctx, a)
	return a, nil
}

// free releases the vehicle bound to a finished alert.
func (e *Engine) free(ctx context.Context, a model.EmergencyAlert) {
	if a.AssignedVehicleID == "" {
		return
	}
	if _, err := e.registry.ReleaseFor(context.WithoutCancel(ctx), a.AssignedVehicleID, a.ID); err != nil && !errors.Is(err, model.ErrNotBusy) {
		e.log.Errorf("release %s after %s: %v", a.AssignedVehicleID, a.ID, err)
	}
}

// Hospitals lists the directory, or the k nearest to loc when k > 0.
func (e *Engine) Hospitals(loc *model.Location, k int) []model.Hospital {
	if loc == nil || k <= 0 {
		return e.hospitals.List()
	}
	matches := e.hospitals.Nearest(*loc, k)
	out := make([]model.Hospital, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Hospital)
	}
	return out
}

// Stats is the operator overview.
type Stats struct {
	Alerts            map[model.AlertStatus]int   `json:"alerts"`
	Vehicles          map[model.VehicleStatus]int `json:"vehicles"`
	Signals           int                         `json:"signals"`
	OverriddenSignals int                         `json:"overridden_signals"`
	PendingOldest     []string                    `json:"pending_oldest,omitempty"`
}

// Stats counts alerts and vehicles per status and overridden signals.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	alerts, err := e.alerts.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	vehicles, err := e.registry.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	signals, err := e.signals.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Alerts:   map[model.AlertStatus]int{},
		Vehicles: map[model.VehicleStatus]int{},
		Signals:  len(signals),
	}
	for _, a := range alerts {
		st.Alerts[a.Status]++
		if a.Status == model.StatusPending && len(st.PendingOldest) < 5 {
			st.PendingOldest = append(st.PendingOldest, a.ID)
		}
	}
	for _, v := range vehicles {
		st.Vehicles[v.Status]++
	}
	for _, s := range signals {
		if s.IsOverridden {
			st.OverriddenSignals++
		}
	}
	return st, nil
}
