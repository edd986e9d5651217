// Package dispatch binds pending alerts to the nearest available vehicle.
//
// The candidate scan reads a snapshot without locking; contention is resolved
// by Registry.Reserve. A won reservation followed by a failed alert transition
// is compensated by releasing the vehicle, so a vehicle is never left busy for
// an alert that is not assigned to it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/rescue/core/geo"
	"github.com/kilianp07/rescue/core/lifecycle"
	"github.com/kilianp07/rescue/core/logger"
	"github.com/kilianp07/rescue/core/metrics"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/core/monitoring"
	"github.com/kilianp07/rescue/internal/keylock"
)

// Vehicles is the registry surface used by the matcher.
type Vehicles interface {
	FindEligible(ctx context.Context, kind model.VehicleKind) ([]model.Vehicle, error)
	Reserve(ctx context.Context, vehicleID, alertID string) (model.Vehicle, error)
	ReleaseFor(ctx context.Context, vehicleID, alertID string) (model.Vehicle, error)
}

// Alerts is the lifecycle surface used by the matcher.
type Alerts interface {
	Get(ctx context.Context, id string) (model.EmergencyAlert, error)
	Transition(ctx context.Context, id string, actor model.Actor, target model.AlertStatus, p lifecycle.Payload) (model.EmergencyAlert, error)
}

// Assignment is the outcome of a successful dispatch.
type Assignment struct {
	Alert      model.EmergencyAlert `json:"alert"`
	Vehicle    model.Vehicle        `json:"vehicle"`
	DistanceKm float64              `json:"distance_km"`
	Attempts   int                  `json:"attempts"`
}

// Candidate is an eligible vehicle with its distance to the alert.
type Candidate struct {
	Vehicle    model.Vehicle
	DistanceKm float64
}

// Rank orders vehicles by distance to loc, then by id.
func Rank(loc model.Location, vehicles []model.Vehicle) []Candidate {
	out := make([]Candidate, len(vehicles))
	for i, v := range vehicles {
		out[i] = Candidate{Vehicle: v, DistanceKm: geo.Between(loc, v.Location)}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Vehicle.ID < out[j].Vehicle.ID
	})
	return out
}

// Matcher performs the vehicle reservation and alert assignment together.
type Matcher struct {
	vehicles Vehicles
	alerts   Alerts
	sink     metrics.MetricsSink
	log      logger.Logger
	cfg      Config
	now      func() time.Time
	// inflight serializes dispatches of the same alert.
	inflight *keylock.Locker
}

// NewMatcher creates a Matcher. sink may be nil.
func NewMatcher(vehicles Vehicles, alerts Alerts, sink metrics.MetricsSink, log logger.Logger, cfg Config) *Matcher {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Matcher{vehicles: vehicles, alerts: alerts, sink: sink, log: logger.OrNop(log), cfg: cfg, now: time.Now, inflight: keylock.New()}
}

// Dispatch assigns the nearest available vehicle to a pending alert. When
// every candidate is exhausted it returns model.ErrNoVehicleAvailable and the
// alert stays pending. Concurrent dispatches of one alert run one at a time,
// so at most one vehicle is ever reserved for it.
func (m *Matcher) Dispatch(ctx context.Context, alertID string) (Assignment, error) {
	unlock := m.inflight.Lock(alertID)
	defer unlock()
	start := m.now()
	a, err := m.alerts.Get(ctx, alertID)
	if err != nil {
		return Assignment{}, fmt.Errorf("dispatch %s: %w", alertID, err)
	}
	if a.Status != model.StatusPending {
		return Assignment{Alert: a}, fmt.Errorf("dispatch %s in %s: %w", alertID, a.Status, model.ErrInvalidTransition)
	}
	kind, ok := a.Kind.VehicleKind()
	if !ok {
		return Assignment{Alert: a}, fmt.Errorf("dispatch %s: %q: %w", alertID, a.Kind, model.ErrInvalidKind)
	}
	eligible, err := m.vehicles.FindEligible(ctx, kind)
	if err != nil {
		m.fail(a, "store", 0)
		return Assignment{Alert: a}, fmt.Errorf("dispatch %s: eligible vehicles: %w", alertID, err)
	}
	cands := m.shortlist(Rank(a.Location, eligible))

	attempts := 0
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			return Assignment{Alert: a}, err
		}
		attempts++
		v, err := m.vehicles.Reserve(ctx, c.Vehicle.ID, a.ID)
		if errors.Is(err, model.ErrAlreadyBusy) || errors.Is(err, model.ErrNotFound) {
			reservationConflicts.Inc()
			if r, ok := m.sink.(metrics.ReservationConflictRecorder); ok {
				_ = r.RecordReservationConflict(metrics.ReservationConflictEvent{AlertID: a.ID, VehicleID: c.Vehicle.ID, Time: m.now()})
			}
			m.log.Debugw("reservation lost", map[string]any{"alert_id": a.ID, "vehicle_id": c.Vehicle.ID})
			continue
		}
		if err != nil {
			m.fail(a, "store", len(cands))
			return Assignment{Alert: a}, fmt.Errorf("dispatch %s: reserve %s: %w", alertID, c.Vehicle.ID, err)
		}

		assigned, err := m.alerts.Transition(ctx, a.ID, model.MatcherActor, model.StatusAssigned, lifecycle.Payload{
			VehicleID: v.ID, DriverID: v.DriverID, DistanceKm: c.DistanceKm,
		})
		if err != nil {
			m.compensate(ctx, v.ID, a.ID)
			m.fail(a, "transition", len(cands))
			return Assignment{Alert: a}, fmt.Errorf("dispatch %s: assign %s: %w", alertID, v.ID, err)
		}

		elapsed := m.now().Sub(start)
		dispatchLatency.WithLabelValues(string(a.Kind)).Observe(elapsed.Seconds())
		alertsAssigned.WithLabelValues(string(a.Kind)).Inc()
		if err := m.sink.RecordAssignment(metrics.AssignmentEvent{
			AlertID: a.ID, Kind: a.Kind, VehicleID: v.ID, DriverID: v.DriverID,
			DistanceKm: c.DistanceKm, Attempts: attempts, Latency: elapsed, Time: m.now(),
		}); err != nil {
			m.log.Warnf("record assignment %s: %v", a.ID, err)
		}
		m.log.Infof("alert %s assigned to %s (driver %s, %.2f km, %d attempts)", a.ID, v.ID, v.DriverID, c.DistanceKm, attempts)
		return Assignment{Alert: assigned, Vehicle: v, DistanceKm: c.DistanceKm, Attempts: attempts}, nil
	}

	m.fail(a, "no_vehicle", len(cands))
	m.log.Warnf("alert %s: no %s available (%d candidates)", a.ID, kind, len(cands))
	return Assignment{Alert: a}, fmt.Errorf("dispatch %s: %d candidates: %w", alertID, len(cands), model.ErrNoVehicleAvailable)
}

func (m *Matcher) shortlist(cands []Candidate) []Candidate {
	if m.cfg.MaxDistanceKm > 0 {
		n := sort.Search(len(cands), func(i int) bool { return cands[i].DistanceKm > m.cfg.MaxDistanceKm })
		cands = cands[:n]
	}
	if m.cfg.MaxCandidates > 0 && len(cands) > m.cfg.MaxCandidates {
		cands = cands[:m.cfg.MaxCandidates]
	}
	return cands
}

func (m *Matcher) compensate(ctx context.Context, vehicleID, alertID string) {
	if _, err := m.vehicles.ReleaseFor(context.WithoutCancel(ctx), vehicleID, alertID); err != nil {
		m.log.Errorf("release %s after failed assignment of %s: %v", vehicleID, alertID, err)
		monitoring.Capture("dispatch", err, "vehicle_id", vehicleID, "alert_id", alertID)
	}
}

func (m *Matcher) fail(a model.EmergencyAlert, reason string, candidates int) {
	dispatchFailures.WithLabelValues(string(a.Kind), reason).Inc()
	if r, ok := m.sink.(metrics.DispatchFailureRecorder); ok {
		_ = r.RecordDispatchFailure(metrics.DispatchFailureEvent{
			AlertID: a.ID, Kind: a.Kind, Reason: reason, Candidates: candidates, Time: m.now(),
		})
	}
}
