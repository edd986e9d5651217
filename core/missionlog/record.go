// Package missionlog keeps an append-only record of every engine event for
// the operator's system log view.
package missionlog

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/rescue/core/events"
)

// Record is one logged event.
type Record struct {
	Timestamp   time.Time   `json:"timestamp"`
	Type        events.Type `json:"type"`
	AlertID     string      `json:"alert_id,omitempty"`
	SignalID    string      `json:"signal_id,omitempty"`
	VehicleID   string      `json:"vehicle_id,omitempty"`
	DriverID    string      `json:"driver_id,omitempty"`
	RequesterID string      `json:"requester_id,omitempty"`
	Status      string      `json:"status,omitempty"`
	ActorID     string      `json:"actor_id,omitempty"`
	Message     string      `json:"message"`
}

// Query filters records. Zero fields match everything.
type Query struct {
	Start     time.Time
	End       time.Time
	AlertID   string
	VehicleID string
	SignalID  string
	Type      events.Type
	// Limit keeps the most recent records when positive.
	Limit int
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Matches reports whether r satisfies q, ignoring Limit.
func (q Query) Matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.AlertID != "" && r.AlertID != q.AlertID {
		return false
	}
	if q.VehicleID != "" && r.VehicleID != q.VehicleID {
		return false
	}
	if q.SignalID != "" && r.SignalID != q.SignalID {
		return false
	}
	if q.Type != "" && r.Type != q.Type {
		return false
	}
	return true
}

// finish orders records by time and applies the limit.
func (q Query) finish(recs []Record) []Record {
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Timestamp.Before(recs[j].Timestamp) })
	if q.Limit > 0 && len(recs) > q.Limit {
		recs = recs[len(recs)-q.Limit:]
	}
	return recs
}

// FromEvent converts a bus event into a Record.
func FromEvent(e events.Event) Record {
	r := Record{Timestamp: e.OccurredAt(), Type: e.Type()}
	switch ev := e.(type) {
	case events.AlertCreated:
		r.AlertID, r.RequesterID, r.Status = ev.Alert.ID, ev.Alert.RequesterID, string(ev.Alert.Status)
		r.Message = fmt.Sprintf("%s alert submitted", ev.Alert.Kind)
	case events.AlertAssigned:
		r.AlertID, r.RequesterID, r.Status = ev.Alert.ID, ev.Alert.RequesterID, string(ev.Alert.Status)
		r.VehicleID, r.DriverID = ev.VehicleID, ev.DriverID
		r.Message = fmt.Sprintf("assigned to %s (%.2f km)", ev.VehicleID, ev.DistanceKm)
	case events.AlertTransitioned:
		r.AlertID, r.RequesterID, r.Status = ev.Alert.ID, ev.Alert.RequesterID, string(ev.To)
		r.VehicleID, r.DriverID, r.ActorID = ev.Alert.AssignedVehicleID, ev.Alert.AssignedDriverID, ev.ActorID
		r.Message = fmt.Sprintf("%s → %s", ev.From, ev.To)
	case events.HospitalAttached:
		r.AlertID, r.RequesterID, r.Status = ev.Alert.ID, ev.Alert.RequesterID, string(ev.Alert.Status)
		r.VehicleID, r.DriverID, r.ActorID = ev.Alert.AssignedVehicleID, ev.Alert.AssignedDriverID, ev.ActorID
		r.Message = fmt.Sprintf("destination %s", ev.Hospital.Name)
	case events.SignalChanged:
		r.SignalID, r.Status = ev.Signal.ID, string(ev.Signal.Status)
		r.Message = fmt.Sprintf("%s: %s → %s", ev.Reason, ev.Previous, ev.Signal.Status)
	default:
		r.Message = string(e.Type())
	}
	return r
}
