// Package mirror copies engine state to external real-time stores.
//
// A Runner consumes the event bus and vehicle changes and forwards each
// resulting Entry to every configured Mirror. Mirror failures are logged and
// reported; they never reach the engine.
package mirror

import (
	"context"
	"time"

	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/model"
)

// Collections mirrored by the engine.
const (
	CollectionAlerts   = "alerts"
	CollectionVehicles = "vehicles"
	CollectionSignals  = "signals"
)

// TypeVehicleChanged tags entries produced by registry mutations.
const TypeVehicleChanged = "vehicle_changed"

// Entry is one entity snapshot to mirror.
type Entry struct {
	Collection string    `json:"collection"`
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	At         time.Time `json:"at"`
	Data       any       `json:"data"`
}

// Mirror receives entity snapshots.
type Mirror interface {
	Apply(ctx context.Context, e Entry) error
	Close() error
}

// FromEvent converts a bus event into the entry of the entity it changed.
func FromEvent(e events.Event) (Entry, bool) {
	if a, ok := events.AlertOf(e); ok {
		return Entry{Collection: CollectionAlerts, ID: a.ID, Type: string(e.Type()), At: e.OccurredAt(), Data: a}, true
	}
	if s, ok := e.(events.SignalChanged); ok {
		return Entry{Collection: CollectionSignals, ID: s.Signal.ID, Type: string(e.Type()), At: e.OccurredAt(), Data: s.Signal}, true
	}
	return Entry{}, false
}

// FromVehicle wraps a vehicle snapshot.
func FromVehicle(v model.Vehicle) Entry {
	return Entry{Collection: CollectionVehicles, ID: v.ID, Type: TypeVehicleChanged, At: v.UpdatedAt, Data: v}
}
