// Package store defines the keyed collections backing the engine (alerts,
// vehicles and signals) and their in-memory and SQL implementations.
//
// Update is the only mutation primitive that components use for state
// transitions: it runs the callback against the current record under a
// per-collection lock (memory) or inside a transaction (SQL), so a
// check-then-set performed in the callback is atomic.
package store

import (
	"context"
	"errors"

	"github.com/kilianp07/rescue/core/model"
)

// ErrExists is returned by Insert when the id is already present.
var ErrExists = errors.New("record already exists")

// Collection is a keyed set of records of type T.
type Collection[T any] interface {
	// Insert adds a new record and fails with ErrExists if id is taken.
	Insert(ctx context.Context, id string, v T) error
	// Put inserts or replaces a record.
	Put(ctx context.Context, id string, v T) error
	// Get returns the record or model.ErrNotFound.
	Get(ctx context.Context, id string) (T, error)
	// Update applies fn atomically. When fn returns an error nothing is written
	// and the error is returned unchanged.
	Update(ctx context.Context, id string, fn func(*T) error) (T, error)
	// List returns the records accepted by keep, ordered by id. A nil keep
	// returns everything.
	List(ctx context.Context, keep func(T) bool) ([]T, error)
	Close() error
}

type (
	AlertStore   = Collection[model.EmergencyAlert]
	VehicleStore = Collection[model.Vehicle]
	SignalStore  = Collection[model.TrafficSignal]
)

// Stores bundles the three collections the engine needs.
type Stores struct {
	Alerts   AlertStore
	Vehicles VehicleStore
	Signals  SignalStore
}

// Close closes every collection and returns the first error.
func (s Stores) Close() error {
	var first error
	for _, c := range []interface{ Close() error }{s.Alerts, s.Vehicles, s.Signals} {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NewMemoryStores returns memory-backed collections.
func NewMemoryStores() Stores {
	return Stores{
		Alerts:   NewMemory(model.EmergencyAlert.Clone),
		Vehicles: NewMemory[model.Vehicle](nil),
		Signals:  NewMemory[model.TrafficSignal](nil),
	}
}
