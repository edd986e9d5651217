// Package registry owns vehicle status. Reserve and Release are the only
// paths that move a vehicle in or out of the busy state and both run as a
// single atomic store update, so busy ⇔ CurrentAlertID holds at all times.
package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kilianp07/rescue/core/geo"
	"github.com/kilianp07/rescue/core/logger"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/core/store"
)

// Registry holds the current status and location of every vehicle.
type Registry struct {
	vehicles store.VehicleStore
	log      logger.Logger
	now      func() time.Time

	mu    sync.RWMutex
	hooks []func(model.Vehicle)
}

// New creates a Registry backed by the given store.
func New(vehicles store.VehicleStore, log logger.Logger) *Registry {
	return &Registry{vehicles: vehicles, log: logger.OrNop(log), now: time.Now}
}

// OnChange registers fn to run after every successful vehicle mutation.
func (r *Registry) OnChange(fn func(model.Vehicle)) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

func (r *Registry) notify(v model.Vehicle) {
	r.mu.RLock()
	hooks := slices.Clone(r.hooks)
	r.mu.RUnlock()
	for _, h := range hooks {
		h(v)
	}
}

// Register adds or replaces a vehicle. A vehicle registered as busy must
// carry its alert id.
func (r *Registry) Register(ctx context.Context, v model.Vehicle) error {
	if v.ID == "" || v.DriverID == "" {
		return fmt.Errorf("register vehicle: id and driver required: %w", model.ErrInvalidInput)
	}
	switch v.Kind {
	case model.VehicleAmbulance, model.VehicleFireEngine:
	default:
		return fmt.Errorf("register vehicle %s: kind %q: %w", v.ID, v.Kind, model.ErrInvalidKind)
	}
	if v.Status == "" {
		v.Status = model.VehicleAvailable
	}
	if !v.Consistent() {
		return fmt.Errorf("register vehicle %s: busy status requires alert id: %w", v.ID, model.ErrInvalidInput)
	}
	v.UpdatedAt = r.now()
	if err := r.vehicles.Put(ctx, v.ID, v); err != nil {
		return err
	}
	r.notify(v)
	return nil
}

// Get returns a vehicle snapshot.
func (r *Registry) Get(ctx context.Context, id string) (model.Vehicle, error) {
	return r.vehicles.Get(ctx, id)
}

// List returns every vehicle ordered by id.
func (r *Registry) List(ctx context.Context) ([]model.Vehicle, error) {
	return r.vehicles.List(ctx, nil)
}

// FindEligible returns a snapshot of the available vehicles of kind.
func (r *Registry) FindEligible(ctx context.Context, kind model.VehicleKind) ([]model.Vehicle, error) {
	return r.vehicles.List(ctx, func(v model.Vehicle) bool {
		return v.Kind == kind && v.Status == model.VehicleAvailable
	})
}

// ByDriver returns the vehicle owned by driverID.
func (r *Registry) ByDriver(ctx context.Context, driverID string) (model.Vehicle, error) {
	list, err := r.vehicles.List(ctx, func(v model.Vehicle) bool { return v.DriverID == driverID })
	if err != nil {
		return model.Vehicle{}, err
	}
	if len(list) == 0 {
		return model.Vehicle{}, fmt.Errorf("vehicle for driver %s: %w", driverID, model.ErrNotFound)
	}
	return list[0], nil
}

// Reserve marks the vehicle busy with alertID if and only if it is available.
func (r *Registry) Reserve(ctx context.Context, vehicleID, alertID string) (model.Vehicle, error) {
	if alertID == "" {
		return model.Vehicle{}, fmt.Errorf("reserve %s: empty alert id: %w", vehicleID, model.ErrInvalidInput)
	}
	v, err := r.vehicles.Update(ctx, vehicleID, func(v *model.Vehicle) error {
		if v.Status != model.VehicleAvailable {
			return fmt.Errorf("reserve %s (%s): %w", vehicleID, v.Status, model.ErrAlreadyBusy)
		}
		v.Status = model.VehicleBusy
		v.CurrentAlertID = alertID
		v.UpdatedAt = r.now()
		return nil
	})
	if err != nil {
		return v, err
	}
	r.log.Debugw("vehicle reserved", map[string]any{"vehicle_id": vehicleID, "alert_id": alertID})
	r.notify(v)
	return v, nil
}

// Release returns a busy vehicle to the available pool.
func (r *Registry) Release(ctx context.Context, vehicleID string) (model.Vehicle, error) {
	return r.release(ctx, vehicleID, "")
}

// ReleaseFor releases the vehicle only while it still holds alertID.
func (r *Registry) ReleaseFor(ctx context.Context, vehicleID, alertID string) (model.Vehicle, error) {
	return r.release(ctx, vehicleID, alertID)
}

func (r *Registry) release(ctx context.Context, vehicleID, alertID string) (model.Vehicle, error) {
	var prev string
	v, err := r.vehicles.Update(ctx, vehicleID, func(v *model.Vehicle) error {
		if v.Status != model.VehicleBusy {
			return fmt.Errorf("release %s (%s): %w", vehicleID, v.Status, model.ErrNotBusy)
		}
		if alertID != "" && v.CurrentAlertID != alertID {
			return fmt.Errorf("release %s: holds %s not %s: %w", vehicleID, v.CurrentAlertID, alertID, model.ErrNotBusy)
		}
		prev = v.CurrentAlertID
		v.Status = model.VehicleAvailable
		v.CurrentAlertID = ""
		v.UpdatedAt = r.now()
		return nil
	})
	if err != nil {
		return v, err
	}
	r.log.Debugw("vehicle released", map[string]any{"vehicle_id": vehicleID, "alert_id": prev})
	r.notify(v)
	return v, nil
}

// SetOnline moves a vehicle between available and offline. Busy vehicles
// cannot go off duty.
func (r *Registry) SetOnline(ctx context.Context, vehicleID string, online bool) (model.Vehicle, error) {
	v, err := r.vehicles.Update(ctx, vehicleID, func(v *model.Vehicle) error {
		if v.Status == model.VehicleBusy {
			return fmt.Errorf("duty change %s: %w", vehicleID, model.ErrAlreadyBusy)
		}
		if online {
			v.Status = model.VehicleAvailable
		} else {
			v.Status = model.VehicleOffline
		}
		v.UpdatedAt = r.now()
		return nil
	})
	if err != nil {
		return v, err
	}
	r.notify(v)
	return v, nil
}

// UpdateLocation records the latest position. It never touches status.
func (r *Registry) UpdateLocation(ctx context.Context, vehicleID string, c geo.Coordinate) (model.Vehicle, error) {
	loc := model.Location{Lat: c.Lat, Lng: c.Lng}
	if err := loc.Validate(); err != nil {
		return model.Vehicle{}, fmt.Errorf("location %s: %v: %w", vehicleID, err, model.ErrInvalidInput)
	}
	v, err := r.vehicles.Update(ctx, vehicleID, func(v *model.Vehicle) error {
		v.Location = loc
		v.UpdatedAt = r.now()
		return nil
	})
	if err != nil {
		return v, err
	}
	r.notify(v)
	return v, nil
}
