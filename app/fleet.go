package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/geo"
	"github.com/kilianp07/rescue/core/missionlog"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/core/signal"
)

func requireAdmin(actor model.Actor) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RolePublic, model.RoleAmbulanceDriver, model.RoleFireDriver, model.RoleMatcher:
		return fmt.Errorf("%s %s: %w", actor.Role, actor.ID, model.ErrUnauthorized)
	default:
		return fmt.Errorf("%s %s: %w", actor.Role, actor.ID, model.ErrUnauthorized)
	}
}

// authorizeVehicle allows admins and the vehicle's own driver.
func authorizeVehicle(actor model.Actor, v model.Vehicle) error {
	switch actor.Role {
	case model.RoleAdmin:
		return nil
	case model.RoleAmbulanceDriver, model.RoleFireDriver:
		if actor.Role.DrivesKind(v.Kind) && actor.ID == v.DriverID {
			return nil
		}
		return fmt.Errorf("driver %s does not drive %s: %w", actor.ID, v.ID, model.ErrUnauthorized)
	case model.RolePublic, model.RoleMatcher:
		return fmt.Errorf("%s %s: %w", actor.Role, actor.ID, model.ErrUnauthorized)
	default:
		return fmt.Errorf("%s %s: %w", actor.Role, actor.ID, model.ErrUnauthorized)
	}
}

// Vehicles lists the fleet.
func (e *Engine) Vehicles(ctx context.Context) ([]model.Vehicle, error) {
	return e.registry.List(ctx)
}

// Vehicle returns a vehicle by id.
func (e *Engine) Vehicle(ctx context.Context, id string) (model.Vehicle, error) {
	return e.registry.Get(ctx, id)
}

// UpdateLocation records a vehicle position reported by its driver.
func (e *Engine) UpdateLocation(ctx context.Context, actor model.Actor, vehicleID string, loc model.Location) (model.Vehicle, error) {
	v, err := e.registry.Get(ctx, vehicleID)
	if err != nil {
		return v, err
	}
	if err := authorizeVehicle(actor, v); err != nil {
		return model.Vehicle{}, err
	}
	return e.registry.UpdateLocation(ctx, vehicleID, geo.FromLocation(loc))
}

// SetDuty puts a vehicle on or off duty.
func (e *Engine) SetDuty(ctx context.Context, actor model.Actor, vehicleID string, online bool) (model.Vehicle, error) {
	v, err := e.registry.Get(ctx, vehicleID)
	if err != nil {
		return v, err
	}
	if err := authorizeVehicle(actor, v); err != nil {
		return model.Vehicle{}, err
	}
	return e.registry.SetOnline(ctx, vehicleID, online)
}

// Signals lists every traffic signal.
func (e *Engine) Signals(ctx context.Context) ([]model.TrafficSignal, error) {
	return e.signals.List(ctx)
}

// OverrideSignal fixes a signal colour until the override is cleared.
func (e *Engine) OverrideSignal(ctx context.Context, actor model.Actor, id string, color model.SignalColor) (model.TrafficSignal, error) {
	if err := requireAdmin(actor); err != nil {
		return model.TrafficSignal{}, err
	}
	return e.signals.SetOverride(ctx, id, color)
}

// ClearOverride hands a signal back to automatic control.
func (e *Engine) ClearOverride(ctx context.Context, actor model.Actor, id string) (model.TrafficSignal, error) {
	if err := requireAdmin(actor); err != nil {
		return model.TrafficSignal{}, err
	}
	return e.signals.ClearOverride(ctx, id)
}

// ApplyAutomatic is the automatic controller's write path.
func (e *Engine) ApplyAutomatic(ctx context.Context, id string, color model.SignalColor) (model.TrafficSignal, error) {
	return e.signals.ApplyAutomatic(ctx, id, color)
}

// AllStop turns every signal red.
func (e *Engine) AllStop(ctx context.Context, actor model.Actor) (signal.BatchResult, error) {
	if err := requireAdmin(actor); err != nil {
		return signal.BatchResult{}, err
	}
	return e.signals.AllStop(ctx)
}

// ClearAll releases every override.
func (e *Engine) ClearAll(ctx context.Context, actor model.Actor) (signal.BatchResult, error) {
	if err := requireAdmin(actor); err != nil {
		return signal.BatchResult{}, err
	}
	return e.signals.ClearAll(ctx)
}

// Subscribe opens an event feed. A nil filter receives everything.
func (e *Engine) Subscribe(filter events.Filter) *events.Subscription {
	return e.bus.Subscribe(filter)
}

// Unsubscribe closes a feed opened with Subscribe.
func (e *Engine) Unsubscribe(sub *events.Subscription) {
	e.bus.Unsubscribe(sub)
}

// Logs queries the mission log.
func (e *Engine) Logs(ctx context.Context, q missionlog.Query) ([]missionlog.Record, error) {
	return e.missions.Query(ctx, q)
}
