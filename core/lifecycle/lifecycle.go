// Package lifecycle owns alert status. Every mutation runs under the alert's
// key lock and its event is published before the lock is released, so
// subscribers observe an alert's events in mutation order.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/logger"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/core/store"
	"github.com/kilianp07/rescue/internal/keylock"
)

// Publisher receives lifecycle events.
type Publisher interface {
	Publish(events.Event)
}

// Payload carries the optional data attached to a transition.
type Payload struct {
	// VehicleID and DriverID are required for pending → assigned.
	VehicleID  string
	DriverID   string
	DistanceKm float64
	// Hospital sets the destination when entering pickup or transport.
	Hospital *model.Hospital
}

// Lifecycle creates alerts and moves them through their mission phases.
type Lifecycle struct {
	alerts store.AlertStore
	pub    Publisher
	locks  *keylock.Locker
	log    logger.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Lifecycle.
type Option func(*Lifecycle)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Lifecycle) { l.now = now }
}

// WithIDGenerator replaces the uuid alert id generator.
func WithIDGenerator(fn func() string) Option {
	return func(l *Lifecycle) { l.newID = fn }
}

// New creates a Lifecycle. pub may be nil.
func New(alerts store.AlertStore, pub Publisher, log logger.Logger, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		alerts: alerts,
		pub:    pub,
		locks:  keylock.New(),
		log:    logger.OrNop(log),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Lifecycle) publish(e events.Event) {
	if l.pub != nil {
		l.pub.Publish(e)
	}
}

// Create stores a new pending alert.
func (l *Lifecycle) Create(ctx context.Context, kind model.AlertKind, loc model.Location, requesterID, description string) (model.EmergencyAlert, error) {
	if !kind.Valid() {
		return model.EmergencyAlert{}, fmt.Errorf("create alert: %q: %w", kind, model.ErrInvalidKind)
	}
	if err := loc.Validate(); err != nil {
		return model.EmergencyAlert{}, fmt.Errorf("create alert: %v: %w", err, model.ErrInvalidInput)
	}
	if requesterID == "" {
		return model.EmergencyAlert{}, fmt.Errorf("create alert: empty requester: %w", model.ErrInvalidInput)
	}
	now := l.now()
	a := model.EmergencyAlert{
		ID:          l.newID(),
		Kind:        kind,
		Location:    loc,
		CreatedAt:   now,
		UpdatedAt:   now,
		RequesterID: requesterID,
		Description: description,
		Status:      model.StatusPending,
	}
	unlock := l.locks.Lock(a.ID)
	defer unlock()
	if err := l.alerts.Insert(ctx, a.ID, a); err != nil {
		return model.EmergencyAlert{}, fmt.Errorf("create alert: %w", err)
	}
	l.log.Infof("alert %s created kind=%s requester=%s", a.ID, a.Kind, a.RequesterID)
	l.publish(events.AlertCreated{Alert: a.Clone(), At: now})
	return a, nil
}

// Transition moves the alert one phase forward.
func (l *Lifecycle) Transition(ctx context.Context, id string, actor model.Actor, target model.AlertStatus, p Payload) (model.EmergencyAlert, error) {
	unlock := l.locks.Lock(id)
	defer unlock()

	var from model.AlertStatus
	now := l.now()
	a, err := l.alerts.Update(ctx, id, func(a *model.EmergencyAlert) error {
		if a.Status.Terminal() {
			return fmt.Errorf("alert %s is %s: %w", id, a.Status, model.ErrInvalidTransition)
		}
		if err := authorize(actor, *a, target); err != nil {
			return err
		}
		if !Legal(a.Kind, a.Status, target) {
			return fmt.Errorf("alert %s %s → %s: %w", id, a.Status, target, model.ErrInvalidTransition)
		}
		switch target {
		case model.StatusAssigned:
			if p.VehicleID == "" || p.DriverID == "" {
				return fmt.Errorf("assign %s: vehicle and driver required: %w", id, model.ErrInvalidInput)
			}
			a.AssignedVehicleID = p.VehicleID
			a.AssignedDriverID = p.DriverID
		case model.StatusPickup, model.StatusTransport:
			if p.Hospital != nil {
				h := p.Hospital.Clone()
				a.HospitalDestination = &h
			}
		}
		from = a.Status
		a.Status = target
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return a, err
	}

	l.log.Debugw("alert transitioned", map[string]any{
		"alert_id": id, "from": string(from), "to": string(target), "actor": actor.ID, "role": actor.Role.String(),
	})
	if target == model.StatusAssigned {
		l.publish(events.AlertAssigned{
			Alert: a.Clone(), VehicleID: p.VehicleID, DriverID: p.DriverID, DistanceKm: p.DistanceKm, At: now,
		})
	} else {
		l.publish(events.AlertTransitioned{Alert: a.Clone(), From: from, To: target, ActorID: actor.ID, At: now})
	}
	return a, nil
}

// Cancel ends a pending or assigned alert. The caller releases the vehicle
// recorded in AssignedVehicleID, if any.
func (l *Lifecycle) Cancel(ctx context.Context, id string, actor model.Actor) (model.EmergencyAlert, error) {
	unlock := l.locks.Lock(id)
	defer unlock()

	var from model.AlertStatus
	now := l.now()
	a, err := l.alerts.Update(ctx, id, func(a *model.EmergencyAlert) error {
		if err := authorizeCancel(actor, *a); err != nil {
			return err
		}
		if !Cancellable(a.Status) {
			return fmt.Errorf("cancel %s in %s: %w", id, a.Status, model.ErrInvalidTransition)
		}
		from = a.Status
		a.Status = model.StatusCancelled
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return a, err
	}
	l.log.Infof("alert %s cancelled by %s from %s", id, actor.ID, from)
	l.publish(events.AlertTransitioned{Alert: a.Clone(), From: from, To: model.StatusCancelled, ActorID: actor.ID, At: now})
	return a, nil
}

// AttachHospital sets the destination of an ambulance mission in pickup or
// transport.
func (l *Lifecycle) AttachHospital(ctx context.Context, id string, actor model.Actor, h model.Hospital) (model.EmergencyAlert, error) {
	if h.ID == "" {
		return model.EmergencyAlert{}, fmt.Errorf("attach hospital to %s: empty hospital id: %w", id, model.ErrInvalidInput)
	}
	unlock := l.locks.Lock(id)
	defer unlock()

	now := l.now()
	a, err := l.alerts.Update(ctx, id, func(a *model.EmergencyAlert) error {
		if a.Kind != model.AlertAmbulance {
			return fmt.Errorf("attach hospital to %s alert %s: %w", a.Kind, id, model.ErrInvalidPhase)
		}
		if a.Status != model.StatusPickup && a.Status != model.StatusTransport {
			return fmt.Errorf("attach hospital to %s in %s: %w", id, a.Status, model.ErrInvalidPhase)
		}
		if err := authorize(actor, *a, a.Status); err != nil {
			return err
		}
		c := h.Clone()
		a.HospitalDestination = &c
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return a, err
	}
	l.publish(events.HospitalAttached{Alert: a.Clone(), Hospital: h.Clone(), ActorID: actor.ID, At: now})
	return a, nil
}

// Get returns an alert snapshot.
func (l *Lifecycle) Get(ctx context.Context, id string) (model.EmergencyAlert, error) {
	return l.alerts.Get(ctx, id)
}

// ListByRequester returns the alerts submitted by requesterID, oldest first.
func (l *Lifecycle) ListByRequester(ctx context.Context, requesterID string) ([]model.EmergencyAlert, error) {
	list, err := l.alerts.List(ctx, func(a model.EmergencyAlert) bool { return a.RequesterID == requesterID })
	if err != nil {
		return nil, err
	}
	sortByCreation(list)
	return list, nil
}

// ListByStatus returns the alerts currently in status, oldest first.
func (l *Lifecycle) ListByStatus(ctx context.Context, status model.AlertStatus) ([]model.EmergencyAlert, error) {
	list, err := l.alerts.List(ctx, func(a model.EmergencyAlert) bool { return a.Status == status })
	if err != nil {
		return nil, err
	}
	sortByCreation(list)
	return list, nil
}

// List returns every alert, oldest first.
func (l *Lifecycle) List(ctx context.Context) ([]model.EmergencyAlert, error) {
	list, err := l.alerts.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	sortByCreation(list)
	return list, nil
}
