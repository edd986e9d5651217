package events

import (
	"time"

	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/internal/eventbus"
)

// Type names an event on the wire.
type Type string

const (
	TypeAlertCreated      Type = "alert_created"
	TypeAlertAssigned     Type = "alert_assigned"
	TypeAlertTransitioned Type = "alert_transitioned"
	TypeHospitalAttached  Type = "hospital_attached"
	TypeSignalChanged     Type = "signal_changed"
)

// Event is implemented by every published event.
type Event interface {
	Type() Type
	// EntityID is the alert or signal id the event is about.
	EntityID() string
	OccurredAt() time.Time
}

// AlertCreated is published when an alert is submitted.
type AlertCreated struct {
	Alert model.EmergencyAlert `json:"alert"`
	At    time.Time            `json:"at"`
}

func (AlertCreated) Type() Type              { return TypeAlertCreated }
func (e AlertCreated) EntityID() string      { return e.Alert.ID }
func (e AlertCreated) OccurredAt() time.Time { return e.At }

// AlertAssigned is the driver notification emitted on a successful dispatch.
type AlertAssigned struct {
	Alert      model.EmergencyAlert `json:"alert"`
	VehicleID  string               `json:"vehicle_id"`
	DriverID   string               `json:"driver_id"`
	DistanceKm float64              `json:"distance_km"`
	At         time.Time            `json:"at"`
}

func (AlertAssigned) Type() Type              { return TypeAlertAssigned }
func (e AlertAssigned) EntityID() string      { return e.Alert.ID }
func (e AlertAssigned) OccurredAt() time.Time { return e.At }

// AlertTransitioned is published for every mission phase change after assignment.
type AlertTransitioned struct {
	Alert   model.EmergencyAlert `json:"alert"`
	From    model.AlertStatus    `json:"from"`
	To      model.AlertStatus    `json:"to"`
	ActorID string               `json:"actor_id"`
	At      time.Time            `json:"at"`
}

func (AlertTransitioned) Type() Type              { return TypeAlertTransitioned }
func (e AlertTransitioned) EntityID() string      { return e.Alert.ID }
func (e AlertTransitioned) OccurredAt() time.Time { return e.At }

// HospitalAttached is published when an ambulance mission receives or
// changes its destination.
type HospitalAttached struct {
	Alert    model.EmergencyAlert `json:"alert"`
	Hospital model.Hospital       `json:"hospital"`
	ActorID  string               `json:"actor_id"`
	At       time.Time            `json:"at"`
}

func (HospitalAttached) Type() Type              { return TypeHospitalAttached }
func (e HospitalAttached) EntityID() string      { return e.Alert.ID }
func (e HospitalAttached) OccurredAt() time.Time { return e.At }

// SignalChanged is published when a signal is overridden, released or
// updated by the automatic controller.
type SignalChanged struct {
	Signal   model.TrafficSignal `json:"signal"`
	Previous model.SignalColor   `json:"previous"`
	// Reason is "override", "release" or "automatic".
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

func (SignalChanged) Type() Type              { return TypeSignalChanged }
func (e SignalChanged) EntityID() string      { return e.Signal.ID }
func (e SignalChanged) OccurredAt() time.Time { return e.At }

// Bus is the engine event bus.
type Bus = eventbus.EventBus[Event]

// Subscription is a live event feed.
type Subscription = eventbus.Subscription[Event]

// NewBus creates the engine event bus.
func NewBus(opts ...eventbus.Option) *eventbus.TypedBus[Event] {
	return eventbus.NewTyped[Event](opts...)
}

// AlertOf returns the alert snapshot carried by alert events.
func AlertOf(e Event) (model.EmergencyAlert, bool) {
	switch ev := e.(type) {
	case AlertCreated:
		return ev.Alert, true
	case AlertAssigned:
		return ev.Alert, true
	case AlertTransitioned:
		return ev.Alert, true
	case HospitalAttached:
		return ev.Alert, true
	default:
		return model.EmergencyAlert{}, false
	}
}
