package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rescue/core/events"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/infra/logger"
)

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(topic, key string, retained bool, payload []byte) error
}

var newMessageID = uuid.NewString

// Envelope is the JSON body of every relayed message.
type Envelope struct {
	MessageID string      `json:"message_id"`
	Type      events.Type `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}

// DriverNotification is the assignment message sent to a driver.
type DriverNotification struct {
	AlertID     string          `json:"alert_id"`
	Kind        model.AlertKind `json:"kind"`
	Location    model.Location  `json:"location"`
	Description string          `json:"description,omitempty"`
	DriverID    string          `json:"driver_id"`
	VehicleID   string          `json:"vehicle_id"`
	DistanceKm  float64         `json:"distance_km"`
	Timestamp   time.Time       `json:"timestamp"`
}

// Relay forwards bus events to per-recipient MQTT topics.
type Relay struct {
	pub    Publisher
	prefix string
	logger logger.Logger
}

// NewRelay returns a relay publishing under cfg.TopicPrefix.
func NewRelay(pub Publisher, cfg Config) *Relay {
	cfg.SetDefaults()
	return &Relay{pub: pub, prefix: cfg.TopicPrefix, logger: logger.New("mqtt_relay")}
}

// DriverTopic is where a driver receives notifications.
func (r *Relay) DriverTopic(driverID string) string {
	return fmt.Sprintf("%s/drivers/%s/notifications", r.prefix, driverID)
}

// RequesterTopic is where a requester follows its alerts.
func (r *Relay) RequesterTopic(requesterID string) string {
	return fmt.Sprintf("%s/requesters/%s/alerts", r.prefix, requesterID)
}

// SignalTopic carries the retained state of a signal.
func (r *Relay) SignalTopic(signalID string) string {
	return fmt.Sprintf("%s/signals/%s", r.prefix, signalID)
}

// Run relays events from sub until ctx is done or the subscription closes.
func (r *Relay) Run(ctx context.Context, sub *events.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C:
			if !ok {
				return
			}
			r.Handle(e)
		}
	}
}

// Handle publishes a single event. Failures are logged.
func (r *Relay) Handle(e events.Event) {
	switch ev := e.(type) {
	case events.AlertAssigned:
		n := DriverNotification{
			AlertID:     ev.Alert.ID,
			Kind:        ev.Alert.Kind,
			Location:    ev.Alert.Location,
			Description: ev.Alert.Description,
			DriverID:    ev.DriverID,
			VehicleID:   ev.VehicleID,
			DistanceKm:  ev.DistanceKm,
			Timestamp:   ev.At,
		}
		r.send(r.DriverTopic(ev.DriverID), QoSNotification, false, e, n)
		r.send(r.RequesterTopic(ev.Alert.RequesterID), QoSNotification, false, e, ev.Alert)
	case events.AlertCreated:
		r.send(r.RequesterTopic(ev.Alert.RequesterID), QoSNotification, false, e, ev.Alert)
	case events.AlertTransitioned, events.HospitalAttached:
		a, _ := events.AlertOf(e)
		if a.AssignedDriverID != "" {
			r.send(r.DriverTopic(a.AssignedDriverID), QoSNotification, false, e, e)
		}
		r.send(r.RequesterTopic(a.RequesterID), QoSNotification, false, e, a)
	case events.SignalChanged:
		r.send(r.SignalTopic(ev.Signal.ID), QoSSignal, true, e, ev)
	default:
		r.logger.Warnf("unhandled event type %s", e.Type())
	}
}

func (r *Relay) send(topic, key string, retained bool, e events.Event, data any) {
	body, err := json.Marshal(Envelope{
		MessageID: newMessageID(),
		Type:      e.Type(),
		Timestamp: e.OccurredAt().UTC(),
		Data:      data,
	})
	if err != nil {
		r.logger.Errorf("encode %s: %v", e.Type(), err)
		return
	}
	if err := r.pub.Publish(topic, key, retained, body); err != nil {
		r.logger.Errorf("relay %s for %s: %v", e.Type(), e.EntityID(), err)
	}
}
