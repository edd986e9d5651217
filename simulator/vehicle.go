package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/rescue/core/lifecycle"
	"github.com/kilianp07/rescue/core/model"
)

// SimulatedVehicle reports its position and duty over MQTT and drives to the
// alerts it is assigned.
type SimulatedVehicle struct {
	ID             string
	Kind           model.VehicleKind
	DriverID       string
	Position       model.Location
	DisconnectRate float64

	Broker      string
	TopicPrefix string
	SpeedKmh    float64
	Interval    time.Duration
	Dwell       time.Duration
	Reporter    Reporter

	client  paho.Client
	notices chan notice
	mission *mission
	offDuty bool
}

type mission struct {
	alertID string
	kind    model.AlertKind
	target  model.Location
	status  model.AlertStatus
	since   time.Time
}

type notice struct {
	assign *mission
	cancel string
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (v *SimulatedVehicle) locationTopic() string { return fmt.Sprintf("vehicles/%s/location", v.ID) }
func (v *SimulatedVehicle) dutyTopic() string     { return fmt.Sprintf("vehicles/%s/duty", v.ID) }
func (v *SimulatedVehicle) driverTopic() string {
	return fmt.Sprintf("%s/drivers/%s/notifications", v.TopicPrefix, v.DriverID)
}

// Run connects to the broker and simulates the vehicle until ctx is done.
func (v *SimulatedVehicle) Run(ctx context.Context) error {
	cli, err := mqttClientFactory(v.Broker, "sim-"+v.ID, v.dutyTopic())
	if err != nil {
		return err
	}
	v.client = cli
	if v.notices == nil {
		v.notices = make(chan notice, 16)
	}
	if token := cli.Subscribe(v.driverTopic(), 1, v.onNotification); token.Wait() && token.Error() != nil {
		cli.Disconnect(250)
		return token.Error()
	}
	v.publishDuty(true)
	v.publishLocation()

	ticker := time.NewTicker(v.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			v.publishDuty(false)
			cli.Disconnect(250)
			return nil
		case now := <-ticker.C:
			v.tick(ctx, now)
		}
	}
}

func (v *SimulatedVehicle) onNotification(_ paho.Client, msg paho.Message) {
	var env envelope
	if err := json.Unmarshal(msg.Payload(), &env); err != nil {
		log.Printf("%s: decode notification: %v", v.ID, err)
		return
	}
	var n notice
	switch env.Type {
	case "alert_assigned":
		var a struct {
			AlertID  string          `json:"alert_id"`
			Kind     model.AlertKind `json:"kind"`
			Location model.Location  `json:"location"`
		}
		if err := json.Unmarshal(env.Data, &a); err != nil {
			log.Printf("%s: decode assignment: %v", v.ID, err)
			return
		}
		n.assign = &mission{alertID: a.AlertID, kind: a.Kind, target: a.Location, status: model.StatusAssigned}
	case "alert_transitioned":
		var tr struct {
			Alert struct {
				ID string `json:"id"`
			} `json:"alert"`
			To model.AlertStatus `json:"to"`
		}
		if err := json.Unmarshal(env.Data, &tr); err != nil || tr.To != model.StatusCancelled {
			return
		}
		n.cancel = tr.Alert.ID
	default:
		return
	}
	select {
	case v.notices <- n:
	default:
		log.Printf("%s: notice queue full, dropping %s", v.ID, env.Type)
	}
}

// tick advances the simulation by one interval.
func (v *SimulatedVehicle) tick(ctx context.Context, now time.Time) {
	v.drain(now)
	if v.mission == nil {
		v.toggleDuty()
		if !v.offDuty {
			v.publishLocation()
		}
		return
	}
	m := v.mission
	switch m.status {
	case model.StatusAssigned:
		v.advance(ctx, m, model.StatusEnRoute, now)
	case model.StatusEnRoute:
		pos, arrived := Step(v.Position, m.target, v.SpeedKmh*v.Interval.Hours())
		v.Position = pos
		if arrived {
			v.advance(ctx, m, model.StatusArrived, now)
		}
	default:
		if now.Sub(m.since) < v.Dwell {
			break
		}
		if next, ok := lifecycle.Next(m.kind, m.status); ok {
			v.advance(ctx, m, next, now)
		}
	}
	if m.status.Terminal() {
		v.mission = nil
	}
	v.publishLocation()
}

func (v *SimulatedVehicle) drain(now time.Time) {
	for {
		select {
		case n := <-v.notices:
			switch {
			case n.assign != nil:
				n.assign.since = now
				v.mission = n.assign
				v.offDuty = false
			case v.mission != nil && v.mission.alertID == n.cancel:
				log.Printf("%s: alert %s cancelled", v.ID, n.cancel)
				v.mission = nil
			}
		default:
			return
		}
	}
}

func (v *SimulatedVehicle) advance(ctx context.Context, m *mission, to model.AlertStatus, now time.Time) {
	if err := v.Reporter.Advance(ctx, m.alertID, v.DriverID, v.Kind, to); err != nil {
		log.Printf("%s: report %s for %s: %v", v.ID, to, m.alertID, err)
		return
	}
	m.status = to
	m.since = now
}

func (v *SimulatedVehicle) toggleDuty() {
	if v.DisconnectRate <= 0 || fleetRng.Float64() >= v.DisconnectRate {
		return
	}
	v.offDuty = !v.offDuty
	v.publishDuty(!v.offDuty)
}

func (v *SimulatedVehicle) publishLocation() {
	v.publish(v.locationTopic(), 0, struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	}{v.Position.Lat, v.Position.Lng})
}

func (v *SimulatedVehicle) publishDuty(online bool) {
	v.publish(v.dutyTopic(), 1, struct {
		Online bool `json:"online"`
	}{online})
}

func (v *SimulatedVehicle) publish(topic string, qos byte, body any) {
	if v.client == nil {
		return
	}
	payload, err := json.Marshal(body)
	if err != nil {
		log.Printf("marshal %s: %v", topic, err)
		return
	}
	token := v.client.Publish(topic, qos, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		log.Printf("publish timeout on %s", topic)
		return
	}
	if err := token.Error(); err != nil {
		log.Printf("publish %s: %v", topic, err)
	}
}
