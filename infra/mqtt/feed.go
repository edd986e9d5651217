package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kilianp07/rescue/core/geo"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/infra/logger"
)

// Subscriber registers topic handlers.
type Subscriber interface {
	Subscribe(topic, key string, h Handler) error
}

// VehicleUpdater receives the decoded field reports.
type VehicleUpdater interface {
	UpdateLocation(ctx context.Context, vehicleID string, c geo.Coordinate) (model.Vehicle, error)
	SetOnline(ctx context.Context, vehicleID string, online bool) (model.Vehicle, error)
}

type locationReport struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type dutyReport struct {
	Online *bool `json:"online"`
}

// LocationFeed applies vehicle location and duty reports to the registry.
type LocationFeed struct {
	sub       Subscriber
	vehicles  VehicleUpdater
	feedTopic string
	dutyTopic string
	logger    logger.Logger
}

// NewLocationFeed builds a feed for the topics in cfg.
func NewLocationFeed(sub Subscriber, vehicles VehicleUpdater, cfg Config) *LocationFeed {
	cfg.SetDefaults()
	return &LocationFeed{
		sub:       sub,
		vehicles:  vehicles,
		feedTopic: cfg.FeedTopic,
		dutyTopic: cfg.DutyTopic,
		logger:    logger.New("mqtt_feed"),
	}
}

// Start subscribes to the feed topics. Reports are applied with ctx.
func (f *LocationFeed) Start(ctx context.Context) error {
	if err := f.sub.Subscribe(f.feedTopic, QoSLocation, func(topic string, payload []byte) {
		if err := f.handleLocation(ctx, topic, payload); err != nil {
			f.logger.Warnf("location report on %s: %v", topic, err)
		}
	}); err != nil {
		return err
	}
	return f.sub.Subscribe(f.dutyTopic, QoSLocation, func(topic string, payload []byte) {
		if err := f.handleDuty(ctx, topic, payload); err != nil {
			f.logger.Warnf("duty report on %s: %v", topic, err)
		}
	})
}

func (f *LocationFeed) handleLocation(ctx context.Context, topic string, payload []byte) error {
	id, ok := topicParam(f.feedTopic, topic)
	if !ok {
		return fmt.Errorf("topic does not match %s", f.feedTopic)
	}
	var r locationReport
	if err := json.Unmarshal(payload, &r); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if r.Lat == nil || r.Lng == nil {
		return fmt.Errorf("lat and lng required: %w", model.ErrInvalidInput)
	}
	if _, err := f.vehicles.UpdateLocation(ctx, id, geo.Coordinate{Lat: *r.Lat, Lng: *r.Lng}); err != nil {
		return err
	}
	f.logger.Debugw("location updated", map[string]any{"vehicle_id": id, "lat": *r.Lat, "lng": *r.Lng})
	return nil
}

func (f *LocationFeed) handleDuty(ctx context.Context, topic string, payload []byte) error {
	id, ok := topicParam(f.dutyTopic, topic)
	if !ok {
		return fmt.Errorf("topic does not match %s", f.dutyTopic)
	}
	var r dutyReport
	if err := json.Unmarshal(payload, &r); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if r.Online == nil {
		return fmt.Errorf("online required: %w", model.ErrInvalidInput)
	}
	v, err := f.vehicles.SetOnline(ctx, id, *r.Online)
	if err != nil {
		return err
	}
	f.logger.Infof("vehicle %s is now %s", id, v.Status)
	return nil
}

// topicParam returns the topic level matched by the first '+' of filter.
func topicParam(filter, topic string) (string, bool) {
	fl := strings.Split(filter, "/")
	tl := strings.Split(topic, "/")
	if len(fl) != len(tl) {
		return "", false
	}
	param := ""
	for i := range fl {
		switch {
		case fl[i] == "+":
			if param == "" {
				param = tl[i]
			}
		case fl[i] != tl[i]:
			return "", false
		}
	}
	return param, param != ""
}
