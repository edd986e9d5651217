package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/rescue/core/metrics"
	"github.com/kilianp07/rescue/core/model"
	"github.com/kilianp07/rescue/infra/logger"
)

// InfluxSink writes dispatch activity to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAssignment writes one alert_assignment point.
func (s *InfluxSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	p := write.NewPointWithMeasurement("alert_assignment").
		AddTag("alert_id", ev.AlertID).
		AddTag("kind", string(ev.Kind)).
		AddTag("vehicle_id", ev.VehicleID).
		AddTag("component", "dispatch_matcher").
		AddField("distance_km", round3(ev.DistanceKm)).
		AddField("attempts", ev.Attempts).
		AddField("latency_ms", round3(ev.Latency.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordDispatchFailure writes a dispatch_failure point.
func (s *InfluxSink) RecordDispatchFailure(ev coremetrics.DispatchFailureEvent) error {
	p := write.NewPointWithMeasurement("dispatch_failure").
		AddTag("alert_id", ev.AlertID).
		AddTag("kind", string(ev.Kind)).
		AddTag("component", "dispatch_matcher").
		AddField("reason", ev.Reason).
		AddField("candidates", ev.Candidates).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordTransition writes a mission_transition point.
func (s *InfluxSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	p := write.NewPointWithMeasurement("mission_transition").
		AddTag("alert_id", ev.AlertID).
		AddTag("kind", string(ev.Kind)).
		AddTag("to", string(ev.To)).
		AddField("from", string(ev.From)).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordSignal writes a signal_change point.
func (s *InfluxSink) RecordSignal(ev coremetrics.SignalEvent) error {
	p := write.NewPointWithMeasurement("signal_change").
		AddTag("signal_id", ev.SignalID).
		AddTag("reason", ev.Reason).
		AddField("color", string(ev.Color)).
		AddField("overridden", ev.Overridden).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordFleetSize writes one fleet_size point with a field per status.
func (s *InfluxSink) RecordFleetSize(counts map[model.VehicleStatus]int) error {
	p := write.NewPointWithMeasurement("fleet_size").SetTime(time.Now())
	for _, st := range []model.VehicleStatus{model.VehicleAvailable, model.VehicleBusy, model.VehicleOffline} {
		p = p.AddField(string(st), counts[st])
	}
	return s.write(p)
}

// Close flushes and closes the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
