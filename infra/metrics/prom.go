package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/rescue/core/metrics"
	"github.com/kilianp07/rescue/core/model"
)

// PromSink records mission activity in Prometheus metrics. Matcher internals
// (latency, conflicts) are exported by core/dispatch itself.
type PromSink struct {
	distance    *prometheus.HistogramVec
	transitions *prometheus.CounterVec
	signals     *prometheus.CounterVec
	fleet       *prometheus.GaugeVec
}

// NewPromSink registers mission metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	distance := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "assignment_distance_km",
		Help:    "Distance between alert and assigned vehicle",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 50},
	}, []string{"kind"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mission_transitions_total",
		Help: "Mission phase transitions by target phase",
	}, []string{"kind", "to"})
	signals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signal_changes_total",
		Help: "Traffic signal changes by reason",
	}, []string{"reason"})
	fleet := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fleet_vehicles",
		Help: "Number of vehicles per status",
	}, []string{"status"})

	var err error
	if distance, err = register(reg, distance); err != nil {
		return nil, err
	}
	if transitions, err = register(reg, transitions); err != nil {
		return nil, err
	}
	if signals, err = register(reg, signals); err != nil {
		return nil, err
	}
	if fleet, err = register(reg, fleet); err != nil {
		return nil, err
	}
	return &PromSink{distance: distance, transitions: transitions, signals: signals, fleet: fleet}, nil
}

// register returns the already registered collector when c is a duplicate.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordAssignment observes the assignment distance.
func (s *PromSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	s.distance.WithLabelValues(string(ev.Kind)).Observe(ev.DistanceKm)
	return nil
}

// RecordTransition counts the phase change.
func (s *PromSink) RecordTransition(ev coremetrics.TransitionEvent) error {
	s.transitions.WithLabelValues(string(ev.Kind), string(ev.To)).Inc()
	return nil
}

// RecordSignal counts the signal change.
func (s *PromSink) RecordSignal(ev coremetrics.SignalEvent) error {
	s.signals.WithLabelValues(ev.Reason).Inc()
	return nil
}

// RecordFleetSize sets one gauge per vehicle status.
func (s *PromSink) RecordFleetSize(counts map[model.VehicleStatus]int) error {
	for _, st := range []model.VehicleStatus{model.VehicleAvailable, model.VehicleBusy, model.VehicleOffline} {
		s.fleet.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
	return nil
}
