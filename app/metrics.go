package app

import "github.com/prometheus/client_golang/prometheus"

var busDropped prometheus.Counter

func newCollectors() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "eventbus_dropped_events_total",
		Help: "Events discarded because a subscriber buffer was full",
	})
}

func init() {
	busDropped = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers engine metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(busDropped)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	busDropped = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
