package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	dispatchLatency      *prometheus.HistogramVec
	alertsAssigned       *prometheus.CounterVec
	dispatchFailures     *prometheus.CounterVec
	reservationConflicts prometheus.Counter
	pendingAlerts        prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.HistogramVec, *prometheus.CounterVec, *prometheus.CounterVec, prometheus.Counter, prometheus.Gauge) {
	lat := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dispatch_latency_seconds",
			Help:    "Time spent matching an alert to a vehicle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)
	assigned := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_assigned_total",
			Help: "Number of alerts bound to a vehicle",
		},
		[]string{"kind"},
	)
	fail := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dispatch_failures_total",
			Help: "Number of dispatch attempts that left the alert pending",
		},
		[]string{"kind", "reason"},
	)
	conflicts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "dispatch_reservation_conflicts_total",
			Help: "Number of reservations lost to a concurrent dispatch",
		},
	)
	pending := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dispatch_pending_alerts",
			Help: "Pending alerts seen by the last redispatch sweep",
		},
	)
	return lat, assigned, fail, conflicts, pending
}

func init() {
	dispatchLatency, alertsAssigned, dispatchFailures, reservationConflicts, pendingAlerts = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers dispatch metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(dispatchLatency, alertsAssigned, dispatchFailures, reservationConflicts, pendingAlerts)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	dispatchLatency, alertsAssigned, dispatchFailures, reservationConflicts, pendingAlerts = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}
