package metrics

import (
	"time"

	"github.com/kilianp07/rescue/core/model"
)

// AssignmentEvent describes a successful dispatch.
type AssignmentEvent struct {
	AlertID    string
	Kind       model.AlertKind
	VehicleID  string
	DriverID   string
	DistanceKm float64
	// Attempts counts reservations tried, including the winning one.
	Attempts int
	Latency  time.Duration
	Time     time.Time
}

// MetricsSink records dispatch results for observability purposes.
type MetricsSink interface {
	RecordAssignment(ev AssignmentEvent) error
}

// DispatchFailureEvent describes a dispatch that left the alert pending.
type DispatchFailureEvent struct {
	AlertID    string
	Kind       model.AlertKind
	Reason     string
	Candidates int
	Time       time.Time
}

// DispatchFailureRecorder records failed dispatches.
type DispatchFailureRecorder interface {
	RecordDispatchFailure(ev DispatchFailureEvent) error
}

// ReservationConflictEvent is reported each time a reservation loses a race.
type ReservationConflictEvent struct {
	AlertID   string
	VehicleID string
	Time      time.Time
}

// ReservationConflictRecorder records lost reservation races.
type ReservationConflictRecorder interface {
	RecordReservationConflict(ev ReservationConflictEvent) error
}

// TransitionEvent is a mission phase change.
type TransitionEvent struct {
	AlertID string
	Kind    model.AlertKind
	From    model.AlertStatus
	To      model.AlertStatus
	Time    time.Time
}

// TransitionRecorder records mission phase changes.
type TransitionRecorder interface {
	RecordTransition(ev TransitionEvent) error
}

// SignalEvent is a traffic signal change.
type SignalEvent struct {
	SignalID   string
	Color      model.SignalColor
	Overridden bool
	Reason     string
	Time       time.Time
}

// SignalRecorder records traffic signal changes.
type SignalRecorder interface {
	RecordSignal(ev SignalEvent) error
}

// FleetSizeRecorder records how many vehicles are in each status.
type FleetSizeRecorder interface {
	RecordFleetSize(counts map[model.VehicleStatus]int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAssignment(AssignmentEvent) error                   { return nil }
func (NopSink) RecordDispatchFailure(DispatchFailureEvent) error         { return nil }
func (NopSink) RecordReservationConflict(ReservationConflictEvent) error { return nil }
func (NopSink) RecordTransition(TransitionEvent) error                   { return nil }
func (NopSink) RecordSignal(SignalEvent) error                           { return nil }
func (NopSink) RecordFleetSize(map[model.VehicleStatus]int) error        { return nil }
