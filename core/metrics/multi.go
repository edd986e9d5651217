package metrics

import "github.com/kilianp07/rescue/core/model"

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAssignment forwards the record to all sinks, returning the first error encountered.
func (m *MultiSink) RecordAssignment(ev AssignmentEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAssignment(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordDispatchFailure forwards failures to sinks that support them.
func (m *MultiSink) RecordDispatchFailure(ev DispatchFailureEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(DispatchFailureRecorder); ok {
			if err := rec.RecordDispatchFailure(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordReservationConflict forwards conflicts.
func (m *MultiSink) RecordReservationConflict(ev ReservationConflictEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(ReservationConflictRecorder); ok {
			if err := rec.RecordReservationConflict(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordTransition forwards phase changes.
func (m *MultiSink) RecordTransition(ev TransitionEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(TransitionRecorder); ok {
			if err := rec.RecordTransition(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordSignal forwards signal changes.
func (m *MultiSink) RecordSignal(ev SignalEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(SignalRecorder); ok {
			if err := rec.RecordSignal(ev); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordFleetSize forwards fleet counts when supported by the sink.
func (m *MultiSink) RecordFleetSize(counts map[model.VehicleStatus]int) error {
	for _, s := range m.Sinks {
		if fr, ok := s.(FleetSizeRecorder); ok {
			if err := fr.RecordFleetSize(counts); err != nil {
				return err
			}
		}
	}
	return nil
}
