package lifecycle

import "github.com/kilianp07/rescue/core/model"

var phases = map[model.AlertKind][]model.AlertStatus{
	model.AlertAmbulance: {
		model.StatusPending,
		model.StatusAssigned,
		model.StatusEnRoute,
		model.StatusArrived,
		model.StatusPickup,
		model.StatusTransport,
		model.StatusCompleted,
	},
	model.AlertFire: {
		model.StatusPending,
		model.StatusAssigned,
		model.StatusEnRoute,
		model.StatusArrived,
		model.StatusCompleted,
	},
}

// Phases returns the ordered mission phases of kind.
func Phases(kind model.AlertKind) []model.AlertStatus {
	return append([]model.AlertStatus(nil), phases[kind]...)
}

// Next returns the phase following from for the given kind.
func Next(kind model.AlertKind, from model.AlertStatus) (model.AlertStatus, bool) {
	seq := phases[kind]
	for i, s := range seq {
		if s == from && i+1 < len(seq) {
			return seq[i+1], true
		}
	}
	return "", false
}

// Legal reports whether from → to is a single forward step for kind.
func Legal(kind model.AlertKind, from, to model.AlertStatus) bool {
	next, ok := Next(kind, from)
	return ok && next == to
}

// Cancellable reports whether an alert in status s may still be cancelled.
func Cancellable(s model.AlertStatus) bool {
	return s == model.StatusPending || s == model.StatusAssigned
}
