package events

// Filter selects the events a subscriber receives.
type Filter func(Event) bool

// All accepts every event.
func All() Filter { return nil }

// ForDriver accepts alert events concerning the driver's assignments.
func ForDriver(driverID string) Filter {
	return func(e Event) bool {
		a, ok := AlertOf(e)
		return ok && a.AssignedDriverID != "" && a.AssignedDriverID == driverID
	}
}

// ForRequester accepts every event about alerts the requester submitted.
func ForRequester(requesterID string) Filter {
	return func(e Event) bool {
		a, ok := AlertOf(e)
		return ok && a.RequesterID == requesterID
	}
}

// AllSignals accepts signal events only.
func AllSignals() Filter {
	return func(e Event) bool {
		_, ok := e.(SignalChanged)
		return ok
	}
}

// Any accepts events matched by at least one of the filters.
func Any(filters ...Filter) Filter {
	return func(e Event) bool {
		for _, f := range filters {
			if f == nil || f(e) {
				return true
			}
		}
		return false
	}
}
