package model

import "time"

// AlertKind identifies which service an alert requests.
type AlertKind string

const (
	AlertAmbulance AlertKind = "ambulance"
	AlertFire      AlertKind = "fire"
)

// Valid reports whether k is a known alert kind.
func (k AlertKind) Valid() bool {
	switch k {
	case AlertAmbulance, AlertFire:
		return true
	default:
		return false
	}
}

// VehicleKind returns the kind of vehicle able to answer the alert.
func (k AlertKind) VehicleKind() (VehicleKind, bool) {
	switch k {
	case AlertAmbulance:
		return VehicleAmbulance, true
	case AlertFire:
		return VehicleFireEngine, true
	default:
		return "", false
	}
}

// AlertStatus is a phase of the alert mission.
type AlertStatus string

const (
	StatusPending   AlertStatus = "pending"
	StatusAssigned  AlertStatus = "assigned"
	StatusEnRoute   AlertStatus = "en_route"
	StatusArrived   AlertStatus = "arrived"
	StatusPickup    AlertStatus = "pickup"
	StatusTransport AlertStatus = "transport"
	StatusCompleted AlertStatus = "completed"
	StatusCancelled AlertStatus = "cancelled"
)

// Terminal reports whether no transition may leave the status.
func (s AlertStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// EmergencyAlert is a single emergency service request and its mission state.
type EmergencyAlert struct {
	ID                  string      `json:"id"`
	Kind                AlertKind   `json:"kind"`
	Location            Location    `json:"location"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
	RequesterID         string      `json:"requester_id"`
	Description         string      `json:"description,omitempty"`
	Status              AlertStatus `json:"status"`
	AssignedVehicleID   string      `json:"assigned_vehicle_id,omitempty"`
	AssignedDriverID    string      `json:"assigned_driver_id,omitempty"`
	HospitalDestination *Hospital   `json:"hospital_destination,omitempty"`
}

// Clone returns a deep copy so snapshots handed to callers cannot alias store state.
func (a EmergencyAlert) Clone() EmergencyAlert {
	if a.HospitalDestination != nil {
		h := a.HospitalDestination.Clone()
		a.HospitalDestination = &h
	}
	return a
}
