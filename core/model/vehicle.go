package model

import "time"

// VehicleKind is the type of responder unit.
type VehicleKind string

const (
	VehicleAmbulance  VehicleKind = "ambulance"
	VehicleFireEngine VehicleKind = "fire_engine"
)

// VehicleStatus is the availability of a responder unit.
type VehicleStatus string

const (
	VehicleAvailable VehicleStatus = "available"
	VehicleBusy      VehicleStatus = "busy"
	VehicleOffline   VehicleStatus = "offline"
)

// Vehicle is a responder unit owned by exactly one driver.
type Vehicle struct {
	ID             string        `json:"id"`
	Kind           VehicleKind   `json:"kind"`
	DriverID       string        `json:"driver_id"`
	Location       Location      `json:"location"`
	Status         VehicleStatus `json:"status"`
	CurrentAlertID string        `json:"current_alert_id,omitempty"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Consistent reports whether the busy flag and the current alert agree.
func (v Vehicle) Consistent() bool {
	return (v.Status == VehicleBusy) == (v.CurrentAlertID != "")
}
