package config

import (
	"fmt"

	"github.com/kilianp07/rescue/core/model"
)

// VehicleSeed registers a vehicle at startup.
type VehicleSeed struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	// Offline starts the vehicle off duty.
	Offline bool `json:"offline"`
}

// Vehicle converts the seed.
func (s VehicleSeed) Vehicle() model.Vehicle {
	status := model.VehicleAvailable
	if s.Offline {
		status = model.VehicleOffline
	}
	return model.Vehicle{
		ID:       s.ID,
		Kind:     model.VehicleKind(s.Kind),
		DriverID: s.DriverID,
		Location: model.Location{Lat: s.Lat, Lng: s.Lng},
		Status:   status,
	}
}

// SignalSeed registers a traffic signal at startup.
type SignalSeed struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Status string  `json:"status"`
}

// Signal converts the seed. Signals start red unless a colour is given.
func (s SignalSeed) Signal() model.TrafficSignal {
	color := model.SignalColor(s.Status)
	if color == "" {
		color = model.SignalRed
	}
	return model.TrafficSignal{
		ID:       s.ID,
		Label:    s.Label,
		Location: model.Location{Lat: s.Lat, Lng: s.Lng},
		Status:   color,
	}
}

// HospitalSeed is a directory entry.
type HospitalSeed struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Lat               float64  `json:"lat"`
	Lng               float64  `json:"lng"`
	Address           string   `json:"address"`
	Specialties       []string `json:"specialties"`
	EmergencyCapacity int      `json:"emergency_capacity"`
}

// Hospital converts the seed.
func (s HospitalSeed) Hospital() model.Hospital {
	return model.Hospital{
		ID:                s.ID,
		Name:              s.Name,
		Location:          model.Location{Lat: s.Lat, Lng: s.Lng, Address: s.Address},
		Address:           s.Address,
		Specialties:       s.Specialties,
		EmergencyCapacity: s.EmergencyCapacity,
	}
}

func validateSeeds(c Config) error {
	ids := map[string]bool{}
	for i, v := range c.Fleet {
		if v.ID == "" || v.DriverID == "" {
			return fmt.Errorf("fleet[%d]: id and driver_id are required", i)
		}
		switch model.VehicleKind(v.Kind) {
		case model.VehicleAmbulance, model.VehicleFireEngine:
		default:
			return fmt.Errorf("fleet[%d]: unknown kind %q", i, v.Kind)
		}
		if ids[v.ID] {
			return fmt.Errorf("fleet[%d]: duplicate id %s", i, v.ID)
		}
		ids[v.ID] = true
	}
	for i, s := range c.Signals {
		if s.ID == "" {
			return fmt.Errorf("signals[%d]: id is required", i)
		}
		if s.Status != "" && !model.SignalColor(s.Status).Valid() {
			return fmt.Errorf("signals[%d]: unknown status %q", i, s.Status)
		}
	}
	for i, h := range c.Hospitals {
		if h.ID == "" {
			return fmt.Errorf("hospitals[%d]: id is required", i)
		}
	}
	return nil
}
