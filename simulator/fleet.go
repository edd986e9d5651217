package main

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/kilianp07/rescue/core/model"
)

var fleetRng = rand.New(rand.NewSource(time.Now().UnixNano()))

// GenerateFleet creates cfg.Count vehicles scattered within cfg.RadiusKm of
// cfg.Center. A share of cfg.AmbulancePct are ambulances, the rest fire
// engines. Ids are amb0001.. and fe0001.., drivers drv-<id>.
func GenerateFleet(cfg Config) []SimulatedVehicle {
	if cfg.Count <= 0 {
		return nil
	}
	vs := make([]SimulatedVehicle, 0, cfg.Count)
	var amb, fire int
	for i := 0; i < cfg.Count; i++ {
		kind := model.VehicleFireEngine
		if fleetRng.Float64() < cfg.AmbulancePct {
			kind = model.VehicleAmbulance
		}
		var id string
		if kind == model.VehicleAmbulance {
			amb++
			id = fmt.Sprintf("amb%04d", amb)
		} else {
			fire++
			id = fmt.Sprintf("fe%04d", fire)
		}
		vs = append(vs, SimulatedVehicle{
			ID:             id,
			Kind:           kind,
			DriverID:       "drv-" + id,
			Position:       scatter(cfg.Center, cfg.RadiusKm),
			DisconnectRate: cfg.DisconnectRate,
		})
	}
	return vs
}

// scatter returns a uniform random point in the disc of radius km around c.
func scatter(c model.Location, km float64) model.Location {
	if km <= 0 {
		return c
	}
	r := km * math.Sqrt(fleetRng.Float64())
	theta := 2 * math.Pi * fleetRng.Float64()
	dLat := r * math.Cos(theta) / kmPerDegree
	dLng := r * math.Sin(theta) / (kmPerDegree * math.Cos(c.Lat*math.Pi/180))
	return model.Location{Lat: c.Lat + dLat, Lng: c.Lng + dLng}
}
