package main

import (
	"fmt"
	"time"

	"github.com/kilianp07/rescue/core/model"
)

// Config holds parameters for the simulator.
type Config struct {
	Broker       string
	APIURL       string
	Count        int
	AmbulancePct float64
	Center       model.Location
	RadiusKm     float64
	SpeedKmh     float64
	Interval     time.Duration
	// Dwell is the time spent in each on-scene phase before reporting the next.
	Dwell          time.Duration
	DisconnectRate float64
	TopicPrefix    string
	Verbose        bool
}

// Validate checks the simulator settings.
func (c *Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("broker is required")
	}
	if c.Count <= 0 {
		return fmt.Errorf("count must be positive")
	}
	if c.AmbulancePct < 0 || c.AmbulancePct > 1 {
		return fmt.Errorf("ambulance-pct must be within [0,1]")
	}
	if err := c.Center.Validate(); err != nil {
		return fmt.Errorf("center: %w", err)
	}
	if c.SpeedKmh <= 0 {
		return fmt.Errorf("speed must be positive")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}
	if c.DisconnectRate < 0 || c.DisconnectRate > 1 {
		return fmt.Errorf("disconnect-rate must be within [0,1]")
	}
	return nil
}
