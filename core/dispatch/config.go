package dispatch

import "time"

// Config defines dispatch-related settings.
type Config struct {
	// RedispatchSeconds is the period of the pending-alert sweep.
	RedispatchSeconds int `json:"redispatch_seconds"`
	// MaxDistanceKm excludes farther candidates. Zero means unlimited.
	MaxDistanceKm float64 `json:"max_distance_km"`
	// MaxCandidates bounds the reservation attempts per dispatch. Zero means
	// every eligible vehicle is tried.
	MaxCandidates int `json:"max_candidates"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.RedispatchSeconds <= 0 {
		c.RedispatchSeconds = 10
	}
}

// RedispatchInterval returns the sweep period.
func (c Config) RedispatchInterval() time.Duration {
	if c.RedispatchSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.RedispatchSeconds) * time.Second
}
