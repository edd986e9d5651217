package config

import "fmt"

// SentryConfig enables error reporting to Sentry. An empty DSN keeps
// reporting off.
type SentryConfig struct {
	DSN         string `json:"dsn"`
	Environment string `json:"environment"`
	Release     string `json:"release"`
	ServerName  string `json:"server_name"`
	// SampleRate is the share of error events sent, TracesSampleRate the
	// share of transactions. Both lie in [0,1].
	SampleRate       float64 `json:"sample_rate"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
	// Station tags every event with the dispatch centre it came from.
	Station string `json:"station"`
}

// Enabled reports whether a DSN is configured.
func (c SentryConfig) Enabled() bool { return c.DSN != "" }

// SetDefaults fills unset fields.
func (c *SentryConfig) SetDefaults() {
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.SampleRate == 0 {
		c.SampleRate = 1
	}
}

// Validate checks the sample rates.
func (c SentryConfig) Validate() error {
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample_rate %v out of [0,1]", c.SampleRate)
	}
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate %v out of [0,1]", c.TracesSampleRate)
	}
	return nil
}
