package config

import "fmt"

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// AdminToken, when set, must be presented as a bearer token on admin
	// endpoints.
	AdminToken          string `json:"admin_token"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ReadTimeoutSeconds <= 0 {
		c.ReadTimeoutSeconds = 10
	}
}

// Validate checks mandatory fields.
func (c HTTPConfig) Validate() error {
	if c.WriteTimeoutSeconds < 0 {
		return fmt.Errorf("write_timeout_seconds must be positive")
	}
	return nil
}
