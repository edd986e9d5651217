package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/rescue/core/dispatch"
	"github.com/kilianp07/rescue/core/metrics"
	"github.com/kilianp07/rescue/core/missionlog"
	"github.com/kilianp07/rescue/core/store"
	"github.com/kilianp07/rescue/infra/mirror"
	"github.com/kilianp07/rescue/infra/mqtt"
)

type Config struct {
	HTTP       HTTPConfig        `json:"http"`
	Store      store.Config      `json:"store"`
	Dispatch   dispatch.Config   `json:"dispatch"`
	Bus        BusConfig         `json:"bus"`
	MQTT       mqtt.Config       `json:"mqtt"`
	Mirror     mirror.Config     `json:"mirror"`
	Metrics    metrics.Config    `json:"metrics"`
	MissionLog missionlog.Config `json:"mission_log"`
	Sentry     SentryConfig      `json:"sentry"`
	Fleet      []VehicleSeed     `json:"fleet"`
	Signals    []SignalSeed      `json:"signals"`
	Hospitals  []HospitalSeed    `json:"hospitals"`
}

// BusConfig sizes the event bus.
type BusConfig struct {
	// BufferSize is the per-subscriber queue length.
	BufferSize int `json:"buffer_size"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// K_HTTP__ADDR overrides http.addr. The callback already produces dotted
	// keys, so the provider splits on ".".
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.HTTP.SetDefaults()
	c.Store.SetDefaults()
	c.Dispatch.SetDefaults()
	c.MQTT.SetDefaults()
	c.MissionLog.SetDefaults()
	c.Sentry.SetDefaults()
	if c.Bus.BufferSize <= 0 {
		c.Bus.BufferSize = 64
	}
}

// Validate checks every section and the seed data.
func (c Config) Validate() error {
	var errs []error
	if err := c.HTTP.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if err := c.MQTT.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("mqtt: %w", err))
	}
	if err := c.MissionLog.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("mission_log: %w", err))
	}
	if err := c.Sentry.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("sentry: %w", err))
	}
	if err := validateSeeds(c); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
