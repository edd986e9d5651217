package missionlog

import (
	"fmt"

	"github.com/kilianp07/rescue/core/factory"
)

// Config selects the mission log backend.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
	// MaxRecords bounds the memory backend.
	MaxRecords int `json:"max_records"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxRecords <= 0 {
		c.MaxRecords = 10000
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	for _, n := range backends.Names() {
		if n == c.Backend {
			return nil
		}
	}
	return fmt.Errorf("unknown backend %s", c.Backend)
}

var backends = factory.NewRegistry[Store]()

func init() {
	_ = backends.Register("memory", func(conf map[string]any) (Store, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewMemoryStore(c.MaxRecords), nil
	})
	_ = backends.Register("jsonl", func(conf map[string]any) (Store, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "logs/missions.jsonl"
		}
		return NewRotatingJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	_ = backends.Register("sqlite", func(conf map[string]any) (Store, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		if c.Path == "" {
			c.Path = "missions.db"
		}
		return NewSQLiteStore(c.Path)
	})
}

// Open creates the configured Store.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	s, err := backends.Create(factory.ModuleConfig{Type: cfg.Backend, Conf: map[string]any{
		"path":         cfg.Path,
		"max_size_mb":  cfg.MaxSizeMB,
		"max_backups":  cfg.MaxBackups,
		"max_age_days": cfg.MaxAgeDays,
		"max_records":  cfg.MaxRecords,
	}})
	if err != nil {
		return nil, fmt.Errorf("mission log: %w", err)
	}
	return s, nil
}
