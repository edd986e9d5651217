package store

import "github.com/kilianp07/rescue/core/factory"

var backends = factory.NewRegistry[Stores]()

// Config selects the persistence backend.
type Config struct {
	// Backend is "memory", "sqlite" or "postgres".
	Backend string `json:"backend"`
	// DSN is the driver connection string for SQL backends.
	DSN string `json:"dsn"`
}

// SetDefaults falls back to the memory backend.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

func init() {
	_ = backends.Register("memory", func(map[string]any) (Stores, error) {
		return NewMemoryStores(), nil
	})
	_ = backends.Register("sqlite", func(conf map[string]any) (Stores, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return Stores{}, err
		}
		if c.DSN == "" {
			c.DSN = "rescue.db"
		}
		return NewSQLStores(SQLite, c.DSN)
	})
	_ = backends.Register("postgres", func(conf map[string]any) (Stores, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return Stores{}, err
		}
		return NewSQLStores(Postgres, c.DSN)
	})
}

// Open builds the stores selected by cfg.
func Open(cfg Config) (Stores, error) {
	cfg.SetDefaults()
	return backends.Create(factory.ModuleConfig{Type: cfg.Backend, Conf: map[string]any{"dsn": cfg.DSN}})
}

// Backends lists the available backend names.
func Backends() []string { return backends.Names() }
