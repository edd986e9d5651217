package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kilianp07/rescue/core/model"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `http:
  addr: ":9000"
  admin_token: "secret"
store:
  backend: "sqlite"
  dsn: "file:rescue?mode=memory&cache=shared"
dispatch:
  redispatch_seconds: 5
  max_distance_km: 25
mqtt:
  enabled: true
  broker: "tcp://localhost:1883"
  client_id: "cli"
  qos:
    notification: 1
mirror:
  redis:
    addr: "localhost:6379"
metrics:
  prometheus_addr: ":2112"
  sinks:
    - type: "nop"
mission_log:
  backend: "jsonl"
  path: "logs/m.jsonl"
fleet:
  - id: "amb-1"
    kind: "ambulance"
    driver_id: "d1"
    lat: 37.77
    lng: -122.41
  - id: "fe-1"
    kind: "fire_engine"
    driver_id: "d2"
    offline: true
signals:
  - id: "TS-002"
    label: "Market & 5th"
hospitals:
  - id: "sfgh"
    name: "SF General"
    lat: 37.7557
    lng: -122.4048
    emergency_capacity: 12
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"http.addr", cfg.HTTP.Addr, ":9000"},
		{"http.admin_token", cfg.HTTP.AdminToken, "secret"},
		{"store.backend", cfg.Store.Backend, "sqlite"},
		{"dispatch.redispatch_seconds", cfg.Dispatch.RedispatchSeconds, 5},
		{"dispatch.max_distance_km", cfg.Dispatch.MaxDistanceKm, 25.0},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.qos", cfg.MQTT.QoS["notification"], byte(1)},
		{"mqtt.feed_topic", cfg.MQTT.FeedTopic, "vehicles/+/location"},
		{"mirror.redis", cfg.Mirror.Redis != nil && cfg.Mirror.Redis.Addr == "localhost:6379", true},
		{"metrics.sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"metrics.prometheus_addr", cfg.Metrics.PrometheusAddr, ":2112"},
		{"mission_log.backend", cfg.MissionLog.Backend, "jsonl"},
		{"bus.buffer_size", cfg.Bus.BufferSize, 64},
		{"fleet", len(cfg.Fleet), 2},
		{"fleet.offline", cfg.Fleet[1].Vehicle().Status, model.VehicleOffline},
		{"signal.default", cfg.Signals[0].Signal().Status, model.SignalRed},
		{"hospital.capacity", cfg.Hospitals[0].Hospital().EmergencyCapacity, 12},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{"http":{"addr":":8080"}}`)
	t.Setenv("K_HTTP__ADDR", ":7070")
	t.Setenv("K_DISPATCH__MAX_CANDIDATES", "3")
	t.Setenv("K_SENTRY__SAMPLE_RATE", "0.5")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.HTTP.Addr != ":7070" {
		t.Fatalf("env override not applied: %s", cfg.HTTP.Addr)
	}
	if cfg.Dispatch.MaxCandidates != 3 {
		t.Fatalf("env override not applied: %d", cfg.Dispatch.MaxCandidates)
	}
	if cfg.Sentry.SampleRate != 0.5 {
		t.Fatalf("nested env override not applied: %v", cfg.Sentry.SampleRate)
	}
	if cfg.Store.Backend != "memory" || cfg.MissionLog.Backend != "memory" {
		t.Fatalf("defaults not applied")
	}
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"unknown_kind":   "fleet:\n  - id: v1\n    kind: tank\n    driver_id: d1\n",
		"duplicate":      "fleet:\n  - id: v1\n    kind: ambulance\n    driver_id: d1\n  - id: v1\n    kind: ambulance\n    driver_id: d2\n",
		"missing_driver": "fleet:\n  - id: v1\n    kind: ambulance\n",
		"signal_color":   "signals:\n  - id: TS-1\n    status: blue\n",
		"mqtt_broker":    "mqtt:\n  enabled: true\n",
		"log_backend":    "mission_log:\n  backend: csv\n",
		"sentry_rate":    "sentry:\n  sample_rate: 1.5\n",
	}
	for name, data := range cases {
		if _, err := Load(writeConfig(t, "c.yaml", data)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
	if _, err := Load(writeConfig(t, "c.toml", "")); err == nil {
		t.Errorf("expected unsupported format error")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("K_HTTP__ADDR=:9191\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("K_HTTP__ADDR") })
	if err := LoadDotEnv(envPath); err != nil {
		t.Fatalf("load dotenv: %v", err)
	}
	if got := os.Getenv("K_HTTP__ADDR"); got != ":9191" {
		t.Fatalf("expected :9191, got %q", got)
	}
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
}

func TestSentryDefaults(t *testing.T) {
	var c SentryConfig
	c.SetDefaults()
	if c.Enabled() || c.Environment != "production" || c.SampleRate != 1 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	c.TracesSampleRate = -0.1
	if err := c.Validate(); err == nil {
		t.Fatalf("expected traces rate error")
	}
}
