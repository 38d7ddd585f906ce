package config

import (
	"os"
	"path/filepath"
	"testing"
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
	path := writeConfig(t, "config.yaml", `world: "city-1"
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  topic_prefix: "cabs"
  qos:
    allocation: 1
dispatch:
  tick_interval_ms: 250
  ledger: "redis"
  pricing:
    ceiling_factor: 12
map:
  grid_width: 4
  grid_height: 3
metrics:
  prometheus_addr: ":9100"
  sinks:
    - type: "nop"
audit:
  backend: "rotating"
  path: "audit/allocations.jsonl"
redis:
  addr: "localhost:6379"
simulation:
  taxis: 7
api:
  addr: ":8080"
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
		{"world", cfg.World, "city-1"},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"username", cfg.MQTT.Username, "user"},
		{"password", cfg.MQTT.Password, "pass"},
		{"topic_prefix", cfg.MQTT.TopicPrefix, "cabs"},
		{"qos", cfg.MQTT.QoS["allocation"], byte(1)},
		{"tick_interval_ms", cfg.Dispatch.TickIntervalMS, 250},
		{"ledger", cfg.Dispatch.Ledger, "redis"},
		{"ceiling_factor", cfg.Dispatch.Pricing.CeilingFactor, 12.0},
		{"margin default", cfg.Dispatch.Pricing.Margin, 0.9},
		{"grid", cfg.Map.GridWidth*10 + cfg.Map.GridHeight, 43},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"audit.backend", cfg.Audit.Backend, "rotating"},
		{"audit.max_size_mb", cfg.Audit.MaxSizeMB, 10},
		{"redis.addr", cfg.Redis.Addr, "localhost:6379"},
		{"redis.key", cfg.Redis.Key, "taxidispatch:fairness"},
		{"simulation.taxis", cfg.Simulation.Taxis, 7},
		{"simulation.ticks", cfg.Simulation.Ticks, 100},
		{"api.addr", cfg.API.Addr, ":8080"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.json", `{"mqtt":{"broker":"tcp://file:1883"}}`)
	t.Setenv("K_MQTT__BROKER", "tcp://env:1883")
	t.Setenv("K_AUDIT__BACKEND", "sqlite")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://env:1883" {
		t.Errorf("env override not applied: %s", cfg.MQTT.Broker)
	}
	if cfg.Audit.Backend != "sqlite" || cfg.Audit.Path != "allocations.db" {
		t.Errorf("audit defaults not applied: %+v", cfg.Audit)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(writeConfig(t, "config.toml", "")); err == nil {
		t.Errorf("expected unsupported format error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("expected missing file error")
	}
	bad := []string{
		"dispatch:\n  ledger: postgres\n",
		"dispatch:\n  ledger: redis\n",
		"audit:\n  backend: s3\n",
		"dispatch:\n  pricing:\n    margin: -1\n",
		"simulation:\n  fare_rate: 1.5\n",
	}
	for _, data := range bad {
		if _, err := Load(writeConfig(t, "config.yaml", data)); err == nil {
			t.Errorf("expected error for %q", data)
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.World != "default" || cfg.Audit.Backend != "jsonl" || cfg.Dispatch.Ledger != "memory" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}
