package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/taxidispatch/core/dispatch"
	"github.com/kilianp07/taxidispatch/core/metrics"
	"github.com/kilianp07/taxidispatch/infra/monitoring"
	"github.com/kilianp07/taxidispatch/infra/mqtt"
	"github.com/kilianp07/taxidispatch/simulator"
)

type Config struct {
	World      string            `json:"world"`
	MQTT       mqtt.Config       `json:"mqtt"`
	Dispatch   dispatch.Config   `json:"dispatch"`
	Map        MapConfig         `json:"map"`
	Metrics    metrics.Config    `json:"metrics"`
	Audit      AuditConfig       `json:"audit"`
	Redis      RedisConfig       `json:"redis"`
	Sentry     monitoring.Config `json:"sentry"`
	Simulation simulator.Config  `json:"simulation"`
	API        APIConfig         `json:"api"`
}

// Default returns a configuration with every section defaulted.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
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
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
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

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	if c.World == "" {
		c.World = "default"
	}
	c.MQTT.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Map.SetDefaults()
	c.Audit.SetDefaults()
	c.Redis.SetDefaults()
	c.Simulation.SetDefaults()
}

// Validate checks every section, prefixing errors with the section name.
func (c Config) Validate() error {
	checks := []struct {
		name string
		fn   func() error
	}{
		{"mqtt", c.MQTT.Validate},
		{"dispatch", c.Dispatch.Validate},
		{"map", c.Map.Validate},
		{"audit", c.Audit.Validate},
		{"simulation", c.Simulation.Validate},
	}
	for _, ch := range checks {
		if err := ch.fn(); err != nil {
			return fmt.Errorf("%s: %w", ch.name, err)
		}
	}
	if c.Dispatch.Ledger == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis: addr is required by the redis ledger")
	}
	return nil
}
