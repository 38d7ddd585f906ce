package config

import (
	"fmt"

	"github.com/kilianp07/taxidispatch/core/dispatch"
)

// RedisConfig locates the server backing the redis fairness ledger.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
}

// SetDefaults applies the default hash key.
func (c *RedisConfig) SetDefaults() {
	if c.Key == "" {
		c.Key = dispatch.DefaultLedgerKey
	}
}

// APIConfig configures the read-only HTTP API. An empty Addr disables it.
// When Token is set, the allocation log requires it as a bearer token.
type APIConfig struct {
	Addr  string `json:"addr"`
	Token string `json:"token"`
}

// MapConfig selects the street map of the service area: a YAML file, or a
// generated grid when File is empty.
type MapConfig struct {
	File       string `json:"file"`
	GridWidth  int    `json:"grid_width"`
	GridHeight int    `json:"grid_height"`
}

// SetDefaults generates a 10x10 grid when no file is set.
func (c *MapConfig) SetDefaults() {
	if c.File == "" && c.GridWidth == 0 && c.GridHeight == 0 {
		c.GridWidth, c.GridHeight = 10, 10
	}
}

// Validate checks that a map source is configured.
func (c MapConfig) Validate() error {
	if c.File == "" && (c.GridWidth <= 0 || c.GridHeight <= 0) {
		return fmt.Errorf("file or grid size required")
	}
	return nil
}
