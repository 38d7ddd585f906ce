package dispatch

import (
	"fmt"
	"time"
)

// Config defines dispatch-related settings.
type Config struct {
	TickIntervalMS int           `json:"tick_interval_ms"`
	Pricing        PricingPolicy `json:"pricing"`
	// Ledger selects the fairness ledger backend: "memory" or "redis".
	Ledger string `json:"ledger"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.TickIntervalMS <= 0 {
		c.TickIntervalMS = 1000
	}
	if c.Ledger == "" {
		c.Ledger = "memory"
	}
	c.Pricing.SetDefaults()
}

// Validate checks the settings after defaults were applied.
func (c Config) Validate() error {
	switch c.Ledger {
	case "memory", "redis":
	default:
		return fmt.Errorf("dispatch: unknown ledger %q", c.Ledger)
	}
	return c.Pricing.Validate()
}

// TickInterval returns the configured tick period.
func (c Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}
