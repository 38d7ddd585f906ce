package simulator

import (
	"fmt"

	"github.com/kilianp07/taxidispatch/infra/citymap"
)

// Config holds parameters for the simulated world.
type Config struct {
	World      string `json:"world"`
	Seed       int64  `json:"seed"`
	Ticks      int    `json:"ticks"`
	Taxis      int    `json:"taxis"`
	MapFile    string `json:"map_file"`
	GridWidth  int    `json:"grid_width"`
	GridHeight int    `json:"grid_height"`
	// FareRate is the probability of each additional fare calling in a tick.
	FareRate        float64 `json:"fare_rate"`
	MaxFaresPerTick int     `json:"max_fares_per_tick"`
	// Patience is how many ticks an unallocated fare waits before giving up.
	Patience int `json:"patience"`
	// Commission is the share of each completed fare paid to the dispatcher.
	Commission float64 `json:"commission"`
	// BidRadius caps the travel time to a fare for an idle taxi to bid. Zero
	// means every idle taxi bids.
	BidRadius float64 `json:"bid_radius"`
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.World == "" {
		c.World = "sim"
	}
	if c.Seed == 0 {
		c.Seed = 1
	}
	if c.Ticks == 0 {
		c.Ticks = 100
	}
	if c.Taxis == 0 {
		c.Taxis = 4
	}
	if c.MapFile == "" && c.GridWidth == 0 && c.GridHeight == 0 {
		c.GridWidth, c.GridHeight = 10, 10
	}
	if c.FareRate == 0 {
		c.FareRate = 0.5
	}
	if c.MaxFaresPerTick == 0 {
		c.MaxFaresPerTick = 3
	}
	if c.Patience == 0 {
		c.Patience = 20
	}
	if c.Commission == 0 {
		c.Commission = 0.1
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Ticks < 0 {
		return fmt.Errorf("simulation: ticks must be >= 0")
	}
	if c.Taxis <= 0 {
		return fmt.Errorf("simulation: taxis must be > 0")
	}
	if c.MapFile == "" && (c.GridWidth <= 0 || c.GridHeight <= 0) {
		return fmt.Errorf("simulation: map_file or grid size required")
	}
	if c.FareRate < 0 || c.FareRate >= 1 {
		return fmt.Errorf("simulation: fare_rate must be in [0,1)")
	}
	if c.MaxFaresPerTick < 0 || c.Patience < 0 || c.BidRadius < 0 {
		return fmt.Errorf("simulation: max_fares_per_tick, patience and bid_radius must be >= 0")
	}
	if c.Commission < 0 || c.Commission > 1 {
		return fmt.Errorf("simulation: commission must be in [0,1]")
	}
	return nil
}

// Map loads the configured map file or generates the grid.
func (c Config) Map() (*citymap.CityMap, error) {
	if c.MapFile != "" {
		return citymap.Load(c.MapFile)
	}
	return citymap.Grid(c.GridWidth, c.GridHeight)
}
