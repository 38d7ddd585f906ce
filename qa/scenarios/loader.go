package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/taxidispatch/core/model"
	"github.com/kilianp07/taxidispatch/infra/citymap"
)

type GridDef struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type AgentDef struct {
	ID       string        `yaml:"id"`
	Number   int           `yaml:"number"`
	Location model.Coord   `yaml:"location"`
	Path     []model.Coord `yaml:"path,omitempty"`
}

func (a AgentDef) ToModel() *model.AgentSnapshot {
	return &model.AgentSnapshot{
		AgentID:  model.AgentID(a.ID),
		Num:      a.Number,
		Location: a.Location,
		Path:     append([]model.Coord(nil), a.Path...),
	}
}

type FareDef struct {
	Origin      model.Coord `yaml:"origin"`
	Destination model.Coord `yaml:"destination"`
	CallTime    int         `yaml:"call_time"`
}

type BidDef struct {
	Agent  string      `yaml:"agent"`
	Origin model.Coord `yaml:"origin"`
	// Outcome is the expected bid result; empty skips the check.
	Outcome string `yaml:"outcome,omitempty"`
}

// Step is one scripted event. Exactly one field should be set.
type Step struct {
	Fare    *FareDef  `yaml:"fare,omitempty"`
	Cancel  *FareDef  `yaml:"cancel,omitempty"`
	Bid     *BidDef   `yaml:"bid,omitempty"`
	Move    *AgentDef `yaml:"move,omitempty"`
	Join    *AgentDef `yaml:"join,omitempty"`
	Payment float64   `yaml:"payment,omitempty"`
	Tick    bool      `yaml:"tick,omitempty"`
}

type AllocationDef struct {
	Agent  string `yaml:"agent"`
	Reason string `yaml:"reason"`
}

type Expected struct {
	Offers        int             `yaml:"offers"`
	Allocations   []AllocationDef `yaml:"allocations"`
	Deferrals     []string        `yaml:"deferrals"`
	Cancellations []string        `yaml:"cancellations"`
	Revenue       float64         `yaml:"revenue"`
	Pending       int             `yaml:"pending"`
}

type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Grid        *GridDef      `yaml:"grid,omitempty"`
	City        *citymap.File `yaml:"city,omitempty"`
	Agents      []AgentDef    `yaml:"agents"`
	Steps       []Step        `yaml:"steps"`
	Expected    Expected      `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("%s: scenario has no name", path)
	}
	return &sc, nil
}

// Map builds the scenario city: the inline map when present, the grid
// otherwise.
func (sc *Scenario) Map() (*citymap.CityMap, error) {
	switch {
	case sc.City != nil:
		return citymap.Build(*sc.City)
	case sc.Grid != nil:
		return citymap.Grid(sc.Grid.Width, sc.Grid.Height)
	default:
		return nil, fmt.Errorf("scenario %s: grid or city required", sc.Name)
	}
}
