package simulator

import (
	"fmt"
	"math/rand"

	"github.com/kilianp07/taxidispatch/core/model"
	"github.com/kilianp07/taxidispatch/infra/citymap"
)

// GenerateFleet creates size taxis with IDs taxi-001..taxi-NNN parked on
// random nodes of city.
func GenerateFleet(size int, city *citymap.CityMap, rng *rand.Rand) []*Taxi {
	if size <= 0 {
		return nil
	}
	nodes := city.Nodes()
	taxis := make([]*Taxi, size)
	for i := range taxis {
		at := nodes[rng.Intn(len(nodes))]
		taxis[i] = NewTaxi(model.AgentID(fmt.Sprintf("taxi-%03d", i+1)), i+1, at)
	}
	return taxis
}

// FareGenerator draws fares calling for service.
type FareGenerator struct {
	nodes   []model.Coord
	rate    float64
	maxTick int
	rng     *rand.Rand
}

// NewFareGenerator builds a generator over the nodes of city.
func NewFareGenerator(city *citymap.CityMap, rate float64, maxPerTick int, rng *rand.Rand) *FareGenerator {
	return &FareGenerator{nodes: city.Nodes(), rate: rate, maxTick: maxPerTick, rng: rng}
}

// Next returns the fares calling at tick. Each fare has distinct origin and
// destination and keys are unique within the tick.
func (g *FareGenerator) Next(tick int) []model.FareKey {
	if len(g.nodes) < 2 {
		return nil
	}
	var out []model.FareKey
	seen := make(map[model.FareKey]bool)
	for len(out) < g.maxTick && g.rng.Float64() < g.rate {
		o := g.nodes[g.rng.Intn(len(g.nodes))]
		d := g.nodes[g.rng.Intn(len(g.nodes))]
		k := model.FareKey{Origin: o, Destination: d, CallTime: tick}
		if o == d || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
