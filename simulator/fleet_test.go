package simulator

import (
	"math/rand"
	"testing"

	"github.com/kilianp07/taxidispatch/infra/citymap"
)

func grid(t *testing.T, w, h int) *citymap.CityMap {
	t.Helper()
	m, err := citymap.Grid(w, h)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	return m
}

func TestGenerateFleetCount(t *testing.T) {
	city := grid(t, 3, 3)
	ts := GenerateFleet(5, city, rand.New(rand.NewSource(1)))
	if len(ts) != 5 {
		t.Fatalf("expected 5 taxis, got %d", len(ts))
	}
	if ts[0].ID() != "taxi-001" || ts[4].ID() != "taxi-005" || ts[4].Number() != 5 {
		t.Fatalf("unexpected ids %s %s", ts[0].ID(), ts[4].ID())
	}
	for _, tx := range ts {
		if _, ok := city.ResolveNode(tx.CurrentLocation()); !ok {
			t.Fatalf("%s parked off the map at %s", tx.ID(), tx.CurrentLocation())
		}
	}
	if GenerateFleet(0, city, rand.New(rand.NewSource(1))) != nil {
		t.Fatalf("expected no taxis")
	}
}

func TestFareGenerator(t *testing.T) {
	city := grid(t, 4, 4)
	gen := NewFareGenerator(city, 0.9, 3, rand.New(rand.NewSource(7)))
	total := 0
	for tick := 1; tick <= 50; tick++ {
		fares := gen.Next(tick)
		if len(fares) > 3 {
			t.Fatalf("tick %d produced %d fares", tick, len(fares))
		}
		seen := map[string]bool{}
		for _, k := range fares {
			if k.Origin == k.Destination || k.CallTime != tick || seen[k.String()] {
				t.Fatalf("bad fare %s at tick %d", k, tick)
			}
			seen[k.String()] = true
		}
		total += len(fares)
	}
	if total == 0 {
		t.Fatalf("no fares generated")
	}

	quiet := NewFareGenerator(city, 0, 3, rand.New(rand.NewSource(7)))
	if n := len(quiet.Next(1)); n != 0 {
		t.Fatalf("zero rate produced %d fares", n)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.GridWidth != 10 || cfg.Taxis != 4 || cfg.World != "sim" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	m, err := cfg.Map()
	if err != nil || m.Len() != 100 {
		t.Fatalf("map: %v", err)
	}
	cfg.FareRate = 1
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected fare_rate 1 to fail")
	}
}
