// Package simulator runs an in-memory world: a city map, simulated taxis and
// randomly calling fares, driving a dispatcher tick by tick.
package simulator

import (
	"context"
	"math"
	"math/rand"
	"slices"

	"github.com/kilianp07/taxidispatch/core/dispatch"
	"github.com/kilianp07/taxidispatch/core/logger"
	"github.com/kilianp07/taxidispatch/core/model"
	"github.com/kilianp07/taxidispatch/infra/citymap"
)

// Dispatcher is the dispatcher API the world calls. *dispatch.Coordinator
// implements it.
type Dispatcher interface {
	NewFare(world model.WorldID, origin, destination model.Coord, callTime int)
	CancelFare(world model.WorldID, origin, destination model.Coord, callTime int)
	FareBid(origin model.Coord, agent model.AgentID) dispatch.BidOutcome
	PaymentReceived(world model.WorldID, amount float64)
	Tick(world model.WorldID)
}

type fare struct {
	key   model.FareKey
	price float64
	agent model.AgentID
}

// Stats counts what happened to the generated fares.
type Stats struct {
	Ticks     int `json:"ticks"`
	Called    int `json:"called"`
	Offered   int `json:"offered"`
	Bids      int `json:"bids"`
	Allocated int `json:"allocated"`
	PickedUp  int `json:"picked_up"`
	Completed int `json:"completed"`
	Abandoned int `json:"abandoned"`
}

// World is a simulated environment implementing dispatch.Environment. It is
// driven by a single goroutine; the dispatcher's notifications arrive
// synchronously from inside Step.
type World struct {
	id    model.WorldID
	cfg   Config
	city  *citymap.CityMap
	taxis []*Taxi
	byID  map[model.AgentID]*Taxi
	gen   *FareGenerator
	disp  Dispatcher
	log   logger.Logger

	clock   int
	waiting []*fare
	stats   Stats
}

var _ dispatch.Environment = (*World)(nil)

// NewWorld builds a world from cfg. Bind must be called before Step.
func NewWorld(cfg Config, city *citymap.CityMap, log logger.Logger) *World {
	if log == nil {
		log = logger.Nop{}
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	taxis := GenerateFleet(cfg.Taxis, city, rng)
	w := &World{
		id:    model.WorldID(cfg.World),
		cfg:   cfg,
		city:  city,
		taxis: taxis,
		byID:  make(map[model.AgentID]*Taxi, len(taxis)),
		gen:   NewFareGenerator(city, cfg.FareRate, cfg.MaxFaresPerTick, rng),
		log:   log,
	}
	for _, t := range taxis {
		w.byID[t.ID()] = t
	}
	return w
}

// Bind sets the dispatcher driven by the world.
func (w *World) Bind(d Dispatcher) { w.disp = d }

// WorldID implements dispatch.Environment.
func (w *World) WorldID() model.WorldID { return w.id }

// Agents returns the taxis as dispatcher agents.
func (w *World) Agents() []model.Agent {
	out := make([]model.Agent, len(w.taxis))
	for i, t := range w.taxis {
		out[i] = t
	}
	return out
}

// Taxis returns the simulated taxis.
func (w *World) Taxis() []*Taxi { return slices.Clone(w.taxis) }

// City returns the map of the world.
func (w *World) City() *citymap.CityMap { return w.city }

// Stats returns the counters so far.
func (w *World) Stats() Stats { return w.stats }

// Clock returns the current world tick.
func (w *World) Clock() int { return w.clock }

func (w *World) ResolveNode(c model.Coord) (model.Node, bool) { return w.city.ResolveNode(c) }
func (w *World) Distance(a, b model.Node) float64             { return w.city.Distance(a, b) }
func (w *World) TravelTime(a, b model.Node) float64           { return w.city.TravelTime(a, b) }

// BroadcastFare records the price and lets every idle taxi within the bid
// radius bid. All taxis are notified.
func (w *World) BroadcastFare(origin, destination model.Coord, price float64) int {
	if f := w.find(func(f *fare) bool {
		return f.key.Origin == origin && f.key.Destination == destination && f.price == 0
	}); f != nil {
		f.price = price
	}
	w.stats.Offered++
	on, _ := w.city.ResolveNode(origin)
	for _, t := range w.taxis {
		if !t.Idle() {
			continue
		}
		at, _ := w.city.ResolveNode(t.CurrentLocation())
		eta := w.city.TravelTime(at, on)
		if math.IsInf(eta, 1) || (w.cfg.BidRadius > 0 && eta > w.cfg.BidRadius) {
			continue
		}
		if w.disp.FareBid(origin, t.ID()) == dispatch.BidAccepted {
			w.stats.Bids++
		}
	}
	return len(w.taxis)
}

// AllocateFare hands the oldest unallocated fare at origin to the taxi.
func (w *World) AllocateFare(origin model.Coord, agent model.AgentID) {
	t, ok := w.byID[agent]
	if !ok {
		w.log.Warnf("allocation to unknown taxi %s", agent)
		return
	}
	f := w.find(func(f *fare) bool { return f.key.Origin == origin && f.agent == "" })
	if f == nil {
		w.log.Warnf("no waiting fare at %s for %s", origin, agent)
		return
	}
	if !t.accept(f, w.city) {
		w.log.Warnf("%s cannot reach fare %s, abandoning it", agent, f.key)
		w.abandon(f)
		return
	}
	f.agent = agent
	w.stats.Allocated++
}

// CancelFare drops the job from the taxi.
func (w *World) CancelFare(origin model.Coord, agent model.AgentID) {
	if t, ok := w.byID[agent]; ok {
		t.drop(origin, w.city)
	}
}

func (w *World) find(match func(*fare) bool) *fare {
	for _, f := range w.waiting {
		if match(f) {
			return f
		}
	}
	return nil
}

func (w *World) remove(f *fare) {
	w.waiting = slices.DeleteFunc(w.waiting, func(x *fare) bool { return x == f })
}

func (w *World) abandon(f *fare) {
	w.remove(f)
	w.stats.Abandoned++
	w.disp.CancelFare(w.id, f.key.Origin, f.key.Destination, f.key.CallTime)
}

// Step advances the world one tick. New fares call and impatient fares give
// up before the dispatcher ticks; every taxi then drives one node.
func (w *World) Step() {
	w.clock++
	w.stats.Ticks++
	for _, k := range w.gen.Next(w.clock) {
		// One unallocated fare per origin keeps bids and allocations, which
		// only name the origin, unambiguous.
		if w.find(func(f *fare) bool { return f.key.Origin == k.Origin && f.agent == "" }) != nil {
			continue
		}
		w.waiting = append(w.waiting, &fare{key: k})
		w.stats.Called++
		w.disp.NewFare(w.id, k.Origin, k.Destination, k.CallTime)
	}
	if w.cfg.Patience > 0 {
		for _, f := range slices.Clone(w.waiting) {
			if f.agent == "" && w.clock-f.key.CallTime > w.cfg.Patience {
				w.abandon(f)
			}
		}
	}
	w.disp.Tick(w.id)
	for _, t := range w.taxis {
		picked, done := t.step()
		for _, f := range picked {
			w.remove(f)
			w.stats.PickedUp++
		}
		for _, f := range done {
			fee := f.price * w.cfg.Commission
			t.earn(f.price - fee)
			w.stats.Completed++
			w.disp.PaymentReceived(w.id, fee)
		}
	}
}

// Run steps the world n times or until ctx is done.
func (w *World) Run(ctx context.Context, n int) Stats {
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		w.Step()
	}
	return w.stats
}
