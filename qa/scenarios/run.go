package scenarios

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/kilianp07/taxidispatch/core/dispatch"
	"github.com/kilianp07/taxidispatch/core/dispatch/logging"
	"github.com/kilianp07/taxidispatch/core/model"
	"github.com/kilianp07/taxidispatch/infra/citymap"
)

// Notice is a message the dispatcher sent to an agent.
type Notice struct {
	Agent  model.AgentID
	Origin model.Coord
}

// Outcome records what the dispatcher did during a scenario.
type Outcome struct {
	Offers        int
	Allocations   []logging.LogRecord
	Deferrals     []logging.LogRecord
	Notified      []Notice
	Cancellations []Notice
	Revenue       float64
	Pending       int
}

// scriptedWorld is the environment of a scenario: a city map plus a
// recorder for the dispatcher's notifications.
type scriptedWorld struct {
	*citymap.CityMap
	agents int
	out    *Outcome
}

func (w *scriptedWorld) WorldID() model.WorldID { return "qa" }

func (w *scriptedWorld) BroadcastFare(origin, destination model.Coord, price float64) int {
	w.out.Offers++
	return w.agents
}

func (w *scriptedWorld) AllocateFare(origin model.Coord, agent model.AgentID) {
	w.out.Notified = append(w.out.Notified, Notice{Agent: agent, Origin: origin})
}

func (w *scriptedWorld) CancelFare(origin model.Coord, agent model.AgentID) {
	w.out.Cancellations = append(w.out.Cancellations, Notice{Agent: agent, Origin: origin})
}

// decisions keeps the allocation log in memory.
type decisions struct {
	mu   sync.Mutex
	recs []logging.LogRecord
}

func (d *decisions) Append(_ context.Context, r logging.LogRecord) error {
	d.mu.Lock()
	d.recs = append(d.recs, r)
	d.mu.Unlock()
	return nil
}

func (d *decisions) Query(_ context.Context, q logging.LogQuery) ([]logging.LogRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var res []logging.LogRecord
	for _, r := range d.recs {
		if q.Match(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (d *decisions) Close() error { return nil }

// Run plays the scenario against a fresh dispatcher.
func Run(sc *Scenario) (*Outcome, error) {
	city, err := sc.Map()
	if err != nil {
		return nil, err
	}
	out := &Outcome{}
	world := &scriptedWorld{CityMap: city, agents: len(sc.Agents), out: out}
	agents := make(map[model.AgentID]*model.AgentSnapshot, len(sc.Agents))
	initial := make([]model.Agent, 0, len(sc.Agents))
	for _, def := range sc.Agents {
		a := def.ToModel()
		agents[a.AgentID] = a
		initial = append(initial, a)
	}
	coord, err := dispatch.NewCoordinator(world, initial, city.Adjacency(), dispatch.NewMemoryLedger(), dispatch.DefaultPricingPolicy(), nil, nil, nil)
	if err != nil {
		return nil, err
	}
	log := &decisions{}
	coord.SetLogStore(log)

	for i, st := range sc.Steps {
		switch {
		case st.Fare != nil:
			coord.NewFare(world.WorldID(), st.Fare.Origin, st.Fare.Destination, st.Fare.CallTime)
		case st.Cancel != nil:
			coord.CancelFare(world.WorldID(), st.Cancel.Origin, st.Cancel.Destination, st.Cancel.CallTime)
		case st.Bid != nil:
			got := coord.FareBid(st.Bid.Origin, model.AgentID(st.Bid.Agent))
			if st.Bid.Outcome != "" && got.String() != st.Bid.Outcome {
				return nil, fmt.Errorf("step %d: bid from %s: expected %s, got %s", i, st.Bid.Agent, st.Bid.Outcome, got)
			}
		case st.Move != nil:
			a, ok := agents[model.AgentID(st.Move.ID)]
			if !ok {
				return nil, fmt.Errorf("step %d: unknown agent %s", i, st.Move.ID)
			}
			a.Location = st.Move.Location
			a.Path = append([]model.Coord(nil), st.Move.Path...)
		case st.Join != nil:
			a := st.Join.ToModel()
			agents[a.AgentID] = a
			world.agents++
			coord.AddAgent(a)
		case st.Payment != 0:
			coord.PaymentReceived(world.WorldID(), st.Payment)
		case st.Tick:
			coord.Tick(world.WorldID())
		default:
			return nil, fmt.Errorf("step %d: empty step", i)
		}
	}

	for _, r := range log.recs {
		if r.Outcome == logging.OutcomeAwarded {
			out.Allocations = append(out.Allocations, r)
		} else {
			out.Deferrals = append(out.Deferrals, r)
		}
	}
	out.Revenue = coord.Report().Dispatcher
	out.Pending = len(coord.Fares())
	return out, nil
}

// Check compares an outcome with the scenario expectations.
func (sc *Scenario) Check(out *Outcome) []error {
	var errs []error
	exp := sc.Expected
	if out.Offers != exp.Offers {
		errs = append(errs, fmt.Errorf("expected %d offers, got %d", exp.Offers, out.Offers))
	}
	got := make([]AllocationDef, 0, len(out.Allocations))
	for _, r := range out.Allocations {
		got = append(got, AllocationDef{Agent: string(r.Agent), Reason: r.Reason})
	}
	if !slices.Equal(got, exp.Allocations) {
		errs = append(errs, fmt.Errorf("expected allocations %v, got %v", exp.Allocations, got))
	}
	if len(got) != len(out.Notified) {
		errs = append(errs, fmt.Errorf("%d allocations logged but %d agents notified", len(got), len(out.Notified)))
	}
	deferrals := make([]string, 0, len(out.Deferrals))
	for _, r := range out.Deferrals {
		deferrals = append(deferrals, r.Reason)
	}
	if !slices.Equal(deferrals, exp.Deferrals) {
		errs = append(errs, fmt.Errorf("expected deferrals %v, got %v", exp.Deferrals, deferrals))
	}
	cancelled := make([]string, 0, len(out.Cancellations))
	for _, n := range out.Cancellations {
		cancelled = append(cancelled, string(n.Agent))
	}
	if !slices.Equal(cancelled, exp.Cancellations) {
		errs = append(errs, fmt.Errorf("expected cancellations to %v, got %v", exp.Cancellations, cancelled))
	}
	if math.Abs(out.Revenue-exp.Revenue) > 1e-9 {
		errs = append(errs, fmt.Errorf("expected revenue %.2f, got %.2f", exp.Revenue, out.Revenue))
	}
	if out.Pending != exp.Pending {
		errs = append(errs, fmt.Errorf("expected %d pending fares, got %d", exp.Pending, out.Pending))
	}
	return errs
}
