package dispatch

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/taxidispatch/core/model"
)

const testWorld model.WorldID = "w1"

type notice struct {
	Origin model.Coord
	Agent  model.AgentID
}

type broadcast struct {
	Origin, Destination model.Coord
	Price               float64
}

// fakeEnv is a grid world where every coordinate exists unless listed in
// missing and travel time defaults to the Manhattan distance.
type fakeEnv struct {
	mu          sync.Mutex
	missing     map[model.Coord]bool
	travel      func(a, b model.Coord) float64
	broadcasts  []broadcast
	allocations []notice
	cancels     []notice
	order       []string
	onBroadcast func(origin, destination model.Coord)
	onAllocate  func(origin model.Coord, agent model.AgentID)
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{missing: map[model.Coord]bool{}, travel: manhattan}
}

func manhattan(a, b model.Coord) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return float64(dx + dy)
}

func (e *fakeEnv) WorldID() model.WorldID { return testWorld }

func (e *fakeEnv) ResolveNode(c model.Coord) (model.Node, bool) {
	if e.missing[c] {
		return model.Node{}, false
	}
	return model.Node{Coord: c}, true
}

func (e *fakeEnv) Distance(a, b model.Node) float64   { return manhattan(a.Coord, b.Coord) }
func (e *fakeEnv) TravelTime(a, b model.Node) float64 { return e.travel(a.Coord, b.Coord) }

func (e *fakeEnv) BroadcastFare(origin, destination model.Coord, price float64) int {
	e.mu.Lock()
	e.broadcasts = append(e.broadcasts, broadcast{origin, destination, price})
	e.order = append(e.order, "broadcast "+origin.String())
	cb := e.onBroadcast
	e.mu.Unlock()
	if cb != nil {
		cb(origin, destination)
	}
	return 1
}

func (e *fakeEnv) AllocateFare(origin model.Coord, agent model.AgentID) {
	e.mu.Lock()
	e.allocations = append(e.allocations, notice{origin, agent})
	e.order = append(e.order, "allocate "+origin.String())
	cb := e.onAllocate
	e.mu.Unlock()
	if cb != nil {
		cb(origin, agent)
	}
}

func (e *fakeEnv) CancelFare(origin model.Coord, agent model.AgentID) {
	e.mu.Lock()
	e.cancels = append(e.cancels, notice{origin, agent})
	e.order = append(e.order, "cancel "+origin.String())
	e.mu.Unlock()
}

func (e *fakeEnv) allocated() []notice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]notice(nil), e.allocations...)
}

func (e *fakeEnv) notifications() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

func taxi(id string, num int, at model.Coord, path ...model.Coord) *model.AgentSnapshot {
	return &model.AgentSnapshot{AgentID: model.AgentID(id), Num: num, Location: at, Path: path}
}

func newTestCoordinator(t *testing.T, env *fakeEnv, agents ...model.Agent) *Coordinator {
	t.Helper()
	ResetMetrics(prometheus.NewRegistry())
	c, err := NewCoordinator(env, agents, nil, NewMemoryLedger(), DefaultPricingPolicy(), nil, nil, nil)
	require.NoError(t, err)
	return c
}
