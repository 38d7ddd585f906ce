package dispatch

import (
	"errors"
	"maps"
	"sync"

	"github.com/kilianp07/taxidispatch/core/model"
)

// ServiceMap is the dispatcher's own copy of the street map. Nodes are
// checked against the world's node table as they are added.
type ServiceMap struct {
	mu   sync.RWMutex
	topo Topology
	adj  model.Adjacency
}

// NewServiceMap binds a map to topo, starting from initial. A nil topo leaves
// the map unbound and every AddNode fails with ErrNoEnvironment.
func NewServiceMap(topo Topology, initial model.Adjacency) *ServiceMap {
	m := &ServiceMap{topo: topo, adj: make(model.Adjacency, len(initial))}
	for c, ns := range initial {
		m.adj[c] = maps.Clone(ns)
	}
	return m
}

// AddNode sets the neighbours of coord, replacing what was known about it.
// Edge distances come from the topology. Nothing is stored when coord or any
// neighbour is unknown to the world.
func (m *ServiceMap) AddNode(coord model.Coord, neighbours []model.Neighbour) error {
	if m.topo == nil {
		return ErrNoEnvironment
	}
	node, ok := m.topo.ResolveNode(coord)
	if !ok {
		return &UnknownNodeError{Node: coord}
	}
	edges := make(map[model.Coord]model.Edge, len(neighbours))
	for _, nb := range neighbours {
		other, ok := m.topo.ResolveNode(nb.Coord)
		if !ok {
			c := nb.Coord
			return &UnknownNodeError{Node: coord, Neighbour: &c}
		}
		edges[nb.Coord] = model.Edge{Label: nb.Label, Distance: m.topo.Distance(node, other)}
	}
	m.mu.Lock()
	m.adj[coord] = edges
	m.mu.Unlock()
	return nil
}

// Import adopts other wholesale when the map is empty. Otherwise each node of
// other is added through AddNode; failing nodes are skipped and their errors
// joined.
func (m *ServiceMap) Import(other model.Adjacency) error {
	m.mu.Lock()
	if len(m.adj) == 0 {
		for c, ns := range other {
			m.adj[c] = maps.Clone(ns)
		}
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	var errs []error
	for c, ns := range other {
		nbs := make([]model.Neighbour, 0, len(ns))
		for nc, e := range ns {
			nbs = append(nbs, model.Neighbour{Label: e.Label, Coord: nc})
		}
		if err := m.AddNode(c, nbs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Neighbours returns a copy of the edges leaving c.
func (m *ServiceMap) Neighbours(c model.Coord) (map[model.Coord]model.Edge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ns, ok := m.adj[c]
	return maps.Clone(ns), ok
}

// Len returns the number of nodes in the map.
func (m *ServiceMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.adj)
}
