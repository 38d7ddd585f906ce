// Package citymap holds the street graph of a service area. It answers the
// node and travel time questions the dispatcher asks its world and the
// routes simulated taxis drive.
package citymap

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kilianp07/taxidispatch/core/model"
)

// CityMap is a directed street graph weighted by traffic adjusted travel
// time. It is safe for concurrent use once built.
type CityMap struct {
	g       *simple.WeightedDirectedGraph
	ids     map[model.Coord]int64
	coords  map[int64]model.Coord
	traffic map[model.Coord]float64
	adj     model.Adjacency
	order   []model.Coord

	mu    sync.Mutex
	trees map[int64]path.Shortest
}

func newCityMap() *CityMap {
	return &CityMap{
		g:       simple.NewWeightedDirectedGraph(0, math.Inf(1)),
		ids:     make(map[model.Coord]int64),
		coords:  make(map[int64]model.Coord),
		traffic: make(map[model.Coord]float64),
		adj:     make(model.Adjacency),
		trees:   make(map[int64]path.Shortest),
	}
}

func (m *CityMap) addNode(c model.Coord, traffic float64) {
	if _, ok := m.ids[c]; ok {
		return
	}
	if traffic <= 0 {
		traffic = 1
	}
	n := m.g.NewNode()
	m.g.AddNode(n)
	m.ids[c] = n.ID()
	m.coords[n.ID()] = c
	m.traffic[c] = traffic
	m.adj[c] = make(map[model.Coord]model.Edge)
	m.order = append(m.order, c)
}

func (m *CityMap) addStreet(from model.Coord, n model.Neighbour) error {
	if from == n.Coord {
		return fmt.Errorf("citymap: street %q loops on %s", n.Label, from)
	}
	fid, ok := m.ids[from]
	if !ok {
		return fmt.Errorf("citymap: unknown node %s", from)
	}
	tid, ok := m.ids[n.Coord]
	if !ok {
		return fmt.Errorf("citymap: street %q from %s leads to unknown node %s", n.Label, from, n.Coord)
	}
	d := euclid(from, n.Coord)
	// Traffic at the entered node slows the whole segment.
	w := d * m.traffic[n.Coord]
	m.g.SetWeightedEdge(m.g.NewWeightedEdge(simple.Node(fid), simple.Node(tid), w))
	m.adj[from][n.Coord] = model.Edge{Label: n.Label, Distance: d}
	return nil
}

// ResolveNode reports whether c is a node of the map.
func (m *CityMap) ResolveNode(c model.Coord) (model.Node, bool) {
	_, ok := m.ids[c]
	return model.Node{Coord: c}, ok
}

// Distance is the straight line distance between two nodes.
func (m *CityMap) Distance(a, b model.Node) float64 {
	return euclid(a.Coord, b.Coord)
}

// TravelTime is the weight of the shortest route from a to b, +Inf when b
// cannot be reached or either node is unknown.
func (m *CityMap) TravelTime(a, b model.Node) float64 {
	from, ok := m.ids[a.Coord]
	if !ok {
		return math.Inf(1)
	}
	to, ok := m.ids[b.Coord]
	if !ok {
		return math.Inf(1)
	}
	if from == to {
		return 0
	}
	return m.tree(from).WeightTo(to)
}

// Route returns the nodes of the shortest route from a to b, excluding a.
// It returns nil when b cannot be reached.
func (m *CityMap) Route(a, b model.Coord) []model.Coord {
	from, ok := m.ids[a]
	if !ok {
		return nil
	}
	to, ok := m.ids[b]
	if !ok || from == to {
		return nil
	}
	nodes, w := m.tree(from).To(to)
	if math.IsInf(w, 1) || len(nodes) < 2 {
		return nil
	}
	out := make([]model.Coord, 0, len(nodes)-1)
	for _, n := range nodes[1:] {
		out = append(out, m.coords[n.ID()])
	}
	return out
}

func (m *CityMap) tree(from int64) path.Shortest {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trees[from]
	if !ok {
		t = path.DijkstraFrom(simple.Node(from), m.g)
		m.trees[from] = t
	}
	return t
}

// Nodes lists the map nodes in the order they were added.
func (m *CityMap) Nodes() []model.Coord { return slices.Clone(m.order) }

// Len returns the number of nodes.
func (m *CityMap) Len() int { return len(m.order) }

// Neighbours returns the streets leaving c.
func (m *CityMap) Neighbours(c model.Coord) []model.Neighbour {
	id, ok := m.ids[c]
	if !ok {
		return nil
	}
	out := make([]model.Neighbour, 0, len(m.adj[c]))
	to := m.g.From(id)
	for to.Next() {
		nc := m.coords[to.Node().ID()]
		out = append(out, model.Neighbour{Label: m.adj[c][nc].Label, Coord: nc})
	}
	slices.SortFunc(out, func(a, b model.Neighbour) int {
		if a.Coord.X != b.Coord.X {
			return a.Coord.X - b.Coord.X
		}
		return a.Coord.Y - b.Coord.Y
	})
	return out
}

// Adjacency returns a copy of the street map in the dispatcher's format.
func (m *CityMap) Adjacency() model.Adjacency {
	out := make(model.Adjacency, len(m.adj))
	for c, edges := range m.adj {
		cp := make(map[model.Coord]model.Edge, len(edges))
		for n, e := range edges {
			cp[n] = e
		}
		out[c] = cp
	}
	return out
}

func euclid(a, b model.Coord) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
