package dispatch

import "github.com/kilianp07/taxidispatch/core/model"

// Roster is the set of agents known to a dispatcher, in the order they were
// added. It is not safe for concurrent use.
type Roster struct {
	order []model.AgentID
	byID  map[model.AgentID]model.Agent
}

// NewRoster returns a roster holding agents. Duplicate IDs keep the first
// record.
func NewRoster(agents []model.Agent) *Roster {
	r := &Roster{byID: make(map[model.AgentID]model.Agent, len(agents))}
	for _, a := range agents {
		r.Add(a)
	}
	return r
}

// Add registers a. It reports false when an agent with the same ID is
// already known or a is nil.
func (r *Roster) Add(a model.Agent) bool {
	if a == nil {
		return false
	}
	if _, ok := r.byID[a.ID()]; ok {
		return false
	}
	r.byID[a.ID()] = a
	r.order = append(r.order, a.ID())
	return true
}

// Get returns the agent record for id.
func (r *Roster) Get(id model.AgentID) (model.Agent, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// Known reports whether id was added.
func (r *Roster) Known(id model.AgentID) bool {
	_, ok := r.byID[id]
	return ok
}

// All returns the agents in insertion order.
func (r *Roster) All() []model.Agent {
	out := make([]model.Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Len returns the number of known agents.
func (r *Roster) Len() int { return len(r.order) }
