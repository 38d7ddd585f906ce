package mqtt

import (
	"slices"
	"sync"

	"github.com/kilianp07/taxidispatch/core/model"
	coremqtt "github.com/kilianp07/taxidispatch/core/mqtt"
)

// RemoteAgent is a taxi reached over MQTT. Its position and plan are the
// last ones it reported on its state topic.
type RemoteAgent struct {
	id model.AgentID

	mu       sync.RWMutex
	number   int
	location model.Coord
	path     []model.Coord
	revenue  float64
}

// NewRemoteAgent creates an agent from its first state report.
func NewRemoteAgent(s coremqtt.AgentState) *RemoteAgent {
	a := &RemoteAgent{id: s.Agent}
	a.Update(s)
	return a
}

// Update replaces the reported state.
func (a *RemoteAgent) Update(s coremqtt.AgentState) {
	a.mu.Lock()
	a.number = s.Number
	a.location = s.Location
	a.path = slices.Clone(s.Path)
	a.revenue = s.Revenue
	a.mu.Unlock()
}

func (a *RemoteAgent) ID() model.AgentID { return a.id }

func (a *RemoteAgent) Number() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.number
}

func (a *RemoteAgent) CurrentLocation() model.Coord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.location
}

func (a *RemoteAgent) PlannedPath() []model.Coord {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.path)
}

func (a *RemoteAgent) Revenue() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.revenue
}
