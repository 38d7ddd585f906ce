package dispatch

import "github.com/kilianp07/taxidispatch/core/model"

// Topology answers node and travel time questions about the world map.
// Implementations must not call back into the Coordinator.
type Topology interface {
	ResolveNode(c model.Coord) (model.Node, bool)
	Distance(a, b model.Node) float64
	// TravelTime is the traffic adjusted estimate in world ticks.
	TravelTime(a, b model.Node) float64
}

// Messenger delivers dispatcher notifications to the agents.
type Messenger interface {
	// BroadcastFare offers a priced fare to every agent and returns how many
	// were notified.
	BroadcastFare(origin, destination model.Coord, price float64) int
	AllocateFare(origin model.Coord, agent model.AgentID)
	CancelFare(origin model.Coord, agent model.AgentID)
}

// Environment is the world a Coordinator is bound to.
type Environment interface {
	Topology
	Messenger
	WorldID() model.WorldID
}
