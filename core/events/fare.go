package events

import "github.com/kilianp07/taxidispatch/core/model"

// Event is implemented by everything published on the dispatch bus.
type Event interface {
	EventName() string
}

// FareRegistered is published when a new fare enters the registry.
type FareRegistered struct {
	Key model.FareKey
}

// FareCancelled is published when a fare is removed before completion. Agent
// is empty when the fare had not been allocated yet.
type FareCancelled struct {
	Key   model.FareKey
	Agent model.AgentID
}

// FareBroadcast is published once a fare has been priced and offered.
type FareBroadcast struct {
	Key      model.FareKey
	Price    float64
	Notified int
}

func (FareRegistered) EventName() string { return "fare_registered" }
func (FareCancelled) EventName() string  { return "fare_cancelled" }
func (FareBroadcast) EventName() string  { return "fare_broadcast" }
