package events

import "github.com/kilianp07/taxidispatch/core/model"

// FareAllocated is published when the allocation engine awards a fare.
type FareAllocated struct {
	Key     model.FareKey
	Agent   model.AgentID
	Reason  string
	Price   float64
	Bidders []model.AgentID
	Tick    int
}

// AllocationDeferred is emitted when a fare with bidders could not be
// allocated this tick.
type AllocationDeferred struct {
	Key    model.FareKey
	Reason string
	Tick   int
}

func (FareAllocated) EventName() string      { return "fare_allocated" }
func (AllocationDeferred) EventName() string { return "allocation_deferred" }
