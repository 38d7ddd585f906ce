package dispatch

import (
	"math"

	"github.com/kilianp07/taxidispatch/core/model"
)

// Award reasons.
const (
	ReasonSingleBidder   = "single_bidder"
	ReasonFirstTimer     = "first_timer"
	ReasonFewestAwards   = "fewest_awards"
	ReasonClosestVeteran = "closest_veteran"
)

// Deferral reasons.
const (
	DeferStuckAgent         = "stuck_agent"
	DeferUnknownOrigin      = "unknown_origin"
	DeferUnknownDestination = "unknown_destination"
	DeferNoCandidate        = "no_candidate"
)

// Award names the winner of a fare.
type Award struct {
	Agent  model.AgentID
	Reason string
}

// Deferral explains why a fare was left unassigned for this tick.
type Deferral struct {
	Reason string
	// Blocker is the agent whose planned path triggered a stuck_agent
	// deferral.
	Blocker model.AgentID
}

// Decision is the outcome of one allocation attempt. Exactly one of Award and
// Deferral is set.
type Decision struct {
	Award    *Award
	Deferral *Deferral
}

type candidate struct {
	id     model.AgentID
	travel float64
}

// AllocationEngine picks the winning bidder of a fare. Agents that never won
// a fare come first, then agents with the fewest awards, and travel time to
// the origin only breaks ties.
type AllocationEngine struct {
	topo   Topology
	roster *Roster
	ledger FairnessLedger
}

// NewAllocationEngine returns an engine reading agents from roster and
// recording awards in ledger.
func NewAllocationEngine(topo Topology, roster *Roster, ledger FairnessLedger) *AllocationEngine {
	return &AllocationEngine{topo: topo, roster: roster, ledger: ledger}
}

// Allocate decides fare and, on an award, assigns the winner and records it
// in the fairness ledger. Fares that are already assigned or have no bidders
// are deferred with DeferNoCandidate. The caller must serialize calls.
func (e *AllocationEngine) Allocate(fare *model.FareRequest) Decision {
	if fare.Assigned() {
		return deferral(DeferNoCandidate, "")
	}
	d := e.decide(fare)
	if d.Award != nil {
		fare.Agent = d.Award.Agent
		e.ledger.RecordAward(d.Award.Agent)
	}
	return d
}

func deferral(reason string, blocker model.AgentID) Decision {
	return Decision{Deferral: &Deferral{Reason: reason, Blocker: blocker}}
}

func award(id model.AgentID, reason string) Decision {
	return Decision{Award: &Award{Agent: id, Reason: reason}}
}

func (e *AllocationEngine) decide(fare *model.FareRequest) Decision {
	origin, ok := e.topo.ResolveNode(fare.Key.Origin)
	if !ok {
		return deferral(DeferUnknownOrigin, "")
	}
	dest, ok := e.topo.ResolveNode(fare.Key.Destination)
	if !ok {
		return deferral(DeferUnknownDestination, "")
	}
	onward := e.topo.TravelTime(origin, dest)

	cands := make([]candidate, 0, len(fare.Bidders))
	for _, id := range fare.Bidders {
		agent, ok := e.roster.Get(id)
		if !ok {
			continue
		}
		travel := math.Inf(1)
		if at, ok := e.topo.ResolveNode(agent.CurrentLocation()); ok {
			travel = e.topo.TravelTime(at, origin)
		}
		if blocker, stuck := e.pathConflict(id, fare.Key, travel, travel+onward); stuck {
			return deferral(DeferStuckAgent, blocker)
		}
		cands = append(cands, candidate{id: id, travel: travel})
	}

	switch len(cands) {
	case 0:
		return deferral(DeferNoCandidate, "")
	case 1:
		return award(cands[0].id, ReasonSingleBidder)
	}

	var firstTimers, veterans []candidate
	for _, c := range cands {
		if _, ok := e.ledger.Awards(c.id); ok {
			veterans = append(veterans, c)
		} else {
			firstTimers = append(firstTimers, c)
		}
	}
	if len(firstTimers) > 0 {
		return award(closest(firstTimers).id, ReasonFirstTimer)
	}

	least, ok := e.fewestAwards()
	var tied []candidate
	if ok {
		for _, c := range veterans {
			if n, _ := e.ledger.Awards(c.id); n == least {
				tied = append(tied, c)
			}
		}
	}
	if len(tied) > 0 {
		return award(closest(tied).id, ReasonFewestAwards)
	}
	return award(closest(veterans).id, ReasonClosestVeteran)
}

// pathConflict reports another known agent whose plan already ends at the
// fare's origin after toOrigin stops, or at its destination after toDest
// stops.
func (e *AllocationEngine) pathConflict(bidder model.AgentID, key model.FareKey, toOrigin, toDest float64) (model.AgentID, bool) {
	for _, other := range e.roster.All() {
		if other.ID() == bidder {
			continue
		}
		path := other.PlannedPath()
		if len(path) == 0 {
			continue
		}
		n := float64(len(path))
		last := path[len(path)-1]
		if (last == key.Origin && n == toOrigin) || (last == key.Destination && n == toDest) {
			return other.ID(), true
		}
	}
	return "", false
}

// fewestAwards is the lowest count held by any known agent in the ledger.
func (e *AllocationEngine) fewestAwards() (int, bool) {
	least, found := 0, false
	for id, n := range e.ledger.Snapshot() {
		if !e.roster.Known(id) {
			continue
		}
		if !found || n < least {
			least, found = n, true
		}
	}
	return least, found
}

// closest returns the candidate with the smallest travel time; the earliest
// bidder wins ties.
func closest(cs []candidate) candidate {
	best := cs[0]
	for _, c := range cs[1:] {
		if c.travel < best.travel {
			best = c
		}
	}
	return best
}
