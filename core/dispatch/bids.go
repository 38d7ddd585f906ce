package dispatch

import "github.com/kilianp07/taxidispatch/core/model"

// BidOutcome tells what happened to a submitted bid.
type BidOutcome int

const (
	BidAccepted BidOutcome = iota
	// BidDuplicate means the agent already bid on the open fare.
	BidDuplicate
	BidNoOpenFare
	BidUnknownAgent
)

// String returns a human-readable representation of the outcome.
func (o BidOutcome) String() string {
	switch o {
	case BidAccepted:
		return "accepted"
	case BidDuplicate:
		return "duplicate_bid"
	case BidNoOpenFare:
		return "no_open_fare"
	case BidUnknownAgent:
		return "unknown_agent"
	default:
		return "unknown"
	}
}

// BidCollector records agents' interest in open fares.
type BidCollector struct {
	fares  *FareRegistry
	roster *Roster
}

// NewBidCollector returns a collector working on fares for the agents in
// roster.
func NewBidCollector(fares *FareRegistry, roster *Roster) *BidCollector {
	return &BidCollector{fares: fares, roster: roster}
}

// SubmitBid adds agent to the bidders of the first unassigned fare leaving
// origin. Only that fare is considered, so a repeated bid never spills over
// to the next fare. The returned key is set when the bid landed on, or was
// already recorded for, a fare.
func (b *BidCollector) SubmitBid(origin model.Coord, agent model.AgentID) (model.FareKey, BidOutcome) {
	if !b.roster.Known(agent) {
		return model.FareKey{}, BidUnknownAgent
	}
	for fare := range b.fares.FromOrigin(origin) {
		if fare.Assigned() {
			continue
		}
		if fare.HasBidder(agent) {
			return fare.Key, BidDuplicate
		}
		fare.Bidders = append(fare.Bidders, agent)
		return fare.Key, BidAccepted
	}
	return model.FareKey{}, BidNoOpenFare
}
