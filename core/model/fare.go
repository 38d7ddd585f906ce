package model

import "fmt"

// Coord is a grid coordinate in the service area.
type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.X, c.Y) }

// FareKey uniquely identifies a fare within a registry.
type FareKey struct {
	Origin      Coord `json:"origin"`
	Destination Coord `json:"destination"`
	CallTime    int   `json:"call_time"` // world clock tick at which the fare called
}

func (k FareKey) String() string {
	return fmt.Sprintf("%s->%s@%d", k.Origin, k.Destination, k.CallTime)
}

// FareState is the dispatch lifecycle state of a fare.
type FareState int

const (
	FareUnpriced FareState = iota
	FareOpen               // priced and waiting for an allocation
	FareAssigned
)

// String returns a human-readable representation of the fare state.
func (s FareState) String() string {
	switch s {
	case FareUnpriced:
		return "unpriced"
	case FareOpen:
		return "open"
	case FareAssigned:
		return "assigned"
	default:
		return "unknown"
	}
}

// FareRequest is a pending transportation request.
type FareRequest struct {
	Key     FareKey   `json:"key"`
	Price   float64   `json:"price"`           // 0 until priced
	Agent   AgentID   `json:"agent,omitempty"` // empty until allocated
	Bidders []AgentID `json:"bidders"`
}

// NewFareRequest returns an unpriced, unassigned fare with no bidders.
func NewFareRequest(key FareKey) *FareRequest {
	return &FareRequest{Key: key, Bidders: []AgentID{}}
}

// Priced reports whether a price has been set.
func (f *FareRequest) Priced() bool { return f.Price > 0 }

// Assigned reports whether an agent has been bound to the fare.
func (f *FareRequest) Assigned() bool { return f.Agent != "" }

// State derives the lifecycle state from price and allocation.
func (f *FareRequest) State() FareState {
	switch {
	case f.Assigned():
		return FareAssigned
	case f.Priced():
		return FareOpen
	default:
		return FareUnpriced
	}
}

// HasBidder reports whether id already bid on the fare.
func (f *FareRequest) HasBidder(id AgentID) bool {
	for _, b := range f.Bidders {
		if b == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of the registry.
func (f *FareRequest) Clone() FareRequest {
	cp := *f
	cp.Bidders = append([]AgentID(nil), f.Bidders...)
	return cp
}
