package mqtt

import "github.com/kilianp07/taxidispatch/core/model"

// Topic names relative to the configured prefix.
const (
	TopicBroadcast  = "fares/broadcast"
	TopicNewFare    = "fares/new"
	TopicCancelFare = "fares/cancel"
	TopicBid        = "fares/bid"
	TopicPayments   = "payments"
	TopicAcks       = "acks"
	// Agent scoped topics are formatted with the agent ID.
	TopicAllocation = "%s/allocation"
	TopicCancel     = "%s/cancel"
	TopicState      = "%s/state"
)

// FareOffer is broadcast once a fare has been priced.
type FareOffer struct {
	MessageID   string      `json:"message_id"`
	World       string      `json:"world"`
	Origin      model.Coord `json:"origin"`
	Destination model.Coord `json:"destination"`
	Price       float64     `json:"price"`
	Timestamp   int64       `json:"timestamp"`
}

// Allocation tells a taxi it won the fare waiting at Origin.
type Allocation struct {
	MessageID string        `json:"message_id"`
	Agent     model.AgentID `json:"agent"`
	Origin    model.Coord   `json:"origin"`
	Timestamp int64         `json:"timestamp"`
}

// Cancellation tells a taxi the fare at Origin it was serving is gone.
type Cancellation struct {
	MessageID string        `json:"message_id"`
	Agent     model.AgentID `json:"agent"`
	Origin    model.Coord   `json:"origin"`
	Timestamp int64         `json:"timestamp"`
}

// Ack confirms delivery of an allocation or cancellation.
type Ack struct {
	MessageID string        `json:"message_id"`
	Agent     model.AgentID `json:"agent"`
}

// FareCall is published by the world when a fare calls for service or
// abandons its request.
type FareCall struct {
	World       string      `json:"world"`
	Origin      model.Coord `json:"origin"`
	Destination model.Coord `json:"destination"`
	CallTime    int         `json:"call_time"`
}

// Bid is a taxi's offer to serve the first open fare at Origin.
type Bid struct {
	Agent  model.AgentID `json:"agent"`
	Origin model.Coord   `json:"origin"`
}

// Payment is the fee paid to the dispatcher for a completed fare.
type Payment struct {
	World  string  `json:"world"`
	Amount float64 `json:"amount"`
}

// AgentState is the periodic position report of a taxi.
type AgentState struct {
	Agent    model.AgentID `json:"agent"`
	Number   int           `json:"number"`
	Location model.Coord   `json:"location"`
	Path     []model.Coord `json:"path"`
	Revenue  float64       `json:"revenue"`
}
