package logging

import (
	"context"
	"time"

	"github.com/kilianp07/taxidispatch/core/model"
)

// Outcomes of an allocation attempt.
const (
	OutcomeAwarded  = "awarded"
	OutcomeDeferred = "deferred"
)

// LogRecord captures one allocation decision.
type LogRecord struct {
	Timestamp time.Time       `json:"timestamp"`
	Tick      int             `json:"tick"`
	Fare      model.FareKey   `json:"fare"`
	Price     float64         `json:"price"`
	Bidders   []model.AgentID `json:"bidders"`
	Outcome   string          `json:"outcome"`
	Agent     model.AgentID   `json:"agent,omitempty"`
	Reason    string          `json:"reason"`
}

// LogQuery defines filters for retrieving records. Zero fields match
// everything.
type LogQuery struct {
	Start   time.Time
	End     time.Time
	AgentID model.AgentID
	Outcome string
}

// Match reports whether r passes every filter of q. An agent filter matches
// the winner as well as any bidder.
func (q LogQuery) Match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	if q.AgentID == "" || r.Agent == q.AgentID {
		return true
	}
	for _, id := range r.Bidders {
		if id == q.AgentID {
			return true
		}
	}
	return false
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}
