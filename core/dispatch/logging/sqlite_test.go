package logging

import (
	"context"
	"testing"
	"time"

	"github.com/kilianp07/taxidispatch/core/model"
)

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:test.db?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer func() { _ = store.Close() }()
	now := time.Now()
	recs := []LogRecord{
		{
			Timestamp: now,
			Tick:      3,
			Fare:      model.FareKey{Origin: model.Coord{X: 1}, Destination: model.Coord{Y: 2}, CallTime: 1},
			Price:     12.5,
			Bidders:   []model.AgentID{"v1", "v2"},
			Outcome:   OutcomeAwarded,
			Agent:     "v1",
			Reason:    "first_timer",
		},
		{Timestamp: now.Add(time.Second), Tick: 4, Bidders: []model.AgentID{"v2"}, Outcome: OutcomeDeferred, Reason: "stuck_agent"},
	}
	for _, r := range recs {
		if err := store.Append(context.Background(), r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	out, err := store.Query(context.Background(), LogQuery{AgentID: "v1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].Fare != recs[0].Fare || out[0].Price != 12.5 {
		t.Fatalf("expected 1 matching record, got %#v", out)
	}
	out, err = store.Query(context.Background(), LogQuery{AgentID: "v2"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 || out[0].Tick != 3 {
		t.Fatalf("expected both records in order, got %#v", out)
	}
	out, err = store.Query(context.Background(), LogQuery{Outcome: OutcomeDeferred, Start: now.Add(500 * time.Millisecond)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 1 || out[0].Reason != "stuck_agent" {
		t.Fatalf("unexpected deferred records %#v", out)
	}
}
