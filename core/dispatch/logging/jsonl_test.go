package logging

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kilianp07/taxidispatch/core/model"
)

func TestJSONLStore_AppendQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	base := time.Unix(1000, 0)
	for i := 0; i < 3; i++ {
		rec := LogRecord{Timestamp: base.Add(time.Duration(i) * time.Minute), Tick: i, Outcome: OutcomeAwarded, Agent: "t1"}
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	// malformed lines are skipped
	f, _ := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	_, _ = f.WriteString("{not json\n")
	_ = f.Close()

	out, err := store.Query(context.Background(), LogQuery{Start: base.Add(time.Minute), End: base.Add(2 * time.Minute)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 || out[0].Tick != 1 {
		t.Fatalf("unexpected records %#v", out)
	}
}

func TestLogRecord_JSON(t *testing.T) {
	rec := LogRecord{
		Timestamp: time.Unix(0, 0),
		Fare:      model.FareKey{CallTime: 2},
		Bidders:   []model.AgentID{"t1"},
		Outcome:   OutcomeAwarded,
		Agent:     "t1",
	}
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"timestamp", "tick", "fare", "price", "bidders", "outcome", "agent", "reason"} {
		if _, ok := m[k]; !ok {
			t.Errorf("missing key %s", k)
		}
	}
}

func TestLogQuery_MatchAgent(t *testing.T) {
	rec := LogRecord{Agent: "w", Bidders: []model.AgentID{"w", "b"}}
	if !(LogQuery{AgentID: "b"}).Match(rec) {
		t.Fatalf("bidders should match")
	}
	if (LogQuery{AgentID: "z"}).Match(rec) {
		t.Fatalf("unrelated agent matched")
	}
}

func TestJSONLStore_LongRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	long := strings.Repeat("r", 1<<20)
	for _, rec := range []LogRecord{
		{Outcome: OutcomeDeferred, Reason: long},
		{Outcome: OutcomeAwarded, Agent: "t1"},
	} {
		if err := store.Append(context.Background(), rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	out, err := store.Query(context.Background(), LogQuery{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(out) != 2 || len(out[0].Reason) != len(long) || out[1].Agent != "t1" {
		t.Fatalf("unexpected records: %d", len(out))
	}
}

func TestScanRecords_LastLineWithoutNewline(t *testing.T) {
	in := `{"outcome":"awarded","agent":"t1"}` + "\n\n" + `{"outcome":"awarded","agent":"t2"}`
	out, err := scanRecords(strings.NewReader(in), LogQuery{}, nil)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(out) != 2 || out[1].Agent != "t2" {
		t.Fatalf("unexpected records %#v", out)
	}
}
