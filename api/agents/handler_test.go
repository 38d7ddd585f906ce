package agents

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilianp07/taxidispatch/core/agentstatus"
	"github.com/kilianp07/taxidispatch/core/model"
)

type roster []model.AgentSnapshot

func (r roster) Agents() []model.AgentSnapshot { return r }

func TestStatusHandler_Basic(t *testing.T) {
	store := agentstatus.NewMemoryStore()
	store.Set(agentstatus.Status{AgentID: "t1", Number: 1})
	live := roster{{AgentID: "t1", Num: 1, Location: model.Coord{X: 2, Y: 3}, Earned: 18}}
	h := NewStatusHandler(store, live)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/agents", nil)
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var out []View
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].AgentID != "t1" || out[0].CurrentStatus != agentstatus.StatusIdle {
		t.Fatalf("unexpected output %#v", out)
	}
	if out[0].Location == nil || *out[0].Location != (model.Coord{X: 2, Y: 3}) || out[0].Revenue != 18 {
		t.Fatalf("live state not joined: %#v", out[0])
	}
}

func TestStatusHandler_Filter(t *testing.T) {
	store := agentstatus.NewMemoryStore()
	store.Set(agentstatus.Status{AgentID: "t1"})
	store.Set(agentstatus.Status{AgentID: "t2"})
	store.RecordAward("t2", agentstatus.LastAward{Price: 9})
	h := NewStatusHandler(store, nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/agents?status=assigned", nil)
	h.ServeHTTP(rr, req)
	var out []View
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 1 || out[0].AgentID != "t2" || out[0].Location != nil {
		t.Fatalf("unexpected filter result %#v", out)
	}
}

func TestStatusHandler_MethodNotAllowed(t *testing.T) {
	h := NewStatusHandler(agentstatus.NewMemoryStore(), nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("POST", "/api/agents", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}

func TestStatusHandler_RejectsUnknownStatus(t *testing.T) {
	h := NewStatusHandler(agentstatus.NewMemoryStore(), nil)
	cases := []struct {
		url  string
		code int
	}{
		{"/api/agents?status=bogus", http.StatusBadRequest},
		{"/api/agents?status=IDLE", http.StatusBadRequest},
		{"/api/agents?status=idle", http.StatusOK},
		{"/api/agents?status=assigned", http.StatusOK},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", c.url, nil))
		if rr.Code != c.code {
			t.Fatalf("%s: expected %d got %d", c.url, c.code, rr.Code)
		}
	}
}
