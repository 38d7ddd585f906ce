package dispatch

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilianp07/taxidispatch/core/model"
)

type staticBoard struct {
	fares  []model.FareRequest
	report model.RevenueReport
}

func (b staticBoard) Fares() []model.FareRequest  { return b.fares }
func (b staticBoard) Report() model.RevenueReport { return b.report }

func TestFaresHandler_StateFilter(t *testing.T) {
	board := staticBoard{fares: []model.FareRequest{
		{Key: model.FareKey{CallTime: 1}},
		{Key: model.FareKey{CallTime: 2}, Price: 12},
		{Key: model.FareKey{CallTime: 3}, Price: 9, Agent: "t1", Bidders: []model.AgentID{"t1"}},
	}}
	h := NewFaresHandler(board)

	var all []fareView
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/fares", nil))
	if err := json.Unmarshal(rr.Body.Bytes(), &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 3 || all[0].State != "unpriced" || all[2].State != "assigned" {
		t.Fatalf("unexpected fares %#v", all)
	}

	var open []fareView
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/fares?state=open", nil))
	if err := json.Unmarshal(rr.Body.Bytes(), &open); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(open) != 1 || open[0].Key.CallTime != 2 {
		t.Fatalf("unexpected open fares %#v", open)
	}
}

func TestRevenueHandler(t *testing.T) {
	board := staticBoard{report: model.RevenueReport{
		Dispatcher: 3,
		Agents:     []model.AgentRevenue{{Agent: "t1", Number: 1, Revenue: 27}},
		Total:      30,
	}}
	rr := httptest.NewRecorder()
	NewRevenueHandler(board).ServeHTTP(rr, httptest.NewRequest("GET", "/api/revenue", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	var got model.RevenueReport
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 30 || len(got.Agents) != 1 {
		t.Fatalf("unexpected report %#v", got)
	}

	rr = httptest.NewRecorder()
	NewRevenueHandler(board).ServeHTTP(rr, httptest.NewRequest("DELETE", "/api/revenue", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 got %d", rr.Code)
	}
}

func TestFaresHandler_Rejects(t *testing.T) {
	h := NewFaresHandler(staticBoard{})
	cases := []struct {
		method string
		url    string
		code   int
	}{
		{"POST", "/api/fares", http.StatusMethodNotAllowed},
		{"GET", "/api/fares?state=bogus", http.StatusBadRequest},
		{"GET", "/api/fares?state=Open", http.StatusBadRequest},
		{"GET", "/api/fares?state=unpriced", http.StatusOK},
		{"GET", "/api/fares?state=assigned", http.StatusOK},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(c.method, c.url, nil))
		if rr.Code != c.code {
			t.Fatalf("%s %s: expected %d got %d", c.method, c.url, c.code, rr.Code)
		}
	}
}
