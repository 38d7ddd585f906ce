package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kilianp07/taxidispatch/core/model"
)

type fakeDispatcher struct{}

func (fakeDispatcher) Fares() []model.FareRequest    { return nil }
func (fakeDispatcher) Report() model.RevenueReport   { return model.RevenueReport{} }
func (fakeDispatcher) Agents() []model.AgentSnapshot { return nil }

func TestNewMuxRoutes(t *testing.T) {
	srv := httptest.NewServer(NewMux(Deps{Dispatcher: fakeDispatcher{}}))
	defer srv.Close()

	cases := map[string]int{
		"/api/fares":       http.StatusOK,
		"/api/revenue":     http.StatusOK,
		"/api/agents":      http.StatusOK,
		"/api/allocations": http.StatusNotFound,
		"/api/unknown":     http.StatusNotFound,
	}
	for path, code := range cases {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != code {
			t.Fatalf("%s: expected %d got %d", path, code, resp.StatusCode)
		}
	}
}
