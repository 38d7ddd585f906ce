package agents

import (
	"encoding/json"
	"net/http"

	"github.com/kilianp07/taxidispatch/core/agentstatus"
	"github.com/kilianp07/taxidispatch/core/model"
)

// Roster lists the agents known to a dispatcher.
type Roster interface {
	Agents() []model.AgentSnapshot
}

// View joins the status store entry of an agent with its live position.
type View struct {
	agentstatus.Status
	Location *model.Coord  `json:"location,omitempty"`
	Path     []model.Coord `json:"path,omitempty"`
	Revenue  float64       `json:"revenue"`
}

// NewStatusHandler returns an HTTP handler exposing agent status data via GET /api/agents.
// The status query parameter filters on idle or assigned agents; any other
// value is rejected with 400.
func NewStatusHandler(store agentstatus.Store, roster Roster) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		status := r.URL.Query().Get("status")
		switch status {
		case "", agentstatus.StatusIdle, agentstatus.StatusAssigned:
		default:
			http.Error(w, "unknown status "+status, http.StatusBadRequest)
			return
		}
		entries := store.List(agentstatus.Filter{Status: status})
		live := map[model.AgentID]model.AgentSnapshot{}
		if roster != nil {
			for _, a := range roster.Agents() {
				live[a.AgentID] = a
			}
		}
		out := make([]View, 0, len(entries))
		for _, st := range entries {
			v := View{Status: st}
			if a, ok := live[st.AgentID]; ok {
				loc := a.Location
				v.Location = &loc
				v.Path = a.Path
				v.Revenue = a.Earned
			}
			out = append(out, v)
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(out); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
