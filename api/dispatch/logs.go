package dispatch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/taxidispatch/core/dispatch/logging"
	"github.com/kilianp07/taxidispatch/core/model"
)

// NewLogHandler returns an HTTP handler exposing allocation decisions via GET /api/allocations.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
func NewLogHandler(store logging.LogStore, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !getOnly(w, r) {
			return
		}
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		if store == nil {
			http.Error(w, "allocation log disabled", http.StatusNotFound)
			return
		}
		q := logging.LogQuery{}
		var err error
		if q.Start, err = timeParam(r, "start"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if q.End, err = timeParam(r, "end"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		q.AgentID = model.AgentID(r.URL.Query().Get("agent_id"))
		switch o := r.URL.Query().Get("outcome"); o {
		case "", logging.OutcomeAwarded, logging.OutcomeDeferred:
			q.Outcome = o
		default:
			http.Error(w, "unknown outcome "+o, http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, records)
	})
}

// timeParam parses an optional RFC3339 query parameter. An absent parameter
// yields the zero time.
func timeParam(r *http.Request, name string) (time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: want RFC3339", name, s)
	}
	return t, nil
}

func getOnly(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
