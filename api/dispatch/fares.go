package dispatch

import (
	"net/http"

	"github.com/kilianp07/taxidispatch/core/model"
)

// Board is the read side of a dispatcher. *dispatch.Coordinator implements
// it.
type Board interface {
	Fares() []model.FareRequest
	Report() model.RevenueReport
}

type fareView struct {
	model.FareRequest
	State string `json:"state"`
}

// NewFaresHandler lists the pending fares via GET /api/fares. The optional
// state query parameter keeps only unpriced, open or assigned fares; any
// other value is rejected with 400.
func NewFaresHandler(board Board) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !getOnly(w, r) {
			return
		}
		state := r.URL.Query().Get("state")
		if state != "" && !knownFareState(state) {
			http.Error(w, "unknown state "+state, http.StatusBadRequest)
			return
		}
		fares := board.Fares()
		out := make([]fareView, 0, len(fares))
		for i := range fares {
			st := fares[i].State().String()
			if state != "" && st != state {
				continue
			}
			out = append(out, fareView{FareRequest: fares[i], State: st})
		}
		writeJSON(w, out)
	})
}

func knownFareState(s string) bool {
	for _, st := range []model.FareState{model.FareUnpriced, model.FareOpen, model.FareAssigned} {
		if st.String() == s {
			return true
		}
	}
	return false
}

// NewRevenueHandler exposes the revenue report via GET /api/revenue.
func NewRevenueHandler(board Board) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !getOnly(w, r) {
			return
		}
		writeJSON(w, board.Report())
	})
}
