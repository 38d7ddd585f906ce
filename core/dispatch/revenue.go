package dispatch

import (
	"sync"

	"github.com/kilianp07/taxidispatch/core/model"
)

// RevenueLedger accumulates the payments made to the dispatcher.
type RevenueLedger struct {
	mu    sync.Mutex
	total float64
}

// Receive credits amount and returns the new total.
func (l *RevenueLedger) Receive(amount float64) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.total += amount
	return l.total
}

// Total returns the dispatcher's revenue so far.
func (l *RevenueLedger) Total() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.total
}

// Report summarizes dispatcher and agent revenue. Agent revenue is whatever
// the agents report about themselves.
func (l *RevenueLedger) Report(agents []model.Agent) model.RevenueReport {
	rep := model.RevenueReport{
		Dispatcher: l.Total(),
		Agents:     make([]model.AgentRevenue, 0, len(agents)),
	}
	rep.Total = rep.Dispatcher
	for _, a := range agents {
		rev := a.Revenue()
		rep.Agents = append(rep.Agents, model.AgentRevenue{Agent: a.ID(), Number: a.Number(), Revenue: rev})
		rep.Total += rev
	}
	return rep
}
