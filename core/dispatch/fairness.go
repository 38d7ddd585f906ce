package dispatch

import (
	"maps"
	"sync"

	"github.com/kilianp07/taxidispatch/core/model"
)

// FairnessLedger counts the fares awarded to each agent. An agent missing
// from the ledger has never won a fare. Counts only grow, and only the
// AllocationEngine records awards.
type FairnessLedger interface {
	Awards(id model.AgentID) (int, bool)
	// Snapshot returns a copy of every count.
	Snapshot() map[model.AgentID]int
	// RecordAward increments the agent's count and returns the new value.
	RecordAward(id model.AgentID) int
}

// MemoryLedger is the in-process FairnessLedger.
type MemoryLedger struct {
	mu     sync.RWMutex
	counts map[model.AgentID]int
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{counts: make(map[model.AgentID]int)}
}

// Awards returns the count for id and whether id ever won a fare.
func (l *MemoryLedger) Awards(id model.AgentID) (int, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n, ok := l.counts[id]
	return n, ok
}

// Snapshot returns a copy of every count.
func (l *MemoryLedger) Snapshot() map[model.AgentID]int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return maps.Clone(l.counts)
}

// RecordAward increments the count for id and returns the new value.
func (l *MemoryLedger) RecordAward(id model.AgentID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[id]++
	return l.counts[id]
}

// restore raises the count for id to n. Lower values are ignored so counts
// never decrease.
func (l *MemoryLedger) restore(id model.AgentID, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.counts[id]; !ok || n > cur {
		l.counts[id] = n
	}
}
