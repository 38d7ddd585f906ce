package agentstatus

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/taxidispatch/core/model"
)

// Agent states reported by the store.
const (
	StatusIdle     = "idle"
	StatusAssigned = "assigned"
)

// LastAward summarizes the most recent fare an agent won.
type LastAward struct {
	Fare      model.FareKey `json:"fare"`
	Price     float64       `json:"price"`
	Reason    string        `json:"reason"`
	Tick      int           `json:"tick"`
	Timestamp time.Time     `json:"timestamp"`
}

// Status captures the current known state of an agent.
type Status struct {
	AgentID       model.AgentID `json:"agent_id"`
	Number        int           `json:"number"`
	CurrentStatus string        `json:"current_status"`
	Awards        int           `json:"awards"`
	LastAward     *LastAward    `json:"last_award,omitempty"`
}

type Filter struct {
	Status string
}

type Store interface {
	Set(Status)
	List(Filter) []Status
	RecordAward(id model.AgentID, award LastAward)
	// RecordCancellation marks the agent idle again when its current fare
	// is cancelled.
	RecordCancellation(id model.AgentID, fare model.FareKey)
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[model.AgentID]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[model.AgentID]Status{}}
}

func (s *MemoryStore) Set(st Status) {
	s.mu.Lock()
	if st.CurrentStatus == "" {
		st.CurrentStatus = StatusIdle
	}
	s.data[st.AgentID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) RecordAward(id model.AgentID, award LastAward) {
	s.mu.Lock()
	st := s.data[id]
	if st.AgentID == "" {
		st.AgentID = id
	}
	st.LastAward = &award
	st.Awards++
	st.CurrentStatus = StatusAssigned
	s.data[id] = st
	s.mu.Unlock()
}

func (s *MemoryStore) RecordCancellation(id model.AgentID, fare model.FareKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.data[id]
	if !ok || st.LastAward == nil || st.LastAward.Fare != fare {
		return
	}
	st.CurrentStatus = StatusIdle
	s.data[id] = st
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.Status != "" && st.CurrentStatus != f.Status {
			continue
		}
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].AgentID < res[j].AgentID })
	return res
}
