package mqtt

import (
	"fmt"
	"sync"
	"time"

	"github.com/kilianp07/taxidispatch/core/model"
	coremqtt "github.com/kilianp07/taxidispatch/core/mqtt"
)

// Client mirrors the core mqtt.Client interface.
type Client = coremqtt.Client

// MockClient is an in-memory Client used in tests.
type MockClient struct {
	Offers        []coremqtt.FareOffer
	Allocations   []coremqtt.Allocation
	Cancellations []coremqtt.Cancellation
	FailIDs       map[model.AgentID]bool
	FailOffers    bool
	AckResults    map[string]bool
	mu            sync.Mutex
}

// NewMockClient creates a new MockClient.
func NewMockClient() *MockClient {
	return &MockClient{
		FailIDs:    make(map[model.AgentID]bool),
		AckResults: make(map[string]bool),
	}
}

// PublishOffer records the offer or fails when FailOffers is set.
func (m *MockClient) PublishOffer(o coremqtt.FareOffer) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailOffers {
		return "", fmt.Errorf("publish failed")
	}
	o.MessageID = fmt.Sprintf("offer-%d", len(m.Offers))
	m.Offers = append(m.Offers, o)
	return o.MessageID, nil
}

// SendAllocation records the message or returns an error if configured to fail.
func (m *MockClient) SendAllocation(agent model.AgentID, origin model.Coord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[agent] {
		return "", fmt.Errorf("publish failed")
	}
	id := fmt.Sprintf("alloc-%s-%d", agent, len(m.Allocations))
	m.Allocations = append(m.Allocations, coremqtt.Allocation{MessageID: id, Agent: agent, Origin: origin})
	m.AckResults[id] = true
	return id, nil
}

// SendCancellation records the message or returns an error if configured to fail.
func (m *MockClient) SendCancellation(agent model.AgentID, origin model.Coord) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailIDs[agent] {
		return "", fmt.Errorf("publish failed")
	}
	id := fmt.Sprintf("cancel-%s-%d", agent, len(m.Cancellations))
	m.Cancellations = append(m.Cancellations, coremqtt.Cancellation{MessageID: id, Agent: agent, Origin: origin})
	m.AckResults[id] = true
	return id, nil
}

// WaitForAck simulates an immediate acknowledgment based on the stored result.
func (m *MockClient) WaitForAck(id string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	ok, exists := m.AckResults[id]
	m.mu.Unlock()
	if !exists {
		return false, coremqtt.ErrUnknownMessage
	}
	return ok, nil
}

// Sent returns copies of the recorded allocations and cancellations.
func (m *MockClient) Sent() ([]coremqtt.Allocation, []coremqtt.Cancellation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.Allocation(nil), m.Allocations...), append([]coremqtt.Cancellation(nil), m.Cancellations...)
}
