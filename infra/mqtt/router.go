package mqtt

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/kilianp07/taxidispatch/core/dispatch"
	"github.com/kilianp07/taxidispatch/core/logger"
	"github.com/kilianp07/taxidispatch/core/model"
	coremqtt "github.com/kilianp07/taxidispatch/core/mqtt"
)

// Inbound is the dispatcher side of the protocol. *dispatch.Coordinator
// implements it.
type Inbound interface {
	NewFare(world model.WorldID, origin, destination model.Coord, callTime int)
	CancelFare(world model.WorldID, origin, destination model.Coord, callTime int)
	FareBid(origin model.Coord, agent model.AgentID) dispatch.BidOutcome
	PaymentReceived(world model.WorldID, amount float64)
	AddAgent(agent model.Agent) bool
}

// Router decodes inbound messages and forwards them to the dispatcher.
// Messages without a world are attributed to the router's world.
type Router struct {
	world model.WorldID
	log   logger.Logger

	mu      sync.RWMutex
	inbound Inbound
	agents  map[model.AgentID]*RemoteAgent
	order   []model.AgentID
}

// NewRouter creates a router for world. Bind must be called before messages
// reach the dispatcher; earlier fare and bid messages are dropped.
func NewRouter(world model.WorldID, log logger.Logger) *Router {
	if log == nil {
		log = logger.Nop{}
	}
	return &Router{world: world, log: log, agents: make(map[model.AgentID]*RemoteAgent)}
}

// Bind sets the dispatcher receiving messages. Agents that reported state
// before the call are added to it.
func (r *Router) Bind(in Inbound) {
	r.mu.Lock()
	r.inbound = in
	agents := make([]*RemoteAgent, 0, len(r.order))
	for _, id := range r.order {
		agents = append(agents, r.agents[id])
	}
	r.mu.Unlock()
	if in == nil {
		return
	}
	for _, a := range agents {
		in.AddAgent(a)
	}
}

// Len returns the number of taxis that reported state.
func (r *Router) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Agent returns a remote agent by ID.
func (r *Router) Agent(id model.AgentID) (*RemoteAgent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// Snapshots returns the last reported state of every taxi in arrival
// order.
func (r *Router) Snapshots() []model.AgentSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.AgentSnapshot, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, model.Snapshot(r.agents[id]))
	}
	return out
}

// HandleMessage implements Handler. topic is relative to the prefix.
func (r *Router) HandleMessage(topic string, payload []byte) {
	var err error
	switch {
	case topic == coremqtt.TopicNewFare:
		err = r.onFareCall(payload, false)
	case topic == coremqtt.TopicCancelFare:
		err = r.onFareCall(payload, true)
	case topic == coremqtt.TopicBid:
		err = r.onBid(payload)
	case topic == coremqtt.TopicPayments:
		err = r.onPayment(payload)
	case strings.HasSuffix(topic, "/state"):
		err = r.onState(strings.TrimSuffix(topic, "/state"), payload)
	default:
		r.log.Warnf("ignoring message on %s", topic)
		return
	}
	if err != nil {
		r.log.Errorf("decode %s: %v", topic, err)
	}
}

func (r *Router) target() Inbound {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inbound
}

func (r *Router) worldOf(w string) model.WorldID {
	if w == "" {
		return r.world
	}
	return model.WorldID(w)
}

func (r *Router) onFareCall(payload []byte, cancel bool) error {
	var m coremqtt.FareCall
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	in := r.target()
	if in == nil {
		r.log.Warnf("no dispatcher bound, dropping fare %s->%s", m.Origin, m.Destination)
		return nil
	}
	if cancel {
		in.CancelFare(r.worldOf(m.World), m.Origin, m.Destination, m.CallTime)
	} else {
		in.NewFare(r.worldOf(m.World), m.Origin, m.Destination, m.CallTime)
	}
	return nil
}

func (r *Router) onBid(payload []byte) error {
	var m coremqtt.Bid
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	in := r.target()
	if in == nil {
		r.log.Warnf("no dispatcher bound, dropping bid from %s", m.Agent)
		return nil
	}
	if out := in.FareBid(m.Origin, m.Agent); out != dispatch.BidAccepted {
		r.log.Debugf("bid from %s at %s: %s", m.Agent, m.Origin, out)
	}
	return nil
}

func (r *Router) onPayment(payload []byte) error {
	var m coremqtt.Payment
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	if in := r.target(); in != nil {
		in.PaymentReceived(r.worldOf(m.World), m.Amount)
	}
	return nil
}

func (r *Router) onState(agent string, payload []byte) error {
	var m coremqtt.AgentState
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	if m.Agent == "" {
		m.Agent = model.AgentID(agent)
	}
	r.mu.Lock()
	a, ok := r.agents[m.Agent]
	if ok {
		r.mu.Unlock()
		a.Update(m)
		return nil
	}
	a = NewRemoteAgent(m)
	r.agents[m.Agent] = a
	r.order = append(r.order, m.Agent)
	in := r.inbound
	r.mu.Unlock()
	if in != nil {
		in.AddAgent(a)
	}
	return nil
}
