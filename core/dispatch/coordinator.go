package dispatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kilianp07/taxidispatch/core/agentstatus"
	"github.com/kilianp07/taxidispatch/core/dispatch/logging"
	"github.com/kilianp07/taxidispatch/core/events"
	"github.com/kilianp07/taxidispatch/core/logger"
	"github.com/kilianp07/taxidispatch/core/metrics"
	"github.com/kilianp07/taxidispatch/core/model"
	"github.com/kilianp07/taxidispatch/core/monitoring"
	"github.com/kilianp07/taxidispatch/internal/eventbus"
)

// Coordinator is a dispatcher bound to one world. It prices new fares,
// collects bids and allocates fares once per tick.
//
// Every inbound operation is safe for concurrent use. State changes happen
// under one lock; notifications to the environment, sinks and stores are
// queued while the lock is held and delivered after it is released, in the
// order the state changes happened. The environment may call back into the
// Coordinator while being notified; notifications raised by the callback
// are delivered once the current one returns.
// Topology queries are made with the lock held and must not call back.
type Coordinator struct {
	env        Environment
	world      model.WorldID
	fares      *FareRegistry
	roster     *Roster
	pricing    *PricingEngine
	bids       *BidCollector
	ledger     FairnessLedger
	engine     *AllocationEngine
	revenue    *RevenueLedger
	serviceMap *ServiceMap
	logger     logger.Logger
	metrics    metrics.MetricsSink
	bus        *eventbus.Bus[events.Event]
	store      logging.LogStore
	status     agentstatus.Store
	monitor    monitoring.Monitor
	now        func() time.Time
	tick       int
	queue      outbox
	delivering bool
	mu         sync.Mutex
}

// NewCoordinator binds a dispatcher to env. agents and serviceMap seed the
// roster and the service map and may be empty. sink, bus and log are
// optional.
func NewCoordinator(env Environment, agents []model.Agent, serviceMap model.Adjacency, ledger FairnessLedger, policy PricingPolicy, sink metrics.MetricsSink, bus *eventbus.Bus[events.Event], log logger.Logger) (*Coordinator, error) {
	if env == nil {
		return nil, ErrNoEnvironment
	}
	if ledger == nil {
		return nil, errors.New("dispatch: nil fairness ledger provided to NewCoordinator")
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = logger.Nop{}
	}
	fares := NewFareRegistry()
	roster := NewRoster(agents)
	return &Coordinator{
		env:        env,
		world:      env.WorldID(),
		fares:      fares,
		roster:     roster,
		pricing:    NewPricingEngine(policy),
		bids:       NewBidCollector(fares, roster),
		ledger:     ledger,
		engine:     NewAllocationEngine(env, roster, ledger),
		revenue:    &RevenueLedger{},
		serviceMap: NewServiceMap(env, serviceMap),
		logger:     log,
		metrics:    sink,
		bus:        bus,
		monitor:    monitoring.NopMonitor{},
		now:        time.Now,
	}, nil
}

// SetLogStore configures the store used to persist allocation decisions.
func (c *Coordinator) SetLogStore(store logging.LogStore) {
	c.mu.Lock()
	c.store = store
	c.mu.Unlock()
}

// SetStatusStore configures the store used to persist agent status
// information. Agents already known are added to it.
func (c *Coordinator) SetStatusStore(store agentstatus.Store) {
	c.mu.Lock()
	c.status = store
	agents := c.roster.All()
	c.mu.Unlock()
	if store == nil {
		return
	}
	for _, a := range agents {
		store.Set(agentstatus.Status{AgentID: a.ID(), Number: a.Number()})
	}
}

// SetMonitor configures where sink and store failures are reported.
func (c *Coordinator) SetMonitor(mon monitoring.Monitor) {
	if mon == nil {
		mon = monitoring.NopMonitor{}
	}
	c.mu.Lock()
	c.monitor = mon
	c.mu.Unlock()
}

// World returns the identity of the bound world.
func (c *Coordinator) World() model.WorldID { return c.world }

// ServiceMap returns the dispatcher's street map.
func (c *Coordinator) ServiceMap() *ServiceMap { return c.serviceMap }

// AddAgent makes agent known to the dispatcher. It reports false when the
// agent was already known.
func (c *Coordinator) AddAgent(agent model.Agent) bool {
	c.mu.Lock()
	added := c.roster.Add(agent)
	h := c.hooksLocked()
	c.mu.Unlock()
	if !added {
		return false
	}
	if h.status != nil {
		h.status.Set(agentstatus.Status{AgentID: agent.ID(), Number: agent.Number()})
	}
	h.log.Infof("agent %s (taxi %d) joined", agent.ID(), agent.Number())
	return true
}

// AddMapNode sets the neighbours of a node in the service map.
func (c *Coordinator) AddMapNode(coord model.Coord, neighbours []model.Neighbour) error {
	return c.serviceMap.AddNode(coord, neighbours)
}

// ImportMap merges a whole adjacency into the service map.
func (c *Coordinator) ImportMap(m model.Adjacency) error {
	return c.serviceMap.Import(m)
}

// Handover takes over a fare already allocated by a previous dispatcher. The
// agent is added when unknown and the fare is stored with its price and
// agent, bypassing pricing and allocation. The fairness ledger is left
// untouched.
func (c *Coordinator) Handover(world model.WorldID, key model.FareKey, agent model.Agent, price float64) {
	if !c.sameWorld(world, "handover") || agent == nil {
		return
	}
	c.mu.Lock()
	added := c.roster.Add(agent)
	fare := c.fares.Register(key)
	fare.Price = price
	fare.Agent = agent.ID()
	tick := c.tick
	h := c.hooksLocked()
	c.mu.Unlock()

	faresRegistered.Inc()
	if h.status != nil {
		if added {
			h.status.Set(agentstatus.Status{AgentID: agent.ID(), Number: agent.Number()})
		}
		h.status.RecordAward(agent.ID(), agentstatus.LastAward{
			Fare: key, Price: price, Reason: "handover", Tick: tick, Timestamp: c.now(),
		})
	}
	h.publish(events.FareRegistered{Key: key})
	h.log.Infof("fare %s handed over to %s at %.2f", key, agent.ID(), price)
}

// NewFare registers a fare calling for service. A fare already stored under
// the same key is replaced.
func (c *Coordinator) NewFare(world model.WorldID, origin, destination model.Coord, callTime int) {
	if !c.sameWorld(world, "new fare") {
		return
	}
	key := model.FareKey{Origin: origin, Destination: destination, CallTime: callTime}
	c.mu.Lock()
	c.fares.Register(key)
	h := c.hooksLocked()
	c.mu.Unlock()

	faresRegistered.Inc()
	h.publish(events.FareRegistered{Key: key})
	h.log.Debugf("fare %s registered", key)
}

// CancelFare removes a fare and tells its agent, if one was allocated.
// Unknown fares are ignored.
func (c *Coordinator) CancelFare(world model.WorldID, origin, destination model.Coord, callTime int) {
	if !c.sameWorld(world, "cancel") {
		return
	}
	key := model.FareKey{Origin: origin, Destination: destination, CallTime: callTime}
	c.mu.Lock()
	removed, ok := c.fares.Cancel(key)
	h := c.hooksLocked()
	if ok {
		c.queue.add(func() {
			faresCancelled.Inc()
			if removed.Assigned() {
				c.env.CancelFare(origin, removed.Agent)
				if h.status != nil {
					h.status.RecordCancellation(removed.Agent, key)
				}
			}
			h.publish(events.FareCancelled{Key: key, Agent: removed.Agent})
			h.log.Infof("fare %s cancelled", key)
		})
	}
	c.mu.Unlock()
	if !ok {
		eventsIgnored.WithLabelValues("unknown_fare").Inc()
		return
	}
	c.deliver()
}

// FareBid records agent's bid on the open fare leaving origin.
func (c *Coordinator) FareBid(origin model.Coord, agent model.AgentID) BidOutcome {
	c.mu.Lock()
	key, outcome := c.bids.SubmitBid(origin, agent)
	h := c.hooksLocked()
	c.mu.Unlock()
	if outcome != BidAccepted {
		eventsIgnored.WithLabelValues(outcome.String()).Inc()
		h.log.Debugf("bid from %s at %s ignored: %s", agent, origin, outcome)
		return outcome
	}
	h.log.Debugf("bid from %s on fare %s", agent, key)
	return outcome
}

// PaymentReceived credits a completed fare's payment to the dispatcher.
func (c *Coordinator) PaymentReceived(world model.WorldID, amount float64) {
	if !c.sameWorld(world, "payment") {
		return
	}
	total := c.revenue.Receive(amount)
	c.mu.Lock()
	h := c.hooksLocked()
	c.mu.Unlock()

	dispatcherRevenue.Set(total)
	if pr, ok := h.sink.(metrics.PaymentRecorder); ok {
		if err := pr.RecordPayment(metrics.PaymentEvent{Amount: amount, Total: total, Time: c.now()}); err != nil {
			h.fail("payment metrics", err)
		}
	}
	h.publish(events.PaymentReceived{Amount: amount, Total: total})
}

// Tick runs one dispatch round: unpriced fares are priced and broadcast,
// priced fares with bidders go through allocation. A fare priced in this
// round is allocated at the earliest on the next one. The revenue report is
// published at the end of the round.
func (c *Coordinator) Tick(world model.WorldID) {
	if !c.sameWorld(world, "tick") {
		return
	}
	c.mu.Lock()
	c.tick++
	tick := c.tick
	h := c.hooksLocked()
	for fare := range c.fares.Pending() {
		switch fare.State() {
		case model.FareUnpriced:
			c.priceLocked(fare, h, &c.queue)
		case model.FareOpen:
			if len(fare.Bidders) > 0 {
				c.allocateLocked(fare, tick, h, &c.queue)
			}
		}
	}
	pending := c.fares.Len()
	agents := c.roster.All()
	c.mu.Unlock()

	c.deliver()
	c.publishRevenue(tick, pending, agents, h)
}

func (c *Coordinator) priceLocked(fare *model.FareRequest, h hooks, out *outbox) {
	travel := 0.0
	o, okO := c.env.ResolveNode(fare.Key.Origin)
	d, okD := c.env.ResolveNode(fare.Key.Destination)
	if okO && okD {
		travel = c.env.TravelTime(o, d)
	}
	fare.Price = c.pricing.Price(travel)
	key, price := fare.Key, fare.Price
	out.add(func() {
		n := c.env.BroadcastFare(key.Origin, key.Destination, price)
		farePrice.Observe(price)
		if br, ok := h.sink.(metrics.BroadcastRecorder); ok {
			if err := br.RecordBroadcast(metrics.BroadcastEvent{Key: key, Price: price, Notified: n, Time: c.now()}); err != nil {
				h.fail("broadcast metrics", err)
			}
		}
		h.publish(events.FareBroadcast{Key: key, Price: price, Notified: n})
		h.log.Debugw("fare broadcast", map[string]any{"fare": key.String(), "price": price, "notified": n})
	})
}

func (c *Coordinator) allocateLocked(fare *model.FareRequest, tick int, h hooks, out *outbox) {
	decision := c.engine.Allocate(fare)
	now := c.now()
	rec := logging.LogRecord{
		Timestamp: now,
		Tick:      tick,
		Fare:      fare.Key,
		Price:     fare.Price,
		Bidders:   slices.Clone(fare.Bidders),
	}
	if decision.Award == nil {
		reason := decision.Deferral.Reason
		rec.Outcome, rec.Reason = logging.OutcomeDeferred, reason
		out.add(func() {
			allocationDeferred.WithLabelValues(reason).Inc()
			if dr, ok := h.sink.(metrics.DeferralRecorder); ok {
				if err := dr.RecordDeferral(metrics.DeferralEvent{Key: rec.Fare, Reason: reason, Tick: tick, Time: now}); err != nil {
					h.fail("deferral metrics", err)
				}
			}
			h.audit(rec)
			h.publish(events.AllocationDeferred{Key: rec.Fare, Reason: reason, Tick: tick})
			h.log.Debugf("allocation of %s deferred: %s", rec.Fare, reason)
		})
		return
	}

	award := *decision.Award
	rec.Outcome, rec.Agent, rec.Reason = logging.OutcomeAwarded, award.Agent, award.Reason
	out.add(func() {
		c.env.AllocateFare(rec.Fare.Origin, award.Agent)
		faresAllocated.WithLabelValues(award.Reason).Inc()
		if err := h.sink.RecordAllocation([]metrics.AllocationRecord{{
			Key: rec.Fare, Agent: award.Agent, Reason: award.Reason, Price: rec.Price,
			Bidders: len(rec.Bidders), Tick: tick, Time: now,
		}}); err != nil {
			h.fail("allocation metrics", err)
		}
		if h.status != nil {
			h.status.RecordAward(award.Agent, agentstatus.LastAward{
				Fare: rec.Fare, Price: rec.Price, Reason: award.Reason, Tick: tick, Timestamp: now,
			})
		}
		h.audit(rec)
		h.publish(events.FareAllocated{
			Key: rec.Fare, Agent: award.Agent, Reason: award.Reason,
			Price: rec.Price, Bidders: rec.Bidders, Tick: tick,
		})
		h.log.Infof("fare %s allocated to %s (%s)", rec.Fare, award.Agent, award.Reason)
	})
}

func (c *Coordinator) publishRevenue(tick, pending int, agents []model.Agent, h hooks) {
	report := c.revenue.Report(agents)
	pendingFares.Set(float64(pending))
	if pr, ok := h.sink.(metrics.PendingRecorder); ok {
		if err := pr.RecordPendingFares(pending); err != nil {
			h.fail("pending metrics", err)
		}
	}
	if rr, ok := h.sink.(metrics.RevenueRecorder); ok {
		if err := rr.RecordRevenue(metrics.RevenueSnapshot{Tick: tick, Report: report, Time: c.now()}); err != nil {
			h.fail("revenue metrics", err)
		}
	}
	h.publish(events.RevenueReported{Tick: tick, Report: report})
	h.log.Debugw("revenue", map[string]any{"tick": tick, "dispatcher": report.Dispatcher, "total": report.Total})
}

// Run ticks the bound world for every value received on ticks until the
// context is canceled or ticks is closed.
func (c *Coordinator) Run(ctx context.Context, ticks <-chan time.Time) {
	c.mu.Lock()
	mon := c.monitor
	c.mu.Unlock()
	defer mon.Recover()
	for {
		select {
		case _, ok := <-ticks:
			if !ok {
				return
			}
			c.Tick(c.world)
		case <-ctx.Done():
			return
		}
	}
}

// Report returns the current revenue summary.
func (c *Coordinator) Report() model.RevenueReport {
	c.mu.Lock()
	agents := c.roster.All()
	c.mu.Unlock()
	return c.revenue.Report(agents)
}

// Fares returns a copy of the registry in enumeration order.
func (c *Coordinator) Fares() []model.FareRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fares.Snapshot()
}

// Fare returns a copy of the fare stored at key.
func (c *Coordinator) Fare(key model.FareKey) (model.FareRequest, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.fares.Lookup(key)
	if !ok {
		return model.FareRequest{}, false
	}
	return f.Clone(), true
}

// Agents returns snapshots of the known agents in the order they joined.
func (c *Coordinator) Agents() []model.AgentSnapshot {
	c.mu.Lock()
	agents := c.roster.All()
	c.mu.Unlock()
	out := make([]model.AgentSnapshot, 0, len(agents))
	for _, a := range agents {
		out = append(out, model.Snapshot(a))
	}
	return out
}

// Awards returns the fairness ledger counts.
func (c *Coordinator) Awards() map[model.AgentID]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ledger.Snapshot()
}

// Ticks returns how many rounds ran.
func (c *Coordinator) Ticks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tick
}

// Close releases resources held by the coordinator.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	h := c.hooksLocked()
	c.mu.Unlock()
	if h.bus != nil {
		h.bus.Close()
	}
	var err error
	if h.store != nil {
		err = h.store.Close()
	}
	h.monitor.Flush(2 * time.Second)
	return err
}

func (c *Coordinator) sameWorld(world model.WorldID, event string) bool {
	if world == c.world {
		return true
	}
	eventsIgnored.WithLabelValues("foreign_world").Inc()
	c.logger.Debugf("ignoring %s from world %q", event, world)
	return false
}

// hooks is a snapshot of the observers taken while the lock is held.
type hooks struct {
	log     logger.Logger
	sink    metrics.MetricsSink
	bus     *eventbus.Bus[events.Event]
	store   logging.LogStore
	status  agentstatus.Store
	monitor monitoring.Monitor
}

func (c *Coordinator) hooksLocked() hooks {
	return hooks{
		log:     c.logger,
		sink:    c.metrics,
		bus:     c.bus,
		store:   c.store,
		status:  c.status,
		monitor: c.monitor,
	}
}

func (h hooks) publish(e events.Event) {
	if h.bus != nil {
		h.bus.Publish(e)
	}
}

func (h hooks) audit(rec logging.LogRecord) {
	if h.store == nil {
		return
	}
	if err := h.store.Append(context.Background(), rec); err != nil {
		h.fail("audit log", err)
	}
}

func (h hooks) fail(component string, err error) {
	h.log.Errorf("%s error: %v", component, err)
	h.monitor.CaptureException(err, map[string]string{"component": component})
}

// outbox queues notifications produced under the lock.
type outbox []func()

func (o *outbox) add(f func()) { *o = append(*o, f) }

// deliver runs the queued notifications in FIFO order without holding the
// lock. Only one goroutine delivers at a time; a call made while another
// delivery runs returns at once and its notifications are picked up by the
// running delivery.
func (c *Coordinator) deliver() {
	c.mu.Lock()
	if c.delivering {
		c.mu.Unlock()
		return
	}
	c.delivering = true
	defer func() {
		c.delivering = false
		c.mu.Unlock()
	}()
	for len(c.queue) > 0 {
		next := c.queue[0]
		c.queue[0] = nil
		c.queue = c.queue[1:]
		c.mu.Unlock()
		c.run(next)
		c.mu.Lock()
	}
}

// run executes one notification. A panic is reported to the monitor so the
// queue keeps draining.
func (c *Coordinator) run(f func()) {
	defer func() {
		if r := recover(); r != nil {
			c.mu.Lock()
			h := c.hooksLocked()
			c.mu.Unlock()
			h.fail("notification", fmt.Errorf("panic: %v", r))
		}
	}()
	f()
}
