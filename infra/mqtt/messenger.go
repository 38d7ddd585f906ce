package mqtt

import (
	"sync"
	"time"

	"github.com/kilianp07/taxidispatch/core/logger"
	"github.com/kilianp07/taxidispatch/core/model"
	coremqtt "github.com/kilianp07/taxidispatch/core/mqtt"
)

// Gateway delivers dispatcher notifications over MQTT. It implements
// dispatch.Messenger.
type Gateway struct {
	client     coremqtt.Client
	router     *Router
	ackTimeout time.Duration
	log        logger.Logger
	wg         sync.WaitGroup
}

// NewGateway wires a client to the router tracking the remote taxis. A zero
// ackTimeout disables acknowledgment tracking.
func NewGateway(client coremqtt.Client, router *Router, ackTimeout time.Duration, log logger.Logger) *Gateway {
	if log == nil {
		log = logger.Nop{}
	}
	return &Gateway{client: client, router: router, ackTimeout: ackTimeout, log: log}
}

// BroadcastFare publishes the offer and returns the number of taxis known
// to the router, or 0 when the publish failed.
func (g *Gateway) BroadcastFare(origin, destination model.Coord, price float64) int {
	offer := coremqtt.FareOffer{
		World:       string(g.router.world),
		Origin:      origin,
		Destination: destination,
		Price:       price,
	}
	if _, err := g.client.PublishOffer(offer); err != nil {
		g.log.Errorf("broadcast fare %s->%s: %v", origin, destination, err)
		return 0
	}
	return g.router.Len()
}

// AllocateFare notifies the winning taxi.
func (g *Gateway) AllocateFare(origin model.Coord, agent model.AgentID) {
	id, err := g.client.SendAllocation(agent, origin)
	if err != nil {
		g.log.Errorf("allocate fare at %s to %s: %v", origin, agent, err)
		return
	}
	g.awaitAck(id, agent, "allocation")
}

// CancelFare notifies the taxi serving a withdrawn fare.
func (g *Gateway) CancelFare(origin model.Coord, agent model.AgentID) {
	id, err := g.client.SendCancellation(agent, origin)
	if err != nil {
		g.log.Errorf("cancel fare at %s for %s: %v", origin, agent, err)
		return
	}
	g.awaitAck(id, agent, "cancellation")
}

func (g *Gateway) awaitAck(id string, agent model.AgentID, kind string) {
	if g.ackTimeout <= 0 {
		return
	}
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if ok, err := g.client.WaitForAck(id, g.ackTimeout); !ok {
			g.log.Warnf("%s %s to %s not acknowledged: %v", kind, id, agent, err)
		}
	}()
}

// Wait blocks until every pending acknowledgment resolved.
func (g *Gateway) Wait() { g.wg.Wait() }
