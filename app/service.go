package app

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/taxidispatch/api"
	"github.com/kilianp07/taxidispatch/app/plugins"
	"github.com/kilianp07/taxidispatch/config"
	"github.com/kilianp07/taxidispatch/core/agentstatus"
	"github.com/kilianp07/taxidispatch/core/dispatch"
	dispatchlog "github.com/kilianp07/taxidispatch/core/dispatch/logging"
	"github.com/kilianp07/taxidispatch/core/events"
	coremetrics "github.com/kilianp07/taxidispatch/core/metrics"
	"github.com/kilianp07/taxidispatch/core/model"
	coremon "github.com/kilianp07/taxidispatch/core/monitoring"
	coremqtt "github.com/kilianp07/taxidispatch/core/mqtt"
	"github.com/kilianp07/taxidispatch/infra/citymap"
	"github.com/kilianp07/taxidispatch/infra/logger"
	"github.com/kilianp07/taxidispatch/infra/metrics"
	"github.com/kilianp07/taxidispatch/infra/monitoring"
	"github.com/kilianp07/taxidispatch/infra/mqtt"
	"github.com/kilianp07/taxidispatch/internal/eventbus"
)

// brokerClient is the MQTT connection owned by the service.
type brokerClient interface {
	coremqtt.Client
	Disconnect()
}

var dialBroker = func(cfg mqtt.Config, inbound mqtt.Handler, mon coremon.Monitor) (brokerClient, error) {
	client, err := mqtt.NewPahoClient(cfg, inbound)
	if err != nil {
		return nil, err
	}
	client.SetMonitor(mon)
	return client, nil
}

// Service runs a dispatcher for the taxis reachable over MQTT.
type Service struct {
	Coordinator *dispatch.Coordinator
	Router      *mqtt.Router
	Status      *agentstatus.MemoryStore

	cfg         *config.Config
	client      brokerClient
	gateway     *mqtt.Gateway
	bus         *eventbus.Bus[events.Event]
	store       dispatchlog.LogStore
	sink        coremetrics.MetricsSink
	closeLedger func() error
	monitor     coremon.Monitor
	log         logger.Logger
}

// New creates a Service from the configuration. It connects to the broker
// and, for the redis ledger, restores the award counts.
func New(ctx context.Context, cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	city, err := LoadMap(cfg.Map)
	if err != nil {
		return nil, fmt.Errorf("city map: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	ledger, closeLedger, err := plugins.NewLedger(ctx, cfg, plugins.LedgerDeps{Log: logger.New("fairness"), Monitor: mon})
	if err != nil {
		return nil, err
	}
	store, err := plugins.NewLogStore(cfg.Audit)
	if err != nil {
		closeQuietly(closeLedger)
		return nil, fmt.Errorf("audit store: %w", err)
	}

	world := model.WorldID(cfg.World)
	router := mqtt.NewRouter(world, logger.New("mqtt_router"))
	client, err := dialBroker(cfg.MQTT, router, mon)
	if err != nil {
		closeQuietly(closeLedger)
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("mqtt client: %w", err)
	}
	ackTimeout := time.Duration(cfg.MQTT.AckTimeout) * time.Millisecond
	gateway := mqtt.NewGateway(client, router, ackTimeout, logger.New("mqtt_gateway"))

	bus := eventbus.New[events.Event]()
	env := environment{Topology: city, Messenger: gateway, world: world}
	coord, err := dispatch.NewCoordinator(env, nil, city.Adjacency(), ledger, cfg.Dispatch.Pricing, sink, bus, logger.New("dispatcher"))
	if err != nil {
		client.Disconnect()
		closeQuietly(closeLedger)
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	status := agentstatus.NewMemoryStore()
	if store != nil {
		coord.SetLogStore(store)
	}
	coord.SetStatusStore(status)
	coord.SetMonitor(mon)
	router.Bind(coord)

	logg.Infof("dispatcher for world %s ready with %d map nodes", world, city.Len())
	return &Service{
		Coordinator: coord,
		Router:      router,
		Status:      status,
		cfg:         cfg,
		client:      client,
		gateway:     gateway,
		bus:         bus,
		store:       store,
		sink:        sink,
		closeLedger: closeLedger,
		monitor:     mon,
		log:         logg,
	}, nil
}

// LoadMap reads the configured map file or generates a grid.
func LoadMap(c config.MapConfig) (*citymap.CityMap, error) {
	if c.File != "" {
		return citymap.Load(c.File)
	}
	return citymap.Grid(c.GridWidth, c.GridHeight)
}

// Run ticks the dispatcher and serves the optional HTTP endpoints until the
// context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	defer s.monitor.Recover()
	go s.logEvents(s.bus.Subscribe())
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if addr := s.cfg.API.Addr; addr != "" {
		mux := api.NewMux(api.Deps{Dispatcher: s.Coordinator, Status: s.Status, Log: s.store, Token: s.cfg.API.Token})
		go func() {
			if err := api.Serve(ctx, addr, mux); err != nil {
				s.log.Errorf("api server: %v", err)
			}
		}()
	}
	ticker := time.NewTicker(s.cfg.Dispatch.TickInterval())
	defer ticker.Stop()
	s.Coordinator.Run(ctx, ticker.C)
	return nil
}

// logEvents returns once the bus is closed.
func (s *Service) logEvents(ch <-chan events.Event) {
	for ev := range ch {
		switch e := ev.(type) {
		case events.FareAllocated:
			s.log.Infow(e.EventName(), map[string]any{"fare": e.Key.String(), "agent": string(e.Agent), "reason": e.Reason, "price": e.Price})
		case events.RevenueReported:
			s.log.Debugw(e.EventName(), map[string]any{"tick": e.Tick, "dispatcher": e.Report.Dispatcher, "total": e.Report.Total})
		default:
			s.log.Debugf("event %s", ev.EventName())
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	err := s.Coordinator.Close()
	s.gateway.Wait()
	s.client.Disconnect()
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	if s.closeLedger != nil {
		if cerr := s.closeLedger(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func closeQuietly(f func() error) {
	if f != nil {
		_ = f()
	}
}
