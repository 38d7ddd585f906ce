package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/taxidispatch/app/plugins"
	"github.com/kilianp07/taxidispatch/config"
	"github.com/kilianp07/taxidispatch/core/agentstatus"
	"github.com/kilianp07/taxidispatch/core/dispatch"
	"github.com/kilianp07/taxidispatch/core/events"
	coremetrics "github.com/kilianp07/taxidispatch/core/metrics"
	"github.com/kilianp07/taxidispatch/core/model"
	"github.com/kilianp07/taxidispatch/infra/logger"
	"github.com/kilianp07/taxidispatch/internal/eventbus"
	"github.com/kilianp07/taxidispatch/simulator"
)

// Simulation runs a dispatcher against the in-process simulated world.
type Simulation struct {
	World       *simulator.World
	Coordinator *dispatch.Coordinator
	Status      *agentstatus.MemoryStore
	Bus         *eventbus.Bus[events.Event]

	closeLedger func() error
}

// Result summarizes a simulation run.
type Result struct {
	Stats  simulator.Stats       `json:"stats"`
	Report model.RevenueReport   `json:"revenue"`
	Awards map[model.AgentID]int `json:"awards"`
	Fares  []model.FareRequest   `json:"pending_fares"`
	Agents []model.AgentSnapshot `json:"agents"`
}

// NewSimulation builds the simulated world described by cfg.Simulation and
// binds a dispatcher to it. Metrics, audit and ledger sections apply as for
// the networked service.
func NewSimulation(ctx context.Context, cfg *config.Config) (*Simulation, error) {
	city, err := cfg.Simulation.Map()
	if err != nil {
		return nil, fmt.Errorf("city map: %w", err)
	}
	world := simulator.NewWorld(cfg.Simulation, city, logger.New("simulator"))
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	ledger, closeLedger, err := plugins.NewLedger(ctx, cfg, plugins.LedgerDeps{Log: logger.New("fairness")})
	if err != nil {
		return nil, err
	}
	store, err := plugins.NewLogStore(cfg.Audit)
	if err != nil {
		closeQuietly(closeLedger)
		return nil, fmt.Errorf("audit store: %w", err)
	}
	bus := eventbus.New[events.Event]()
	coord, err := dispatch.NewCoordinator(world, world.Agents(), city.Adjacency(), ledger, cfg.Dispatch.Pricing, sink, bus, logger.New("dispatcher"))
	if err != nil {
		closeQuietly(closeLedger)
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	if store != nil {
		coord.SetLogStore(store)
	}
	status := agentstatus.NewMemoryStore()
	coord.SetStatusStore(status)
	world.Bind(coord)
	return &Simulation{World: world, Coordinator: coord, Status: status, Bus: bus, closeLedger: closeLedger}, nil
}

// Run steps the world ticks times, or until ctx is done.
func (s *Simulation) Run(ctx context.Context, ticks int) Result {
	stats := s.World.Run(ctx, ticks)
	return Result{
		Stats:  stats,
		Report: s.Coordinator.Report(),
		Awards: s.Coordinator.Awards(),
		Fares:  s.Coordinator.Fares(),
		Agents: s.Coordinator.Agents(),
	}
}

// Close releases the audit store and the ledger backend.
func (s *Simulation) Close() error {
	err := s.Coordinator.Close()
	if s.closeLedger != nil {
		if cerr := s.closeLedger(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
