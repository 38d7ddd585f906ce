// Package api exposes the dispatcher state over a read-only HTTP API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/kilianp07/taxidispatch/api/agents"
	"github.com/kilianp07/taxidispatch/api/dispatch"
	"github.com/kilianp07/taxidispatch/core/agentstatus"
	"github.com/kilianp07/taxidispatch/core/dispatch/logging"
	"github.com/kilianp07/taxidispatch/infra/logger"
)

// Dispatcher is the read side of a coordinator.
type Dispatcher interface {
	dispatch.Board
	agents.Roster
}

// Deps are the sources served by the API. Status and Log may be nil.
type Deps struct {
	Dispatcher Dispatcher
	Status     agentstatus.Store
	Log        logging.LogStore
	Token      string
}

// NewMux mounts every endpoint under /api.
func NewMux(d Deps) *http.ServeMux {
	status := d.Status
	if status == nil {
		status = agentstatus.NewMemoryStore()
	}
	mux := http.NewServeMux()
	mux.Handle("/api/fares", dispatch.NewFaresHandler(d.Dispatcher))
	mux.Handle("/api/revenue", dispatch.NewRevenueHandler(d.Dispatcher))
	mux.Handle("/api/allocations", dispatch.NewLogHandler(d.Log, d.Token))
	mux.Handle("/api/agents", agents.NewStatusHandler(status, d.Dispatcher))
	return mux
}

// Serve runs an HTTP server for h on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	log := logger.New("api")
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api server shutdown: %v", err)
		}
		cancel()
	}()
	log.Infof("serving api on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
