package plugins

import (
	"context"
	"fmt"
	"sort"

	"github.com/kilianp07/taxidispatch/config"
	"github.com/kilianp07/taxidispatch/core/dispatch"
	dispatchlog "github.com/kilianp07/taxidispatch/core/dispatch/logging"
	"github.com/kilianp07/taxidispatch/core/logger"
	"github.com/kilianp07/taxidispatch/core/monitoring"
)

// LogStoreFactory builds the allocation log store selected by the audit
// section.
type LogStoreFactory func(cfg config.AuditConfig) (dispatchlog.LogStore, error)

// LedgerDeps are the collaborators handed to a ledger factory.
type LedgerDeps struct {
	Log     logger.Logger
	Monitor monitoring.Monitor
}

// LedgerFactory builds a fairness ledger. The returned close function
// releases backend connections and may be nil.
type LedgerFactory func(ctx context.Context, cfg *config.Config, deps LedgerDeps) (dispatch.FairnessLedger, func() error, error)

var (
	LogStores = map[string]LogStoreFactory{}
	Ledgers   = map[string]LedgerFactory{}
)

func RegisterLogStore(name string, f LogStoreFactory) { LogStores[name] = f }
func RegisterLedger(name string, f LedgerFactory)     { Ledgers[name] = f }

// NewLogStore builds the configured log store. The "none" backend yields a
// nil store.
func NewLogStore(cfg config.AuditConfig) (dispatchlog.LogStore, error) {
	if cfg.Backend == "none" {
		return nil, nil
	}
	f, ok := LogStores[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("unknown audit backend %q (known: %v)", cfg.Backend, names(LogStores))
	}
	return f(cfg)
}

// NewLedger builds the fairness ledger selected by cfg.Dispatch.Ledger.
func NewLedger(ctx context.Context, cfg *config.Config, deps LedgerDeps) (dispatch.FairnessLedger, func() error, error) {
	f, ok := Ledgers[cfg.Dispatch.Ledger]
	if !ok {
		return nil, nil, fmt.Errorf("unknown ledger %q (known: %v)", cfg.Dispatch.Ledger, names(Ledgers))
	}
	return f(ctx, cfg, deps)
}

func names[F any](m map[string]F) []string {
	out := make([]string, 0, len(m))
	for n := range m {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
