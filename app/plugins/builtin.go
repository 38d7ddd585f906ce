package plugins

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/taxidispatch/config"
	"github.com/kilianp07/taxidispatch/core/dispatch"
	dispatchlog "github.com/kilianp07/taxidispatch/core/dispatch/logging"
	"github.com/kilianp07/taxidispatch/infra/logger"
)

// ledgerLoadTimeout bounds the restore of award counts at startup.
const ledgerLoadTimeout = 5 * time.Second

func init() {
	RegisterLogStore("jsonl", func(cfg config.AuditConfig) (dispatchlog.LogStore, error) {
		return dispatchlog.NewJSONLStore(cfg.Path)
	})
	RegisterLogStore("rotating", func(cfg config.AuditConfig) (dispatchlog.LogStore, error) {
		return dispatchlog.NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	})
	RegisterLogStore("sqlite", func(cfg config.AuditConfig) (dispatchlog.LogStore, error) {
		return dispatchlog.NewSQLiteStore(cfg.Path)
	})

	RegisterLedger("memory", func(context.Context, *config.Config, LedgerDeps) (dispatch.FairnessLedger, func() error, error) {
		return dispatch.NewMemoryLedger(), nil, nil
	})
	RegisterLedger("redis", func(ctx context.Context, cfg *config.Config, deps LedgerDeps) (dispatch.FairnessLedger, func() error, error) {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		log := deps.Log
		if log == nil {
			log = logger.New("fairness")
		}
		ledger := dispatch.NewRedisLedger(client, cfg.Redis.Key, log, deps.Monitor)
		lctx, cancel := context.WithTimeout(ctx, ledgerLoadTimeout)
		defer cancel()
		if err := ledger.Load(lctx); err != nil {
			_ = ledger.Close()
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ledger: %w", err)
		}
		closeFn := func() error {
			return errors.Join(ledger.Close(), client.Close())
		}
		return ledger, closeFn, nil
	})
}
