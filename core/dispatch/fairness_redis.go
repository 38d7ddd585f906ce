package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kilianp07/taxidispatch/core/logger"
	"github.com/kilianp07/taxidispatch/core/model"
	"github.com/kilianp07/taxidispatch/core/monitoring"
)

// DefaultLedgerKey is the redis hash holding the award counts.
const DefaultLedgerKey = "taxidispatch:fairness"

// mirrorBacklog is how many award writes may wait for redis before new ones
// are dropped.
const mirrorBacklog = 1024

// RedisLedger keeps the award counts in memory and mirrors every award to a
// redis hash, so a dispatcher taking over from another one can restore the
// counts with Load. Reads never touch redis and RecordAward never waits on
// it: awards are queued and written by a background goroutine. Close drains
// the queue.
type RedisLedger struct {
	mem     *MemoryLedger
	client  redis.Cmdable
	key     string
	timeout time.Duration
	log     logger.Logger
	monitor monitoring.Monitor

	mu     sync.Mutex
	closed bool
	writes chan model.AgentID
	done   chan struct{}
}

// NewRedisLedger returns a ledger writing through to key on client. An empty
// key selects DefaultLedgerKey. Call Close to stop the mirror writer.
func NewRedisLedger(client redis.Cmdable, key string, log logger.Logger, mon monitoring.Monitor) *RedisLedger {
	if key == "" {
		key = DefaultLedgerKey
	}
	if log == nil {
		log = logger.Nop{}
	}
	if mon == nil {
		mon = monitoring.NopMonitor{}
	}
	l := &RedisLedger{
		mem:     NewMemoryLedger(),
		client:  client,
		key:     key,
		timeout: 2 * time.Second,
		log:     log,
		monitor: mon,
		writes:  make(chan model.AgentID, mirrorBacklog),
		done:    make(chan struct{}),
	}
	go l.mirror()
	return l
}

// Load merges the counts stored in redis into memory.
func (l *RedisLedger) Load(ctx context.Context) error {
	vals, err := l.client.HGetAll(ctx, l.key).Result()
	if err != nil {
		return fmt.Errorf("dispatch: load fairness ledger: %w", err)
	}
	for id, raw := range vals {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("dispatch: fairness count for %s: %w", id, err)
		}
		l.mem.restore(model.AgentID(id), n)
	}
	l.log.Infof("restored fairness counts for %d agents", len(vals))
	return nil
}

// Awards returns the in-memory count for id.
func (l *RedisLedger) Awards(id model.AgentID) (int, bool) { return l.mem.Awards(id) }

// Snapshot returns a copy of the in-memory counts.
func (l *RedisLedger) Snapshot() map[model.AgentID]int { return l.mem.Snapshot() }

// RecordAward increments the in-memory count and queues the redis write. A
// full queue or a closed ledger drops the write; the award always stands.
func (l *RedisLedger) RecordAward(id model.AgentID) int {
	n := l.mem.RecordAward(id)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		l.report(id, errors.New("fairness ledger closed"))
		return n
	}
	select {
	case l.writes <- id:
	default:
		l.report(id, errors.New("fairness mirror backlog full"))
	}
	return n
}

// Close waits for the queued redis writes and stops the writer. It does not
// close the redis client.
func (l *RedisLedger) Close() error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.writes)
	}
	l.mu.Unlock()
	<-l.done
	return nil
}

func (l *RedisLedger) mirror() {
	defer close(l.done)
	for id := range l.writes {
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		err := l.client.HIncrBy(ctx, l.key, string(id), 1).Err()
		cancel()
		if err != nil {
			l.report(id, err)
		}
	}
}

func (l *RedisLedger) report(id model.AgentID, err error) {
	l.log.Errorf("fairness mirror write for %s failed: %v", id, err)
	l.monitor.CaptureException(err, map[string]string{"component": "fairness_ledger", "agent": string(id)})
}
