package limbobench

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"LIMBO/limbo"
	"LIMBO/limbotxn"
)

// Config parameterizes a run, mirroring the knobs benchmark.YCSBStmt
// reads off configs (client count, run length) without the sharded-KV
// machinery that drives.
type Config struct {
	Clients    int
	Duration   time.Duration
	WriteDelay time.Duration // simulated local WAL latency before AssignLocalLSN
	Replicas   []string      // replicas whose Ack to simulate per entry
}

// Run drives Config.Clients concurrent goroutines appending
// ack-wait transactions to l and acking them from every configured
// replica, each recording its round-trip latency into the returned
// Stat, until Config.Duration elapses.
func Run(ctx context.Context, l *limbo.Limbo, cfg Config) *Stat {
	stat := NewStat()
	if cfg.Clients <= 0 {
		cfg.Clients = 1
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	var nextID, nextLSN int64
	// writeMu serializes append-then-assign so entries receive LSNs in
	// the same order they land in the queue — a real deployment has one
	// WAL writer behind the owner, and AssignLocalLSN assumes its
	// caller never assigns a lower LSN to a later queue entry.
	var writeMu sync.Mutex
	wg.Add(cfg.Clients)
	for c := 0; c < cfg.Clients; c++ {
		go func() {
			defer wg.Done()
			for runCtx.Err() == nil {
				id := uint64(atomic.AddInt64(&nextID, 1))
				runOne(runCtx, l, cfg, id, &writeMu, &nextLSN, stat)
			}
		}()
	}
	wg.Wait()
	return stat
}

func runOne(ctx context.Context, l *limbo.Limbo, cfg Config, id uint64, writeMu *sync.Mutex, nextLSN *int64, stat *Stat) {
	start := time.Now()
	txn := limbotxn.New(id, 64)

	if err := l.WaitForSpace(ctx); err != nil {
		return
	}

	writeMu.Lock()
	e, err := l.Append(txn, l.OwnerID(), true)
	if err != nil {
		writeMu.Unlock()
		return
	}
	if cfg.WriteDelay > 0 {
		select {
		case <-time.After(cfg.WriteDelay):
		case <-ctx.Done():
		}
	}
	lsn := atomic.AddInt64(nextLSN, 1)
	l.AssignLocalLSN(e, lsn)
	writeMu.Unlock()

	for _, r := range cfg.Replicas {
		l.Ack(r, lsn)
	}

	err = l.WaitComplete(ctx, e)
	stat.Append(err == nil, time.Since(start))
}
