// Package limbowal implements the external WAL (journal) collaborator
// named in spec.md §6 — the component that actually persists CONFIRM,
// ROLLBACK, PROMOTE and DEMOTE rows. It is a segment-file WAL with a
// timer-flushed batch buffer, the same shape as the teacher's
// network/coordinator/log_manager.go and storage/log_manager.go
// LogManager, generalized from fixed Redo/TxnState rows to opaque
// synchro-request bodies.
package limbowal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/wal"

	"LIMBO/limboconf"
)

// Completion is returned by Submit and resolves once the row has
// either been durably written or failed to be.
type Completion struct {
	LSN  uint64
	done chan struct{}
	err  error
}

func newCompletion(lsn uint64) *Completion {
	return &Completion{LSN: lsn, done: make(chan struct{})}
}

// IsComplete reports, without blocking, whether the write has
// finished.
func (c *Completion) IsComplete() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the write completes or ctx is cancelled — the
// suspension point the retryer uses instead of polling (spec.md §4.C
// step 2, "If not complete: suspend").
func (c *Completion) Wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err returns the write outcome; only meaningful once IsComplete().
func (c *Completion) Err() error {
	return c.err
}

func (c *Completion) resolve(err error) {
	c.err = err
	close(c.done)
}

// Journal is the interface the limbo core depends on (spec.md §6).
type Journal interface {
	// WriteRow blocks until body is durable, returning its assigned
	// LSN. Used by Limbo.Process for every synchro request and by the
	// cascading-rollback path (spec.md §5 suspension point 5); those
	// callers panic on a failure, except for a CONFIRM row in Process,
	// whose failure is logged and returned.
	WriteRow(ctx context.Context, body []byte) (lsn uint64, err error)

	// Submit enqueues body for asynchronous, batched durability and
	// returns immediately with a Completion (spec.md §4.C).
	Submit(body []byte) (*Completion, error)

	QueueIsFull() bool
	QueueHasWaiters() bool
	QueueWait(ctx context.Context) error

	Close() error
}

// Log is a tidwall/wal-backed Journal.
type Log struct {
	mu      sync.Mutex
	log     *wal.Log
	lsn     uint64
	batch   *wal.Batch
	pending []*Completion

	capacity int
	inFlight int
	waiters  int
	spaceCh  chan struct{}

	flushWindow time.Duration
	closeOnce   sync.Once
	closeCh     chan struct{}
}

// Open opens (or creates) a WAL segment directory and starts the
// background batch-flush loop, mirroring NewLogManager.
func Open(dir string, capacity int, flushWindow time.Duration) (*Log, error) {
	l, err := wal.Open(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("limbowal: open %q: %w", dir, err)
	}
	lastIdx, err := l.LastIndex()
	if err != nil {
		return nil, fmt.Errorf("limbowal: last index: %w", err)
	}
	if capacity <= 0 {
		capacity = 1
	}
	lg := &Log{
		log:         l,
		lsn:         lastIdx,
		batch:       &wal.Batch{},
		capacity:    capacity,
		spaceCh:     make(chan struct{}, 1),
		flushWindow: flushWindow,
		closeCh:     make(chan struct{}),
	}
	go lg.flushLoop()
	return lg, nil
}

func (l *Log) WriteRow(ctx context.Context, body []byte) (uint64, error) {
	if err := l.acquireSlot(ctx); err != nil {
		return 0, err
	}
	l.mu.Lock()
	l.lsn++
	lsn := l.lsn
	l.mu.Unlock()
	err := l.log.Write(lsn, body)
	l.releaseSlot()
	if err != nil {
		return 0, fmt.Errorf("limbowal: write row %d: %w", lsn, err)
	}
	return lsn, nil
}

// Submit assigns the next LSN, appends body to the pending batch, and
// returns a Completion that resolves on the next flush. Fails with an
// error (not a block) when the in-flight capacity is exhausted — the
// caller (the confirm submitter) is expected to check QueueIsFull
// first and suspend instead of calling Submit blindly.
func (l *Log) Submit(body []byte) (*Completion, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight >= l.capacity {
		return nil, fmt.Errorf("limbowal: queue full")
	}
	l.inFlight++
	l.lsn++
	lsn := l.lsn
	l.batch.Write(lsn, body)
	c := newCompletion(lsn)
	l.pending = append(l.pending, c)
	return c, nil
}

func (l *Log) QueueIsFull() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight >= l.capacity
}

func (l *Log) QueueHasWaiters() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiters > 0
}

// QueueWait blocks until a slot frees up, the context is cancelled, or
// the journal is closed.
func (l *Log) QueueWait(ctx context.Context) error {
	l.mu.Lock()
	l.waiters++
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.waiters--
		l.mu.Unlock()
	}()
	select {
	case <-l.spaceCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closeCh:
		return fmt.Errorf("limbowal: closed")
	}
}

func (l *Log) acquireSlot(ctx context.Context) error {
	for {
		l.mu.Lock()
		if l.inFlight < l.capacity {
			l.inFlight++
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()
		if err := l.QueueWait(ctx); err != nil {
			return err
		}
	}
}

func (l *Log) releaseSlot() {
	l.mu.Lock()
	l.inFlight--
	l.mu.Unlock()
	select {
	case l.spaceCh <- struct{}{}:
	default:
	}
}

func (l *Log) flushLoop() {
	ticker := time.NewTicker(l.flushWindow)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.flush()
		case <-l.closeCh:
			return
		}
	}
}

func (l *Log) flush() {
	l.mu.Lock()
	if len(l.pending) == 0 {
		l.mu.Unlock()
		return
	}
	batch := l.batch
	done := l.pending
	l.batch = &wal.Batch{}
	l.pending = nil
	l.mu.Unlock()

	err := l.log.WriteBatch(batch)
	for _, c := range done {
		c.resolve(err)
	}
	for range done {
		l.releaseSlot()
	}
	if err != nil {
		limboconf.Warnf(false, "limbowal: batch flush failed: %v", err)
	}
}

// Close stops the flush loop and closes the underlying segment files.
func (l *Log) Close() error {
	l.closeOnce.Do(func() { close(l.closeCh) })
	return l.log.Close()
}
