package limbowal

import (
	"context"
	"fmt"
	"sync"
)

// Mem is an in-memory Journal used by tests and by benchmarking modes
// that disable durability, mirroring the teacher's configs.UseWAL
// short-circuit in NewLogManager/writeTxnState (when UseWAL is false,
// the log never touches disk but the LSN bookkeeping still happens).
type Mem struct {
	mu       sync.Mutex
	lsn      uint64
	capacity int
	inFlight int
	rows     [][]byte
	failNext bool
}

// NewMem returns a Mem journal with the given in-flight capacity.
func NewMem(capacity int) *Mem {
	if capacity <= 0 {
		capacity = 1
	}
	return &Mem{capacity: capacity}
}

// FailNext makes the next Submit's completion resolve with an error,
// for exercising the confirm retryer's failure-logging path (spec.md
// §4.C step 3 and §7 "Non-PROMOTE/DEMOTE WAL-write failures ... are
// logged").
func (m *Mem) FailNext() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = true
}

func (m *Mem) WriteRow(ctx context.Context, body []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lsn++
	m.rows = append(m.rows, body)
	return m.lsn, nil
}

func (m *Mem) Submit(body []byte) (*Completion, error) {
	m.mu.Lock()
	if m.inFlight >= m.capacity {
		m.mu.Unlock()
		return nil, fmt.Errorf("limbowal: queue full")
	}
	m.inFlight++
	m.lsn++
	lsn := m.lsn
	m.rows = append(m.rows, body)
	fail := m.failNext
	m.failNext = false
	m.mu.Unlock()

	c := newCompletion(lsn)
	var err error
	if fail {
		err = fmt.Errorf("limbowal: simulated write failure")
	}
	c.resolve(err)
	m.mu.Lock()
	m.inFlight--
	m.mu.Unlock()
	return c, nil
}

func (m *Mem) QueueIsFull() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight >= m.capacity
}

func (m *Mem) QueueHasWaiters() bool { return false }

func (m *Mem) QueueWait(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (m *Mem) Close() error { return nil }
