// Lifecycle and admin surface: spec.md §6.
package limbo

import (
	"context"
	"time"

	"LIMBO/limboconf"
	"LIMBO/limboerrs"
)

// Init claims ownership for ownerID and raises UNTIL_PROMOTION — the
// post-restart freeze that clears on the first PROMOTE this instance
// observes (spec.md §4.I).
func (l *Limbo) Init(ownerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.ownerID = ownerID
	l.frozenReasons |= limboconf.FrozenUntilPromote
}

// Free is the lifecycle synonym for Shutdown (spec.md §6).
func (l *Limbo) Free() error {
	return l.Shutdown()
}

// SetMaxSize adjusts the admission gate's byte budget.
func (l *Limbo) SetMaxSize(maxSize int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxSize = maxSize
	l.wakeIfSpaceFreed()
}

// OnParametersChange applies a live config update to the running
// Limbo: quorum, replication timeout, and the confirm-batch window.
func (l *Limbo) OnParametersChange(quorum int, timeout, confirmWindow time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if quorum > 0 {
		l.quorum = quorum
	}
	l.timeout = timeout
	l.confirmWindow = confirmWindow
	l.cond.Broadcast()
}

// WaitEmpty blocks until the queue drains or ctx is done (spec.md §6).
func (l *Limbo) WaitEmpty(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return nil
	}
	stop := context.AfterFunc(ctx, l.cond.Broadcast)
	defer stop()
	for len(l.entries) > 0 {
		if err := ctx.Err(); err != nil {
			return limboerrs.ErrTimeout
		}
		l.cond.Wait()
	}
	return nil
}
