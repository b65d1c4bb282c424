// Wait/complete protocol: spec.md §4.G.
package limbo

import (
	"context"
	"fmt"
	"time"

	"LIMBO/limboconf"
	"LIMBO/limboerrs"
	"LIMBO/limboserde"
	"LIMBO/limbotxn"
)

// WaitComplete is spec.md §4.G wait_complete(entry): blocks the caller
// (the originating task, after it has submitted its WAL row) until e
// is finalized, or until it decides to initiate cascading rollback on
// timeout.
func (l *Limbo) WaitComplete(ctx context.Context, e *Entry) error {
	l.mu.Lock()
	if e.IsCommit {
		l.mu.Unlock()
		return nil
	}
	if e.IsRollback {
		l.mu.Unlock()
		return limboerrs.ErrSyncRollback
	}

	deadline := time.Now().Add(l.timeout)
	wakeCtx := ctx
	var cancelWake context.CancelFunc
	if l.timeout > 0 {
		wakeCtx, cancelWake = context.WithDeadline(ctx, deadline)
		defer cancelWake()
	}
	stop := context.AfterFunc(wakeCtx, l.cond.Broadcast)
	defer stop()

	for {
		if e.IsCommit {
			l.mu.Unlock()
			return nil
		}
		if e.IsRollback {
			l.mu.Unlock()
			return limboerrs.ErrSyncRollback
		}
		if err := ctx.Err(); err != nil {
			l.mu.Unlock()
			return limboerrs.ErrCancelled
		}

		frozen := l.frozenReasons != limboconf.FrozenNone
		timedOut := l.timeout > 0 && !frozen && !time.Now().Before(deadline)

		if timedOut {
			if !l.isFirstWaitingAckEntryLocked(e) || (e.LSN >= 0 && e.LSN <= l.volatileConfirmedLSN) {
				// Either an earlier entry's timeout is already being
				// handled, or a CONFIRM covering this LSN is already
				// in flight: plain yield-wait, don't also roll back.
				l.cond.Wait()
				continue
			}
			ownerID := l.ownerID
			l.mu.Unlock()
			return l.initiateCascadingRollback(ctx, e, ownerID)
		}

		l.cond.Wait()
	}
}

// isFirstWaitingAckEntryLocked reports whether e is the head-most
// ack-wait entry still awaiting finalization. Caller holds l.mu.
func (l *Limbo) isFirstWaitingAckEntryLocked(e *Entry) bool {
	for _, cand := range l.entries {
		if cand.AckWait && !cand.IsCommit && !cand.IsRollback {
			return cand == e
		}
	}
	return false
}

// initiateCascadingRollback is spec.md §4.G's timeout branch: write a
// ROLLBACK WAL row for e.lsn, then roll back every queued entry from
// the tail down to (and including) e, in reverse order, preserving
// invariant 6.
func (l *Limbo) initiateCascadingRollback(ctx context.Context, e *Entry, ownerID string) error {
	l.mu.Lock()
	limboconf.Assert(!l.isInRollback, "initiateCascadingRollback: already in rollback")
	l.isInRollback = true
	l.mu.Unlock()

	body, err := limboserde.Encode(&limboserde.Request{
		Type:      limboserde.Rollback,
		ReplicaID: ownerID,
		OriginID:  l.instanceID,
		LSN:       e.LSN,
	})
	limboconf.Must(err)

	if _, err := l.journal.WriteRow(ctx, body); err != nil {
		// ROLLBACK WAL-write failures are fatal (spec.md §7, §9).
		panic(fmt.Errorf("limbo: cascading ROLLBACK write failed: %w", err))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.isInRollback = false
	for len(l.entries) > 0 {
		tail := l.entries[len(l.entries)-1]
		tail.IsRollback = true
		tail.Txn.SetSignature(limbotxn.SignatureQuorumTimeout)
		isBoundary := tail == e
		l.popTail(tail)
		tail.Txn.ClearFlag(limbotxn.WaitSync | limbotxn.WaitAck)
		tail.Txn.CompleteFail()
		l.rollbackCount++
		if isBoundary {
			break
		}
	}
	l.cond.Broadcast()
	return limboerrs.ErrQuorumTimeout
}
