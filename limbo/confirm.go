// Confirm submitter and retryer cooperative tasks: spec.md §4.C.
package limbo

import (
	"context"
	"time"

	"LIMBO/limboconf"
	"LIMBO/limboserde"
)

// confirmLSNLocked is the fast path called from confirmScanLocked: it
// advances volatile_confirmed_lsn and, if the journal has room right
// now, submits the CONFIRM write inline instead of waiting for the
// submitter task to notice. Caller holds l.mu.
//
// A positive confirmWindow instead debounces that inline submission:
// further LSN advances that land within the window ride along on the
// same eventual CONFIRM row rather than each provoking its own WAL
// write, collapsing a burst of acks into one batched write (spec.md
// §4.C's "confirm submitter task ... batched CONFIRM WAL writes").
func (l *Limbo) confirmLSNLocked(lsn int64) {
	if lsn <= l.volatileConfirmedLSN {
		return
	}
	l.volatileConfirmedLSN = lsn
	if l.isInRollback || l.journal.QueueIsFull() {
		l.cond.Broadcast()
		return
	}
	if l.confirmWindow <= 0 {
		l.trySubmitConfirmLocked()
		l.cond.Broadcast()
		return
	}
	if !l.confirmTimerArmed {
		l.confirmTimerArmed = true
		time.AfterFunc(l.confirmWindow, func() {
			l.mu.Lock()
			l.confirmTimerArmed = false
			l.trySubmitConfirmLocked()
			l.mu.Unlock()
		})
	}
	l.cond.Broadcast()
}

// trySubmitConfirmLocked submits a CONFIRM row for volatile_confirmed_lsn
// if one isn't already in flight for an LSN at least that high. Caller
// holds l.mu. Returns whether a new submission was made.
func (l *Limbo) trySubmitConfirmLocked() bool {
	if l.isInRollback {
		return false
	}
	lastInFlight := int64(-1)
	if n := len(l.confirmSubmits); n > 0 {
		lastInFlight = l.confirmSubmits[n-1].lsn
	}
	if l.confirmedLSN >= l.volatileConfirmedLSN || lastInFlight >= l.volatileConfirmedLSN {
		return false
	}

	body, err := limboserde.Encode(&limboserde.Request{
		Type:      limboserde.Confirm,
		ReplicaID: l.ownerID,
		OriginID:  l.instanceID,
		LSN:       l.volatileConfirmedLSN,
	})
	limboconf.Must(err)

	completion, err := l.journal.Submit(body)
	if err != nil {
		// Queue filled between the caller's check and here; the
		// submitter task will notice and retry once space frees up.
		return false
	}
	l.confirmSubmits = append(l.confirmSubmits, &confirmSubmission{
		lsn:        l.volatileConfirmedLSN,
		completion: completion,
	})
	l.cond.Broadcast() // wake the retryer
	return true
}

// submitterLoop is the confirm submitter task (spec.md §4.C): it
// suspends whenever there's nothing new to confirm, then suspends on
// journal backpressure, then submits. confirmLSNLocked already covers
// the common case inline; this loop exists for the case where the
// journal was full (or had waiters ahead of us) at the moment a new
// confirmable LSN appeared.
func (l *Limbo) submitterLoop(ctx context.Context) error {
	for {
		l.mu.Lock()
		for {
			if l.closed || ctx.Err() != nil {
				l.mu.Unlock()
				return ctx.Err()
			}
			lastInFlight := int64(-1)
			if n := len(l.confirmSubmits); n > 0 {
				lastInFlight = l.confirmSubmits[n-1].lsn
			}
			if l.isInRollback ||
				l.confirmedLSN >= l.volatileConfirmedLSN ||
				lastInFlight >= l.volatileConfirmedLSN ||
				l.confirmTimerArmed {
				// confirmTimerArmed means confirmLSNLocked already has a
				// debounced submission scheduled for this advance — this
				// loop only handles the case the inline path skipped
				// (journal was full), not a second, earlier submission.
				stop := context.AfterFunc(ctx, l.cond.Broadcast)
				l.cond.Wait()
				stop()
				continue
			}
			break
		}
		l.mu.Unlock()

		for l.journal.QueueIsFull() || l.journal.QueueHasWaiters() {
			if err := l.journal.QueueWait(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// Spurious journal-closed wakeup with ctx still live;
				// loop back around and re-check the outer condition.
				break
			}
		}

		l.mu.Lock()
		l.trySubmitConfirmLocked()
		l.mu.Unlock()
	}
}

// retryerLoop is the confirm retryer task (spec.md §4.C): it waits for
// the newest in-flight CONFIRM to resolve, then advances confirmed_lsn
// on success (read_confirm) or logs and drops it on failure — CONFIRM
// WAL failures are non-fatal; the row is simply resubmitted on the
// next confirmable LSN.
func (l *Limbo) retryerLoop(ctx context.Context) error {
	for {
		l.mu.Lock()
		for {
			if l.closed || ctx.Err() != nil {
				l.mu.Unlock()
				return ctx.Err()
			}
			if len(l.confirmSubmits) > 0 {
				break
			}
			stop := context.AfterFunc(ctx, l.cond.Broadcast)
			l.cond.Wait()
			stop()
		}
		last := l.confirmSubmits[len(l.confirmSubmits)-1]
		l.mu.Unlock()

		if err := last.completion.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		l.mu.Lock()
		// Only the last in-flight CONFIRM matters: everything older is
		// superseded by it whether it succeeded or failed. Submissions
		// appended while it was awaited stay queued.
		for i, s := range l.confirmSubmits {
			if s == last {
				l.confirmSubmits = l.confirmSubmits[i+1:]
				break
			}
		}
		l.mu.Unlock()

		if err := last.completion.Err(); err != nil {
			limboconf.Warnf(false, "limbo: CONFIRM write for lsn=%d failed, will resubmit: %v", last.lsn, err)
			continue
		}
		l.readConfirm(last.lsn)
	}
}
