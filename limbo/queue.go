// Queue operations: spec.md §4.A.
package limbo

import (
	"context"

	"LIMBO/limboconf"
	"LIMBO/limboerrs"
	"LIMBO/limbotxn"
)

// Append admits a new prepared transaction onto the tail of the queue
// (spec.md §4.A). ackWait marks the transaction as requiring local
// quorum acknowledgement before it can be confirmed; non-ack-wait
// ("fully local") transactions may be appended by a non-owner.
func (l *Limbo) Append(txn limbotxn.Handle, requestingID string, ackWait bool) (*Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isInRollback {
		return nil, limboerrs.ErrRollbackInProgress
	}
	if l.ownerID == NilOwner {
		return nil, limboerrs.ErrQueueUnclaimed
	}
	if ackWait && requestingID != l.ownerID {
		if len(l.entries) == 0 {
			return nil, limboerrs.ErrQueueForeign
		}
		return nil, limboerrs.ErrUncommittedForeignSyncTxns
	}

	e := newEntry(txn, txn.ApproxLen(), ackWait)
	l.entries = append(l.entries, e)
	l.size += int64(e.ApproxLen)
	txn.SetFlag(limbotxn.WaitSync)
	if ackWait {
		txn.SetFlag(limbotxn.WaitAck)
	}

	if ackWait && l.confirmIdx < 0 {
		l.confirmIdx = len(l.entries) - 1
		l.ackCount = 0
	}
	return e, nil
}

// WaitForSpace blocks while the queue is at or over its byte budget
// (spec.md §4.A). A zero maxSize disables the admission gate.
func (l *Limbo) WaitForSpace(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.maxSize <= 0 || l.size < l.maxSize {
		return nil
	}
	stop := context.AfterFunc(ctx, l.cond.Broadcast)
	defer stop()
	for l.maxSize > 0 && l.size >= l.maxSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.cond.Wait()
	}
	return nil
}

// removeHead pops the queue head, the commit-finalization path (read_confirm
// walks forward calling this). Caller holds l.mu.
func (l *Limbo) removeHead() *Entry {
	if len(l.entries) == 0 {
		return nil
	}
	e := l.entries[0]
	l.entries = l.entries[1:]
	switch {
	case l.confirmIdx == 0:
		l.confirmIdx = -1
	case l.confirmIdx > 0:
		l.confirmIdx--
	}
	l.size -= int64(e.ApproxLen)
	l.wakeIfSpaceFreed()
	return e
}

// popTail removes the queue tail; only legal when e.IsRollback, which
// preserves invariant 6 (commits emit head-to-tail, rollbacks emit
// tail-to-head). Caller holds l.mu.
func (l *Limbo) popTail(e *Entry) *Entry {
	n := len(l.entries)
	limboconf.Assert(n > 0 && l.entries[n-1] == e, "popTail: entry is not the queue tail")
	limboconf.Assert(e.IsRollback, "popTail: tail entry must be marked rollback")
	l.entries = l.entries[:n-1]
	if l.confirmIdx == n-1 {
		l.confirmIdx = -1
	}
	l.size -= int64(e.ApproxLen)
	l.wakeIfSpaceFreed()
	return e
}

func (l *Limbo) wakeIfSpaceFreed() {
	if l.maxSize <= 0 || l.size < l.maxSize {
		l.cond.Broadcast()
	}
}

// WaitConfirm blocks until confirmed_lsn reaches lsn or ctx is done
// (spec.md §6 wait_confirm).
func (l *Limbo) WaitConfirm(ctx context.Context, lsn int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.confirmedLSN >= lsn {
		return nil
	}
	stop := context.AfterFunc(ctx, l.cond.Broadcast)
	defer stop()
	for l.confirmedLSN < lsn {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.cond.Wait()
	}
	return nil
}

// AssignLSN is the unified spec.md §6 assign_lsn entry point: isLocal
// distinguishes a locally-owned entry (feeds quorum via
// AssignLocalLSN) from a remote-owned one (AssignRemoteLSN).
func (l *Limbo) AssignLSN(e *Entry, lsn int64, isLocal bool) {
	if isLocal {
		l.AssignLocalLSN(e, lsn)
		return
	}
	l.AssignRemoteLSN(e, lsn)
}

// Abort performs a pre-WAL rollback of the newest (tail) entry, e.g.
// when the caller decides not to proceed before its WAL write was even
// submitted (spec.md §4.A).
func (l *Limbo) Abort() {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.entries)
	if n == 0 {
		return
	}
	e := l.entries[n-1]
	e.IsRollback = true
	l.popTail(e)
	l.rollbackCount++
}
