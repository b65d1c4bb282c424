// Synchro request pipeline: spec.md §4.F. Two-phase for PROMOTE/DEMOTE,
// single-phase for CONFIRM/ROLLBACK, mediated by prepare/commit/rollback
// around a synchronous WAL write.
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

// Begin takes the promote_latch, which serializes the local PROMOTE/
// DEMOTE two-phase pipeline end to end (spec.md §5). Pair with End.
func (l *Limbo) Begin() {
	l.promoteLatch.Lock()
}

// End releases the promote_latch taken by Begin.
func (l *Limbo) End() {
	l.promoteLatch.Unlock()
}

// Process is the convenience entry point named in spec.md §6:
// begin+prepare+WAL-write+commit (or rollback on filter/write failure)
// for a single incoming SynchroRequest.
func (l *Limbo) Process(ctx context.Context, req *limboserde.Request) error {
	twoPhase := req.Type == limboserde.Promote || req.Type == limboserde.Demote
	if twoPhase {
		l.Begin()
		defer l.End()
	}

	if err := l.ReqPrepare(ctx, req); err != nil {
		return err
	}

	body, err := limboserde.Encode(req)
	limboconf.Must(err)
	if _, err := l.journal.WriteRow(ctx, body); err != nil {
		if req.Type == limboserde.Confirm {
			// Non-PROMOTE/DEMOTE/ROLLBACK WAL failures are logged, not
			// fatal (spec.md §7) — the next quorum advance supersedes.
			limboconf.Warnf(false, "limbo: CONFIRM write failed for lsn=%d: %v", req.LSN, err)
			l.ReqRollback(req)
			return err
		}
		// PROMOTE/DEMOTE/ROLLBACK WAL-write failure is fatal; the spec
		// preserves this as-is (spec.md §7, §9) rather than inventing
		// a recovery path.
		panic(fmt.Errorf("limbo: %s WAL write failed: %w", req.Type, err))
	}

	l.ReqCommit(req)
	return nil
}

// ReqPrepare is spec.md §4.F prepare(req): filters the request,
// blocks new appends/submissions for its duration, waits for the
// queue tail to have a real LSN (so the range filter sees it), and
// for PROMOTE/DEMOTE takes the volatile_confirmed_lsn savepoint.
func (l *Limbo) ReqPrepare(ctx context.Context, req *limboserde.Request) error {
	l.mu.Lock()
	if l.doValidate {
		if err := l.filterGenericLocked(req); err != nil {
			l.mu.Unlock()
			return err
		}
	}
	limboconf.Assert(!l.isInRollback, "ReqPrepare: already in rollback")
	l.isInRollback = true
	l.mu.Unlock()

	if err := l.waitTailPersisted(ctx); err != nil {
		l.mu.Lock()
		l.isInRollback = false
		l.mu.Unlock()
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.doValidate {
		if err := l.filterTypeSpecificLocked(req); err != nil {
			l.isInRollback = false
			return err
		}
	}
	switch req.Type {
	case limboserde.Confirm, limboserde.Rollback:
		l.isInRollback = false
	case limboserde.Promote, limboserde.Demote:
		l.svpConfirmedLSN = l.volatileConfirmedLSN
		l.volatileConfirmedLSN = req.LSN
	}
	return nil
}

// waitTailPersisted blocks while the queue tail has no assigned LSN
// yet (spec.md §4.F step 3, §5 suspension point 3).
func (l *Limbo) waitTailPersisted(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	stop := context.AfterFunc(ctx, l.cond.Broadcast)
	defer stop()
	for {
		n := len(l.entries)
		if n == 0 || l.entries[n-1].LSN != -1 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		l.cond.Wait()
	}
}

// ReqCommit is spec.md §4.F commit(req), called after the request's
// WAL row is durable: restores savepoint bookkeeping, folds in term
// and confirmed-vclock updates, and dispatches to the read_* mutator.
func (l *Limbo) ReqCommit(req *limboserde.Request) {
	l.mu.Lock()
	l.svpConfirmedLSN = -1
	l.isInRollback = false

	if req.Term > l.promoteTermMap[req.OriginID] {
		l.promoteTermMap[req.OriginID] = req.Term
		if req.Term > l.promoteGreatestTerm {
			l.promoteGreatestTerm = req.Term
		}
	}
	if req.Type == limboserde.Promote {
		if l.term != nil && req.Term >= l.term.VolatileTerm() {
			l.frozenReasons &^= limboconf.FrozenFencing
		}
		l.unfreezeOnFirstPromoteLocked()
	}
	for r, v := range req.ConfirmedVClock {
		l.confirmedVClock[r] = v
	}
	l.mu.Unlock()

	switch req.Type {
	case limboserde.Confirm:
		l.readConfirm(req.LSN)
	case limboserde.Rollback:
		l.readRollback(req.LSN)
	case limboserde.Promote:
		l.readPromote(req.NewOwnerID, req.LSN)
	case limboserde.Demote:
		l.readDemote(req.LSN)
	}
}

// ReqRollback is spec.md §4.F rollback(req): only meaningful for
// PROMOTE/DEMOTE, whose speculative volatile_confirmed_lsn write must
// be undone when the request turns out not to commit.
func (l *Limbo) ReqRollback(req *limboserde.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if req.Type == limboserde.Promote || req.Type == limboserde.Demote {
		l.volatileConfirmedLSN = l.svpConfirmedLSN
	}
	l.svpConfirmedLSN = -1
	l.isInRollback = false
}

// WritePromote/WriteDemote are the §6 convenience constructors for the
// two PROMOTE-family requests.
func (l *Limbo) WritePromote(ctx context.Context, newOwnerID string, lsn int64, term uint64) error {
	return l.Process(ctx, &limboserde.Request{
		Type: limboserde.Promote, ReplicaID: NilOwner, OriginID: l.instanceID,
		NewOwnerID: newOwnerID, LSN: lsn, Term: term,
	})
}

func (l *Limbo) WriteDemote(ctx context.Context, lsn int64, term uint64) error {
	return l.Process(ctx, &limboserde.Request{
		Type: limboserde.Demote, ReplicaID: NilOwner, OriginID: l.instanceID,
		LSN: lsn, Term: term,
	})
}

// filterGenericLocked is the generic half of spec.md §4.H: replica_id
// (the generic filter field, distinct from PROMOTE's own NewOwnerID)
// may only be NIL for PROMOTE/DEMOTE — the spec text names PROMOTE
// alone, but DEMOTE is spec.md §4.F's "PROMOTE with owner=NIL", so the
// same allowance applies to it. Caller holds l.mu.
func (l *Limbo) filterGenericLocked(req *limboserde.Request) error {
	isPromoteFamily := req.Type == limboserde.Promote || req.Type == limboserde.Demote
	if req.ReplicaID == NilOwner && !isPromoteFamily {
		return limboerrs.ErrUnsupported
	}
	if req.ReplicaID != NilOwner && req.ReplicaID != l.ownerID {
		return limboerrs.ErrSplitBrain
	}
	if l.knownReplicas.Cardinality() > 0 && req.OriginID != "" && !l.knownReplicas.Contains(req.OriginID) {
		// A synchro request from an instance outside the configured
		// replica set is exactly the split-brain case this filter
		// exists to catch, same as an impersonated owner_id above.
		return limboerrs.ErrSplitBrain
	}
	return nil
}

// filterTypeSpecificLocked is the type-specific half of spec.md §4.F
// step 4. Caller holds l.mu.
func (l *Limbo) filterTypeSpecificLocked(req *limboserde.Request) error {
	switch req.Type {
	case limboserde.Confirm, limboserde.Rollback:
		if req.LSN == 0 {
			return limboerrs.ErrUnsupported
		}
		return l.queueBoundariesLocked(req)
	case limboserde.Promote, limboserde.Demote:
		if req.Term == 0 {
			return limboerrs.ErrUnsupported
		}
		if req.Term <= l.promoteGreatestTerm {
			return limboerrs.ErrSplitBrain
		}
		return l.queueBoundariesLocked(req)
	default:
		return limboerrs.ErrUnsupported
	}
}

// queueBoundariesLocked is spec.md §4.F queue_boundaries. Caller holds
// l.mu.
func (l *Limbo) queueBoundariesLocked(req *limboserde.Request) error {
	switch {
	case l.confirmedLSN == req.LSN:
		if req.Type == limboserde.Promote || req.Type == limboserde.Demote {
			return nil
		}
		return limboerrs.ErrUnsupported // duplicate CONFIRM/ROLLBACK
	case l.confirmedLSN > req.LSN:
		return limboerrs.ErrSplitBrain
	default:
		if len(l.entries) == 0 {
			return limboerrs.ErrSplitBrain
		}
		first := l.entries[0].LSN
		last := l.lastAckQueueLSNLocked()
		if req.LSN < first || req.LSN > last {
			return limboerrs.ErrSplitBrain
		}
		return nil
	}
}

func (l *Limbo) lastAckQueueLSNLocked() int64 {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].LSN >= 0 {
			return l.entries[i].LSN
		}
	}
	return -1
}

// readConfirm is spec.md §4.F read_confirm(L): the commit-finalizer.
func (l *Limbo) readConfirm(L int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readConfirmLocked(L)
}

func (l *Limbo) readConfirmLocked(L int64) {
	for len(l.entries) > 0 {
		e := l.entries[0]
		if e.AckWait {
			if e.LSN < 0 || e.LSN > L {
				break
			}
			e.IsCommit = true
			l.confirmLag = time.Since(e.InsertionTime)
			l.removeHead()
			e.Txn.ClearFlag(limbotxn.WaitSync | limbotxn.WaitAck)
			e.Txn.CompleteSuccess()
			continue
		}
		// Async (non-ack-wait) entry. One whose signature is already
		// known (e.g. set by a concurrent rollback) is covered by this
		// CONFIRM incidentally and commits now, same as an ack-wait
		// entry; one still signature-UNKNOWN is demoted to a plain
		// async write and left to complete through its own trigger.
		// Either way the walk continues past it.
		if e.Txn.Signature() != limbotxn.SignatureUnknown {
			e.IsCommit = true
			l.removeHead()
			e.Txn.ClearFlag(limbotxn.WaitSync)
			e.Txn.CompleteSuccess()
			continue
		}
		l.removeHead()
		e.Txn.ClearFlag(limbotxn.WaitSync)
	}
	if L > l.confirmedLSN {
		l.confirmedLSN = L
	}
	l.confirmedVClock[l.ownerID] = l.confirmedLSN
	l.cond.Broadcast()
}

// readRollback is spec.md §4.F read_rollback(L).
func (l *Limbo) readRollback(L int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.readRollbackLocked(L)
}

func (l *Limbo) readRollbackLocked(L int64) {
	if len(l.entries) == 0 {
		return
	}
	// Find the first entry (scanning from the tail) with lsn < L; it
	// survives untouched, and everything above it (toward the tail)
	// gets rolled back. If the whole queue is exhausted without
	// finding one, every remaining entry has lsn >= L and all of it
	// rolls back — the case read_promote relies on to leave the queue
	// empty.
	boundary := 0
	for i := len(l.entries) - 1; i >= 0; i-- {
		e := l.entries[i]
		if e.AckWait && e.LSN >= 0 && e.LSN < L {
			boundary = i + 1
			break
		}
	}
	for len(l.entries)-1 >= boundary {
		e := l.entries[len(l.entries)-1]
		e.IsRollback = true
		e.Txn.SetSignature(limbotxn.SignatureRollback)
		l.popTail(e)
		e.Txn.ClearFlag(limbotxn.WaitSync | limbotxn.WaitAck)
		e.Txn.CompleteFail()
		l.rollbackCount++
	}
	l.cond.Broadcast()
}

// readPromote is spec.md §4.F read_promote(owner, L): read_confirm(L)
// then read_rollback(L+1), then the ownership hand-off. readDemote is
// the owner=NIL case of the same operation.
func (l *Limbo) readPromote(owner string, L int64) {
	l.readConfirm(L)
	l.readRollback(L + 1)

	l.mu.Lock()
	defer l.mu.Unlock()
	limboconf.Assert(len(l.entries) == 0, "readPromote: queue not empty after confirm+rollback")
	l.ownerID = owner
	l.confirmedLSN = l.confirmedVClock[owner]
	l.volatileConfirmedLSN = l.confirmedLSN
	l.confirmIdx = -1
	l.ackCount = 0
	l.cond.Broadcast()
}

func (l *Limbo) readDemote(L int64) {
	l.readPromote(NilOwner, L)
}
