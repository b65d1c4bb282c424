package limbo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"LIMBO/limboerrs"
	"LIMBO/limboserde"
	"LIMBO/limboterm"
	"LIMBO/limbotxn"
	"LIMBO/limbowal"
)

func newTestLimbo(t *testing.T, quorum int, timeout time.Duration) *Limbo {
	t.Helper()
	l := New(Config{
		InstanceID:    "r1",
		Quorum:        quorum,
		Timeout:       timeout,
		ConfirmWindow: time.Millisecond,
		Journal:       limbowal.NewMem(64),
		Term:          limboterm.NewTracker(1),
		Replicas:      []string{"r1", "r2"},
	})
	l.ownerID = "r1"
	t.Cleanup(func() { l.Shutdown() })
	return l
}

func pollUntil(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

// S1: single-entry commit.
func TestS1SingleEntryCommit(t *testing.T) {
	l := newTestLimbo(t, 2, time.Second)
	txn := limbotxn.New(1, 100)
	e, err := l.Append(txn, "r1", true)
	assert.NoError(t, err)

	l.AssignLocalLSN(e, 10)
	l.Ack("r2", 10)
	assert.Equal(t, int64(10), l.VolatileConfirmedLSN())

	ok := pollUntil(t, time.Second, func() bool { return l.ConfirmedLSN() == 10 })
	assert.True(t, ok, "expected confirmed_lsn to reach 10")
	assert.Equal(t, limbotxn.SignatureUnknown, txn.Signature())
	assert.True(t, e.IsCommit)
}

// S2: below quorum, waiter times out and a ROLLBACK is written.
func TestS2BelowQuorumTimeout(t *testing.T) {
	l := newTestLimbo(t, 2, 30*time.Millisecond)
	txn := limbotxn.New(2, 50)
	e, err := l.Append(txn, "r1", true)
	assert.NoError(t, err)
	l.AssignLocalLSN(e, 11)

	ctx := context.Background()
	err = l.WaitComplete(ctx, e)
	assert.ErrorIs(t, err, limboerrs.ErrQuorumTimeout)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, limbotxn.SignatureQuorumTimeout, txn.Signature())
}

// S3: cascading rollback — two unacked entries, earlier one times out
// first, both roll back in reverse order with a single ROLLBACK write.
func TestS3CascadingRollback(t *testing.T) {
	l := newTestLimbo(t, 2, 30*time.Millisecond)
	txnA := limbotxn.New(3, 10)
	txnB := limbotxn.New(4, 10)
	a, err := l.Append(txnA, "r1", true)
	assert.NoError(t, err)
	b, err := l.Append(txnB, "r1", true)
	assert.NoError(t, err)
	l.AssignLocalLSN(a, 12)
	l.AssignLocalLSN(b, 13)

	var errA, errB error
	done := make(chan struct{}, 2)
	go func() { errA = l.WaitComplete(context.Background(), a); done <- struct{}{} }()
	go func() { errB = l.WaitComplete(context.Background(), b); done <- struct{}{} }()
	<-done
	<-done

	assert.ErrorIs(t, errA, limboerrs.ErrQuorumTimeout)
	assert.ErrorIs(t, errB, limboerrs.ErrSyncRollback)
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, int64(2), l.RollbackCount())
}

// S4: an entry acked to quorum before its timeout commits; the waiter
// does not initiate a rollback.
func TestS4ConfirmRaceWithRollback(t *testing.T) {
	l := newTestLimbo(t, 2, 20*time.Millisecond)
	txn := limbotxn.New(5, 10)
	e, err := l.Append(txn, "r1", true)
	assert.NoError(t, err)
	l.AssignLocalLSN(e, 14)
	l.Ack("r2", 14)

	err = l.WaitComplete(context.Background(), e)
	assert.NoError(t, err)
	assert.True(t, e.IsCommit)
}

// S5: PROMOTE with a term at or below promote_greatest_term is rejected,
// with every field left unchanged.
func TestS5SplitBrainPromote(t *testing.T) {
	l := newTestLimbo(t, 2, time.Second)
	l.promoteTermMap["r2"] = 5
	l.promoteGreatestTerm = 5

	err := l.WritePromote(context.Background(), "r2", 0, 5)
	assert.ErrorIs(t, err, limboerrs.ErrSplitBrain)
	assert.Equal(t, uint64(5), l.promoteGreatestTerm)
	assert.Equal(t, "r1", l.OwnerID())
}

// S6: PROMOTE finalizes the acked entry as a commit, rolls back the
// unacked one, and hands ownership to the new owner.
func TestS6PromoteClearsQueue(t *testing.T) {
	l := newTestLimbo(t, 2, time.Second)
	txnA := limbotxn.New(6, 10)
	txnB := limbotxn.New(7, 10)
	a, err := l.Append(txnA, "r1", true)
	assert.NoError(t, err)
	b, err := l.Append(txnB, "r1", true)
	assert.NoError(t, err)
	l.AssignLocalLSN(a, 20)
	l.AssignLocalLSN(b, 21)
	l.vclock.Follow("r2", 20)

	err = l.WritePromote(context.Background(), "r2", 20, 7)
	assert.NoError(t, err)
	assert.True(t, a.IsCommit)
	assert.True(t, b.IsRollback)
	assert.Equal(t, "r2", l.OwnerID())
	assert.Equal(t, 0, l.Len())
}

// Property 5: ack is idempotent and monotone per replica.
func TestAckIdempotentMonotone(t *testing.T) {
	l := newTestLimbo(t, 2, time.Second)
	// Ack is a no-op on an empty queue, so give it an entry to track.
	_, err := l.Append(limbotxn.New(15, 10), "r1", true)
	assert.NoError(t, err)
	l.Ack("r2", 10)
	assert.Equal(t, int64(10), l.vclock.Get("r2"))
	l.Ack("r2", 5) // stale, no-op
	assert.Equal(t, int64(10), l.vclock.Get("r2"))
	l.Ack("r2", 12)
	assert.Equal(t, int64(12), l.vclock.Get("r2"))
}

// Property 6: a duplicate or stale CONFIRM is rejected outright.
func TestSplitBrainRejectsDuplicateConfirm(t *testing.T) {
	l := newTestLimbo(t, 2, time.Second)
	l.confirmedLSN = 10
	err := l.Process(context.Background(), &limboserde.Request{
		Type: limboserde.Confirm, ReplicaID: "r1", OriginID: "r2", LSN: 10,
	})
	assert.ErrorIs(t, err, limboerrs.ErrUnsupported)

	err = l.Process(context.Background(), &limboserde.Request{
		Type: limboserde.Confirm, ReplicaID: "r1", OriginID: "r2", LSN: 5,
	})
	assert.ErrorIs(t, err, limboerrs.ErrSplitBrain)
}

// Property 7: a PROMOTE that is prepared and then rolled back leaves
// svp_confirmed_lsn/volatile_confirmed_lsn exactly as they were.
func TestSavepointRoundTrip(t *testing.T) {
	l := newTestLimbo(t, 2, time.Second)
	l.volatileConfirmedLSN = 42

	// queue_boundaries rejects a PROMOTE LSN above confirmed_lsn on an
	// empty queue, so queue an entry at the PROMOTE's LSN.
	e, err := l.Append(limbotxn.New(14, 10), "r1", true)
	assert.NoError(t, err)
	l.AssignLocalLSN(e, 50)

	err = l.ReqPrepare(context.Background(), &limboserde.Request{
		Type: limboserde.Promote, OriginID: "r2", NewOwnerID: "r2", LSN: 50, Term: 9,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(42), l.svpConfirmedLSN)
	assert.Equal(t, int64(50), l.volatileConfirmedLSN)

	l.ReqRollback(&limboserde.Request{Type: limboserde.Promote, LSN: 50, Term: 9})
	assert.Equal(t, int64(42), l.volatileConfirmedLSN)
	assert.Equal(t, int64(-1), l.svpConfirmedLSN)
	assert.False(t, l.isInRollback)
}

// Regression: read_rollback(L) must leave every entry with lsn < L
// untouched, not roll back one entry too many.
func TestReadRollbackPreservesEntriesBelowBoundary(t *testing.T) {
	l := newTestLimbo(t, 2, time.Second)
	txnA := limbotxn.New(8, 10)
	txnB := limbotxn.New(9, 10)
	txnC := limbotxn.New(10, 10)
	a, err := l.Append(txnA, "r1", true)
	assert.NoError(t, err)
	b, err := l.Append(txnB, "r1", true)
	assert.NoError(t, err)
	c, err := l.Append(txnC, "r1", true)
	assert.NoError(t, err)
	l.AssignLocalLSN(a, 10)
	l.AssignLocalLSN(b, 20)
	l.AssignLocalLSN(c, 30)

	l.readRollback(20)

	assert.Equal(t, 1, l.Len())
	assert.False(t, a.IsRollback)
	assert.True(t, b.IsRollback)
	assert.True(t, c.IsRollback)
	assert.Equal(t, int64(2), l.RollbackCount())
}

// Regression: read_confirm(L) must commit and continue past an async
// entry whose signature is already known, not stop there and strand
// the ack-wait entries queued behind it.
func TestReadConfirmContinuesPastKnownSignatureAsync(t *testing.T) {
	l := newTestLimbo(t, 2, time.Second)
	async := limbotxn.New(11, 5)
	async.SetSignature(limbotxn.SignatureRollback)
	asyncEntry, err := l.Append(async, "r1", false)
	assert.NoError(t, err)
	l.AssignLocalLSN(asyncEntry, 9)

	txn := limbotxn.New(12, 10)
	e, err := l.Append(txn, "r1", true)
	assert.NoError(t, err)
	l.AssignLocalLSN(e, 10)

	l.readConfirm(10)

	assert.True(t, asyncEntry.IsCommit)
	assert.True(t, e.IsCommit)
	assert.Equal(t, 0, l.Len())
}

// Regression: Ack must ignore a replica outside the configured set
// rather than let it inflate the vclock's quorum count.
func TestAckIgnoresUnknownReplica(t *testing.T) {
	l := newTestLimbo(t, 2, time.Second)
	txn := limbotxn.New(13, 10)
	e, err := l.Append(txn, "r1", true)
	assert.NoError(t, err)
	l.AssignLocalLSN(e, 40)

	l.Ack("ghost", 40)
	assert.Equal(t, int64(-1), l.vclock.Get("ghost"))
	assert.False(t, e.IsCommit)

	l.Ack("r2", 40)
	ok := pollUntil(t, time.Second, func() bool { return e.IsCommit })
	assert.True(t, ok)
}
