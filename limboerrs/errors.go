// Package limboerrs names the closed set of expected, recoverable
// conditions the limbo can return (spec.md §7). Unexpected conditions
// (a PROMOTE/DEMOTE/ROLLBACK WAL write failing, an invariant violated)
// are not in this set — they panic, per spec.md §7's note that this
// behavior is preserved as-is from the original.
package limboerrs

import "errors"

var (
	// ErrQueueUnclaimed is returned by Limbo.Append when owner_id is NIL.
	ErrQueueUnclaimed = errors.New("limbo: queue has no owner")

	// ErrQueueForeign is returned by Limbo.Append when the requesting
	// instance is not the owner and the queue is empty.
	ErrQueueForeign = errors.New("limbo: append from non-owner on empty queue")

	// ErrUncommittedForeignSyncTxns is returned by Limbo.Append when the
	// requesting instance is not the owner and the queue is non-empty.
	ErrUncommittedForeignSyncTxns = errors.New("limbo: uncommitted foreign synchronous transactions pending")

	// ErrSyncRollback marks an entry finalized as rolled back, whether by
	// cascading timeout or by a filter-initiated ROLLBACK.
	ErrSyncRollback = errors.New("limbo: entry rolled back")

	// ErrQuorumTimeout is returned to a waiter that initiated a
	// cascading rollback after its ACK wait exceeded the timeout.
	ErrQuorumTimeout = errors.New("limbo: quorum acknowledgement timed out")

	// ErrSplitBrain is returned by the filter when an incoming request's
	// term or LSN range contradicts local history.
	ErrSplitBrain = errors.New("limbo: split brain detected")

	// ErrUnsupported is returned for malformed synchro requests: zero
	// LSN, zero term, a duplicate CONFIRM, or a zero replica ID on a
	// request other than PROMOTE/DEMOTE.
	ErrUnsupported = errors.New("limbo: unsupported synchro request")

	// ErrTimeout is returned by WaitEmpty when the drain deadline passes.
	ErrTimeout = errors.New("limbo: wait timed out")

	// ErrCancelled is returned when a cooperative task's context is
	// cancelled while a caller is waiting on it.
	ErrCancelled = errors.New("limbo: operation cancelled")

	// ErrOutOfMemory is returned if entry allocation fails under
	// admission pressure (mirrors the original's OOM return path).
	ErrOutOfMemory = errors.New("limbo: out of memory")

	// ErrRollbackInProgress is returned by Append while is_in_rollback
	// guards the critical section.
	ErrRollbackInProgress = errors.New("limbo: rollback or promotion in progress")
)
