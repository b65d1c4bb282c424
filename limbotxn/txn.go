// Package limbotxn is the external transaction-engine collaborator
// named in spec.md §1/§6: it supplies prepared transactions to the
// limbo and runs their commit/rollback triggers. The limbo core only
// depends on the Handle interface here; the transaction engine itself
// (locking, WAL redo-row generation, storage commit) is out of scope
// per spec.md §1.
package limbotxn

import (
	lock "github.com/viney-shih/go-lock"
)

// Flag mirrors the teacher's flag-based transaction state
// (storage/txn.go's TxnState enum, generalized to the three flags
// spec.md §6 names: WAIT_SYNC, WAIT_ACK, IS_DONE).
type Flag uint8

const (
	WaitSync Flag = 1 << iota
	WaitAck
	IsDone
)

// Signature mirrors the transaction signature field of spec.md §6:
// negative sentinel values for rollback/timeout, -1 for "not yet
// assigned", and any non-negative value is a WAL-assigned LSN.
type Signature int64

const (
	SignatureUnknown       Signature = -1
	SignatureRollback      Signature = -2
	SignatureQuorumTimeout Signature = -3
)

// Handle is the interface the limbo core depends on.
type Handle interface {
	ID() uint64
	ApproxLen() int

	Flags() Flag
	HasFlag(f Flag) bool
	SetFlag(f Flag)
	ClearFlag(f Flag)

	Signature() Signature
	SetSignature(s Signature)

	// CompleteSuccess/CompleteFail run the engine's on_commit/
	// on_rollback triggers and unblock whatever the engine had the
	// caller waiting on. Idempotent: a second call is a no-op.
	CompleteSuccess()
	CompleteFail()
}

// Txn is a reference Handle implementation: an in-memory transaction
// with commit/rollback trigger callbacks, grounded on
// storage/txn.go's DBTxn (state enum, per-txn lock, row/access
// bookkeeping) generalized from that file's 2PL-specific fields down
// to just what spec.md's limbo needs.
type Txn struct {
	latch lock.Mutex

	id        uint64
	approxLen int
	flags     Flag
	sig       Signature
	done      bool

	OnCommit   func()
	OnRollback func()
}

// New returns a Txn ready for Limbo.Append.
func New(id uint64, approxLen int) *Txn {
	return &Txn{
		id:        id,
		approxLen: approxLen,
		sig:       SignatureUnknown,
		latch:     lock.NewCASMutex(),
	}
}

func (t *Txn) ID() uint64        { return t.id }
func (t *Txn) ApproxLen() int    { return t.approxLen }

func (t *Txn) Flags() Flag {
	t.latch.Lock()
	defer t.latch.Unlock()
	return t.flags
}

func (t *Txn) HasFlag(f Flag) bool {
	t.latch.Lock()
	defer t.latch.Unlock()
	return t.flags&f != 0
}

func (t *Txn) SetFlag(f Flag) {
	t.latch.Lock()
	defer t.latch.Unlock()
	t.flags |= f
}

func (t *Txn) ClearFlag(f Flag) {
	t.latch.Lock()
	defer t.latch.Unlock()
	t.flags &^= f
}

func (t *Txn) Signature() Signature {
	t.latch.Lock()
	defer t.latch.Unlock()
	return t.sig
}

func (t *Txn) SetSignature(s Signature) {
	t.latch.Lock()
	defer t.latch.Unlock()
	t.sig = s
}

func (t *Txn) CompleteSuccess() {
	t.latch.Lock()
	if t.done {
		t.latch.Unlock()
		return
	}
	t.done = true
	cb := t.OnCommit
	t.latch.Unlock()
	if cb != nil {
		cb()
	}
}

func (t *Txn) CompleteFail() {
	t.latch.Lock()
	if t.done {
		t.latch.Unlock()
		return
	}
	t.done = true
	cb := t.OnRollback
	t.latch.Unlock()
	if cb != nil {
		cb()
	}
}

var _ Handle = (*Txn)(nil)
