package limbotxn

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
)

// PGTxn is a Handle backed by a real pgx transaction against a shadow
// table, grounded on storage/postgres.go's use of pgx.Tx for the
// teacher's own transaction engine. It lets a caller drive real
// prepared transactions through the limbo instead of only the
// in-memory Txn; cmd/limbod and the tests use the in-memory Txn.
type PGTxn struct {
	*Txn
	tx pgx.Tx
}

// NewPGTxn begins a pgx transaction and wraps it as a limbo Handle.
// The caller supplies id/approxLen the same way the in-memory Txn
// does; CompleteSuccess/CompleteFail additionally commit or roll back
// the underlying pgx transaction.
func NewPGTxn(ctx context.Context, conn *pgx.Conn, id uint64, approxLen int) (*PGTxn, error) {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, fmt.Errorf("limbotxn: begin: %w", err)
	}
	p := &PGTxn{Txn: New(id, approxLen), tx: tx}
	p.Txn.OnCommit = func() {
		if err := tx.Commit(context.Background()); err != nil {
			// A commit failure after quorum confirmation is the fatal
			// case spec.md §7 calls out for PROMOTE/DEMOTE/ROLLBACK WAL
			// failures; here it is the storage-side analogue and is
			// likewise unrecoverable once the limbo has already
			// declared success to its own caller.
			panic(fmt.Errorf("limbotxn: commit after confirm: %w", err))
		}
	}
	p.Txn.OnRollback = func() {
		_ = tx.Rollback(context.Background())
	}
	return p, nil
}

// Exec runs a statement within the wrapped pgx transaction, used to
// build up the redo-row work the transaction engine would normally
// have accumulated before calling Limbo.Append.
func (p *PGTxn) Exec(ctx context.Context, sql string, args ...interface{}) error {
	_, err := p.tx.Exec(ctx, sql, args...)
	return err
}
