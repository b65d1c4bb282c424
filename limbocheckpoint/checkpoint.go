// Package limbocheckpoint persists the limbo's confirmed_vclock (the
// only state that survives an ownership change or restart, spec.md §6
// "Persisted state", §12.6) behind a small Backend interface, so the
// default file-based path and the optional mongo-driver path share one
// shape.
package limbocheckpoint

import (
	"context"

	"LIMBO/limboserde"
)

// Backend persists and loads a single checkpoint row. Implementations
// must make Save durable before returning (the caller treats a
// returned nil error as "safe to discard the in-memory savepoint").
type Backend interface {
	Save(ctx context.Context, req *limboserde.Request) error
	Load(ctx context.Context) (*limboserde.Request, error)
	Close() error
}
