// Package limboterm is the external consensus (Raft) term source
// collaborator named in spec.md §6: it only exposes the volatile term
// the limbo compares PROMOTE/DEMOTE requests against, and observes
// terms reported by remote PROMOTE/DEMOTE senders. Leader election
// itself lives entirely outside this package and this repo (spec.md
// §1 Non-goals).
package limboterm

import "sync"

// Source is the interface the limbo core depends on (spec.md §6
// "Consensus: volatile_term(); observed terms feed promote_term_map").
type Source interface {
	VolatileTerm() uint64
}

// Tracker is a small in-memory term source: a single mutex-guarded
// counter plus per-replica high-water marks, the shape of the
// teacher's network/detector/manager.go LevelStateManager generalized
// from a per-shard level map to a per-replica term map.
type Tracker struct {
	mu   sync.Mutex
	term uint64
	seen map[string]uint64
}

// NewTracker returns a Tracker starting at the given term.
func NewTracker(initial uint64) *Tracker {
	return &Tracker{term: initial, seen: make(map[string]uint64)}
}

// VolatileTerm returns the locally observed Raft term.
func (t *Tracker) VolatileTerm() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.term
}

// Advance bumps the local volatile term, e.g. on a Raft election
// notification arriving from outside this package.
func (t *Tracker) Advance(term uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if term > t.term {
		t.term = term
	}
}

// Observe records the highest term seen from a given replica in a
// PROMOTE/DEMOTE request, returning whether it advanced that replica's
// high-water mark. It is not part of Source: the limbo core keeps its
// own promote_term_map / promote_greatest_term (Limbo.ReqCommit).
func (t *Tracker) Observe(replica string, term uint64) (advanced bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if term > t.seen[replica] {
		t.seen[replica] = term
		return true
	}
	return false
}
