// Package limbovclock implements the VClock collaborator of spec.md §6:
// a mapping replica_id -> highest LSN acknowledged by that replica, plus
// the order-statistic query the ACK aggregator (§4.B) needs to compute
// the quorum-confirmable LSN.
package limbovclock

import "sort"

// VClock maps a replica identifier to the highest LSN it has acked.
// Not safe for concurrent use — the limbo core serializes access to it
// under its own mutex (Limbo.mu).
type VClock struct {
	lsn map[string]int64
}

// New returns an empty VClock.
func New() *VClock {
	return &VClock{lsn: make(map[string]int64)}
}

// Get returns the LSN recorded for replica, or -1 if none.
func (v *VClock) Get(replica string) int64 {
	if l, ok := v.lsn[replica]; ok {
		return l
	}
	return -1
}

// Follow advances replica's LSN to lsn if lsn is greater than what is
// already recorded; it is a no-op otherwise (Testable Property 5:
// idempotent, monotone ack).
func (v *VClock) Follow(replica string, lsn int64) (prev int64, advanced bool) {
	prev = v.Get(replica)
	if lsn <= prev {
		return prev, false
	}
	v.lsn[replica] = lsn
	return prev, true
}

// Size returns the number of distinct replicas tracked.
func (v *VClock) Size() int {
	return len(v.lsn)
}

// CountGE returns how many replicas have an LSN >= lsn.
func (v *VClock) CountGE(lsn int64) int {
	n := 0
	for _, l := range v.lsn {
		if l >= lsn {
			n++
		}
	}
	return n
}

// NthElement returns the k-th smallest LSN across all tracked replicas
// (0-indexed). It implements the §4.B quorum rule: with quorum q and
// vclock size N, the confirmable LSN is the (N-q)-th smallest value,
// i.e. the largest LSN such that at least q replicas have reached it.
// Returns (0, false) if k is out of range.
func (v *VClock) NthElement(k int) (int64, bool) {
	if k < 0 || k >= len(v.lsn) {
		return 0, false
	}
	vals := make([]int64, 0, len(v.lsn))
	for _, l := range v.lsn {
		vals = append(vals, l)
	}
	sort.Slice(vals, func(i, j int) bool { return vals[i] < vals[j] })
	return vals[k], true
}

// QuorumLSN returns the largest LSN such that at least quorum replicas
// have acked it, or (0, false) when fewer than quorum replicas are
// tracked at all.
func (v *VClock) QuorumLSN(quorum int) (int64, bool) {
	n := v.Size()
	if n < quorum {
		return 0, false
	}
	return v.NthElement(n - quorum)
}

// Copy returns an independent copy, used when checkpointing
// confirmed_vclock (spec.md §6 "Persisted state").
func (v *VClock) Copy() *VClock {
	out := New()
	for r, l := range v.lsn {
		out.lsn[r] = l
	}
	return out
}

// Replicas returns the tracked replica identifiers, sorted for
// deterministic iteration (mirrors the teacher's sort.Strings over
// participant lists in network/coordinator/main.go).
func (v *VClock) Replicas() []string {
	out := make([]string, 0, len(v.lsn))
	for r := range v.lsn {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a plain map copy, for checkpoint encoding.
func (v *VClock) Snapshot() map[string]int64 {
	out := make(map[string]int64, len(v.lsn))
	for r, l := range v.lsn {
		out[r] = l
	}
	return out
}

// FromSnapshot rebuilds a VClock from a plain map, the inverse of
// Snapshot — used when restoring confirmed_vclock from a checkpoint.
func FromSnapshot(m map[string]int64) *VClock {
	out := New()
	for r, l := range m {
		out.lsn[r] = l
	}
	return out
}
