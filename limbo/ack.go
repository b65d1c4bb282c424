// ACK aggregator: spec.md §4.B.
package limbo

import "LIMBO/limboconf"

// Ack records a replica's acknowledgement of having written up through
// lsn into its own local WAL, advancing the replica's vclock entry and
// re-checking whether entry_to_confirm now has quorum.
func (l *Limbo) Ack(replicaID string, lsn int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 || l.frozenReasons != limboconf.FrozenNone || l.isInRollback {
		return
	}
	if l.knownReplicas.Cardinality() > 0 && !l.knownReplicas.Contains(replicaID) {
		// An ack from a replica outside the configured set can't be let
		// into the vclock — it would inflate NthElement's quorum count
		// with a replica nobody configured as part of this cluster.
		return
	}
	_, advanced := l.vclock.Follow(replicaID, lsn)
	if !advanced {
		return
	}
	if l.confirmIdx >= 0 {
		l.confirmScanLocked()
	}
}

// AssignLocalLSN records the LSN the local WAL assigned to e and folds
// it into the local instance's own vclock entry (the local write just
// completed, so the local replica counts toward quorum). If e is the
// current entry_to_confirm, the scan re-runs (spec.md §4.B).
func (l *Limbo) AssignLocalLSN(e *Entry, lsn int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.LSN = lsn
	l.vclock.Follow(l.instanceID, lsn)
	l.cond.Broadcast() // wakes prepare()'s wait for the tail entry's LSN
	if l.confirmIdx >= 0 && l.entries[l.confirmIdx] == e {
		l.confirmScanLocked()
	}
}

// AssignRemoteLSN records the LSN a foreign-owned entry was given by
// its owning instance. Remote-owned entries never sit at confirmIdx —
// they are retired by an incoming CONFIRM/ROLLBACK, not local quorum.
func (l *Limbo) AssignRemoteLSN(e *Entry, lsn int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.LSN = lsn
	l.cond.Broadcast()
}

// confirmScanLocked walks entries forward from confirmIdx while each
// one both requires ack-wait and already has quorum support in the
// current vclock, and hands the greatest such LSN to confirmLSNLocked.
// Caller holds l.mu.
func (l *Limbo) confirmScanLocked() {
	n := len(l.entries)
	if l.confirmIdx < 0 || l.confirmIdx >= n {
		return
	}
	size := l.vclock.Size()
	if size < l.quorum {
		return
	}
	bound, ok := l.vclock.NthElement(size - l.quorum)
	if !ok {
		return
	}

	idx := l.confirmIdx
	maxLSN := int64(-1)
	for idx < n {
		e := l.entries[idx]
		if !e.AckWait || e.LSN < 0 || e.LSN > bound {
			break
		}
		maxLSN = e.LSN
		idx++
	}
	if idx == l.confirmIdx {
		return
	}
	if idx < n {
		l.confirmIdx = idx
		l.ackCount = l.vclock.CountGE(l.entries[idx].LSN)
	} else {
		l.confirmIdx = -1
		l.ackCount = 0
	}
	l.confirmLSNLocked(maxLSN)
}
