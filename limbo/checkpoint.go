// Checkpoint export: spec.md §6, §9 "checkpoint ownership", §12.6.
package limbo

import "LIMBO/limboserde"

// Checkpoint returns the persisted state a snapshot needs: a copy of
// confirmed_vclock (the only limbo state that survives ownership
// changes across restarts), framed as a CONFIRM-shaped request so
// limbocheckpoint can serialize it with the same encoder as wire
// requests. Unlike the source's pointer-aliasing checkpoint(), this
// always hands back an owned copy (spec.md §9 flags the original's
// aliasing as a wart worth not repeating).
func (l *Limbo) Checkpoint() *limboserde.Request {
	l.mu.Lock()
	defer l.mu.Unlock()
	vc := make(map[string]int64, len(l.confirmedVClock))
	for r, lsn := range l.confirmedVClock {
		vc[r] = lsn
	}
	return &limboserde.Request{
		Type:            limboserde.Confirm,
		ReplicaID:       l.ownerID,
		OriginID:        l.instanceID,
		LSN:             l.confirmedLSN,
		ConfirmedVClock: vc,
	}
}

// RestoreCheckpoint seeds confirmed_vclock/confirmed_lsn from a
// previously persisted Checkpoint, used during recovery before the
// WAL replay begins.
func (l *Limbo) RestoreCheckpoint(req *limboserde.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for r, lsn := range req.ConfirmedVClock {
		l.confirmedVClock[r] = lsn
	}
	if req.LSN > l.confirmedLSN {
		l.confirmedLSN = req.LSN
		l.volatileConfirmedLSN = req.LSN
	}
}
