// Freeze/fence control: spec.md §4.I.
package limbo

import "LIMBO/limboconf"

// Fence sets the FENCING bit (operator-driven read-only mode).
func (l *Limbo) Fence() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozenReasons |= limboconf.FrozenFencing
	l.cond.Broadcast()
}

// Unfence clears the FENCING bit.
func (l *Limbo) Unfence() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozenReasons &^= limboconf.FrozenFencing
	l.cond.Broadcast()
}

// FilterEnable turns the split-brain filter back on (spec.md §4.H).
// Used once recovery replay of one's own WAL has finished.
func (l *Limbo) FilterEnable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doValidate = true
}

// FilterDisable turns the split-brain filter into a no-op, the mode
// used while replaying one's own WAL during recovery.
func (l *Limbo) FilterDisable() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.doValidate = false
}

// IsRO reports whether any freeze reason is set — externally "do not
// accept writes" (spec.md §4.I).
func (l *Limbo) IsRO() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frozenReasons != limboconf.FrozenNone
}

// markUntilPromotion sets the UNTIL_PROMOTION bit, used at startup
// before the first PROMOTE has been observed post-restart.
func (l *Limbo) markUntilPromotion() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frozenReasons |= limboconf.FrozenUntilPromote
}

// unfreezeOnFirstPromoteLocked clears UNTIL_PROMOTION the first time
// any PROMOTE commits. Caller holds l.mu.
func (l *Limbo) unfreezeOnFirstPromoteLocked() {
	l.frozenReasons &^= limboconf.FrozenUntilPromote
}
