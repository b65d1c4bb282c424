package limboconf

import "time"

// Debugging switches. All default off, matching the teacher's defaults.
var (
	ShowDebugInfo = false
	ShowTestInfo  = ShowDebugInfo
	ShowWarnings  = ShowDebugInfo
	LogToFile     = true
)

// Synchro request types (§4.F).
const (
	ReqConfirm = "CONFIRM"
	ReqRollback = "ROLLBACK"
	ReqPromote = "PROMOTE"
	ReqDemote  = "DEMOTE"
)

// Freeze reasons (§4.I). Bits of Limbo.FrozenReasons.
const (
	FrozenNone          uint8 = 0
	FrozenFencing       uint8 = 1 << 0
	FrozenUntilPromote  uint8 = 1 << 1
)

// System parameters. Overridable via Config / flags; these are the
// teacher-style compiled-in defaults (c.f. configs.CrashFailureTimeout,
// configs.LogBatchInterval).
const (
	DefaultQuorum              = 2
	DefaultReplicationTimeout  = 4 * time.Second
	DefaultMaxQueueSize        = 16 << 20 // 16MiB, 0 disables the admission gate
	DefaultConfirmBatchWindow  = 10 * time.Millisecond
	DefaultWaitEmptyTimeout    = 5 * time.Second
)
