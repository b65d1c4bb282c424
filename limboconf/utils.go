package limboconf

import (
	"fmt"
	"log"
	"time"

	"github.com/goccy/go-json"
)

// Debugf logs a debug-gated message, matching the teacher's DPrintf: a
// timestamped line routed to fmt or log depending on LogToFile.
func Debugf(format string, a ...interface{}) {
	if !ShowDebugInfo {
		return
	}
	emit(format, a...)
}

// Tracef logs a test-trace-gated message, matching the teacher's TPrintf.
func Tracef(format string, a ...interface{}) {
	if !ShowTestInfo {
		return
	}
	emit(format, a...)
}

// Warnf logs a warning-gated message, matching the teacher's Warn.
func Warnf(cond bool, format string, a ...interface{}) bool {
	if ShowWarnings && !cond {
		emit("[WARNING] "+format, a...)
	}
	return cond
}

func emit(format string, a ...interface{}) {
	line := time.Now().Format("15:04:05.00") + " <---> " + format
	if LogToFile {
		log.Printf(line, a...)
	} else {
		fmt.Printf(line+"\n", a...)
	}
}

// Dump renders v as JSON for debug output, matching the teacher's JPrint.
func Dump(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%T: %v>", v, err)
	}
	return string(b)
}

// Assert panics with msg if cond is false. The limbo's invariants (§3)
// are enforced this way, matching the teacher's configs.Assert.
func Assert(cond bool, msg string) {
	if !cond {
		panic("[ASSERT] " + msg)
	}
}

// Must panics on a non-nil error. The limbo core uses it on
// limboserde.Encode results; its fatal WAL-write paths panic directly.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}
