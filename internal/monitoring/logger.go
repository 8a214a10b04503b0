package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// debugLogf receives per-pair matching traces. It is only called when debug
// output has been enabled with SetDebug.
var debugLogf func(format string, v ...interface{}) = log.Printf

var debugEnabled atomic.Bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebugLogger replaces the sink used by Debugf. Passing nil mutes it.
func SetDebugLogger(f func(format string, v ...interface{})) {
	if f == nil {
		debugLogf = func(string, ...interface{}) {}
		return
	}
	debugLogf = f
}

// SetDebug toggles verbose tracing.
func SetDebug(enabled bool) {
	debugEnabled.Store(enabled)
}

// DebugEnabled reports whether Debugf currently emits anything. Callers with
// expensive format arguments can check it first.
func DebugEnabled() bool {
	return debugEnabled.Load()
}

// Debugf logs with a "[debug] " prefix when debug output is enabled.
func Debugf(format string, v ...interface{}) {
	if !debugEnabled.Load() {
		return
	}
	debugLogf("[debug] "+format, v...)
}
