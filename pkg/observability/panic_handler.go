package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with structured logging
//
// Usage in defer statements:
//
//	func runDailyRollup() {
//	    defer observability.RecoverPanic(logger, "daily rollup")
//	    // ... code that might panic
//	}
//
// The function should be called in a defer statement. If a panic occurs,
// it will be recovered and logged at Error level with:
//   - panic value
//   - full stack trace
//   - context about where the panic occurred
//
// After logging, the panic is NOT re-raised - the function returns normally.
// This prevents a single bad job run from crashing the daemon but may leave
// partial state behind. Use carefully.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
	}
}

// RecoverPanicWithCallback recovers from a panic, logs it, and executes a callback
//
// Usage when cleanup is needed after panic:
//
//	func publishWorker() {
//	    defer observability.RecoverPanicWithCallback(logger, "share page publish", func() {
//	        close(resultCh)  // Cleanup action
//	    })
//	    // ... code that might panic
//	}
//
// The callback runs only after a recovered panic, AFTER logging it. This
// allows cleanup actions like closing channels, releasing locks, or
// recording a failure metric.
//
// Common use cases:
//   - Close channels to unblock waiting goroutines
//   - Release mutex locks to prevent deadlock
//   - Set error flags to indicate failure
//   - Update metrics counters
func RecoverPanicWithCallback(logger *Logger, context string, callback func()) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("PANIC recovered")
		if callback != nil {
			callback()
		}
	}
}
