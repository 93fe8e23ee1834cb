package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/shoshosho1210/coinrader/pkg/observability"
)

// defaultLogger receives panic and error reports. Swap it once at startup
// when a binary wants these on its own output.
var defaultLogger = observability.NewLogger(observability.InfoLevel, nil)

// SetLogger replaces the logger used for panic and error reports. Not
// safe to call concurrently with running tasks; call it during startup.
func SetLogger(l *observability.Logger) {
	if l != nil {
		defaultLogger = l
	}
}

// SafeGo runs fn in a goroutine with a timeout derived from parentCtx.
// Panics are recovered and logged with a stack trace; a returned error is
// logged and otherwise dropped, so fire-and-forget work cannot crash the
// process or leak an unbounded goroutine.
//
// The timeout counts from the spawn, not from when fn gets scheduled.
// Pass context.Background() when the work must outlive the request that
// triggered it.
func SafeGo(parentCtx context.Context, timeout time.Duration, taskName string, fn func(context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(parentCtx, timeout)
		defer cancel()

		defer func() {
			if r := recover(); r != nil {
				defaultLogger.WithFields(map[string]interface{}{
					"task":  taskName,
					"panic": r,
					"stack": string(debug.Stack()),
				}).Error("Background task panicked")
			}
		}()

		if err := fn(ctx); err != nil {
			defaultLogger.WithError(err).WithField("task", taskName).Error("Background task failed")
		}
	}()
}
