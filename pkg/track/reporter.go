package track

import (
	"context"
	"time"
)

// Reporter forwards analytics events to an external transport. Report must
// call opts.Done exactly once when the transport settles (success or
// failure); the caller pairs Done with its own timeout, so a transport
// that never settles only delays, never blocks.
//
// Implementations must not panic into the caller and must tolerate a nil
// Done.
type Reporter interface {
	Report(ctx context.Context, event *Event, opts ReportOptions)
}

// ReportOptions carries per-report delivery hints to the transport.
type ReportOptions struct {
	// Done is invoked when the transport settles. Dispatch wraps it in a
	// single-use gate before handing it to the reporter, so a sloppy
	// transport that signals twice has no extra effect.
	Done func()

	// Beacon asks the transport for a delivery mode that survives page
	// unload, at the cost of a weaker completion signal.
	Beacon bool

	// ClientID identifies the browser instance for attribution.
	ClientID string
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(ctx context.Context, event *Event, opts ReportOptions)

// Report implements Reporter.
func (f ReporterFunc) Report(ctx context.Context, event *Event, opts ReportOptions) {
	f(ctx, event, opts)
}

// DispatchOptions controls one Dispatch call.
type DispatchOptions struct {
	// Done runs when the dispatch completes, by transport or by timeout.
	Done func()

	// Timeout bounds how long completion may take; zero means
	// DefaultCompletionTimeout.
	Timeout time.Duration

	// Beacon and ClientID are forwarded to the transport.
	Beacon   bool
	ClientID string
}

// Dispatch sends event through reporter with at-most-once completion.
//
// The returned gate fires opts.Done exactly once: when the reporter
// signals completion, or after the timeout elapses, whichever comes first.
// A nil reporter degrades to a no-op that completes immediately, so
// callers that deferred navigation resume right away. Dispatch never
// blocks on the transport.
func Dispatch(ctx context.Context, reporter Reporter, event *Event, opts DispatchOptions) *Gate {
	gate := NewGate(opts.Done)

	if reporter == nil {
		gate.Complete()
		return gate
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultCompletionTimeout
	}
	gate.Arm(timeout)

	reporter.Report(ctx, event, ReportOptions{
		Done:     func() { gate.Complete() },
		Beacon:   opts.Beacon,
		ClientID: opts.ClientID,
	})
	return gate
}
