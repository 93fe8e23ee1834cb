// Package ga delivers analytics events to Google Analytics 4 over the
// Measurement Protocol.
//
// The Client implements track.Reporter with two delivery modes. Default
// mode POSTs the event and signals completion when the round-trip
// settles, which is what a held navigation waits on. Beacon mode enqueues
// the payload on a background queue with bounded retries and signals
// completion immediately, trading the completion signal for delivery that
// survives the originating request.
//
// A disabled configuration constructs a nil client; DialReporter turns
// that into a nil track.Reporter so the classifier degrades to no-op
// reporting.
package ga
