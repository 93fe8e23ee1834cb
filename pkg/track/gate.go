package track

import (
	"sync/atomic"
	"time"
)

// Gate guards a completion callback so it runs at most once, no matter how
// many completion sources race to fire it. The two sources in practice are
// the analytics transport signaling completion and a one-shot fallback
// timer; whichever arrives first wins and the other becomes a no-op.
//
// A panic inside the callback is swallowed: navigation release must never
// fail because of an analytics callback.
type Gate struct {
	fired atomic.Bool
	timer atomic.Pointer[time.Timer]
	fn    func()
}

// NewGate wraps fn in a single-use gate. A nil fn is allowed; the gate
// then only tracks whether completion happened.
func NewGate(fn func()) *Gate {
	return &Gate{fn: fn}
}

// Arm starts the fallback timer. After d elapses the gate completes by
// itself unless Complete was called first.
func (g *Gate) Arm(d time.Duration) {
	g.timer.Store(time.AfterFunc(d, func() { g.Complete() }))
}

// Complete fires the callback if no completion has happened yet. It
// reports whether this call was the one that fired. The fallback timer,
// if armed and still pending, is stopped.
func (g *Gate) Complete() bool {
	if !g.fired.CompareAndSwap(false, true) {
		return false
	}
	if t := g.timer.Load(); t != nil {
		t.Stop()
	}
	if g.fn != nil {
		runSwallowingPanic(g.fn)
	}
	return true
}

func runSwallowingPanic(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// Fired reports whether the gate has completed by either path.
func (g *Gate) Fired() bool {
	return g.fired.Load()
}
