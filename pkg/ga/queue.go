package ga

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// sendFunc delivers one payload body and returns the HTTP status code.
type sendFunc func(ctx context.Context, body []byte) (int, error)

// delivery is one queued payload and its attempt history.
type delivery struct {
	body        []byte
	attempts    int
	nextRetryAt time.Time
	lastError   string
}

// QueueStats is a point-in-time view of queue activity.
type QueueStats struct {
	Depth     int   `json:"depth"`
	Retrying  int   `json:"retrying"`
	Delivered int64 `json:"delivered"`
	Retried   int64 `json:"retried"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

// Queue buffers beacon-mode payloads and delivers them from a background
// worker with bounded retries. Enqueue never blocks; when the buffer is
// full the payload is dropped and counted, because beacon delivery is
// best-effort by contract.
type Queue struct {
	ch     chan *delivery
	policy *RetryPolicy
	send   sendFunc

	mu      sync.Mutex
	retries []*delivery

	delivered atomic.Int64
	retried   atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	onError func(error)
}

// NewQueue creates a queue with the given buffer size and retry policy.
// onError receives delivery failures for logging; it may be nil.
func NewQueue(size int, policy *RetryPolicy, send sendFunc, onError func(error)) *Queue {
	if size <= 0 {
		size = 256
	}
	if policy == nil {
		policy = NewRetryPolicy(DefaultRetryConfig())
	}
	return &Queue{
		ch:      make(chan *delivery, size),
		policy:  policy,
		send:    send,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
		onError: onError,
	}
}

// Start runs the delivery worker until Stop is called or ctx is cancelled.
func (q *Queue) Start(ctx context.Context, checkInterval time.Duration) {
	if checkInterval <= 0 {
		checkInterval = 5 * time.Second
	}
	ticker := time.NewTicker(checkInterval)

	go func() {
		defer close(q.done)
		defer ticker.Stop()
		defer func() {
			if r := recover(); r != nil {
				q.reportError(fmt.Errorf("delivery worker panic: %v\n%s", r, debug.Stack()))
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-q.stopCh:
				// Drain with a fresh context; the loop context may
				// already be cancelled during shutdown.
				q.drain(context.Background())
				return
			case d := <-q.ch:
				q.deliver(ctx, d)
			case <-ticker.C:
				q.processRetries(ctx)
			}
		}
	}()
}

// Stop asks the worker to drain buffered payloads and exit. It returns
// once the worker has finished or the timeout elapses.
func (q *Queue) Stop(timeout time.Duration) {
	q.stopOnce.Do(func() { close(q.stopCh) })
	select {
	case <-q.done:
	case <-time.After(timeout):
	}
}

// Enqueue hands a payload to the worker. It reports false when the buffer
// is full and the payload was dropped.
func (q *Queue) Enqueue(body []byte) bool {
	select {
	case q.ch <- &delivery{body: body}:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Stats returns current queue counters.
func (q *Queue) Stats() QueueStats {
	q.mu.Lock()
	retrying := len(q.retries)
	q.mu.Unlock()

	return QueueStats{
		Depth:     len(q.ch),
		Retrying:  retrying,
		Delivered: q.delivered.Load(),
		Retried:   q.retried.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
	}
}

func (q *Queue) deliver(ctx context.Context, d *delivery) {
	d.attempts++
	status, sendErr := q.send(ctx, d.body)
	if sendErr == nil && status < 400 {
		q.delivered.Add(1)
		return
	}

	retryable := q.policy.ShouldRetry(d.attempts, status, sendErr)
	if sendErr == nil {
		sendErr = fmt.Errorf("unexpected status %d", status)
	}
	d.lastError = sendErr.Error()

	if !retryable {
		q.failed.Add(1)
		q.reportError(fmt.Errorf("delivery failed after %d attempts: %w", d.attempts, sendErr))
		return
	}

	d.nextRetryAt = q.policy.NextRetryTime(d.attempts)
	q.mu.Lock()
	q.retries = append(q.retries, d)
	q.mu.Unlock()
}

func (q *Queue) processRetries(ctx context.Context) {
	now := time.Now()

	q.mu.Lock()
	sort.Slice(q.retries, func(i, j int) bool {
		return q.retries[i].nextRetryAt.Before(q.retries[j].nextRetryAt)
	})
	var due []*delivery
	var remaining []*delivery
	for _, d := range q.retries {
		if d.nextRetryAt.Before(now) || d.nextRetryAt.Equal(now) {
			due = append(due, d)
		} else {
			remaining = append(remaining, d)
		}
	}
	q.retries = remaining
	q.mu.Unlock()

	for _, d := range due {
		q.retried.Add(1)
		q.deliver(ctx, d)
	}
}

// drain makes one final delivery attempt for everything still buffered,
// including payloads waiting on a retry backoff. Whatever fails now is
// abandoned; the process is exiting.
func (q *Queue) drain(ctx context.Context) {
	for {
		select {
		case d := <-q.ch:
			q.deliver(ctx, d)
		default:
			q.mu.Lock()
			pending := q.retries
			q.retries = nil
			q.mu.Unlock()
			for _, d := range pending {
				q.retried.Add(1)
				q.deliver(ctx, d)
			}
			return
		}
	}
}

func (q *Queue) reportError(err error) {
	if q.onError != nil {
		q.onError(err)
	}
}
