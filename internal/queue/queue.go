// Package queue implements the session's outbound frame FIFO.
package queue

import (
	"sync"

	"github.com/relaykey/relaykey/internal/codec"
)

// SendQueue is a mutex-guarded FIFO of outbound frames with a wake condition.
// Many producers enqueue concurrently (handshake, router, forwarding
// controller); exactly one consumer (the sender task) drains it.
//
// Uses the same mutex+condvar discipline as the rest of the session
// package's shared state, guarding a FIFO queue rather than a single
// value.
type SendQueue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	frames    []codec.Frame
	open      bool
	maxLength int
	dropped   int
}

// New constructs an open queue. maxLength <= 0 means unbounded.
func New(maxLength int) *SendQueue {
	q := &SendQueue{open: true, maxLength: maxLength}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends a frame without blocking. Returns false if the queue has
// been closed, or if it is full and the caller should log-and-drop.
func (q *SendQueue) Enqueue(f codec.Frame) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.open {
		return false
	}
	if q.maxLength > 0 && len(q.frames) >= q.maxLength {
		q.dropped++
		return false
	}
	q.frames = append(q.frames, f)
	q.cond.Signal()
	return true
}

// DrainOne blocks until a frame is available or the queue is closed, then
// pops and returns it. ok is false once the queue has been closed and
// drained empty — the sender task's exit signal.
func (q *SendQueue) DrainOne() (f codec.Frame, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.frames) == 0 && q.open {
		q.cond.Wait()
	}
	if len(q.frames) == 0 {
		return nil, false
	}

	f, q.frames = q.frames[0], q.frames[1:]
	return f, true
}

// Close marks the queue closed, waking every blocked waiter, discards any
// frames still queued, and reports how many were dropped for the caller to
// log.
func (q *SendQueue) Close() (discarded int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.open {
		return 0
	}
	q.open = false
	discarded = len(q.frames)
	q.frames = nil
	q.cond.Broadcast()
	return discarded
}

// Reopen reinitializes the queue for a new session attempt (reconnect),
// clearing any residual drop counter.
func (q *SendQueue) Reopen() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.open = true
	q.frames = nil
	q.dropped = 0
}

// Len reports the number of queued frames, for diagnostics/tests.
func (q *SendQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}
