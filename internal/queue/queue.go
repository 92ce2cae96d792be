// Package queue implements the bounded per-channel frame queues used by a
// Session's inbound pipeline and by the shared outbound pipeline: a
// buffered channel of frame.Frame with both non-blocking try-ops (for the
// foreign-facing read_packets/write_packets path) and context-aware
// blocking ops (for the await-on-full inbound policy).
package queue

import (
	"context"
	"sync"

	"github.com/rdxusb/rdxusb-go/frame"
)

// FullPolicy controls what an inbound push does when the queue is at
// capacity. The ABI boundary always uses AwaitOnFull (see DESIGN.md Open
// Question decisions); DropOnFull is exercised internally by session
// configuration and by package tests (S5).
type FullPolicy int

const (
	AwaitOnFull FullPolicy = iota
	DropOnFull
)

// Queue is a bounded FIFO of frames. The zero value is not usable; use
// New. A Queue is safe for one concurrent producer and one concurrent
// consumer (SPSC), matching spec.md's per-channel/outbound queue model.
type Queue struct {
	ch     chan frame.Frame
	policy FullPolicy

	closeOnce sync.Once
	closed    chan struct{}
}

// New creates a Queue with the given capacity and full policy.
func New(capacity int, policy FullPolicy) *Queue {
	return &Queue{
		ch:     make(chan frame.Frame, capacity),
		policy: policy,
		closed: make(chan struct{}),
	}
}

// TryPush attempts to enqueue f without blocking. It reports whether the
// frame was accepted; under DropOnFull a full queue silently drops and
// returns false without this being treated as an error by the caller.
func (q *Queue) TryPush(f frame.Frame) bool {
	select {
	case q.ch <- f:
		return true
	default:
		return false
	}
}

// TryPop attempts to dequeue a frame without blocking.
func (q *Queue) TryPop() (frame.Frame, bool) {
	select {
	case f := <-q.ch:
		return f, true
	default:
		return frame.Frame{}, false
	}
}

// Push enqueues f, honoring the queue's configured full policy:
// AwaitOnFull blocks (applying backpressure to the bulk-IN pipeline) until
// space exists, ctx is cancelled, or the queue is closed; DropOnFull never
// blocks and reports whether the frame was kept.
func (q *Queue) Push(ctx context.Context, f frame.Frame) (accepted bool, err error) {
	select {
	case <-q.closed:
		return false, ErrClosed
	default:
	}
	if q.policy == DropOnFull {
		return q.TryPush(f), nil
	}
	select {
	case q.ch <- f:
		return true, nil
	case <-q.closed:
		return false, ErrClosed
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Pop dequeues a frame, blocking until one is available, ctx is
// cancelled, or the queue is closed. Frames enqueued before Close are
// still delivered, in order, before ErrClosed is ever returned.
func (q *Queue) Pop(ctx context.Context) (frame.Frame, error) {
	// Prefer any already-buffered frame over a pending close/cancel signal;
	// select among multiple ready channels is otherwise unordered.
	select {
	case f := <-q.ch:
		return f, nil
	default:
	}

	select {
	case f := <-q.ch:
		return f, nil
	case <-q.closed:
		select {
		case f := <-q.ch:
			return f, nil
		default:
			return frame.Frame{}, ErrClosed
		}
	case <-ctx.Done():
		return frame.Frame{}, ctx.Err()
	}
}

// Close unblocks any pending waiter; subsequent Push/Pop observe
// ErrClosed once the buffered backlog (if any) has been drained via Pop.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

// Len reports the number of frames currently buffered.
func (q *Queue) Len() int { return len(q.ch) }

// ErrClosed is returned by Push/Pop once the queue has been closed and
// drained.
var ErrClosed = errClosed{}

type errClosed struct{}

func (errClosed) Error() string { return "queue: closed" }
