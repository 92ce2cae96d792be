// Package watch implements a single-value broadcast primitive, the Go
// analogue of the tokio::sync::watch channel the original implementation
// uses to dispatch newly discovered device descriptors to slots: every
// waiter observes the most recently sent value, never a backlog.
package watch

import (
	"context"
	"sync"
)

// Value broadcasts successive values of T to any number of waiters. The
// zero Value is ready to use; its initial value is T's zero value.
type Value[T any] struct {
	mu      sync.Mutex
	cur     T
	version uint64 // bumped by every Send
	seen    uint64 // version last returned by Wait
	changed chan struct{}
}

// NewValue constructs a Value already holding an initial value.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{cur: initial, changed: make(chan struct{})}
}

// Send stores a new value and wakes every goroutine currently blocked in
// Wait.
func (v *Value[T]) Send(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cur = val
	v.version++
	if v.changed == nil {
		v.changed = make(chan struct{})
	}
	close(v.changed)
	v.changed = make(chan struct{})
}

// Current returns the most recently sent value without waiting.
func (v *Value[T]) Current() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

// Wait returns at once if a Send has happened since the previous Wait
// returned (or, for the first Wait, since construction); otherwise it
// blocks until the next Send or until ctx is done. It returns the current
// value and true, or the zero value and false if ctx expired first.
func (v *Value[T]) Wait(ctx context.Context) (T, bool) {
	v.mu.Lock()
	if v.version != v.seen {
		v.seen = v.version
		cur := v.cur
		v.mu.Unlock()
		return cur, true
	}
	if v.changed == nil {
		v.changed = make(chan struct{})
	}
	ch := v.changed
	v.mu.Unlock()

	select {
	case <-ch:
		v.mu.Lock()
		defer v.mu.Unlock()
		v.seen = v.version
		return v.cur, true
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}
