// Package obs holds the Observer hook and the built-in Metrics collector
// from spec.md's ambient observability story. It is split out from the
// root package (which held these in the teacher's metrics.go) so that
// internal/session can report through an Observer without importing the
// root package, avoiding an import cycle through internal/registry.
package obs

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/rdxusb/rdxusb-go/internal/sesserr"
)

// Observer receives optional, non-blocking notifications of session
// activity. Implementations must never block; the hot path calls these
// synchronously from the inbound/outbound pumps and the open handshake.
// Adapted from the teacher's Observer interface.
type Observer interface {
	ObserveFrameRead(handle int32, channel uint8)
	ObserveFrameWritten(handle int32, channel uint8)
	ObserveFrameDropped(handle int32, channel uint8)
	ObserveBytesRead(handle int32, n int)
	ObserveBytesWritten(handle int32, n int)
	ObserveHandshakeLatency(handle int32, d time.Duration)
	ObserveSessionOpened(handle int32)
	ObserveSessionClosed(handle int32, code sesserr.SessionErrorCode)
}

// NoOpObserver discards every observation. It is the default.
type NoOpObserver struct{}

func (NoOpObserver) ObserveFrameRead(int32, uint8)                        {}
func (NoOpObserver) ObserveFrameWritten(int32, uint8)                     {}
func (NoOpObserver) ObserveFrameDropped(int32, uint8)                     {}
func (NoOpObserver) ObserveBytesRead(int32, int)                          {}
func (NoOpObserver) ObserveBytesWritten(int32, int)                       {}
func (NoOpObserver) ObserveHandshakeLatency(int32, time.Duration)         {}
func (NoOpObserver) ObserveSessionOpened(int32)                           {}
func (NoOpObserver) ObserveSessionClosed(int32, sesserr.SessionErrorCode) {}

var _ Observer = NoOpObserver{}

// latencyBuckets are the upper bounds (inclusive) of the handshake-latency
// histogram, in milliseconds. The last bucket is a catch-all for anything
// slower, mirroring the teacher's LatencyBuckets shape in metrics.go.
var latencyBuckets = [...]time.Duration{
	1 * time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	1 * time.Second,
}

// Metrics accumulates process-wide counters. Safe for concurrent use;
// every field is an atomic counter, matching the teacher's metrics.go.
type Metrics struct {
	FramesRead     atomic.Uint64
	FramesWritten  atomic.Uint64
	FramesDropped  atomic.Uint64
	BytesRead      atomic.Uint64
	BytesWritten   atomic.Uint64
	SessionsOpened atomic.Uint64
	SessionsClosed atomic.Uint64

	// handshakeLatency is a fixed bucketed histogram of control-handshake
	// durations: handshakeLatency[i] counts handshakes <= latencyBuckets[i],
	// with the final slot counting everything past the last bound.
	handshakeLatency [len(latencyBuckets) + 1]atomic.Uint64
}

// NewMetrics constructs a zeroed Metrics.
func NewMetrics() *Metrics { return &Metrics{} }

func (m *Metrics) observeHandshakeLatency(d time.Duration) {
	for i, bound := range latencyBuckets {
		if d <= bound {
			m.handshakeLatency[i].Add(1)
			return
		}
	}
	m.handshakeLatency[len(latencyBuckets)].Add(1)
}

// MetricsObserver adapts a *Metrics into an Observer, the way the
// teacher's MetricsObserver wraps its own Metrics type.
type MetricsObserver struct {
	M *Metrics
}

func (o MetricsObserver) ObserveFrameRead(int32, uint8)    { o.M.FramesRead.Add(1) }
func (o MetricsObserver) ObserveFrameWritten(int32, uint8) { o.M.FramesWritten.Add(1) }
func (o MetricsObserver) ObserveFrameDropped(int32, uint8) { o.M.FramesDropped.Add(1) }
func (o MetricsObserver) ObserveBytesRead(_ int32, n int)  { o.M.BytesRead.Add(uint64(n)) }
func (o MetricsObserver) ObserveBytesWritten(_ int32, n int) {
	o.M.BytesWritten.Add(uint64(n))
}
func (o MetricsObserver) ObserveHandshakeLatency(_ int32, d time.Duration) {
	o.M.observeHandshakeLatency(d)
}
func (o MetricsObserver) ObserveSessionOpened(int32) { o.M.SessionsOpened.Add(1) }
func (o MetricsObserver) ObserveSessionClosed(int32, sesserr.SessionErrorCode) {
	o.M.SessionsClosed.Add(1)
}

var _ Observer = MetricsObserver{}

// Snapshot is a point-in-time copy of Metrics' counters.
type Snapshot struct {
	FramesRead     uint64
	FramesWritten  uint64
	FramesDropped  uint64
	BytesRead      uint64
	BytesWritten   uint64
	SessionsOpened uint64
	SessionsClosed uint64

	// HandshakeLatencyBuckets mirrors latencyBuckets' upper bounds
	// (the last slot is the catch-all "slower than the last bound" count).
	HandshakeLatencyBuckets [len(latencyBuckets) + 1]uint64
}

// Snapshot reads every counter without resetting them.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		FramesRead:     m.FramesRead.Load(),
		FramesWritten:  m.FramesWritten.Load(),
		FramesDropped:  m.FramesDropped.Load(),
		BytesRead:      m.BytesRead.Load(),
		BytesWritten:   m.BytesWritten.Load(),
		SessionsOpened: m.SessionsOpened.Load(),
		SessionsClosed: m.SessionsClosed.Load(),
	}
	for i := range m.handshakeLatency {
		s.HandshakeLatencyBuckets[i] = m.handshakeLatency[i].Load()
	}
	return s
}

// HandshakePercentile estimates the p-th percentile (0 < p <= 1) handshake
// latency from the bucketed histogram, the same bucket-interpolation
// approach as the teacher's calculatePercentile, returning the upper bound
// of whichever bucket holds that rank. Returns 0 if no handshake has been
// observed yet.
func (s Snapshot) HandshakePercentile(p float64) time.Duration {
	var total uint64
	for _, c := range s.HandshakeLatencyBuckets {
		total += c
	}
	if total == 0 {
		return 0
	}
	target := uint64(math.Ceil(p * float64(total)))
	if target == 0 {
		target = 1
	}
	var cumulative uint64
	for i, c := range s.HandshakeLatencyBuckets {
		cumulative += c
		if cumulative >= target {
			if i < len(latencyBuckets) {
				return latencyBuckets[i]
			}
			return latencyBuckets[len(latencyBuckets)-1]
		}
	}
	return latencyBuckets[len(latencyBuckets)-1]
}
