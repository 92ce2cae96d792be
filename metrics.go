package rdxusb

import "github.com/rdxusb/rdxusb-go/internal/obs"

// Observer, NoOpObserver, Metrics, MetricsObserver, and Snapshot live in
// internal/obs (internal/session needs them without importing this
// package) and are re-exported here for external consumers of the Go API.
type Observer = obs.Observer

type NoOpObserver = obs.NoOpObserver

type Metrics = obs.Metrics

// NewMetrics constructs a zeroed Metrics.
func NewMetrics() *Metrics { return obs.NewMetrics() }

type MetricsObserver = obs.MetricsObserver

type Snapshot = obs.Snapshot
