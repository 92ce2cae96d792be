// Package hotplug emulates spec.md 4.F's hotplug watcher. gousb has no
// native hotplug event stream (unlike the nusb::watch_devices stream
// original_source/src/event_loop.rs consumes), so the watcher instead
// polls usbhost.Enumerate on an interval and diffs the bus/address
// identity set against its previous snapshot, dispatching only newly
// seen descriptors — a disconnect is deliberately not acted on here; the
// owning session's next failed transfer is what ends it. Rescan, by
// contrast, dispatches every currently enumerated descriptor, matching
// spec.md's "additive, never a replacement" framing for on-demand scans.
package hotplug

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rdxusb/rdxusb-go/internal/logging"
	"github.com/rdxusb/rdxusb-go/internal/usbhost"
)

// Dispatcher hands a freshly observed descriptor to whichever slots
// match it. internal/registry implements this.
type Dispatcher interface {
	DispatchDescriptor(d usbhost.Descriptor)
}

// Watcher periodically re-enumerates the bus and dispatches new devices.
type Watcher struct {
	host     usbhost.Host
	dispatch Dispatcher
	interval time.Duration
	logger   *logging.Logger

	mu   sync.Mutex
	seen map[string]usbhost.Descriptor

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Watcher. Start must be called to begin polling.
func New(host usbhost.Host, dispatch Dispatcher, interval time.Duration, logger *logging.Logger) *Watcher {
	return &Watcher{
		host:     host,
		dispatch: dispatch,
		interval: interval,
		logger:   logger,
		seen:     make(map[string]usbhost.Descriptor),
		done:     make(chan struct{}),
	}
}

// Start launches the polling loop.
func (w *Watcher) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	go w.loop(ctx)
}

// Stop ends the polling loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	<-w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	descs, err := w.host.Enumerate(ctx)
	if err != nil {
		w.logger.Warn("hotplug enumerate failed", "err", err)
		return
	}

	w.mu.Lock()
	next := make(map[string]usbhost.Descriptor, len(descs))
	var fresh []usbhost.Descriptor
	for _, d := range descs {
		key := busKey(d)
		next[key] = d
		if _, ok := w.seen[key]; !ok {
			fresh = append(fresh, d)
		}
	}
	w.seen = next
	w.mu.Unlock()

	for _, d := range fresh {
		w.dispatch.DispatchDescriptor(d)
	}
}

// Rescan performs a one-shot enumeration and dispatches every descriptor
// found, regardless of whether it was already seen by the polling loop.
func Rescan(ctx context.Context, host usbhost.Host, dispatch Dispatcher) error {
	descs, err := host.Enumerate(ctx)
	if err != nil {
		return fmt.Errorf("hotplug: rescan: %w", err)
	}
	for _, d := range descs {
		dispatch.DispatchDescriptor(d)
	}
	return nil
}

func busKey(d usbhost.Descriptor) string {
	return fmt.Sprintf("%d:%d", d.Bus, d.Address)
}
