// Package registry implements the process-wide event-loop registry
// (spec.md 4.E): the slot table, monotonic handle allocation, and the
// single mutex arbitrating concurrent access from foreign callers and
// background poller/hotplug tasks.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/rdxusb/rdxusb-go/frame"
	"github.com/rdxusb/rdxusb-go/internal/hotplug"
	"github.com/rdxusb/rdxusb-go/internal/logging"
	"github.com/rdxusb/rdxusb-go/internal/session"
	"github.com/rdxusb/rdxusb-go/internal/slot"
	"github.com/rdxusb/rdxusb-go/internal/usbhost"
)

// Registry is the process-wide singleton in production (wired from
// api.go's lazy accessor) but is freely constructible in tests via New.
type Registry struct {
	mu         sync.Mutex
	handles    map[int32]*slot.Slot
	nextHandle int32

	host    usbhost.Host
	logger  *logging.Logger
	watcher *hotplug.Watcher

	ctx    context.Context
	cancel context.CancelFunc
}

// New constructs a Registry over the given host and immediately starts
// its hotplug watcher at hotplugInterval. Callers own the returned
// Registry's lifetime; call Shutdown to stop all background tasks.
func New(host usbhost.Host, hotplugInterval time.Duration, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		handles: make(map[int32]*slot.Slot),
		host:    host,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	r.watcher = hotplug.New(host, r, hotplugInterval, logger)
	r.watcher.Start(ctx)
	return r
}

// Open implements spec.md 4.E's open: if an existing slot matches the
// criteria, its handle is returned and a rescan is triggered; otherwise a
// new slot is allocated and its poller started.
func (r *Registry) Open(vid, pid uint16, serial string, closeOnDisconnect bool, bufSize int) (int32, error) {
	criteria := slot.Criteria{VID: vid, PID: pid, Serial: serial}

	r.mu.Lock()
	for handle, s := range r.handles {
		if s.Criteria == criteria {
			r.mu.Unlock()
			_ = r.Rescan()
			return handle, nil
		}
	}

	handle := r.nextHandle
	r.nextHandle++

	params := session.DefaultParams()
	if bufSize > 0 {
		params.ChannelQueueDepth = bufSize
		params.OutboundQueueDepth = bufSize
	}
	params.Logger = r.logger

	s := slot.New(handle, criteria, closeOnDisconnect, r.host, params)
	r.handles[handle] = s
	r.mu.Unlock()

	s.Start(r.ctx, r)
	_ = r.Rescan()
	return handle, nil
}

// InstallSession / ClearSession / RemoveHandle satisfy slot.Callbacks.
// Slot already tracks its own current session; the registry only needs
// these for diagnostics and, on RemoveHandle, to drop the slot from the
// table for a close_on_disconnect slot.
func (r *Registry) InstallSession(handle int32, s *session.Session) {
	r.logger.ForHandle(handle).Debug("session installed", "channels", s.NChannels())
}

func (r *Registry) ClearSession(handle int32) {
	r.logger.ForHandle(handle).Debug("session cleared")
}

func (r *Registry) RemoveHandle(handle int32) {
	r.mu.Lock()
	delete(r.handles, handle)
	r.mu.Unlock()
}

// DispatchDescriptor satisfies hotplug.Dispatcher: publish d to every
// slot whose criteria match, per spec.md 4.F.
func (r *Registry) DispatchDescriptor(d usbhost.Descriptor) {
	r.mu.Lock()
	var matches []*slot.Slot
	for _, s := range r.handles {
		if s.Criteria.Matches(d) {
			matches = append(matches, s)
		}
	}
	r.mu.Unlock()

	for _, s := range matches {
		s.PublishDescriptor(d)
	}
}

// Rescan performs a one-shot enumeration and dispatches every descriptor
// to matching slots.
func (r *Registry) Rescan() error {
	return hotplug.Rescan(r.ctx, r.host, r)
}

// EnumerateNow takes a one-shot bus snapshot for the device iterator
// functions, independent of slot matching.
func (r *Registry) EnumerateNow(ctx context.Context) ([]usbhost.Descriptor, error) {
	return r.host.Enumerate(ctx)
}

// ReadOne implements the foreign-facing non-blocking read.
func (r *Registry) ReadOne(handle int32, channel uint8) (frame.PublicFrame, bool, error) {
	s, ok := r.lookup(handle)
	if !ok {
		return frame.PublicFrame{}, false, ErrHandleNotOpen
	}
	sess := s.CurrentSession()
	if sess == nil {
		return frame.PublicFrame{}, false, ErrNotConnected
	}
	if int(channel) >= int(sess.NChannels()) {
		return frame.PublicFrame{}, false, ErrChannelOutOfRange
	}
	return sess.ReadOne(channel)
}

// WriteOne implements the foreign-facing non-blocking write.
func (r *Registry) WriteOne(handle int32, f frame.PublicFrame) (bool, error) {
	s, ok := r.lookup(handle)
	if !ok {
		return false, ErrHandleNotOpen
	}
	sess := s.CurrentSession()
	if sess == nil {
		return false, ErrNotConnected
	}
	return sess.WriteOne(f)
}

// Close is idempotent: an unknown handle returns nil (success), matching
// spec.md §6's close_device contract. It returns immediately; the slot's
// poller tears down asynchronously.
func (r *Registry) Close(handle int32) error {
	r.mu.Lock()
	s, ok := r.handles[handle]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	delete(r.handles, handle)
	r.mu.Unlock()

	go s.Shutdown()
	return nil
}

// CloseAll closes every currently open handle.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	all := r.handles
	r.handles = make(map[int32]*slot.Slot)
	r.mu.Unlock()

	for _, s := range all {
		go s.Shutdown()
	}
	return nil
}

// Shutdown stops the hotplug watcher and every slot poller, synchronously.
// Intended for process exit / test teardown, not the per-handle close
// path (which must return immediately per spec.md §5).
func (r *Registry) Shutdown() {
	r.cancel()
	r.watcher.Stop()
	r.mu.Lock()
	all := r.handles
	r.handles = make(map[int32]*slot.Slot)
	r.mu.Unlock()
	for _, s := range all {
		s.Shutdown()
	}
}

func (r *Registry) lookup(handle int32) (*slot.Slot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.handles[handle]
	return s, ok
}
