package usbhost

import (
	"context"
	"fmt"
	"sync"

	"github.com/rdxusb/rdxusb-go/frame"
)

// FakeHost is an in-memory Host used by the internal/usbhost,
// internal/session, internal/slot, internal/registry, and root package
// tests, in the spirit of the
// teacher's testing.go MockBackend: scriptable behavior, call counters,
// safe for concurrent use.
type FakeHost struct {
	mu        sync.Mutex
	devices   []Descriptor
	opened    map[string]*FakeInterface // keyed by vid:pid:serial
	OpenCalls int
	closed    bool
}

// NewFakeHost creates an empty fake bus.
func NewFakeHost() *FakeHost {
	return &FakeHost{opened: make(map[string]*FakeInterface)}
}

// AddDevice registers a device descriptor plus the FakeInterface that
// Open should hand back for it.
func (h *FakeHost) AddDevice(d Descriptor, iface *FakeInterface) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.devices = append(h.devices, d)
	h.opened[deviceKey(d)] = iface
}

// RemoveDevice drops a device from the enumeration snapshot, simulating a
// disconnect for hotplug-diff purposes.
func (h *FakeHost) RemoveDevice(d Descriptor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, existing := range h.devices {
		if existing.Bus == d.Bus && existing.Address == d.Address {
			h.devices = append(h.devices[:i], h.devices[i+1:]...)
			break
		}
	}
}

func deviceKey(d Descriptor) string {
	return fmt.Sprintf("%04x:%04x:%s", d.VID, d.PID, d.Serial)
}

func (h *FakeHost) Enumerate(ctx context.Context) ([]Descriptor, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Descriptor, len(h.devices))
	copy(out, h.devices)
	return out, nil
}

func (h *FakeHost) Open(ctx context.Context, d Descriptor) (Interface, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.OpenCalls++
	iface, ok := h.opened[deviceKey(d)]
	if !ok {
		return nil, ErrDeviceDisconnected
	}
	iface.closed = false
	return iface, nil
}

func (h *FakeHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// FakeInterface simulates one open vendor interface: a scripted
// device-info reply, an inbound frame feed, and a record of everything
// written outbound.
type FakeInterface struct {
	mu sync.Mutex

	DeviceInfo  frame.DeviceInfo
	inbound     chan []byte
	Written     [][]byte
	closed      bool
	disconnect  chan struct{}
	disconnectd bool
}

// NewFakeInterface builds a fake interface reporting the given device
// info on the handshake control-IN.
func NewFakeInterface(info frame.DeviceInfo) *FakeInterface {
	return &FakeInterface{
		DeviceInfo: info,
		inbound:    make(chan []byte, 256),
		disconnect: make(chan struct{}),
	}
}

// PushInbound enqueues one simulated bulk-IN completion.
func (f *FakeInterface) PushInbound(wire [frame.WireSize]byte) {
	buf := make([]byte, frame.WireSize)
	copy(buf, wire[:])
	f.inbound <- buf
}

// SimulateDisconnect makes every subsequent stream Read and BulkOut
// return ErrDeviceDisconnected, as a real unplug would.
func (f *FakeInterface) SimulateDisconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.disconnectd {
		f.disconnectd = true
		close(f.disconnect)
	}
}

func (f *FakeInterface) ControlIn(ctx context.Context, request uint8, value, index uint16, length int) ([]byte, error) {
	buf := frame.EncodeDeviceInfo(f.DeviceInfo)
	return buf[:], nil
}

func (f *FakeInterface) ControlOut(ctx context.Context, request uint8, value, index uint16, data []byte) error {
	return nil
}

func (f *FakeInterface) BulkInStream(depth int) (ReadStream, error) {
	return &fakeReadStream{iface: f}, nil
}

func (f *FakeInterface) BulkOut(ctx context.Context, data []byte) error {
	select {
	case <-f.disconnect:
		return ErrDeviceDisconnected
	default:
	}
	f.mu.Lock()
	cp := make([]byte, len(data))
	copy(cp, data)
	f.Written = append(f.Written, cp)
	f.mu.Unlock()
	return nil
}

func (f *FakeInterface) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeReadStream struct {
	iface *FakeInterface
}

func (s *fakeReadStream) Read(ctx context.Context) ([]byte, error) {
	select {
	case buf := <-s.iface.inbound:
		return buf, nil
	case <-s.iface.disconnect:
		return nil, ErrDeviceDisconnected
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *fakeReadStream) Close() error { return nil }
