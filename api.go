// Package rdxusb is the public Go surface of the RdxUsb driver runtime:
// persistent, auto-reconnecting USB bulk-transfer sessions with CAN-bridge
// devices, mediated by a process-wide handle table (spec.md 4.E/4.G). The
// cgo C ABI in cmd/librdxusb wraps these same functions for foreign
// callers; the semantics (handle allocation, idempotent close, non-
// blocking read/write) are defined once, here.
package rdxusb

import (
	"context"
	"sync"

	"github.com/rdxusb/rdxusb-go/frame"
	"github.com/rdxusb/rdxusb-go/internal/constants"
	"github.com/rdxusb/rdxusb-go/internal/logging"
	"github.com/rdxusb/rdxusb-go/internal/registry"
	"github.com/rdxusb/rdxusb-go/internal/usbhost"
)

var (
	regMu      sync.Mutex
	globalHost *usbhost.GousbHost
	globalReg  *registry.Registry
)

// defaultRegistry lazily initializes the process-wide registry over a real
// gousb-backed host, mirroring the original's `static EVENT_LOOP:
// Mutex<OnceCell<EventLoop>>` singleton (spec.md §9). Every exported
// function in this file routes through it. Tests override the singleton
// via UseTestRegistry (testing.go) instead of hitting real hardware.
func defaultRegistry() *registry.Registry {
	regMu.Lock()
	defer regMu.Unlock()
	if globalReg == nil {
		globalHost = usbhost.NewGousbHost()
		globalReg = registry.New(globalHost, constants.HotplugPollInterval, logging.Default())
	}
	return globalReg
}

// OpenDevice opens (or re-attaches to) a slot matching (vid, pid, serial).
// serial == "" matches any serial number. Returns a non-negative handle
// and a nil error on success; failures are reported through err, which
// cmd/librdxusb maps onto a negative ABI error code.
func OpenDevice(vid, pid uint16, serial string, closeOnDisconnect bool, bufSize uint64) (int32, error) {
	return defaultRegistry().Open(vid, pid, serial, closeOnDisconnect, int(bufSize))
}

// ForceScanDevices triggers an immediate, additive rescan of the bus,
// dispatching every currently enumerated descriptor to matching slots.
func ForceScanDevices() error {
	return defaultRegistry().Rescan()
}

// ReadPackets fills out with up to len(out) frames read from handle h's
// channel ch, non-blocking, stopping at the first empty read. It returns
// the number of frames read and an error for handle/channel/connectivity
// failures; n < len(out) with a nil error means the channel ran dry, not
// a failure.
func ReadPackets(h int32, ch uint8, out []frame.PublicFrame) (int, error) {
	r := defaultRegistry()
	for i := range out {
		pub, ok, err := r.ReadOne(h, ch)
		if err != nil {
			if err == registry.ErrNotConnected {
				if i > 0 {
					return i, nil
				}
				return 0, err
			}
			return i, err
		}
		if !ok {
			return i, nil
		}
		out[i] = pub
	}
	return len(out), nil
}

// WritePackets submits in to handle h's outbound queue, non-blocking,
// stopping at the first rejection (queue full or dlc > 48). It returns
// the number of frames accepted.
func WritePackets(h int32, in []frame.PublicFrame) (int, error) {
	r := defaultRegistry()
	for i, f := range in {
		accepted, err := r.WriteOne(h, f)
		if err != nil {
			if err == registry.ErrNotConnected || err == frame.ErrPayloadTooLarge {
				return i, nil
			}
			return i, err
		}
		if !accepted {
			return i, nil
		}
	}
	return len(in), nil
}

// CloseDevice closes handle h. Idempotent: an unknown handle is success.
func CloseDevice(h int32) error {
	return defaultRegistry().Close(h)
}

// CloseAllDevices closes every open handle.
func CloseAllDevices() error {
	return defaultRegistry().CloseAll()
}

// DeviceEntry describes one attached device as reported by the iterator
// functions, the Go-side mirror of the C ABI's fixed-size DeviceEntry
// struct (cmd/librdxusb fills the C strings from these Go strings).
type DeviceEntry struct {
	Serial       string
	Manufacturer string
	Product      string
	VID, PID     uint16
	Bus, Address int
}

// deviceIterator is a one-shot enumeration snapshot, held alive by handle
// until FreeDeviceIterator releases it.
type deviceIterator struct {
	entries []DeviceEntry
}

var (
	iterMu      sync.Mutex
	iterTable   = make(map[uint64]*deviceIterator)
	nextIter    uint64
)

// NewDeviceIterator takes a snapshot of every currently attached device
// and returns an opaque iterator handle plus the snapshot's length.
func NewDeviceIterator() (uint64, uint64, error) {
	descs, err := defaultRegistry().EnumerateNow(context.Background())
	if err != nil {
		return 0, 0, err
	}
	entries := make([]DeviceEntry, len(descs))
	for i, d := range descs {
		entries[i] = DeviceEntry{
			Serial:       d.Serial,
			Manufacturer: d.Manufacturer,
			Product:      d.Product,
			VID:          d.VID,
			PID:          d.PID,
			Bus:          d.Bus,
			Address:      d.Address,
		}
	}

	iterMu.Lock()
	defer iterMu.Unlock()
	id := nextIter
	nextIter++
	iterTable[id] = &deviceIterator{entries: entries}
	return id, uint64(len(entries)), nil
}

// GetDeviceInIterator returns the idx'th entry of the snapshot taken by
// iter. ErrDeviceIteratorInvalid if iter is unknown;
// ErrDeviceIteratorIndexOutOfRange if idx is out of bounds.
func GetDeviceInIterator(iter uint64, idx uint64) (DeviceEntry, error) {
	iterMu.Lock()
	defer iterMu.Unlock()
	it, ok := iterTable[iter]
	if !ok {
		return DeviceEntry{}, ErrDeviceIteratorInvalid
	}
	if idx >= uint64(len(it.entries)) {
		return DeviceEntry{}, ErrDeviceIteratorIndexOutOfRange
	}
	return it.entries[idx], nil
}

// FreeDeviceIterator releases the snapshot taken by iter. Idempotent.
func FreeDeviceIterator(iter uint64) error {
	iterMu.Lock()
	defer iterMu.Unlock()
	delete(iterTable, iter)
	return nil
}
