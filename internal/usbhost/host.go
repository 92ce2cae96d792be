// Package usbhost is the generic-USB-stack-plumbing boundary spec.md §1
// assumes is available as a library surface: device enumeration,
// interface claim, and control/bulk transfer submission. The real
// implementation (gousb.go) wraps github.com/google/gousb; fake.go backs
// package tests without real hardware.
package usbhost

import "context"

// Descriptor identifies one attached USB device, enough to match a slot's
// (vid, pid, serial) criteria and to populate the C ABI's DeviceEntry.
type Descriptor struct {
	VID, PID             uint16
	Serial               string
	Manufacturer         string
	Product              string
	Bus, Address         int
}

// Host enumerates and opens devices on the bus.
type Host interface {
	// Enumerate takes a one-shot snapshot of attached devices.
	Enumerate(ctx context.Context) ([]Descriptor, error)
	// Open claims the RdxUsb vendor interface on the device matching d and
	// returns a handle to it. Returns ErrNoInterface if no interface with
	// class=0xFF, subclass=0x00, protocol=0x00 exists.
	Open(ctx context.Context, d Descriptor) (Interface, error)
	// Close releases any host-level resources (e.g. the libusb context).
	Close() error
}

// Interface is one claimed vendor interface on an open device.
type Interface interface {
	// ControlIn issues a vendor control-IN transfer, recipient=Interface.
	ControlIn(ctx context.Context, request uint8, value, index uint16, length int) ([]byte, error)
	// ControlOut issues a vendor control-OUT transfer, recipient=Interface.
	ControlOut(ctx context.Context, request uint8, value, index uint16, data []byte) error
	// BulkInStream opens the inbound bulk pipeline with up to depth
	// outstanding reads at a time.
	BulkInStream(depth int) (ReadStream, error)
	// BulkOut submits one outbound bulk transfer and waits for completion.
	BulkOut(ctx context.Context, data []byte) error
	// Close releases the interface (detach/re-claim is handled at Open
	// time; Close only gives the interface back).
	Close() error
}

// ReadStream yields successive bulk-IN completions.
type ReadStream interface {
	// Read blocks for the next completed transfer's payload.
	Read(ctx context.Context) ([]byte, error)
	Close() error
}
