// Package constants holds the wire-level and lifecycle constants shared
// across the rdxusb-go packages.
package constants

import "time"

// USB interface matching. A RdxUsb device exposes its CAN-bridge interface
// as a vendor-specific interface with these class/subclass/protocol values;
// the device-info descriptor's interface_idx field is not used for
// selection (see DESIGN.md Open Question decisions).
const (
	InterfaceClass    = 0xFF
	InterfaceSubClass = 0x00
	InterfaceProtocol = 0x00
)

// Bulk endpoint addresses, fixed by the device firmware.
const (
	EndpointIn  = 0x81
	EndpointOut = 0x02
)

// MaxPacketSize is the full-speed bulk endpoint's maximum packet size.
const MaxPacketSize = 64

// Vendor control request codes (bRequest), recipient=Interface.
const (
	CtrlRequestDeviceInfo   = 0x00
	CtrlRequestResetChannel = 0x01
)

// Wire layout sizes, in bytes.
const (
	FrameSize       = 64
	PublicFrameSize = 80
	DeviceInfoSize  = 32
)

// Default runtime tuning.
const (
	// DefaultTransferDepth is the number of outstanding bulk-IN transfers a
	// session keeps in flight at once.
	DefaultTransferDepth = 32

	// DefaultChannelQueueDepth is the capacity of each per-channel inbound
	// queue, matching spec.md 4.C's stated default buffer_size.
	DefaultChannelQueueDepth = 48

	// DefaultOutboundQueueDepth is the capacity of the shared outbound queue.
	DefaultOutboundQueueDepth = 48
)

// Hotplug/rescan timing.
//
// gousb has no native hotplug event stream, so the hotplug watcher instead
// polls the bus on an interval and diffs the enumerated device set against
// its previous snapshot. These constants bound that emulation.
const (
	// HotplugPollInterval is how often the watcher re-enumerates the bus.
	HotplugPollInterval = 500 * time.Millisecond

	// HandshakeTimeout bounds the device-info control-IN request issued
	// right after claiming the interface.
	HandshakeTimeout = 2 * time.Second
)
