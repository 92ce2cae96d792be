// Command librdxusb builds the stable C ABI surface (spec.md 4.G) as a
// cgo shared library: `go build -buildmode=c-shared -o librdxusb.so
// ./cmd/librdxusb`. Every exported function uses C linkage, returns a
// negative error code on failure, and never panics across the cgo
// boundary. Grounded on original_source/src/c_api.rs, translated from
// Rust's extern "C"/CString plumbing to cgo's C.CString/unsafe.Pointer
// idiom.
package main

/*
#include <stdint.h>
#include <stdbool.h>

typedef struct rdxusb_public_frame {
	uint64_t timestamp_ns;
	uint32_t arb_id;
	uint8_t dlc;
	uint8_t channel;
	uint16_t flags;
	uint8_t data[64];
} rdxusb_public_frame;

typedef struct rdxusb_device_entry {
	char serial[256];
	char manufacturer[256];
	char product[256];
	uint16_t vid;
	uint16_t pid;
	uint8_t bus_number;
	uint8_t device_address;
} rdxusb_device_entry;
*/
import "C"

import (
	"errors"
	"unsafe"

	rdxusb "github.com/rdxusb/rdxusb-go"
	"github.com/rdxusb/rdxusb-go/frame"
	"github.com/rdxusb/rdxusb-go/internal/registry"
)

func main() {} // required by -buildmode=c-shared; never invoked

func publicFrameFromC(p *C.rdxusb_public_frame) frame.PublicFrame {
	var f frame.PublicFrame
	f.TimestampNs = uint64(p.timestamp_ns)
	f.ArbID = uint32(p.arb_id)
	f.DLC = uint8(p.dlc)
	f.Channel = uint8(p.channel)
	f.Flags = uint16(p.flags)
	for i := range f.Data {
		f.Data[i] = byte(p.data[i])
	}
	return f
}

func publicFrameToC(f frame.PublicFrame, p *C.rdxusb_public_frame) {
	p.timestamp_ns = C.uint64_t(f.TimestampNs)
	p.arb_id = C.uint32_t(f.ArbID)
	p.dlc = C.uint8_t(f.DLC)
	p.channel = C.uint8_t(f.Channel)
	p.flags = C.uint16_t(f.Flags)
	for i := range f.Data {
		p.data[i] = C.uint8_t(f.Data[i])
	}
}

func strncpyIntoBuf(s string, dest *C.char, n int) {
	buf := unsafe.Slice((*byte)(unsafe.Pointer(dest)), n)
	max := n - 1
	b := []byte(s)
	if len(b) > max {
		b = b[:max]
	}
	copy(buf, b)
	buf[len(b)] = 0
}

//export rdxusb_open_device
func rdxusb_open_device(vid, pid C.uint16_t, serialNumber *C.char, closeOnDc C.bool, bufSize C.uint64_t) C.int32_t {
	var serial string
	if serialNumber != nil {
		serial = C.GoString(serialNumber)
	}
	h, err := rdxusb.OpenDevice(uint16(vid), uint16(pid), serial, bool(closeOnDc), uint64(bufSize))
	if err != nil {
		return C.int32_t(rdxusb.ErrEventLoopUnusable)
	}
	return C.int32_t(h)
}

//export rdxusb_force_scan_devices
func rdxusb_force_scan_devices() C.int32_t {
	if err := rdxusb.ForceScanDevices(); err != nil {
		return C.int32_t(rdxusb.ErrCannotListDevices)
	}
	return 0
}

//export rdxusb_read_packets
func rdxusb_read_packets(handleID C.int32_t, channel C.uint8_t, packets *C.rdxusb_public_frame, maxPackets C.uint64_t, packetsRead *C.uint64_t) C.int32_t {
	if packets == nil || packetsRead == nil {
		return C.int32_t(rdxusb.ErrNullPointer)
	}
	out := make([]frame.PublicFrame, uint64(maxPackets))
	n, err := rdxusb.ReadPackets(int32(handleID), uint8(channel), out)
	if err != nil {
		return C.int32_t(classifyABIError(err))
	}
	cSlice := unsafe.Slice(packets, uint64(maxPackets))
	for i := 0; i < n; i++ {
		publicFrameToC(out[i], &cSlice[i])
	}
	*packetsRead = C.uint64_t(n)
	return 0
}

//export rdxusb_write_packets
func rdxusb_write_packets(handleID C.int32_t, packets *C.rdxusb_public_frame, packetsLen C.uint64_t, packetsWritten *C.uint64_t) C.int32_t {
	if packets == nil {
		return C.int32_t(rdxusb.ErrNullPointer)
	}
	cSlice := unsafe.Slice(packets, uint64(packetsLen))
	in := make([]frame.PublicFrame, len(cSlice))
	for i := range cSlice {
		in[i] = publicFrameFromC(&cSlice[i])
	}
	n, err := rdxusb.WritePackets(int32(handleID), in)
	if err != nil {
		return C.int32_t(classifyABIError(err))
	}
	if packetsWritten != nil {
		*packetsWritten = C.uint64_t(n)
	}
	return 0
}

//export rdxusb_close_device
func rdxusb_close_device(handleID C.int32_t) C.int32_t {
	if err := rdxusb.CloseDevice(int32(handleID)); err != nil {
		return C.int32_t(rdxusb.ErrHandleNotOpen)
	}
	return 0
}

//export rdxusb_close_all_devices
func rdxusb_close_all_devices() C.int32_t {
	if err := rdxusb.CloseAllDevices(); err != nil {
		return C.int32_t(rdxusb.ErrEventLoopUnusable)
	}
	return 0
}

//export rdxusb_new_device_iterator
func rdxusb_new_device_iterator(iterID *C.uint64_t, nDevices *C.uint64_t) C.int32_t {
	if iterID == nil || nDevices == nil {
		return C.int32_t(rdxusb.ErrNullPointer)
	}
	id, n, err := rdxusb.NewDeviceIterator()
	if err != nil {
		return C.int32_t(rdxusb.ErrCannotListDevices)
	}
	*iterID = C.uint64_t(id)
	*nDevices = C.uint64_t(n)
	return 0
}

//export rdxusb_get_device_in_iterator
func rdxusb_get_device_in_iterator(iterID, deviceIdx C.uint64_t, deviceEntry *C.rdxusb_device_entry) C.int32_t {
	if deviceEntry == nil {
		return C.int32_t(rdxusb.ErrNullPointer)
	}
	entry, err := rdxusb.GetDeviceInIterator(uint64(iterID), uint64(deviceIdx))
	if err != nil {
		return C.int32_t(classifyABIError(err))
	}
	strncpyIntoBuf(entry.Serial, &deviceEntry.serial[0], len(deviceEntry.serial))
	strncpyIntoBuf(entry.Manufacturer, &deviceEntry.manufacturer[0], len(deviceEntry.manufacturer))
	strncpyIntoBuf(entry.Product, &deviceEntry.product[0], len(deviceEntry.product))
	deviceEntry.vid = C.uint16_t(entry.VID)
	deviceEntry.pid = C.uint16_t(entry.PID)
	deviceEntry.bus_number = C.uint8_t(entry.Bus)
	deviceEntry.device_address = C.uint8_t(entry.Address)
	return 0
}

//export rdxusb_free_device_iterator
func rdxusb_free_device_iterator(iterID C.uint64_t) C.int32_t {
	_ = rdxusb.FreeDeviceIterator(uint64(iterID))
	return 0
}

// classifyABIError maps the sentinel errors api.go can return onto the
// stable negative ABI codes from spec.md §6.
func classifyABIError(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotConnected):
		return rdxusb.ErrNotConnected
	case errors.Is(err, registry.ErrHandleNotOpen):
		return rdxusb.ErrHandleNotOpen
	case errors.Is(err, registry.ErrChannelOutOfRange):
		return rdxusb.ErrChannelOutOfRange
	case errors.Is(err, rdxusb.ErrDeviceIteratorInvalid):
		return rdxusb.ErrInvalidIterator
	case errors.Is(err, rdxusb.ErrDeviceIteratorIndexOutOfRange):
		return rdxusb.ErrIteratorIndexOutRange
	default:
		return rdxusb.ErrEventLoopUnusable
	}
}
