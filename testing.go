package rdxusb

import (
	"time"

	"github.com/rdxusb/rdxusb-go/frame"
	"github.com/rdxusb/rdxusb-go/internal/logging"
	"github.com/rdxusb/rdxusb-go/internal/registry"
	"github.com/rdxusb/rdxusb-go/internal/usbhost"
)

// NewFakeUSBHost returns a usbhost.Host backed by in-memory fakes, for
// applications built on this package that want to unit test their own
// open/read/write/close logic without real USB hardware. Pair with
// UseTestRegistry to point OpenDevice/ReadPackets/WritePackets/CloseDevice
// at it instead of a real libusb context.
func NewFakeUSBHost() *usbhost.FakeHost {
	return usbhost.NewFakeHost()
}

// NewFakeUSBInterface constructs a loopback interface reporting nChannels
// at handshake, suitable for usbhost.FakeHost.AddDevice.
func NewFakeUSBInterface(nChannels uint8) *usbhost.FakeInterface {
	return usbhost.NewFakeInterface(frame.DeviceInfo{NChannels: nChannels})
}

// UseTestRegistry replaces the process-wide registry with one built over
// host, polling for hotplug at the given interval (use a short interval in
// tests that exercise hotplug; otherwise time.Hour is a reasonable no-op
// default). It returns a restore function that shuts the test registry
// down and clears the override; callers should defer it.
//
// This does not affect a real, already-initialized production registry
// running in the same process — it is meant for package-level tests that
// run in isolation, one registry at a time.
func UseTestRegistry(host usbhost.Host, hotplugInterval time.Duration) func() {
	regMu.Lock()
	prevReg, prevHost := globalReg, globalHost
	globalReg = registry.New(host, hotplugInterval, logging.Default())
	globalHost = nil
	regMu.Unlock()

	return func() {
		regMu.Lock()
		testReg := globalReg
		globalReg, globalHost = prevReg, prevHost
		regMu.Unlock()
		if testReg != nil {
			testReg.Shutdown()
		}
	}
}
