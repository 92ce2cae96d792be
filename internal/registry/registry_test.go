package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rdxusb/rdxusb-go/frame"
	"github.com/rdxusb/rdxusb-go/internal/usbhost"
)

func TestOpenCloseIdempotence(t *testing.T) {
	// S1: open/close idempotence.
	host := usbhost.NewFakeHost()
	r := New(host, time.Hour, nil)
	defer r.Shutdown()

	h, err := r.Open(0x16D0, 0x1278, "", false, 48)
	require.NoError(t, err)
	require.Equal(t, int32(0), h)

	require.NoError(t, r.Close(h))
	require.NoError(t, r.Close(h)) // idempotent

	time.Sleep(10 * time.Millisecond)
	_, _, err = r.ReadOne(h, 0)
	require.ErrorIs(t, err, ErrHandleNotOpen)
}

func TestHandlesMonotonicNeverReused(t *testing.T) {
	// Invariant 6.
	host := usbhost.NewFakeHost()
	r := New(host, time.Hour, nil)
	defer r.Shutdown()

	h1, err := r.Open(1, 1, "", false, 48)
	require.NoError(t, err)
	h2, err := r.Open(2, 2, "", false, 48)
	require.NoError(t, err)
	require.Greater(t, h2, h1)

	require.NoError(t, r.Close(h1))
	h3, err := r.Open(3, 3, "", false, 48)
	require.NoError(t, err)
	require.Greater(t, h3, h2)
}

func TestReadPacketsFullPipeline(t *testing.T) {
	// S2 end-to-end through the registry/slot/session stack.
	host := usbhost.NewFakeHost()
	desc := usbhost.Descriptor{VID: 0x16D0, PID: 0x1278}
	iface := usbhost.NewFakeInterface(frame.DeviceInfo{NChannels: 2})
	host.AddDevice(desc, iface)

	r := New(host, time.Hour, nil)
	defer r.Shutdown()

	h, err := r.Open(desc.VID, desc.PID, "", false, 48)
	require.NoError(t, err)

	wire := frame.EncodeWire(frame.Frame{ArbID: 0x80000123, DLC: 3, Channel: 0})
	iface.PushInbound(wire)

	require.Eventually(t, func() bool {
		pub, ok, err := r.ReadOne(h, 0)
		return err == nil && ok && pub.DLC == 3
	}, time.Second, time.Millisecond)
}

func TestReadPacketsChannelOutOfRange(t *testing.T) {
	// S3: device reports n_channels=2; channel 5 is out of range.
	host := usbhost.NewFakeHost()
	desc := usbhost.Descriptor{VID: 9, PID: 9}
	iface := usbhost.NewFakeInterface(frame.DeviceInfo{NChannels: 2})
	host.AddDevice(desc, iface)

	r := New(host, time.Hour, nil)
	defer r.Shutdown()

	h, err := r.Open(desc.VID, desc.PID, "", false, 48)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, _, err := r.ReadOne(h, 5)
		return err == ErrChannelOutOfRange
	}, time.Second, time.Millisecond)
}

func TestOpenExistingSlotReturnsSameHandle(t *testing.T) {
	host := usbhost.NewFakeHost()
	r := New(host, time.Hour, nil)
	defer r.Shutdown()

	h1, err := r.Open(5, 6, "", false, 48)
	require.NoError(t, err)
	h2, err := r.Open(5, 6, "", false, 48)
	require.NoError(t, err)
	require.Equal(t, h1, h2)
}
