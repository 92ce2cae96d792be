package rdxusb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rdxusb/rdxusb-go/frame"
	"github.com/rdxusb/rdxusb-go/internal/usbhost"
)

func TestOpenReadWriteCloseOverFakeHost(t *testing.T) {
	host := NewFakeUSBHost()
	desc := usbhost.Descriptor{VID: 0x16D0, PID: 0x1278}
	iface := NewFakeUSBInterface(2)
	host.AddDevice(desc, iface)

	restore := UseTestRegistry(host, time.Hour)
	defer restore()

	h, err := OpenDevice(desc.VID, desc.PID, "", false, 48)
	require.NoError(t, err)
	require.Equal(t, int32(0), h)

	wire := frame.EncodeWire(frame.Frame{ArbID: 0x80000123, DLC: 3, Channel: 0})
	iface.PushInbound(wire)

	var out [1]frame.PublicFrame
	require.Eventually(t, func() bool {
		n, err := ReadPackets(h, 0, out[:])
		return err == nil && n == 1 && out[0].DLC == 3
	}, time.Second, time.Millisecond)

	n, err := WritePackets(h, []frame.PublicFrame{{DLC: 4, Channel: 0}})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, CloseDevice(h))
	require.NoError(t, CloseDevice(h)) // idempotent

	_, err = ReadPackets(h, 0, out[:])
	require.Error(t, err)
}

func TestWritePacketsRejectsOversize(t *testing.T) {
	host := NewFakeUSBHost()
	desc := usbhost.Descriptor{VID: 1, PID: 1}
	iface := NewFakeUSBInterface(1)
	host.AddDevice(desc, iface)

	restore := UseTestRegistry(host, time.Hour)
	defer restore()

	h, err := OpenDevice(desc.VID, desc.PID, "", false, 48)
	require.NoError(t, err)

	// Wait for the session to connect so the rejection comes from the dlc
	// check rather than from the handle not being connected yet.
	var out [1]frame.PublicFrame
	require.Eventually(t, func() bool {
		_, err := ReadPackets(h, 0, out[:])
		return err == nil
	}, time.Second, time.Millisecond)

	n, err := WritePackets(h, []frame.PublicFrame{{DLC: 49, Channel: 0}})
	require.NoError(t, err)
	require.Equal(t, 0, n)
}

func TestDeviceIteratorSnapshot(t *testing.T) {
	host := NewFakeUSBHost()
	host.AddDevice(usbhost.Descriptor{VID: 1, PID: 2, Serial: "abc"}, NewFakeUSBInterface(1))

	restore := UseTestRegistry(host, time.Hour)
	defer restore()

	iter, n, err := NewDeviceIterator()
	require.NoError(t, err)
	require.Equal(t, uint64(1), n)

	entry, err := GetDeviceInIterator(iter, 0)
	require.NoError(t, err)
	require.Equal(t, "abc", entry.Serial)

	_, err = GetDeviceInIterator(iter, 1)
	require.ErrorIs(t, err, ErrDeviceIteratorIndexOutOfRange)

	require.NoError(t, FreeDeviceIterator(iter))
	_, err = GetDeviceInIterator(iter, 0)
	require.ErrorIs(t, err, ErrDeviceIteratorInvalid)
}
