package usbhost

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rdxusb/rdxusb-go/frame"
)

func TestFakeHostOpenAndHandshake(t *testing.T) {
	host := NewFakeHost()
	desc := Descriptor{VID: 0x16D0, PID: 0x1278}
	iface := NewFakeInterface(frame.DeviceInfo{NChannels: 2})
	host.AddDevice(desc, iface)

	got, err := host.Open(context.Background(), desc)
	require.NoError(t, err)

	reply, err := got.ControlIn(context.Background(), 0x00, 1, 0, frame.DeviceInfoSize)
	require.NoError(t, err)
	info, err := frame.DecodeDeviceInfo(reply)
	require.NoError(t, err)
	require.Equal(t, uint8(2), info.NChannels)
	require.Equal(t, 1, host.OpenCalls)
}

func TestFakeInterfaceBulkInOut(t *testing.T) {
	iface := NewFakeInterface(frame.DeviceInfo{NChannels: 1})
	wire := frame.EncodeWire(frame.Frame{DLC: 5, Channel: 0})
	iface.PushInbound(wire)

	stream, err := iface.BulkInStream(4)
	require.NoError(t, err)
	buf, err := stream.Read(context.Background())
	require.NoError(t, err)
	f, err := frame.DecodeWire(buf)
	require.NoError(t, err)
	require.Equal(t, uint8(5), f.DLC)

	require.NoError(t, iface.BulkOut(context.Background(), []byte{1, 2, 3}))
	require.Len(t, iface.Written, 1)
}

func TestFakeInterfaceDisconnect(t *testing.T) {
	iface := NewFakeInterface(frame.DeviceInfo{NChannels: 1})
	stream, err := iface.BulkInStream(4)
	require.NoError(t, err)

	iface.SimulateDisconnect()

	_, err = stream.Read(context.Background())
	require.ErrorIs(t, err, ErrDeviceDisconnected)

	err = iface.BulkOut(context.Background(), []byte{1})
	require.ErrorIs(t, err, ErrDeviceDisconnected)
}
