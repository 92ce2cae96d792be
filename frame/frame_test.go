package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeWireRoundTrip(t *testing.T) {
	f := Frame{
		TimestampNs: 1,
		ArbID:       0x80000123,
		DLC:         3,
		Channel:     0,
		Flags:       0,
	}
	f.Data[0], f.Data[1], f.Data[2] = 0xAA, 0xBB, 0xCC

	buf := EncodeWire(f)
	got, err := DecodeWire(buf[:])
	require.NoError(t, err)
	require.Equal(t, f, got)
	require.Equal(t, uint32(0x123), got.EffectiveID())
	require.True(t, got.IsExtended())
	require.False(t, got.IsRTR())
	require.False(t, got.IsDevice())
}

func TestDecodeWireShortBuffer(t *testing.T) {
	_, err := DecodeWire(make([]byte, 10))
	require.ErrorIs(t, err, ErrShortBuffer)
}

func TestPublicRoundTrip(t *testing.T) {
	// Invariant 3 / S2: FromPublic(ToPublic(F)) == F for every wire frame.
	f := Frame{TimestampNs: 42, ArbID: 0xC0000456, DLC: 48, Channel: 7}
	for i := range f.Data {
		f.Data[i] = byte(i)
	}

	pub := ToPublic(f)
	require.Equal(t, f.DLC, pub.DLC)
	require.Equal(t, f.Data[:], pub.Data[:48])
	for i := 48; i < len(pub.Data); i++ {
		require.Zero(t, pub.Data[i])
	}

	back, err := FromPublic(pub)
	require.NoError(t, err)
	require.Equal(t, f, back)
}

func TestFromPublicRejectsOversizePayload(t *testing.T) {
	// S4: oversize dlc is rejected, never reaching the wire.
	pub := PublicFrame{DLC: 49}
	_, err := FromPublic(pub)
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestDeviceInfoRoundTrip(t *testing.T) {
	d := DeviceInfo{SKU: 7, InterfaceIdx: 2, NChannels: 3, ProtocolMajor: 1, ProtocolMinor: 2}
	buf := EncodeDeviceInfo(d)
	got, err := DecodeDeviceInfo(buf[:])
	require.NoError(t, err)
	require.Equal(t, d, got)
}

func TestFlagBits(t *testing.T) {
	f := Frame{ArbID: FlagExtended | FlagRTR | FlagDevice | 0x42}
	require.True(t, f.IsExtended())
	require.True(t, f.IsRTR())
	require.True(t, f.IsDevice())
	require.Equal(t, uint32(0x42), f.EffectiveID())
}

func TestWireSizes(t *testing.T) {
	require.Len(t, EncodeWire(Frame{}), WireSize)
	require.Equal(t, 64, WireSize)
	require.Equal(t, 80, PublicSize)
	require.Equal(t, 32, DeviceInfoSize)
}
