package slot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rdxusb/rdxusb-go/frame"
	"github.com/rdxusb/rdxusb-go/internal/session"
	"github.com/rdxusb/rdxusb-go/internal/usbhost"
)

type recordingCallbacks struct {
	mu        sync.Mutex
	installed int
	cleared   int
	removed   int
}

func (r *recordingCallbacks) InstallSession(handle int32, s *session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.installed++
}
func (r *recordingCallbacks) ClearSession(handle int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleared++
}
func (r *recordingCallbacks) RemoveHandle(handle int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed++
}

func (r *recordingCallbacks) counts() (installed, cleared, removed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.installed, r.cleared, r.removed
}

func testSessionParams() session.Params {
	p := session.DefaultParams()
	p.ChannelQueueDepth = 4
	p.OutboundQueueDepth = 4
	p.TransferDepth = 2
	return p
}

func TestSlotOpensSessionOnDescriptor(t *testing.T) {
	host := usbhost.NewFakeHost()
	desc := usbhost.Descriptor{VID: 0x16D0, PID: 0x1278}
	iface := usbhost.NewFakeInterface(frame.DeviceInfo{NChannels: 1})
	host.AddDevice(desc, iface)

	s := New(1, Criteria{VID: desc.VID, PID: desc.PID}, false, host, testSessionParams())
	cb := &recordingCallbacks{}
	s.Start(context.Background(), cb)
	defer s.Shutdown()

	s.PublishDescriptor(desc)

	require.Eventually(t, func() bool {
		installed, _, _ := cb.counts()
		return installed == 1
	}, time.Second, time.Millisecond)
	require.NotNil(t, s.CurrentSession())
}

func TestSlotCloseOnDisconnectTerminatesPoller(t *testing.T) {
	host := usbhost.NewFakeHost()
	desc := usbhost.Descriptor{VID: 1, PID: 2}
	iface := usbhost.NewFakeInterface(frame.DeviceInfo{NChannels: 1})
	host.AddDevice(desc, iface)

	s := New(1, Criteria{VID: desc.VID, PID: desc.PID}, true, host, testSessionParams())
	cb := &recordingCallbacks{}
	s.Start(context.Background(), cb)

	s.PublishDescriptor(desc)
	require.Eventually(t, func() bool {
		installed, _, _ := cb.counts()
		return installed == 1
	}, time.Second, time.Millisecond)

	iface.SimulateDisconnect()

	require.Eventually(t, func() bool {
		_, _, removed := cb.counts()
		return removed == 1
	}, time.Second, time.Millisecond)
}

func TestCriteriaMatchesWildcardSerial(t *testing.T) {
	c := Criteria{VID: 1, PID: 2}
	require.True(t, c.Matches(usbhost.Descriptor{VID: 1, PID: 2, Serial: "anything"}))
	require.False(t, c.Matches(usbhost.Descriptor{VID: 1, PID: 3}))

	c.Serial = "ABC"
	require.True(t, c.Matches(usbhost.Descriptor{VID: 1, PID: 2, Serial: "ABC"}))
	require.False(t, c.Matches(usbhost.Descriptor{VID: 1, PID: 2, Serial: "XYZ"}))
}
