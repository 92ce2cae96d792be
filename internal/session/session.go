// Package session implements one connected lifetime of a claimed USB
// interface (spec.md 4.B): the control handshake, the inbound bulk-IN
// pump feeding per-channel queues, and the outbound bulk-OUT pump
// draining a shared queue. A Session runs until the first unrecoverable
// transfer error or external cancellation.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/rdxusb/rdxusb-go/frame"
	"github.com/rdxusb/rdxusb-go/internal/constants"
	"github.com/rdxusb/rdxusb-go/internal/logging"
	"github.com/rdxusb/rdxusb-go/internal/obs"
	"github.com/rdxusb/rdxusb-go/internal/queue"
	"github.com/rdxusb/rdxusb-go/internal/sesserr"
	"github.com/rdxusb/rdxusb-go/internal/usbhost"
)

// Params configures queue sizing, transfer depth, and the full policy a
// Session uses for its inbound queues.
type Params struct {
	TransferDepth      int
	ChannelQueueDepth  int
	OutboundQueueDepth int
	FullPolicy         queue.FullPolicy
	Logger             *logging.Logger
	Observer           obs.Observer
}

// DefaultParams returns the spec's default tuning.
func DefaultParams() Params {
	return Params{
		TransferDepth:      constants.DefaultTransferDepth,
		ChannelQueueDepth:  constants.DefaultChannelQueueDepth,
		OutboundQueueDepth: constants.DefaultOutboundQueueDepth,
		FullPolicy:         queue.AwaitOnFull,
		Logger:             logging.Default(),
		Observer:           obs.NoOpObserver{},
	}
}

// Session owns one claimed interface and its associated queues.
type Session struct {
	handle int32
	iface  usbhost.Interface
	info   frame.DeviceInfo

	inbound  []*queue.Queue
	outbound *queue.Queue

	params Params

	ctx    context.Context
	cancel context.CancelFunc

	done    chan struct{}
	doneErr error
	once    sync.Once
}

// Open performs the full open sequence from spec.md 4.B steps 1-4 and
// starts the inbound/outbound pumps. The returned Session is already
// running; call Done/Err to observe its termination and Close to force
// an early teardown.
func Open(ctx context.Context, handle int32, host usbhost.Host, desc usbhost.Descriptor, params Params) (*Session, error) {
	log := params.Logger.ForHandle(handle)

	iface, err := host.Open(ctx, desc)
	if err != nil {
		return nil, sesserr.New("open", handle, sesserr.Classify(err), err)
	}

	hctx, hcancel := context.WithTimeout(ctx, constants.HandshakeTimeout)
	handshakeStart := time.Now()
	reply, err := iface.ControlIn(hctx, constants.CtrlRequestDeviceInfo, 1, 0, frame.DeviceInfoSize)
	hcancel()
	if err != nil {
		iface.Close()
		log.Warn("handshake failed", "err", err)
		return nil, sesserr.New("handshake", handle, sesserr.Classify(err), err)
	}
	params.Observer.ObserveHandshakeLatency(handle, time.Since(handshakeStart))

	info, err := frame.DecodeDeviceInfo(reply)
	if err != nil {
		iface.Close()
		return nil, sesserr.New("handshake_decode", handle, sesserr.DataDecodeError, err)
	}
	log.Debug("handshake complete", "channels", info.NChannels)

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		handle:   handle,
		iface:    iface,
		info:     info,
		inbound:  make([]*queue.Queue, info.NChannels),
		outbound: queue.New(params.OutboundQueueDepth, queue.DropOnFull),
		params:   params,
		ctx:      sctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for i := range s.inbound {
		s.inbound[i] = queue.New(params.ChannelQueueDepth, params.FullPolicy)
	}

	params.Observer.ObserveSessionOpened(handle)
	s.run()
	return s, nil
}

// NChannels reports the channel count the device reported.
func (s *Session) NChannels() uint8 { return s.info.NChannels }

// Info returns the decoded device-info descriptor.
func (s *Session) Info() frame.DeviceInfo { return s.info }

// Done reports when the Session has terminated, by error or
// cancellation.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns the reason the Session terminated. Valid only after Done
// is closed.
func (s *Session) Err() error { return s.doneErr }

// Close forces the Session to end and releases the USB interface. Safe
// to call multiple times and safe to call after the Session has already
// ended on its own.
func (s *Session) Close() error {
	s.cancel()
	<-s.done
	return nil
}

// ReadOne attempts a non-blocking read from channel ch's inbound queue,
// for the foreign-facing read_packets path.
func (s *Session) ReadOne(ch uint8) (frame.PublicFrame, bool, error) {
	if int(ch) >= len(s.inbound) {
		return frame.PublicFrame{}, false, ErrChannelOutOfRange
	}
	f, ok := s.inbound[ch].TryPop()
	if !ok {
		return frame.PublicFrame{}, false, nil
	}
	return frame.ToPublic(f), true, nil
}

// WriteOne attempts a non-blocking enqueue onto the shared outbound
// queue, for the foreign-facing write_packets path. It rejects oversize
// payloads before they ever reach the queue (S4).
func (s *Session) WriteOne(pub frame.PublicFrame) (bool, error) {
	f, err := frame.FromPublic(pub)
	if err != nil {
		return false, err
	}
	return s.outbound.TryPush(f), nil
}

func (s *Session) run() {
	inboundDone := make(chan error, 1)
	outboundDone := make(chan error, 1)

	go func() { inboundDone <- s.inboundPump() }()
	go func() { outboundDone <- s.outboundPump() }()

	go func() {
		var err error
		select {
		case err = <-inboundDone:
		case err = <-outboundDone:
		case <-s.ctx.Done():
			err = s.ctx.Err()
		}
		s.cancel()
		s.iface.Close()
		s.once.Do(func() {
			s.doneErr = err
			close(s.done)
		})
		s.params.Logger.ForHandle(s.handle).Debug("session closed", "err", err)
		s.params.Observer.ObserveSessionClosed(s.handle, sesserr.Classify(err))
	}()
}

func (s *Session) inboundPump() error {
	stream, err := s.iface.BulkInStream(s.params.TransferDepth)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		buf, err := stream.Read(s.ctx)
		if err != nil {
			return err
		}
		s.params.Observer.ObserveBytesRead(s.handle, len(buf))
		f, err := frame.DecodeWire(buf)
		if err != nil {
			continue // malformed completion; keep pumping per spec.md 4.B
		}
		ch := int(f.Channel)
		if ch >= len(s.inbound) {
			continue
		}
		switch s.params.FullPolicy {
		case queue.DropOnFull:
			if s.inbound[ch].TryPush(f) {
				s.params.Observer.ObserveFrameRead(s.handle, f.Channel)
			} else {
				s.params.Observer.ObserveFrameDropped(s.handle, f.Channel)
			}
		default:
			accepted, pushErr := s.inbound[ch].Push(s.ctx, f)
			if pushErr != nil {
				return pushErr
			}
			if accepted {
				s.params.Observer.ObserveFrameRead(s.handle, f.Channel)
			}
		}
	}
}

func (s *Session) outboundPump() error {
	for {
		f, err := s.outbound.Pop(s.ctx)
		if err != nil {
			return err
		}
		buf := queue.GetBuffer()
		wire := frame.EncodeWire(f)
		copy(buf, wire[:])
		err = s.iface.BulkOut(s.ctx, buf)
		n := len(buf)
		queue.PutBuffer(buf)
		if err != nil {
			return err
		}
		s.params.Observer.ObserveBytesWritten(s.handle, n)
		s.params.Observer.ObserveFrameWritten(s.handle, f.Channel)
	}
}
