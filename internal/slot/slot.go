// Package slot implements one logical device match criterion and its
// independent, reconnecting poller task (spec.md 4.D): on every
// descriptor arrival it opens a Session, hands the session to the
// registry, and waits for either the session or the slot itself to end
// before looping back to wait for the next descriptor.
package slot

import (
	"context"
	"sync"

	"github.com/rdxusb/rdxusb-go/internal/logging"
	"github.com/rdxusb/rdxusb-go/internal/session"
	"github.com/rdxusb/rdxusb-go/internal/usbhost"
	"github.com/rdxusb/rdxusb-go/internal/watch"
)

// Criteria is a slot's (vid, pid, optional serial) match rule.
type Criteria struct {
	VID, PID uint16
	Serial   string // empty means wildcard
}

// Matches reports whether d satisfies the criteria.
func (c Criteria) Matches(d usbhost.Descriptor) bool {
	return c.VID == d.VID && c.PID == d.PID && (c.Serial == "" || c.Serial == d.Serial)
}

// Callbacks is how a Slot reports session lifecycle transitions back to
// the registry without holding a direct reference to it, avoiding the
// ownership cycle spec.md 9 calls out.
type Callbacks interface {
	InstallSession(handle int32, s *session.Session)
	ClearSession(handle int32)
	RemoveHandle(handle int32)
}

// Slot holds one match criterion, its current session (if any), and the
// background poller task maintaining it.
type Slot struct {
	Handle            int32
	Criteria          Criteria
	CloseOnDisconnect bool

	host          usbhost.Host
	sessionParams session.Params
	logger        *logging.Logger

	descriptorWatch *watch.Value[*usbhost.Descriptor]

	mu             sync.Mutex
	currentSession *session.Session

	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs a Slot. Start must be called to begin its poller.
func New(handle int32, criteria Criteria, closeOnDisconnect bool, host usbhost.Host, params session.Params) *Slot {
	return &Slot{
		Handle:            handle,
		Criteria:          criteria,
		CloseOnDisconnect: closeOnDisconnect,
		host:              host,
		sessionParams:     params,
		logger:            params.Logger,
		descriptorWatch:   watch.NewValue[*usbhost.Descriptor](nil),
		done:              make(chan struct{}),
	}
}

// PublishDescriptor pushes a freshly discovered (or re-discovered)
// device descriptor to the slot, the entry point both the hotplug
// watcher and a manual rescan use.
func (s *Slot) PublishDescriptor(d usbhost.Descriptor) {
	s.descriptorWatch.Send(&d)
}

// Start launches the poller task described in spec.md 4.D.
func (s *Slot) Start(parent context.Context, cb Callbacks) {
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	go s.run(ctx, cb)
}

// Shutdown signals the poller to stop and waits for it to exit.
func (s *Slot) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	<-s.done
}

// CurrentSession returns the slot's live session, if any.
func (s *Slot) CurrentSession() *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentSession
}

func (s *Slot) setSession(sess *session.Session) {
	s.mu.Lock()
	s.currentSession = sess
	s.mu.Unlock()
}

func (s *Slot) run(ctx context.Context, cb Callbacks) {
	defer close(s.done)
	for {
		desc, ok := s.descriptorWatch.Wait(ctx)
		if !ok {
			return // ctx cancelled: slot shutting down
		}
		if desc == nil {
			continue
		}

		sess, err := session.Open(ctx, s.Handle, s.host, *desc, s.sessionParams)
		if err != nil {
			s.logger.ForHandle(s.Handle).Warn("session open failed", "err", err)
			continue // no backoff beyond watch latency, per spec.md 4.D
		}

		s.setSession(sess)
		cb.InstallSession(s.Handle, sess)

		select {
		case <-sess.Done():
		case <-ctx.Done():
			sess.Close()
		}

		s.setSession(nil)
		cb.ClearSession(s.Handle)

		if s.CloseOnDisconnect {
			cb.RemoveHandle(s.Handle)
			return
		}

		if ctx.Err() != nil {
			return
		}
	}
}
