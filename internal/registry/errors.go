package registry

import "errors"

var (
	// ErrHandleNotOpen is returned by ReadOne/WriteOne for a handle that
	// was never opened or has already been closed.
	ErrHandleNotOpen = errors.New("registry: handle not open")
	// ErrChannelOutOfRange is returned when channel exceeds the connected
	// session's reported channel count.
	ErrChannelOutOfRange = errors.New("registry: channel out of range")
	// ErrNotConnected is returned when a slot is open but has no live
	// Session at the moment of the call (between disconnect and the next
	// successful reconnect).
	ErrNotConnected = errors.New("registry: not connected")
)
