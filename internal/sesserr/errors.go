// Package sesserr implements the structured session-error taxonomy from
// spec.md §7, split out as its own internal package (rather than living
// on the root API package) so internal/session can construct and
// classify these errors without importing the root package — avoiding
// an import cycle through internal/registry.
package sesserr

import (
	"errors"
	"fmt"

	"github.com/rdxusb/rdxusb-go/internal/usbhost"
)

// SessionErrorCode enumerates the ways an open Session can end. None of
// these is surfaced directly to foreign callers; the poller absorbs them
// and the handle simply reports NotConnected until the next Session is
// established.
type SessionErrorCode string

const (
	UnsupportedProtocol  SessionErrorCode = "unsupported_protocol"
	NoInterface          SessionErrorCode = "no_interface"
	TransferCancelled    SessionErrorCode = "transfer_cancelled"
	EndpointStall        SessionErrorCode = "endpoint_stall"
	DeviceDisconnected   SessionErrorCode = "device_disconnected"
	UsbFault             SessionErrorCode = "usb_fault"
	TransferUnknownError SessionErrorCode = "transfer_unknown_error"
	DataDecodeError      SessionErrorCode = "data_decode_error"
)

// Error is the structured error type used for session failures, adapted
// from the teacher's Op/Code/Inner shape (errors.go in ehrlich-b-go-ublk).
type Error struct {
	Op      string
	Handle  int32
	Code    SessionErrorCode
	Inner   error
}

func (e *Error) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("rdxusb: %s: handle=%d code=%s: %v", e.Op, e.Handle, e.Code, e.Inner)
	}
	return fmt.Sprintf("rdxusb: %s: handle=%d code=%s", e.Op, e.Handle, e.Code)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New wraps an underlying usbhost/codec failure as a classified session
// error.
func New(op string, handle int32, code SessionErrorCode, inner error) *Error {
	return &Error{Op: op, Handle: handle, Code: code, Inner: inner}
}

// Classify maps a raw error from internal/usbhost or frame onto
// the SessionErrorCode taxonomy, mirroring the teacher's mapErrnoToCode.
func Classify(err error) SessionErrorCode {
	switch {
	case errors.Is(err, usbhost.ErrNoInterface):
		return NoInterface
	case errors.Is(err, usbhost.ErrTransferCancelled):
		return TransferCancelled
	case errors.Is(err, usbhost.ErrEndpointStall):
		return EndpointStall
	case errors.Is(err, usbhost.ErrDeviceDisconnected):
		return DeviceDisconnected
	case errors.Is(err, usbhost.ErrUsbFault):
		return UsbFault
	case errors.Is(err, usbhost.ErrUnsupportedProtocol):
		return UnsupportedProtocol
	case errors.Is(err, usbhost.ErrTransferUnknown):
		return TransferUnknownError
	default:
		return TransferUnknownError
	}
}
