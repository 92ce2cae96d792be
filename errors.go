package rdxusb

import (
	"errors"

	"github.com/rdxusb/rdxusb-go/internal/sesserr"
)

// ErrDeviceIteratorInvalid and ErrDeviceIteratorIndexOutOfRange back the
// Go-level DeviceEntry iterator in api.go; cmd/librdxusb maps them onto
// ErrInvalidIterator/ErrIteratorIndexOutRange at the C ABI boundary.
var (
	ErrDeviceIteratorInvalid         = errors.New("rdxusb: invalid device iterator")
	ErrDeviceIteratorIndexOutOfRange = errors.New("rdxusb: device iterator index out of range")
)

// ABI error codes, returned as negative values from the C ABI surface.
// The Go API functions in api.go return Go errors instead; cmd/librdxusb
// maps those onto these codes. Values match spec.md §6 exactly.
const (
	ErrEventLoopUnusable     = -100
	ErrCannotListDevices     = -101
	ErrInvalidIterator       = -102
	ErrIteratorIndexOutRange = -103
	ErrNullPointer           = -104
	ErrHandleNotOpen         = -200
	ErrNotConnected          = -201
	ErrChannelOutOfRange     = -202
)

// SessionErrorCode, Error, NewSessionError, and ClassifySessionError live
// in internal/sesserr (internal/session needs them without importing this
// package) and are re-exported here for external consumers of the Go API.
type SessionErrorCode = sesserr.SessionErrorCode

const (
	UnsupportedProtocol  = sesserr.UnsupportedProtocol
	NoInterface          = sesserr.NoInterface
	TransferCancelled    = sesserr.TransferCancelled
	EndpointStall        = sesserr.EndpointStall
	DeviceDisconnected   = sesserr.DeviceDisconnected
	UsbFault             = sesserr.UsbFault
	TransferUnknownError = sesserr.TransferUnknownError
	DataDecodeError      = sesserr.DataDecodeError
)

// Error is the structured error type used internally for session and
// registry failures, adapted from the teacher's Op/Code/Inner shape.
type Error = sesserr.Error

// NewSessionError wraps an underlying usbhost/codec failure as a
// classified session error.
func NewSessionError(op string, handle int32, code SessionErrorCode, inner error) *Error {
	return sesserr.New(op, handle, code, inner)
}

// ClassifySessionError maps a raw error from internal/usbhost or
// frame onto the SessionErrorCode taxonomy.
func ClassifySessionError(err error) SessionErrorCode {
	return sesserr.Classify(err)
}
