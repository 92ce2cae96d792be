package usbhost

import "errors"

// Sentinel transfer-completion errors a Host implementation maps its
// underlying library's errors onto. internal/session maps these onto the
// public SessionErrorCode taxonomy (spec.md §7).
var (
	ErrNoInterface         = errors.New("usbhost: no matching vendor interface")
	ErrTransferCancelled   = errors.New("usbhost: transfer cancelled")
	ErrEndpointStall       = errors.New("usbhost: endpoint stall")
	ErrDeviceDisconnected  = errors.New("usbhost: device disconnected")
	ErrUsbFault            = errors.New("usbhost: usb fault")
	ErrTransferUnknown     = errors.New("usbhost: unknown transfer error")
	ErrUnsupportedProtocol = errors.New("usbhost: unsupported protocol")
)
