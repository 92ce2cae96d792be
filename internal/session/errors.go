package session

import "errors"

// ErrChannelOutOfRange is returned by ReadOne when the requested channel
// exceeds the device's reported channel count.
var ErrChannelOutOfRange = errors.New("session: channel out of range")
