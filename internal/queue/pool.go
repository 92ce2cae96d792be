package queue

import "sync"

// bufferPool hands out scratch byte slices sized for one wire frame, so
// the outbound pump doesn't allocate per bulk-OUT submission. Adapted from
// the teacher's size-bucketed sync.Pool-of-*[]byte idiom, narrowed to the
// single 64-byte bucket this domain ever needs.
var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, 64)
		return &b
	},
}

// GetBuffer returns a reusable 64-byte scratch buffer.
func GetBuffer() []byte {
	return *(bufferPool.Get().(*[]byte))
}

// PutBuffer returns a buffer obtained from GetBuffer for reuse.
func PutBuffer(buf []byte) {
	if cap(buf) < 64 {
		return
	}
	buf = buf[:64]
	bufferPool.Put(&buf)
}
