package util

import "sync"

// bufPool holds DefaultBufSize relay buffers.  Each relay direction
// borrows one for its lifetime.
var bufPool = sync.Pool{ //nolint:gochecknoglobals
	New: func() any {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// GetBuf borrows a buffer.  Return it with [PutBuf].
func GetBuf() *[]byte {
	return bufPool.Get().(*[]byte)
}

// PutBuf returns a buffer.  Buffers that were resliced below
// DefaultBufSize are dropped rather than pooled.
func PutBuf(buf *[]byte) {
	if buf == nil || cap(*buf) < DefaultBufSize {
		return
	}
	*buf = (*buf)[:DefaultBufSize]
	bufPool.Put(buf)
}
