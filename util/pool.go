package util

import "sync"

// bufPool recycles the copy buffers used by [Pump].  A consumer may be
// restarted many times per process; each run borrows one buffer.
var bufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, DefaultBufSize)
		return &buf
	},
}

// GetBuf borrows a DefaultBufSize buffer.  Return it with [PutBuf].
func GetBuf() *[]byte {
	return bufPool.Get().(*[]byte)
}

// PutBuf returns buf to the pool.  Buffers that were resliced to a
// different capacity are dropped so every borrower gets a full one.
func PutBuf(buf *[]byte) {
	if buf == nil || cap(*buf) != DefaultBufSize {
		return
	}
	*buf = (*buf)[:DefaultBufSize]
	bufPool.Put(buf)
}
