// Package iocopy copies streams through recycled buffers.
package iocopy

import (
	"io"
	"sync"
)

// BufSize is the size of recycled buffers, which is also the largest chunk
// a destination receives in a single Write.
const BufSize = 65536

//nolint:gochecknoglobals
var bufferPool = sync.Pool{
	New: func() any {
		p := make([]byte, BufSize)

		return &p
	},
}

// GetBuffer returns a buffer of BufSize bytes that should be returned with ReleaseBuffer.
func GetBuffer() []byte {
	//nolint:forcetypeassert
	return *bufferPool.Get().(*[]byte)
}

// ReleaseBuffer returns a buffer obtained from GetBuffer to the pool.
func ReleaseBuffer(b []byte) {
	if cap(b) < BufSize {
		return
	}

	b = b[:BufSize]

	bufferPool.Put(&b)
}

// Copy is equivalent to io.Copy().
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := GetBuffer()
	defer ReleaseBuffer(buf)

	//nolint:wrapcheck
	return io.CopyBuffer(dst, src, buf)
}
