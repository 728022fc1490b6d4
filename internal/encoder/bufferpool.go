package encoder

import (
	"bytes"
	"sync"
)

// Encode scratch buffers. A search encodes the same image many times,
// so reusing the output buffer avoids re-growing it on every probe.
var outBuffers = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512*1024))
	},
}

func getOutBuffer() *bytes.Buffer {
	return outBuffers.Get().(*bytes.Buffer)
}

func putOutBuffer(b *bytes.Buffer) {
	// Oversized buffers are dropped so one huge image does not pin its
	// allocation for the life of the pool.
	if b.Cap() > 16*1024*1024 {
		return
	}
	b.Reset()
	outBuffers.Put(b)
}

// copyBytes detaches the encoded output from a pooled buffer.
func copyBytes(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
