package relay

import (
	"encoding/binary"
	"io"

	rlerr "opusrelay/internal/errors"
)

// BytesPerSample is the size of one relayed sample on the wire.
const BytesPerSample = 2

// Writer encodes interleaved samples as little-endian int16 and writes
// each frame to the consumer with a single Write.
type Writer struct {
	w       io.Writer
	buf     []byte
	written int64
}

// NewWriter returns a Writer whose buffer holds capacity interleaved
// samples.
func NewWriter(w io.Writer, capacity int) *Writer {
	return &Writer{w: w, buf: make([]byte, capacity*BytesPerSample)}
}

// WriteSamples relays one decoded frame.  A write failure or short write
// is a *errors.RelayError carrying the bytes relayed before it.
func (rw *Writer) WriteSamples(samples []int16) error {
	need := len(samples) * BytesPerSample
	if need == 0 {
		return nil
	}
	if cap(rw.buf) < need {
		rw.buf = make([]byte, need)
	}
	buf := rw.buf[:need]
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*BytesPerSample:], uint16(s))
	}

	n, err := rw.w.Write(buf)
	rw.written += int64(n)
	if err == nil && n < need {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &rlerr.RelayError{Bytes: rw.written, Err: err}
	}
	return nil
}

// Written returns the total bytes relayed.
func (rw *Writer) Written() int64 { return rw.written }
