// Package framing implements the upstream wire format: each Opus frame
// is preceded by its length as a 4-byte big-endian signed integer.
//
//	+------------------+--------------------------+
//	| length: int32 BE | payload: length bytes    |
//	+------------------+--------------------------+
//
// The Reader owns a single payload buffer that is reused across frames,
// so steady-state reading does not allocate.
package framing

import (
	"encoding/binary"
	"fmt"
	"io"

	rlerr "opusrelay/internal/errors"
)

// HeaderSize is the length of the frame prefix in bytes.
const HeaderSize = 4

// MaxFrameSize is the largest length a header can declare.
const MaxFrameSize = 1<<31 - 1

// Reader reads length-prefixed frames from an upstream byte stream.
type Reader struct {
	r     io.Reader
	hdr   [HeaderSize]byte
	buf   []byte
	limit int
}

// NewReader returns a Reader that accepts any non-negative length.  A
// zero-length frame reads as an empty, non-nil payload.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r, buf: []byte{}, limit: MaxFrameSize}
}

// SetMaxFrameSize lowers the largest accepted payload length.  Values
// <= 0 restore the protocol maximum.
func (fr *Reader) SetMaxFrameSize(n int) {
	if n <= 0 || n > MaxFrameSize {
		n = MaxFrameSize
	}
	fr.limit = n
}

// ReadFrame reads exactly one frame and returns its payload.  The
// returned slice aliases the Reader's buffer and is only valid until
// the next call.
//
// Every failure is a *errors.FramingError: a short or failed header read,
// a negative or oversized length, or a short payload read.  A partially
// read frame is never returned.
func (fr *Reader) ReadFrame() ([]byte, error) {
	if _, err := io.ReadFull(fr.r, fr.hdr[:]); err != nil {
		return nil, &rlerr.FramingError{Op: "header", Length: -1, Err: err}
	}

	length := int32(binary.BigEndian.Uint32(fr.hdr[:]))
	if length < 0 {
		return nil, &rlerr.FramingError{
			Op:     "length",
			Length: int64(length),
			Err:    fmt.Errorf("negative payload length"),
		}
	}
	n := int(length)
	if n > fr.limit {
		return nil, &rlerr.FramingError{
			Op:     "length",
			Length: int64(n),
			Err:    fmt.Errorf("payload exceeds limit of %d bytes", fr.limit),
		}
	}

	if cap(fr.buf) < n {
		fr.buf = make([]byte, n)
	}
	fr.buf = fr.buf[:n]

	if _, err := io.ReadFull(fr.r, fr.buf); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, &rlerr.FramingError{Op: "payload", Length: int64(n), Err: err}
	}
	return fr.buf, nil
}

// Writer writes length-prefixed frames.  It is used by the reference
// producer and by tests.
type Writer struct {
	w   io.Writer
	buf []byte
}

// NewWriter returns a Writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteFrame writes the header and payload of one frame in a single
// Write call.
func (fw *Writer) WriteFrame(payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds protocol maximum", len(payload))
	}
	need := HeaderSize + len(payload)
	if cap(fw.buf) < need {
		fw.buf = make([]byte, need)
	}
	fw.buf = fw.buf[:need]
	binary.BigEndian.PutUint32(fw.buf, uint32(len(payload)))
	copy(fw.buf[HeaderSize:], payload)

	_, err := fw.w.Write(fw.buf)
	return err
}

// AppendFrame appends the encoding of payload to dst.
func AppendFrame(dst, payload []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(payload)))
	return append(dst, payload...)
}
