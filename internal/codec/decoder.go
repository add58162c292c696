// Package codec adapts the gopus Opus implementation to the fixed
// session parameters of the relay: one sample rate, one channel layout
// and a fixed per-frame sample capacity chosen at construction.
package codec

import (
	"fmt"
	"math"

	"github.com/thesyncim/gopus"

	rlerr "opusrelay/internal/errors"
)

// Session-wide codec constants.
const (
	SampleRate      = 48000
	Channels        = 2
	FrameSamples    = 120 // per channel, 2.5 ms at 48 kHz
	opusClockRate   = 48000
	maxPacketFrames = 48
)

// Decoder is a stateful Opus decoder with a fixed-capacity output
// buffer.  It is owned by a single session and must not be shared.
type Decoder struct {
	dec        *gopus.Decoder
	sampleRate int
	channels   int
	maxSamples int // per channel

	f32 []float32
	out []int16
}

// NewDecoder returns a Decoder for the given rate and channel count
// whose output capacity is maxFrameSamples per channel.  All buffers
// are allocated here; Decode does not allocate.
func NewDecoder(sampleRate, channels, maxFrameSamples int) (*Decoder, error) {
	if maxFrameSamples <= 0 {
		return nil, fmt.Errorf("codec: max frame samples must be positive, got %d", maxFrameSamples)
	}
	dec, err := gopus.NewDecoder(gopus.DecoderConfig{SampleRate: sampleRate, Channels: channels})
	if err != nil {
		return nil, fmt.Errorf("codec: create decoder: %w", err)
	}
	return &Decoder{
		dec:        dec,
		sampleRate: sampleRate,
		channels:   channels,
		maxSamples: maxFrameSamples,
		f32:        make([]float32, maxFrameSamples*channels),
		out:        make([]int16, maxFrameSamples*channels),
	}, nil
}

// Decode decodes one encoded frame into the output buffer and returns
// the number of samples per channel produced.  The count never exceeds
// Capacity.  A payload the codec cannot decode, including an empty one
// and one whose declared duration exceeds the buffer, is reported as a
// *errors.DecodeError.
func (d *Decoder) Decode(frame []byte) (int, error) {
	if len(frame) == 0 {
		return 0, &rlerr.DecodeError{Size: 0, Err: fmt.Errorf("empty payload")}
	}

	info, err := gopus.ParsePacket(frame)
	if err != nil {
		return 0, &rlerr.DecodeError{Size: len(frame), Err: err}
	}
	if info.FrameCount < 1 || info.FrameCount > maxPacketFrames {
		return 0, &rlerr.DecodeError{
			Size: len(frame),
			Err:  fmt.Errorf("invalid frame count %d", info.FrameCount),
		}
	}
	want := info.TOC.FrameSize * info.FrameCount * d.sampleRate / opusClockRate
	if want > d.maxSamples {
		return 0, &rlerr.DecodeError{
			Size: len(frame),
			Err:  fmt.Errorf("packet carries %d samples per channel, capacity is %d", want, d.maxSamples),
		}
	}

	n, err := d.dec.Decode(frame, d.f32)
	if err != nil {
		return 0, &rlerr.DecodeError{Size: len(frame), Err: err}
	}
	if n < 0 || n > d.maxSamples {
		return 0, &rlerr.DecodeError{
			Size: len(frame),
			Err:  fmt.Errorf("decoder produced %d samples per channel, capacity is %d", n, d.maxSamples),
		}
	}

	total := n * d.channels
	for i := 0; i < total; i++ {
		d.out[i] = toInt16(d.f32[i])
	}
	return n, nil
}

// Samples returns the interleaved samples of the last decoded frame
// given its per-channel count.  The slice aliases the output buffer.
func (d *Decoder) Samples(n int) []int16 {
	if n > d.maxSamples {
		n = d.maxSamples
	}
	if n < 0 {
		n = 0
	}
	return d.out[:n*d.channels]
}

// Capacity returns the output capacity in samples per channel.
func (d *Decoder) Capacity() int { return d.maxSamples }

// Channels returns the channel count.
func (d *Decoder) Channels() int { return d.channels }

// SampleRate returns the output sample rate in Hz.
func (d *Decoder) SampleRate() int { return d.sampleRate }

// Reset clears the codec state for a new stream.
func (d *Decoder) Reset() { d.dec.Reset() }

// toInt16 scales a float sample in [-1, 1) to 16-bit PCM, rounding to
// nearest even and saturating out-of-range values.
func toInt16(v float32) int16 {
	s := math.RoundToEven(float64(v) * 32768)
	switch {
	case s > math.MaxInt16:
		return math.MaxInt16
	case s < math.MinInt16:
		return math.MinInt16
	}
	return int16(s)
}
