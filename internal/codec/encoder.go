package codec

import (
	"fmt"

	"github.com/thesyncim/gopus"
)

// maxPacketBytes is enough for any single Opus packet.
const maxPacketBytes = 4000

// Encoder turns fixed-size blocks of interleaved int16 PCM into Opus
// packets.  It is used by the reference producer and by tests.
type Encoder struct {
	enc          *gopus.Encoder
	channels     int
	frameSamples int

	f32    []float32
	packet []byte
}

// NewEncoder returns a low-delay (CELT) encoder producing one packet per
// frameSamples samples per channel.
func NewEncoder(sampleRate, channels, frameSamples int) (*Encoder, error) {
	enc, err := gopus.NewEncoder(gopus.EncoderConfig{SampleRate: sampleRate, Channels: channels, Application: gopus.ApplicationLowDelay})
	if err != nil {
		return nil, fmt.Errorf("codec: create encoder: %w", err)
	}
	if err := enc.SetFrameSize(frameSamples); err != nil {
		return nil, fmt.Errorf("codec: frame size %d: %w", frameSamples, err)
	}
	return &Encoder{
		enc:          enc,
		channels:     channels,
		frameSamples: frameSamples,
		f32:          make([]float32, frameSamples*channels),
		packet:       make([]byte, maxPacketBytes),
	}, nil
}

// FrameLen returns the number of interleaved samples Encode expects.
func (e *Encoder) FrameLen() int { return e.frameSamples * e.channels }

// Encode encodes exactly FrameLen interleaved samples.  The returned
// packet aliases an internal buffer and is valid until the next call.
func (e *Encoder) Encode(pcm []int16) ([]byte, error) {
	if len(pcm) != len(e.f32) {
		return nil, fmt.Errorf("codec: encode needs %d samples, got %d", len(e.f32), len(pcm))
	}
	for i, v := range pcm {
		e.f32[i] = float32(v) / 32768
	}
	n, err := e.enc.Encode(e.f32, e.packet)
	if err != nil {
		return nil, fmt.Errorf("codec: encode: %w", err)
	}
	return e.packet[:n], nil
}
