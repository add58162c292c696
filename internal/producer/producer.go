// Package producer is the reference upstream: it reads raw s16le PCM,
// encodes fixed-size Opus frames and writes them with the relay's
// length-prefixed wire framing.
package producer

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"opusrelay/internal/framing"
	"opusrelay/internal/metrics"
	"opusrelay/util"
)

// FrameEncoder is the part of *codec.Encoder the producer uses.
type FrameEncoder interface {
	FrameLen() int
	Encode(pcm []int16) ([]byte, error)
}

// Producer streams one PCM source to one client.
type Producer struct {
	Encoder FrameEncoder
	// Pace, when positive, spaces frames at this interval so a file
	// source streams at playback speed.
	Pace    time.Duration
	Logger  *util.Logger
	Metrics *metrics.Collector
}

// Serve encodes pcm until it is exhausted, the client goes away or ctx
// ends, and returns the number of frames sent.  A trailing partial
// block is zero-padded to a full frame.  Cancelling ctx closes conn.
func (p *Producer) Serve(ctx context.Context, conn net.Conn, pcm io.Reader) (int64, error) {
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	samples := make([]int16, p.Encoder.FrameLen())
	raw := make([]byte, len(samples)*2)
	fw := framing.NewWriter(conn)

	var tick *time.Ticker
	if p.Pace > 0 {
		tick = time.NewTicker(p.Pace)
		defer tick.Stop()
	}

	var frames int64
	for {
		n, err := io.ReadFull(pcm, raw)
		if err == io.EOF {
			return frames, nil
		}
		last := errors.Is(err, io.ErrUnexpectedEOF)
		if err != nil && !last {
			return frames, fmt.Errorf("reading pcm: %w", err)
		}
		clear(raw[n:])
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(raw[i*2:]))
		}

		pkt, err := p.Encoder.Encode(samples)
		if err != nil {
			return frames, err
		}
		if len(pkt) > 0 {
			if tick != nil && frames > 0 {
				select {
				case <-tick.C:
				case <-ctx.Done():
					return frames, nil
				}
			}
			if err := fw.WriteFrame(pkt); err != nil {
				if ctx.Err() != nil {
					return frames, nil
				}
				return frames, fmt.Errorf("writing frame %d: %w", frames, err)
			}
			frames++
			p.Metrics.BytesSent(int64(framing.HeaderSize + len(pkt)))
		}
		if last {
			return frames, nil
		}
	}
}

// Log reports the outcome of Serve at the appropriate level.
func (p *Producer) Log(frames int64, err error) {
	if p.Logger == nil {
		return
	}
	if err != nil {
		p.Logger.Error("producer stopped after %d frames: %v", frames, err)
		return
	}
	p.Logger.Verbose("producer sent %d frames", frames)
}
