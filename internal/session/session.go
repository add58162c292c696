// Package session runs the decode-and-relay loop for one stream and
// manages the single session a process may run at a time.
//
// A Session moves through AwaitingDownstream (accept the local consumer
// on the relay port), AwaitingUpstream (connect to the producer) and
// Streaming (read, decode, relay, check cancellation) to Terminated.
// Every exit path shuts down both connections before Run returns.
package session

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"opusrelay/internal/codec"
	rlerr "opusrelay/internal/errors"
	"opusrelay/internal/framing"
	"opusrelay/internal/metrics"
	"opusrelay/internal/relay"
	"opusrelay/internal/sched"
	"opusrelay/internal/transport"
	"opusrelay/util"
)

// Config holds the fixed parameters of a session.
type Config struct {
	Remote    string // producer "host:port"
	RelayAddr string // consumer rendezvous, used by Manager

	SampleRate      int
	Channels        int
	MaxFrameSamples int // decoder capacity per channel
	MaxFrameBytes   int // largest accepted wire payload; 0 means no limit

	AcceptTimeout time.Duration      // 0 waits until the context ends
	Downstream    transport.Timeouts // applied to the consumer connection

	RaisePriority bool
	Nice          int

	// Dialer opens the upstream connection.  Nil means a plain TCP
	// dialer without timeouts.
	Dialer transport.Dialer
}

// DefaultConfig returns the stock 48 kHz stereo, 2.5 ms configuration.
func DefaultConfig() Config {
	return Config{
		RelayAddr:       relay.DefaultAddr,
		SampleRate:      codec.SampleRate,
		Channels:        codec.Channels,
		MaxFrameSamples: codec.FrameSamples,
		MaxFrameBytes:   64 * 1024,
		RaisePriority:   true,
		Nice:            sched.DefaultNice,
	}
}

// frameDecoder is the part of *codec.Decoder the loop uses.
type frameDecoder interface {
	Decode(frame []byte) (int, error)
	Samples(n int) []int16
	Capacity() int
	Channels() int
}

// acceptor is the part of *relay.Rendezvous the loop uses.
type acceptor interface {
	Accept(ctx context.Context) (net.Conn, error)
	Close() error
}

// Session is one decode-and-relay stream.  It owns its buffers, decoder
// and both connections; nothing in it is shared except the Signal.
type Session struct {
	ID string

	cfg     Config
	rv      acceptor
	signal  *Signal
	logger  *util.Logger
	metrics *metrics.Collector
	state   stateVar

	newDecoder func() (frameDecoder, error)
	onState    func(State)
}

// New returns a session that will accept its consumer on rv and stop
// when sig is set.  Run closes rv.
func New(cfg Config, rv acceptor, sig *Signal, logger *util.Logger, m *metrics.Collector) *Session {
	if cfg.Dialer == nil {
		cfg.Dialer = &transport.TCPDialer{}
	}
	if sig == nil {
		sig = &Signal{}
	}
	s := &Session{
		cfg:     cfg,
		rv:      rv,
		signal:  sig,
		logger:  logger,
		metrics: m,
	}
	s.newDecoder = func() (frameDecoder, error) {
		return codec.NewDecoder(cfg.SampleRate, cfg.Channels, cfg.MaxFrameSamples)
	}
	return s
}

// State returns the current lifecycle state.  It is safe to call from
// any goroutine.
func (s *Session) State() State { return s.state.load() }

func (s *Session) setState(st State) {
	s.state.store(st)
	if s.onState != nil {
		s.onState(st)
	}
	s.logger.Debug("state %s", st)
}

// Run executes the session on the calling goroutine and returns when it
// reaches Terminated.  ctx bounds the setup phases (accept and connect);
// once streaming, only the Signal or an I/O failure ends the loop.
//
// Callers that want the scheduling hint to stick to this stream lock the
// goroutine to its OS thread first.
func (s *Session) Run(ctx context.Context) (res Result) {
	start := time.Now()
	s.metrics.SessionStarted()
	defer func() {
		res.Duration = time.Since(start)
		s.setState(Terminated)
		s.metrics.SessionEnded(res.Outcome == Cancelled)
		if res.Err != nil && res.Outcome != Cancelled {
			s.metrics.RecordError(rlerr.Kind(res.Err), res.Err.Error())
		}
		s.logger.Verbose("%s after %d frames (%v)", res, res.Frames, res.Duration.Truncate(time.Millisecond))
	}()

	if s.cfg.RaisePriority {
		s.raisePriority()
	}

	dec, err := s.newDecoder()
	if err != nil {
		s.rv.Close() //nolint:errcheck
		return s.finish(err, 0)
	}

	// AwaitingDownstream
	s.setState(AwaitingDownstream)
	acceptCtx := ctx
	if s.cfg.AcceptTimeout > 0 {
		var cancel context.CancelFunc
		acceptCtx, cancel = context.WithTimeout(ctx, s.cfg.AcceptTimeout)
		defer cancel()
	}
	down, err := s.rv.Accept(acceptCtx)
	if err != nil {
		return s.finish(err, 0)
	}
	s.logger.Verbose("consumer connected from %s", down.RemoteAddr())
	down = s.cfg.Downstream.Wrap(down)

	// AwaitingUpstream
	s.setState(AwaitingUpstream)
	up, err := s.cfg.Dialer.Dial(ctx, s.cfg.Remote)
	if err != nil {
		util.Shutdown(down) //nolint:errcheck
		return s.finish(err, 0)
	}
	s.logger.Verbose("connected to producer %s", s.cfg.Remote)

	// Streaming
	s.setState(Streaming)
	frames, err := s.stream(up, down, dec)
	util.Shutdown(up)   //nolint:errcheck
	util.Shutdown(down) //nolint:errcheck
	return s.finish(err, frames)
}

// stream runs the per-frame loop.  It returns a nil error only when the
// Signal was observed.
func (s *Session) stream(up io.Reader, down io.Writer, dec frameDecoder) (int64, error) {
	fr := framing.NewReader(up)
	fr.SetMaxFrameSize(s.cfg.MaxFrameBytes)
	rw := relay.NewWriter(down, dec.Capacity()*dec.Channels())
	pcmPerSample := dec.Channels() * relay.BytesPerSample

	var frames int64
	for {
		payload, err := fr.ReadFrame()
		if err != nil {
			return frames, err
		}
		n, err := dec.Decode(payload)
		if err != nil {
			return frames, err
		}
		if err := rw.WriteSamples(dec.Samples(n)); err != nil {
			return frames, err
		}
		frames++
		s.metrics.FrameRelayed(framing.HeaderSize+len(payload), n, n*pcmPerSample)

		if s.signal.IsSet() {
			return frames, nil
		}
	}
}

// finish classifies the end of a session.  A setup phase aborted by a
// cancelled context after the Signal was set counts as a requested stop.
func (s *Session) finish(err error, frames int64) Result {
	res := Result{Outcome: Ended, Err: err, Frames: frames}
	switch {
	case err == nil && s.signal.IsSet():
		res.Outcome = Cancelled
	case s.signal.IsSet() && errors.Is(err, context.Canceled):
		res.Outcome = Cancelled
		res.Err = nil
	case isEndOfStream(err):
		s.logger.Info("producer closed the stream")
	case err != nil:
		s.logger.Error("session failed (%s): %v", rlerr.Kind(err), err)
	}
	return res
}

// isEndOfStream reports a clean close by the producer between frames.
func isEndOfStream(err error) bool {
	var fe *rlerr.FramingError
	return errors.As(err, &fe) && fe.Op == "header" && errors.Is(err, io.EOF)
}

func (s *Session) raisePriority() {
	report := sched.Raise(s.cfg.Nice)
	for _, w := range report.Warnings {
		s.logger.Warn("scheduling: %v", w)
	}
	s.logger.Debug("scheduling: %s", report)
}
