package session

import (
	"bytes"
	"context"
	"io"
	"net"
	"sync"

	rlerr "opusrelay/internal/errors"
	"opusrelay/util"
)

func quietLogger() *util.Logger {
	l := util.NewLogger(3)
	l.SetOutput(io.Discard)
	return l
}

// event is one I/O call observed by the instrumented connections.
type event struct {
	op     string // "read" or "write"
	offset int    // upstream offset before a read
}

type eventLog struct {
	mu     sync.Mutex
	events []event
}

func (l *eventLog) add(e event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]event(nil), l.events...)
}

type stubAddr string

func (a stubAddr) Network() string { return "stub" }
func (a stubAddr) String() string  { return string(a) }

// stubConn is a net.Conn whose reads come from a byte slice and whose
// writes are collected.  Only the methods the session uses are real.
type stubConn struct {
	net.Conn
	log *eventLog

	mu     sync.Mutex
	src    *bytes.Reader
	total  int
	out    bytes.Buffer
	closed bool
}

func newUpstream(log *eventLog, data []byte) *stubConn {
	return &stubConn{log: log, src: bytes.NewReader(data), total: len(data)}
}

func newDownstream(log *eventLog) *stubConn {
	return &stubConn{log: log, src: bytes.NewReader(nil)}
}

func (c *stubConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	c.log.add(event{op: "read", offset: c.total - c.src.Len()})
	return c.src.Read(p)
}

func (c *stubConn) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, net.ErrClosed
	}
	c.log.add(event{op: "write"})
	return c.out.Write(p)
}

func (c *stubConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *stubConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *stubConn) written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.out.Bytes()...)
}

func (c *stubConn) RemoteAddr() net.Addr { return stubAddr("stub") }

// gatedConn closes reached when a Read begins at or beyond offset
// bytes into the stream, which proves every earlier frame has been
// relayed and its cancellation check has passed.
type gatedConn struct {
	net.Conn
	offset  int
	reached chan struct{}

	mu   sync.Mutex
	read int
	once sync.Once
}

func newGatedConn(conn net.Conn, offset int) *gatedConn {
	return &gatedConn{Conn: conn, offset: offset, reached: make(chan struct{})}
}

func (c *gatedConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	at := c.read
	c.mu.Unlock()
	if at >= c.offset {
		c.once.Do(func() { close(c.reached) })
	}
	n, err := c.Conn.Read(p)
	c.mu.Lock()
	c.read += n
	c.mu.Unlock()
	return n, err
}

// stubAcceptor hands out conn once, or blocks until ctx ends when conn
// is nil.
type stubAcceptor struct {
	conn   net.Conn
	err    error
	closed bool
}

func (a *stubAcceptor) Accept(ctx context.Context) (net.Conn, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.conn == nil {
		<-ctx.Done()
		return nil, rlerr.Connection("accept", "stub", ctx.Err())
	}
	return a.conn, nil
}

func (a *stubAcceptor) Close() error {
	a.closed = true
	return nil
}

type stubDialer struct {
	conn  net.Conn
	err   error
	calls int
}

func (d *stubDialer) Dial(_ context.Context, address string) (net.Conn, error) {
	d.calls++
	if d.err != nil {
		return nil, rlerr.Connection("connect", address, d.err)
	}
	return d.conn, nil
}

func (d *stubDialer) Close() error { return nil }

// stubDecoder yields one sample per channel per payload byte, each equal
// to the byte value.  A payload starting with 0xFF is rejected.
type stubDecoder struct {
	capacity int
	channels int
	out      []int16
}

func newStubDecoder(capacity, channels int) *stubDecoder {
	return &stubDecoder{capacity: capacity, channels: channels, out: make([]int16, capacity*channels)}
}

func (d *stubDecoder) Decode(p []byte) (int, error) {
	if len(p) == 0 || p[0] == 0xFF || len(p) > d.capacity {
		return 0, &rlerr.DecodeError{Size: len(p), Err: io.ErrUnexpectedEOF}
	}
	for i, b := range p {
		for ch := 0; ch < d.channels; ch++ {
			d.out[i*d.channels+ch] = int16(b)
		}
	}
	return len(p), nil
}

func (d *stubDecoder) Samples(n int) []int16 { return d.out[:n*d.channels] }
func (d *stubDecoder) Capacity() int         { return d.capacity }
func (d *stubDecoder) Channels() int         { return d.channels }

// stubSession builds a Session wired to stubs with priority changes off.
func stubSession(acc acceptor, dialer *stubDialer, sig *Signal) *Session {
	cfg := DefaultConfig()
	cfg.RaisePriority = false
	cfg.Remote = "producer:9"
	cfg.Dialer = dialer
	s := New(cfg, acc, sig, quietLogger(), nil)
	s.newDecoder = func() (frameDecoder, error) { return newStubDecoder(16, 2), nil }
	return s
}
