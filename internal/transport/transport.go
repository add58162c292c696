// Package transport opens the upstream connection to the producer,
// either directly over TCP or through an SSH gateway, and applies the
// per-operation read and write timeouts the session loop relies on to
// bound a stalled stream.
package transport

import (
	"context"
	"net"
	"time"
)

// Dialer opens the upstream connection.
type Dialer interface {
	// Dial connects to address ("host:port").
	Dial(ctx context.Context, address string) (net.Conn, error)

	// Close releases long-lived resources such as a gateway session.
	Close() error
}

// Timeouts bounds each blocking read and write on a connection.  A zero
// value disables the corresponding deadline.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
}

// Wrap applies t to conn.  It returns conn unchanged when both timeouts
// are zero.
func (t Timeouts) Wrap(conn net.Conn) net.Conn {
	if t.Read <= 0 && t.Write <= 0 {
		return conn
	}
	return &deadlineConn{Conn: conn, read: t.Read, write: t.Write}
}

// deadlineConn refreshes the socket deadline before every Read and
// Write, turning a stall into a timeout error rather than a hang.
type deadlineConn struct {
	net.Conn
	read, write time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.read > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.read)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.write > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.write)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}

// CloseRead forwards to the wrapped connection when it supports
// half-close.
func (c *deadlineConn) CloseRead() error {
	if hc, ok := c.Conn.(interface{ CloseRead() error }); ok {
		return hc.CloseRead()
	}
	return nil
}

// CloseWrite forwards to the wrapped connection when it supports
// half-close.
func (c *deadlineConn) CloseWrite() error {
	if hc, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return hc.CloseWrite()
	}
	return nil
}
