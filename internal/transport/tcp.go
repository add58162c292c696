package transport

import (
	"context"
	"net"
	"time"

	rlerr "opusrelay/internal/errors"
)

// TCPDialer connects directly to the producer.
type TCPDialer struct {
	ConnectTimeout time.Duration
	Timeouts       Timeouts
}

// Dial connects to address.  Failures are *errors.ConnectionError.
func (d *TCPDialer) Dial(ctx context.Context, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.ConnectTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, rlerr.Connection("connect", address, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true) //nolint:errcheck
	}
	return d.Timeouts.Wrap(conn), nil
}

// Close is a no-op; TCPDialer holds no state.
func (d *TCPDialer) Close() error { return nil }
