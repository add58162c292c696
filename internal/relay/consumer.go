package relay

import (
	"context"
	"errors"
	"net"
	"time"

	rlerr "opusrelay/internal/errors"
	"opusrelay/internal/retry"
	"opusrelay/util"
)

// Dial connects a local consumer to the relay at addr.  A refused
// connection is retried according to b (retry.RendezvousBackoff when
// nil) since the session binds the port asynchronously from the
// consumer's point of view; address errors fail immediately.
func Dial(ctx context.Context, addr string, b *retry.Backoff, logger *util.Logger) (net.Conn, error) {
	if b == nil {
		b = retry.RendezvousBackoff()
	}
	bo := *b
	if logger != nil {
		bo.OnRetry = func(attempt int, err error, wait time.Duration) {
			logger.Debug("relay %s not ready (attempt %d): %v; retrying in %v", addr, attempt, err, wait)
		}
	}

	var d net.Dialer
	var conn net.Conn
	err := bo.Do(ctx, func(_ int) error {
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			if permanentDialError(err) {
				return retry.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	})
	if err != nil {
		return nil, rlerr.Connection("dial", addr, err)
	}
	if logger != nil {
		logger.Verbose("connected to relay %s", conn.RemoteAddr())
	}
	return conn, nil
}

func permanentDialError(err error) bool {
	var addrErr *net.AddrError
	var dnsErr *net.DNSError
	var parseErr *net.ParseError
	return errors.As(err, &addrErr) || errors.As(err, &dnsErr) || errors.As(err, &parseErr)
}
