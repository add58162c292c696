// Package relay delivers decoded PCM to the local consumer over a
// one-shot loopback rendezvous.
//
// The session side binds with [Listen] and takes exactly one connection
// with [Rendezvous.Accept]; the listener is closed immediately after, so
// later connection attempts are refused.  The consumer side connects
// with [Dial], which retries while the port is not yet bound.
package relay

import (
	"context"
	"errors"
	"net"
	"sync"

	rlerr "opusrelay/internal/errors"
)

// DefaultAddr is the well-known relay endpoint.
const DefaultAddr = "127.0.0.1:12345"

// Rendezvous is a bound listener that hands out exactly one connection.
type Rendezvous struct {
	ln   net.Listener
	once sync.Once
	err  error
}

// Listen binds addr.  A bind failure is a *errors.ConnectionError.
func Listen(addr string) (*Rendezvous, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, rlerr.Connection("bind", addr, err)
	}
	return &Rendezvous{ln: ln}, nil
}

// Addr returns the bound address, which differs from the requested one
// when port 0 was used.
func (r *Rendezvous) Addr() net.Addr { return r.ln.Addr() }

// Accept blocks until the consumer connects or ctx ends, then closes the
// listener.  It may be called once; a second call fails.
func (r *Rendezvous) Accept(ctx context.Context) (net.Conn, error) {
	addr := r.ln.Addr().String()

	stop := context.AfterFunc(ctx, func() { r.Close() }) //nolint:errcheck
	conn, err := r.ln.Accept()
	stop()
	r.Close() //nolint:errcheck

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else if errors.Is(err, net.ErrClosed) {
			err = errors.New("rendezvous already used")
		}
		return nil, rlerr.Connection("accept", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		tc.SetNoDelay(true) //nolint:errcheck
	}
	return conn, nil
}

// Close releases the listener.  It is safe to call more than once.
func (r *Rendezvous) Close() error {
	r.once.Do(func() {
		r.err = r.ln.Close()
	})
	return r.err
}
