package util

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
)

// DefaultBufSize is the standard buffer size for network I/O (32 KiB).
const DefaultBufSize = 32 * 1024

// Pump copies a one-way stream from conn into w until conn reaches EOF
// or the context is cancelled.  Cancelling closes conn to unblock the
// pending read.  It returns the number of bytes copied; shutdown noise
// (EOF, closed connection) is not reported as an error.
func Pump(ctx context.Context, conn net.Conn, w io.Writer) (int64, error) {
	buf := GetBuf()
	defer PutBuf(buf)

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	n, err := io.CopyBuffer(w, conn, *buf)
	close(done)
	wg.Wait()

	if err != nil && !isHarmless(err) {
		return n, err
	}
	return n, nil
}

// halfCloser is implemented by *net.TCPConn and by wrappers around it.
type halfCloser interface {
	CloseRead() error
	CloseWrite() error
}

// Shutdown closes both directions of conn and then releases it.  A
// connection that supports half-close is shut down explicitly first so
// the peer observes an orderly FIN even if other references to the
// socket exist.
func Shutdown(conn net.Conn) error {
	if conn == nil {
		return nil
	}
	if hc, ok := conn.(halfCloser); ok {
		hc.CloseRead()  //nolint:errcheck
		hc.CloseWrite() //nolint:errcheck
	}
	err := conn.Close()
	if err != nil && isHarmless(err) {
		return nil
	}
	return err
}

// isHarmless returns true for errors that are expected during shutdown.
func isHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
