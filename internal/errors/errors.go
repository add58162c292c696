// Package errors provides the error taxonomy for opusrelay.
//
// Every failure that can end a decode session is one of the structured
// types below.  They carry enough context (operation, address, frame
// length) for a useful diagnostic line and let the session loop and its
// controller classify an outcome with errors.As instead of matching
// strings.
package errors

import (
	"errors"
	"fmt"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrAlreadyRunning is returned by a start request while another
	// session is still held by the manager.
	ErrAlreadyRunning = errors.New("a decode session is already running")

	// ErrNotRunning is returned when stopping a handle the manager does
	// not hold.
	ErrNotRunning = errors.New("no such decode session")

	// ErrNotConnected is returned by a gateway dial before Connect.
	ErrNotConnected = errors.New("not connected")
)

// ── Session-ending errors ────────────────────────────────────────────

// FramingError reports a malformed or truncated length-prefixed frame on
// the upstream connection.  No resynchronisation is attempted.
type FramingError struct {
	Op     string // "header", "length", "payload"
	Length int64  // declared payload length (-1 when the header was short)
	Err    error
}

func (e *FramingError) Error() string {
	if e.Length >= 0 {
		return fmt.Sprintf("framing %s (length %d): %v", e.Op, e.Length, e.Err)
	}
	return fmt.Sprintf("framing %s: %v", e.Op, e.Err)
}

func (e *FramingError) Unwrap() error { return e.Err }

// DecodeError reports a payload the codec rejected.
type DecodeError struct {
	Size int // payload size in bytes
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %d-byte frame: %v", e.Size, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ConnectionError reports a bind, accept or connect failure on either
// endpoint.
type ConnectionError struct {
	Op   string // "bind", "accept", "connect"
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RelayError reports a write failure towards the local consumer.
type RelayError struct {
	Bytes int64 // bytes relayed before the failure
	Err   error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay write after %d bytes: %v", e.Bytes, e.Err)
}

func (e *RelayError) Unwrap() error { return e.Err }

// SchedulingWarning reports a failed priority change or readback.  It
// is only ever logged.
type SchedulingWarning struct {
	Op  string // "lock", "setpriority", "getpriority"
	Err error
}

func (e *SchedulingWarning) Error() string {
	return fmt.Sprintf("scheduling %s: %v", e.Op, e.Err)
}

func (e *SchedulingWarning) Unwrap() error { return e.Err }

// GatewayError represents an SSH gateway failure with host context.
type GatewayError struct {
	Op   string // "handshake", "auth", "hostkey", "dial"
	Host string
	Port int
	Err  error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("ssh %s %s:%d: %v", e.Op, e.Host, e.Port, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // flag name without dashes
	Value   interface{} // the invalid value (nil if missing)
	Message string
	Hint    string // optional suggestion
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Connection wraps err as a ConnectionError.
func Connection(op, addr string, err error) *ConnectionError {
	return &ConnectionError{Op: op, Addr: addr, Err: err}
}

// WrapGateway creates a GatewayError.
func WrapGateway(op, host string, port int, err error) *GatewayError {
	return &GatewayError{Op: op, Host: host, Port: port, Err: err}
}

// ── Classification ───────────────────────────────────────────────────

// Kind names the taxonomy category of err: "framing", "decode",
// "connection", "relay", "scheduling", "gateway", "config",
// "already-running", or "other".  A nil error has kind "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	var (
		fe *FramingError
		de *DecodeError
		ce *ConnectionError
		re *RelayError
		sw *SchedulingWarning
		ge *GatewayError
		cf *ConfigError
	)
	switch {
	case errors.As(err, &fe):
		return "framing"
	case errors.As(err, &de):
		return "decode"
	case errors.As(err, &re):
		return "relay"
	case errors.As(err, &ce):
		return "connection"
	case errors.As(err, &ge):
		return "gateway"
	case errors.As(err, &sw):
		return "scheduling"
	case errors.As(err, &cf):
		return "config"
	case errors.Is(err, ErrAlreadyRunning):
		return "already-running"
	}
	return "other"
}

// IsTimeout reports whether err is a network timeout, as produced by a
// transport read or write deadline.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use opusrelay/internal/errors in place of the
// standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
