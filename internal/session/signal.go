package session

import "sync/atomic"

// Signal is the cooperative cancellation flag shared between a session
// and its controller.  It is the only state that crosses from the
// controller's goroutine into the session thread.  The session checks it
// after each fully relayed frame, never in the middle of one.
type Signal struct {
	flag atomic.Bool
}

// Set requests cancellation.
func (s *Signal) Set() { s.flag.Store(true) }

// IsSet reports whether cancellation has been requested.
func (s *Signal) IsSet() bool { return s.flag.Load() }

// Reset clears the flag so the Signal can be reused.
func (s *Signal) Reset() { s.flag.Store(false) }
