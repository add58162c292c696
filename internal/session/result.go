package session

import (
	"fmt"
	"time"
)

// Outcome distinguishes why a session reached Terminated.
type Outcome int

const (
	// Ended means the session stopped on its own: end of stream or a
	// failure recorded in Result.Err.
	Ended Outcome = iota
	// Cancelled means the controller asked the session to stop.
	Cancelled
)

func (o Outcome) String() string {
	if o == Cancelled {
		return "cancelled"
	}
	return "ended"
}

// Result is what a finished session reports at its join point.
type Result struct {
	Outcome  Outcome
	Err      error
	Frames   int64
	Duration time.Duration
}

// Clean reports whether the session stopped without a fault: it was
// cancelled, or the producer closed the stream between frames.
func (r Result) Clean() bool {
	return r.Outcome == Cancelled || r.Err == nil || isEndOfStream(r.Err)
}

// String gives the one-line status a controller shows the user.  A
// requested stop and a stream that ended by itself read differently.
func (r Result) String() string {
	if r.Outcome == Cancelled {
		return "stream cancelled by request"
	}
	if r.Err == nil || isEndOfStream(r.Err) {
		return "stream ended"
	}
	return fmt.Sprintf("stream ended: %v", r.Err)
}
