// Package retry provides the exponential backoff used when a local
// consumer dials a relay port that may not be bound yet.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// PermanentError wraps an error that no amount of waiting will fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.  Do returns the inner error
// without another attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked with [Permanent].
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Backoff retries an operation with exponentially growing waits.
type Backoff struct {
	// InitialDelay is the wait after the first failure (default 25ms).
	InitialDelay time.Duration
	// MaxDelay caps a single wait (default 1s).
	MaxDelay time.Duration
	// Multiplier grows the wait after each failure (default 2.0).
	Multiplier float64
	// MaxAttempts is the total number of tries including the first.
	// Zero means retry until the context ends.
	MaxAttempts int
	// Jitter spreads each wait by ±25%.
	Jitter bool
	// OnRetry, if set, is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// RendezvousBackoff returns the schedule used for loopback relay dials:
// short waits, since the relay port is normally bound within
// milliseconds, and roughly ten seconds of total patience.
func RendezvousBackoff() *Backoff {
	return &Backoff{
		InitialDelay: 25 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		MaxAttempts:  16,
		Jitter:       true,
	}
}

func (b *Backoff) params() (initial, maxDelay time.Duration, mult float64) {
	initial, maxDelay, mult = b.InitialDelay, b.MaxDelay, b.Multiplier
	if initial <= 0 {
		initial = 25 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = time.Second
	}
	if mult <= 1 {
		mult = 2.0
	}
	return initial, maxDelay, mult
}

// Delay returns the un-jittered wait that follows the given 1-based
// failed attempt.
func (b *Backoff) Delay(attempt int) time.Duration {
	initial, maxDelay, mult := b.params()
	if attempt < 1 {
		attempt = 1
	}
	d := float64(initial) * math.Pow(mult, float64(attempt-1))
	if d > float64(maxDelay) {
		return maxDelay
	}
	return time.Duration(d)
}

// Do calls fn until it returns nil, returns a [Permanent] error, the
// attempt budget runs out, or ctx ends.  attempt is 1-based.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		wait := b.Delay(attempt)
		if b.Jitter {
			wait = addJitter(wait)
		}
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}

		if timer == nil {
			timer = time.NewTimer(wait)
		} else {
			timer.Reset(wait)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled: %w (last error: %v)", ctx.Err(), err)
		case <-timer.C:
		}
	}
}

// addJitter spreads d by ±25%, never below a millisecond.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	return time.Duration(math.Max(float64(d)+delta, float64(time.Millisecond)))
}
