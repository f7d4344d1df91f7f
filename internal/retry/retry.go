// Package retry provides a small bounded retry policy with fixed backoff.
package retry

import (
	"context"
	"time"
)

// Policy describes a bounded retry loop. Sleep is injectable so tests run
// without real timing; nil falls back to time.Sleep.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	Retryable   func(error) bool
	Sleep       func(time.Duration)
}

// Do invokes fn up to MaxAttempts times, sleeping Backoff between attempts
// that fail with a retryable error. Non-retryable errors and context
// cancellation stop the loop immediately. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sleep(p.Backoff)
	}
	return err
}
