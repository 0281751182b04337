package app

import (
	"context"
	"time"
)

// RetryPolicy bounds how often an operation is attempted and how long to
// wait between attempts. Sleep is injected so tests can run without delays.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Sleep       func(time.Duration)
}

// FixedBackoff waits d after every failed attempt.
func FixedBackoff(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// Do runs op until it succeeds or MaxAttempts is reached. attempt is
// 1-based. There is no wait after the final attempt. The error of the last
// attempt is returned, or the context error if ctx ended between attempts.
func (p RetryPolicy) Do(ctx context.Context, op func(attempt int) error) error {
	attempts := max(p.MaxAttempts, 1)

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = op(attempt); err == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if p.Backoff != nil && p.Sleep != nil {
			p.Sleep(p.Backoff(attempt))
		}
	}
	return err
}
