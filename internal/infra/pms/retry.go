package pms

import (
	"context"
	"time"
)

// RetryPolicy retries an operation over a fixed backoff schedule. The first
// attempt is immediate; each subsequent attempt waits for the next backoff
// entry. An empty schedule means a single attempt.
type RetryPolicy struct {
	Backoff []time.Duration
}

// Do runs fn until it succeeds, the schedule is exhausted, or the context is
// cancelled. The last error is returned.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt >= len(p.Backoff) {
			return lastErr
		}
		select {
		case <-time.After(p.Backoff[attempt]):
		case <-ctx.Done():
			return lastErr
		}
	}
}
