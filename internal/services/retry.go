package services

import (
	"context"
	"time"

	"github.com/congregate/backend/pkg/logger"
)

// RetryPolicy controls how WithRetry re-attempts an operation.
type RetryPolicy struct {
	Attempts int
	Backoff  func(attempt int) time.Duration
}

// LinearBackoff returns a backoff function yielding 0, step, 2*step, ...
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// DefaultWritePolicy is the retry policy for writes racing a fresh user row:
// 3 attempts with 0/200ms/400ms delays.
var DefaultWritePolicy = RetryPolicy{
	Attempts: 3,
	Backoff:  LinearBackoff(200 * time.Millisecond),
}

// WithRetry runs fn up to policy.Attempts times, re-attempting only while
// transient(err) holds. The classifier is a predicate over the normalized
// error taxonomy, so the retry policy stays testable independent of backend
// wording. The last error is returned when attempts are exhausted.
func WithRetry(ctx context.Context, policy RetryPolicy, transient func(error) bool, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < policy.Attempts; attempt++ {
		if delay := policy.Backoff(attempt); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !transient(lastErr) {
			return lastErr
		}
		logger.Warnf("[Retry] attempt %d/%d failed: %v", attempt+1, policy.Attempts, lastErr)
	}
	return lastErr
}
