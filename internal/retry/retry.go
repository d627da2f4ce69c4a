// Package retry implements a context-aware retryer with capped exponential
// backoff. The caller's closure decides per attempt whether the failure is
// worth retrying.
package retry

import (
	"context"
	"time"
)

type Retryer struct {
	maxRetries uint
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// New builds a Retryer performing at most maxRetries retries after the
// initial attempt, starting at baseDelay and doubling up to maxDelay.
func New(maxRetries uint, baseDelay, maxDelay time.Duration) *Retryer {
	return &Retryer{
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
	}
}

// Do runs fn until it reports no retry is needed, retries are exhausted, or
// the context is canceled. The error of the last attempt is returned.
func (r *Retryer) Do(ctx context.Context, fn func() (shouldRetry bool, err error)) error {
	var lastErr error

	for attempt := uint(0); attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		shouldRetry, err := fn()
		if !shouldRetry {
			return err
		}
		lastErr = err

		if attempt < r.maxRetries {
			select {
			case <-time.After(r.backoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

func (r *Retryer) backoff(attempt uint) time.Duration {
	delay := r.baseDelay * (1 << attempt)
	if r.maxDelay > 0 && delay > r.maxDelay {
		return r.maxDelay
	}
	return delay
}
