// Package ratelimit provides a stdlib-only token bucket used to pace
// outbound requests to the public upstreams.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenBucket refills at a fixed rate up to a burst capacity. The bucket
// starts full so an idle process gets an initial burst.
type TokenBucket struct {
	rate     float64 // tokens per second
	capacity float64

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

func NewTokenBucket(tokensPerSecond float64, burst int) *TokenBucket {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 0.0000001
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:     tokensPerSecond,
		capacity: float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
	}
}

// PerMinute builds a bucket pacing at requestsPerMinute with a burst of one.
// A zero or negative rate disables limiting (nil bucket).
func PerMinute(requestsPerMinute int) *TokenBucket {
	if requestsPerMinute <= 0 {
		return nil
	}
	return NewTokenBucket(float64(requestsPerMinute)/60.0, 1)
}

// Wait blocks until one token is available or the context is canceled.
// A nil bucket never blocks.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	if tb == nil {
		return nil
	}
	for {
		tb.mu.Lock()
		now := time.Now()
		elapsed := now.Sub(tb.last).Seconds()
		if elapsed > 0 {
			tb.tokens += elapsed * tb.rate
			if tb.tokens > tb.capacity {
				tb.tokens = tb.capacity
			}
			tb.last = now
		}
		if tb.tokens >= 1 {
			tb.tokens -= 1
			tb.mu.Unlock()
			return nil
		}
		deficit := 1 - tb.tokens
		tb.mu.Unlock()

		waitDur := time.Duration(deficit / tb.rate * float64(time.Second))
		if waitDur <= 0 {
			waitDur = time.Millisecond
		}
		timer := time.NewTimer(waitDur)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
