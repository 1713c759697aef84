// Package retry wraps fallible operations with bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Policy defines how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied per retry.
	BackoffFactor float64

	// JitterFactor randomizes the backoff by up to this fraction to avoid
	// synchronized retries against a recovering endpoint.
	JitterFactor float64
}

// DefaultPolicy returns the policy used for all external calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		BackoffFactor:  2.0,
		JitterFactor:   0.2,
	}
}

// Do runs op, retrying while retryable classifies the error as transient.
// Non-retryable errors propagate immediately; a retryable error is only
// surfaced once all attempts are exhausted. Backoff waits respect ctx.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, p.Backoff(attempt)); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}

// Backoff returns the wait before the given retry attempt (1-based).
func (p Policy) Backoff(attempt int) time.Duration {
	backoff := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= p.BackoffFactor
	}
	if max := float64(p.MaxBackoff); p.MaxBackoff > 0 && backoff > max {
		backoff = max
	}
	backoff += rand.Float64() * p.JitterFactor * backoff
	return time.Duration(backoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
