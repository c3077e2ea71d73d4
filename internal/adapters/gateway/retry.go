package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type RetryPolicy struct {
	BaseDelay  time.Duration
	MaxRetries int
}

// Retry runs operation until it succeeds, fails with a non-retryable error,
// runs out of attempts or ctx ends.
func Retry[T any](ctx context.Context, p RetryPolicy, operation func(ctx context.Context) (*T, error)) (*T, error) {
	attempts := p.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return nil, fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return nil, err
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return nil, err
		}

		if attempt < attempts-1 {
			timer := time.NewTimer(p.backoff(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
			case <-timer.C:
			}
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

// backoff is exponential with up to 100ms of jitter.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	base := p.BaseDelay * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Intn(100)) * time.Millisecond
	return base + jitter
}
