// ABOUTME: Retry utilities for API calls with exponential backoff
// ABOUTME: Shared by every translation provider for consistent retry behavior
package util

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"
)

// CalculateBackoff returns exponential backoff with jitter
// Base delay is doubled each attempt, with random jitter up to 25%
func CalculateBackoff(baseDelay time.Duration, attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	// Cap attempt to avoid overflow in bit shift (max 30 for safety)
	if attempt > 30 {
		attempt = 30
	}
	// Exponential: 2^attempt * base
	backoff := baseDelay * time.Duration(1<<uint(attempt))
	// Cap at 30 seconds
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	if backoff <= 0 {
		return 0
	}
	// Add jitter: -25% to +25% using auto-seeded math/rand/v2
	jitter := time.Duration(rand.Int64N(int64(backoff)/2)) - backoff/4
	return backoff + jitter
}

// Retry calls fn until it succeeds, maxRetries extra attempts are spent, ctx ends,
// or retryable reports false for the returned error. A nil retryable retries everything.
func Retry(ctx context.Context, maxRetries int, baseDelay time.Duration, retryable func(error) bool, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(CalculateBackoff(baseDelay, attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("attempt %d: %w (last error: %v)", attempt+1, ctx.Err(), lastErr)
			case <-timer.C:
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, err)

		if ctx.Err() != nil || (retryable != nil && !retryable(err)) {
			return lastErr
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", maxRetries+1, lastErr)
}
