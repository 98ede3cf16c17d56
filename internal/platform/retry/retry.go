/*
Package retry provides exponential backoff for calls against a destination
adapter's HTTP transport.

Architecture:

  - Config: bounds on attempt count and backoff delay.
  - Do: retries fn while [apperr.IsRetryable] reports the returned error as
    transient, honoring context cancellation between attempts.

This mirrors the backoff shape used elsewhere in the corpus for retryable
storage operations, generalized from fixed deadlock/serialization causes to
the pipeline's own [apperr.Kind] classification.
*/
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/corvid-labs/boorusync/internal/platform/apperr"
	"github.com/corvid-labs/boorusync/internal/platform/constants"
)

// Config bounds a [Do] call's retry behavior.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultConfig returns the platform's default retry tuning.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: constants.DefaultRetryAttempts,
		BaseDelay:   constants.DefaultRetryBaseDelay,
		MaxDelay:    constants.DefaultRetryMaxDelay,
	}
}

// Do invokes fn up to config.MaxAttempts times, applying exponential backoff
// between attempts for errors [apperr.IsRetryable] considers transient. A
// [*apperr.AppError] with [apperr.KindRateLimited] uses its RetryAfterSeconds
// as the wait instead of the computed backoff.
func Do(ctx context.Context, config Config, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry: cancelled before attempt %d: %w", attempt, err)
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !apperr.IsRetryable(err) {
			return err
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		delay := backoffFor(config, attempt, err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry: cancelled during backoff: %w", ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("retry: exhausted %d attempts: %w", config.MaxAttempts, lastErr)
}

// backoffFor computes the delay before the next attempt, capped at
// config.MaxDelay, honoring a rate-limited error's requested cooldown.
func backoffFor(config Config, attempt int, err error) time.Duration {
	if ae := apperr.As(err); ae != nil && ae.Kind == apperr.KindRateLimited && ae.RetryAfterSeconds > 0 {
		return time.Duration(ae.RetryAfterSeconds) * time.Second
	}

	delay := config.BaseDelay * time.Duration(1<<uint(attempt))
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}
	return delay
}
