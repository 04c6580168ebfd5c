package tracker

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxAttempts is the total attempt count Retry makes by default.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the delay before the first retry; each subsequent
	// retry doubles it.
	DefaultBaseDelay = 1000 * time.Millisecond
)

type retryConfig struct {
	maxAttempts int
	baseDelay   time.Duration
}

// RetryOption customizes Retry behavior.
type RetryOption func(*retryConfig)

// WithMaxAttempts sets the total number of attempts (including the first).
func WithMaxAttempts(n int) RetryOption {
	return func(c *retryConfig) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBaseDelay sets the delay before the first retry.
func WithBaseDelay(d time.Duration) RetryOption {
	return func(c *retryConfig) {
		if d > 0 {
			c.baseDelay = d
		}
	}
}

// Retry runs op, retrying transient failures with exponential backoff
// (baseDelay x 2^(attempt-1), no jitter) until the attempt budget is
// exhausted, then re-raises the last error.
//
// Rate-limit rejections, not-found conditions, and authentication failures
// are permanent: they surface immediately so callers can make their own
// decision instead of hammering the provider.
func Retry(ctx context.Context, op func() error, opts ...RetryOption) error {
	cfg := retryConfig{
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.baseDelay
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = time.Hour
	bo.MaxElapsedTime = 0 // attempt count is the only bound

	wrapped := backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(cfg.maxAttempts-1))

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, wrapped)
}

// isPermanent classifies errors that retrying cannot fix.
func isPermanent(err error) bool {
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAuthRequired) || errors.Is(err, context.Canceled)
}
