package tracker

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound classifies a 404-equivalent condition on a single-record
// lookup. Provider clients convert it to a nil result rather than
// surfacing it to callers.
var ErrNotFound = errors.New("not found")

// ErrAuthRequired is returned when credentials are missing or expired and
// the provider has no way to refresh them. Callers must re-authorize out of
// band; the operation is never blindly retried.
var ErrAuthRequired = errors.New("authentication required")

// RateLimitCode is the machine-readable code carried by RateLimitError.
const RateLimitCode = "rate_limit_exceeded"

// RateLimitError is raised when the local fixed-window limiter rejects a
// request before it is performed. It is never retried automatically; the
// caller decides whether to wait RetryAfter and try again.
type RateLimitError struct {
	Code       string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %ds", int(e.RetryAfter.Seconds()))
}

// NewRateLimitError builds a RateLimitError for a window resetting at resetAt.
func NewRateLimitError(resetAt time.Time) *RateLimitError {
	retryAfter := time.Until(resetAt)
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &RateLimitError{Code: RateLimitCode, RetryAfter: retryAfter.Round(time.Second)}
}

// HTTPError carries the status and endpoint of a non-2xx response.
// The shared HTTP wrapper raises it so transport details never leak raw.
type HTTPError struct {
	StatusCode int
	Status     string
	Endpoint   string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s returned %s: %s", e.Endpoint, e.Status, e.Body)
	}
	return fmt.Sprintf("%s returned %s", e.Endpoint, e.Status)
}

// IsNotFound reports whether err classifies as a 404-equivalent condition.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == 404
}
