// Package retry provides the shared failure policy for all outbound
// dependency calls: a fixed attempt budget with exponential backoff and a
// per-client retryability predicate, so every client exhibits identical
// observable behavior under failure.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Defaults applied by NewPolicy when zero values are given.
const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 2.0
)

// HTTPError represents a non-2xx response from a dependency. Clients
// surface it so the policy can distinguish server-side failures (5xx,
// retryable) from definitive rejections (4xx, not retryable).
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// PermanentError marks a failure that must never be retried, such as a
// malformed request or an un-decodable response body.
type PermanentError struct {
	Err error
}

// Error implements the error interface
func (e *PermanentError) Error() string { return e.Err.Error() }

// Unwrap implements errors.Unwrap
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so DefaultRetryable rejects it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// DefaultRetryable classifies connection failures, timeouts and HTTP 5xx
// as retryable. HTTP 4xx (including 404), permanent errors and context
// cancellation fail immediately.
func DefaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return false
	}
	var permErr *PermanentError
	if errors.As(err, &permErr) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}
	// Transport-level failures (connection refused, timeout) arrive as
	// plain errors from net/http.
	return true
}

// Policy is a reusable retry/backoff policy. The delay before retry i is
// BackoffBase^i seconds (i counted from 0).
type Policy struct {
	MaxAttempts int
	BackoffBase float64
	Retryable   func(error) bool

	logger *zap.Logger
	sleep  func(time.Duration)
}

// NewPolicy creates a retry policy. Zero maxAttempts/backoffBase fall
// back to the package defaults; a nil predicate uses DefaultRetryable.
func NewPolicy(maxAttempts int, backoffBase float64, retryable func(error) bool, logger *zap.Logger) *Policy {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if backoffBase <= 0 {
		backoffBase = DefaultBackoffBase
	}
	if retryable == nil {
		retryable = DefaultRetryable
	}
	return &Policy{
		MaxAttempts: maxAttempts,
		BackoffBase: backoffBase,
		Retryable:   retryable,
		logger:      logger,
		sleep:       time.Sleep,
	}
}

// WithSleep overrides the sleep function. Used by tests to avoid real
// backoff delays.
func (p *Policy) WithSleep(sleep func(time.Duration)) *Policy {
	p.sleep = sleep
	return p
}

// Delay returns the backoff delay before retry i.
func (p *Policy) Delay(retry int) time.Duration {
	seconds := math.Pow(p.BackoffBase, float64(retry))
	return time.Duration(seconds * float64(time.Second))
}

// Do runs fn under the policy. It returns nil on the first success, the
// error unchanged when the predicate rejects it, or the last failure once
// the attempt budget is spent. Every attempt and backoff delay is logged
// with the request id.
func (p *Policy) Do(ctx context.Context, requestID, operation string, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		p.logger.Debug("dependency call attempt",
			zap.String("request_id", requestID),
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", p.MaxAttempts))

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !p.Retryable(lastErr) {
			p.logger.Warn("dependency call failed with non-retryable error",
				zap.String("request_id", requestID),
				zap.String("operation", operation),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr))
			return lastErr
		}

		if attempt < p.MaxAttempts-1 {
			delay := p.Delay(attempt)
			p.logger.Warn("dependency call failed, backing off",
				zap.String("request_id", requestID),
				zap.String("operation", operation),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			p.sleep(delay)
		}
	}

	p.logger.Error("dependency call failed, retry budget exhausted",
		zap.String("request_id", requestID),
		zap.String("operation", operation),
		zap.Int("attempts", p.MaxAttempts),
		zap.Error(lastErr))
	return lastErr
}
