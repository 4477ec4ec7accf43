package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"investment-monitor/observability"
)

// RetryConfig controls how often a failed provider call is repeated.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig keeps a refresh of a few dozen symbols well inside the
// fetch timeout.
var DefaultRetryConfig = RetryConfig{
	MaxRetries:     2,
	InitialBackoff: 200 * time.Millisecond,
	MaxBackoff:     2 * time.Second,
}

// backoff returns the wait before retry n (1-based): InitialBackoff doubled
// per retry, capped at MaxBackoff.
func (c RetryConfig) backoff(n int) time.Duration {
	d := c.InitialBackoff
	for i := 1; i < n; i++ {
		d *= 2
		if c.MaxBackoff > 0 && d >= c.MaxBackoff {
			break
		}
	}
	if c.MaxBackoff > 0 && d > c.MaxBackoff {
		d = c.MaxBackoff
	}
	return d
}

// wait picks the pause after err. A provider's Retry-After hint wins over
// the backoff when it is longer, still capped at MaxBackoff.
func (c RetryConfig) wait(n int, err error) time.Duration {
	d := c.backoff(n)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.RetryAfter > d {
		d = statusErr.RetryAfter
		if c.MaxBackoff > 0 && d > c.MaxBackoff {
			d = c.MaxBackoff
		}
	}
	return d
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// ErrRetryDeadline is returned when the next attempt would start after the
// context deadline.
var ErrRetryDeadline = errors.New("retry would exceed deadline")

// Retry calls fn until it succeeds, returns a Permanent error, or MaxRetries
// retries have failed. It stops early rather than sleep past ctx's deadline.
func Retry[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			pause := config.wait(attempt, lastErr)
			if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < pause {
				return zero, fmt.Errorf("%w after %d attempt(s): %w", ErrRetryDeadline, attempt, lastErr)
			}

			timer := time.NewTimer(pause)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
			case <-timer.C:
			}
			observability.Debug("retrying provider call",
				"attempt", attempt,
				"max_retries", config.MaxRetries,
				"pause", pause,
				"error", lastErr)
		}

		v, err := fn()
		if err == nil {
			return v, nil
		}
		if IsPermanent(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, fmt.Errorf("failed after %d retries: %w", config.MaxRetries, lastErr)
}
