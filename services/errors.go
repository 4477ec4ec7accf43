package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrSymbolNotFound is returned when the provider does not know the ticker.
var ErrSymbolNotFound = errors.New("symbol not found")

// StatusError is a non-2xx response from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
	// RetryAfter is the provider's Retry-After hint, zero when absent.
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// checkResponse turns a non-200 response into an error. 404 means the symbol
// is unknown and other 4xx codes other than 429 will not improve on retry.
func checkResponse(provider, symbol string, resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := &StatusError{
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Body:       string(body),
		RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Permanent(fmt.Errorf("%w: %s: %w", ErrSymbolNotFound, symbol, statusErr))
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return statusErr
	default:
		return Permanent(statusErr)
	}
}

// parseRetryAfter reads a Retry-After header given in seconds. HTTP dates
// are not used by the quote providers and yield zero.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// errorType classifies err for the external API error metric.
func errorType(err error) string {
	var statusErr *StatusError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, ErrSymbolNotFound):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &statusErr):
		return "status"
	default:
		return "other"
	}
}
