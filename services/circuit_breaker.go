package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"investment-monitor/models"
	"investment-monitor/observability"
)

// Circuit breaker names for quote providers
const (
	BreakerYahoo        = "yahoo"
	BreakerAlphaVantage = "alphavantage"
	BreakerAlpaca       = "alpaca"
	BreakerFMP          = "fmp"
)

// CircuitBreakerConfig holds configuration for a provider circuit breaker
type CircuitBreakerConfig struct {
	MaxRequests  uint32        // probes allowed while half-open
	Interval     time.Duration // closed-state window after which counts reset
	Timeout      time.Duration // open-state duration before probing
	MinRequests  uint32        // calls in the window before the breaker may trip; 0 means 5
	FailureRatio float64       // failed share of the window that trips it; 0 means 0.5
}

// DefaultCircuitBreakerConfig trips after half of at least five calls fail and
// probes again after a minute.
var DefaultCircuitBreakerConfig = CircuitBreakerConfig{
	MaxRequests:  2,
	Interval:     2 * time.Minute,
	Timeout:      time.Minute,
	MinRequests:  5,
	FailureRatio: 0.5,
}

func (c CircuitBreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	minRequests, ratio := c.MinRequests, c.FailureRatio
	if minRequests == 0 {
		minRequests = 5
	}
	if ratio <= 0 {
		ratio = 0.5
	}
	return counts.Requests >= minRequests &&
		float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
}

// CircuitBreakerRegistry keeps one breaker per quote provider.
type CircuitBreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker[models.Quote]
	config   CircuitBreakerConfig
	metrics  *observability.Metrics
}

// NewCircuitBreakerRegistry creates a registry whose breakers use config.
func NewCircuitBreakerRegistry(config CircuitBreakerConfig) *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*gobreaker.CircuitBreaker[models.Quote]),
		config:   config,
		metrics:  observability.GetMetrics(),
	}
}

// WithMetrics records breaker state changes on m instead of the global metrics.
func (r *CircuitBreakerRegistry) WithMetrics(m *observability.Metrics) *CircuitBreakerRegistry {
	if m != nil {
		r.metrics = m
	}
	return r
}

// GetBreaker returns the breaker for provider, creating it on first use.
func (r *CircuitBreakerRegistry) GetBreaker(provider string) *gobreaker.CircuitBreaker[models.Quote] {
	r.mu.RLock()
	cb, ok := r.breakers[provider]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok = r.breakers[provider]; ok {
		return cb
	}
	cb = gobreaker.NewCircuitBreaker[models.Quote](r.settings(provider))
	r.breakers[provider] = cb
	return cb
}

func (r *CircuitBreakerRegistry) settings(provider string) gobreaker.Settings {
	metrics := r.metrics
	return gobreaker.Settings{
		Name:        provider,
		MaxRequests: r.config.MaxRequests,
		Interval:    r.config.Interval,
		Timeout:     r.config.Timeout,
		ReadyToTrip: r.config.readyToTrip,
		// An unknown ticker says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrSymbolNotFound)
		},
		// Neither does a lookup abandoned by its caller.
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			observability.Warn("circuit breaker state change",
				"provider", name,
				"from", from.String(),
				"to", to.String())
			metrics.SetCircuitBreakerState(name, stateToInt(to))
			if to == gobreaker.StateOpen {
				metrics.RecordCircuitBreakerTrip(name)
			}
		},
	}
}

// Fetch runs fn through provider's breaker. Rejections by an open or
// saturated half-open breaker wrap models.ErrProviderUnavailable and are
// marked Permanent so callers do not retry into them.
func (r *CircuitBreakerRegistry) Fetch(ctx context.Context, provider string, fn func() (models.Quote, error)) (models.Quote, error) {
	q, err := r.GetBreaker(provider).Execute(func() (models.Quote, error) {
		if err := ctx.Err(); err != nil {
			return models.Quote{}, err
		}
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		observability.Debug("circuit breaker rejected quote request", "provider", provider, "error", err)
		return models.Quote{}, Permanent(fmt.Errorf("%w: %s: %w", models.ErrProviderUnavailable, provider, err))
	}
	return q, err
}

// CircuitBreakerStatus is a point-in-time view of one breaker.
type CircuitBreakerStatus struct {
	Name                 string `json:"name"`
	State                string `json:"state"`
	Requests             uint32 `json:"requests"`
	TotalSuccesses       uint32 `json:"total_successes"`
	TotalFailures        uint32 `json:"total_failures"`
	ConsecutiveSuccesses uint32 `json:"consecutive_successes"`
	ConsecutiveFailures  uint32 `json:"consecutive_failures"`
}

// Status returns the state of every breaker created so far, by provider.
func (r *CircuitBreakerRegistry) Status() map[string]CircuitBreakerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := make(map[string]CircuitBreakerStatus, len(r.breakers))
	for name, cb := range r.breakers {
		counts := cb.Counts()
		status[name] = CircuitBreakerStatus{
			Name:                 name,
			State:                cb.State().String(),
			Requests:             counts.Requests,
			TotalSuccesses:       counts.TotalSuccesses,
			TotalFailures:        counts.TotalFailures,
			ConsecutiveSuccesses: counts.ConsecutiveSuccesses,
			ConsecutiveFailures:  counts.ConsecutiveFailures,
		}
	}
	return status
}

var (
	globalRegistry *CircuitBreakerRegistry
	registryOnce   sync.Once
)

// GetGlobalRegistry returns the process-wide registry.
func GetGlobalRegistry() *CircuitBreakerRegistry {
	registryOnce.Do(func() {
		globalRegistry = NewCircuitBreakerRegistry(DefaultCircuitBreakerConfig)
	})
	return globalRegistry
}

// stateToInt maps a breaker state to the gauge value: 0 closed, 1 half-open, 2 open.
func stateToInt(state gobreaker.State) int {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
