package services

import (
	"context"
	"fmt"

	"investment-monitor/models"
	"investment-monitor/observability"
)

const operationQuote = "quote"

// GuardedProvider decorates a QuoteProvider with a circuit breaker, retries
// and external API metrics. Every error it returns wraps
// models.ErrProviderUnavailable.
type GuardedProvider struct {
	inner    QuoteProvider
	breakers *CircuitBreakerRegistry
	retry    RetryConfig
	metrics  *observability.Metrics
}

// NewGuardedProvider wraps inner. A nil registry uses the global one.
func NewGuardedProvider(inner QuoteProvider, breakers *CircuitBreakerRegistry, retry RetryConfig) *GuardedProvider {
	if breakers == nil {
		breakers = GetGlobalRegistry()
	}
	return &GuardedProvider{
		inner:    inner,
		breakers: breakers,
		retry:    retry,
		metrics:  observability.GetMetrics(),
	}
}

// WithMetrics records on m instead of the global metrics.
func (g *GuardedProvider) WithMetrics(m *observability.Metrics) *GuardedProvider {
	if m != nil {
		g.metrics = m
	}
	return g
}

// Name implements QuoteProvider.
func (g *GuardedProvider) Name() string {
	return g.inner.Name()
}

// Breakers exposes the registry for health reporting.
func (g *GuardedProvider) Breakers() *CircuitBreakerRegistry {
	return g.breakers
}

// FetchQuote implements QuoteProvider.
func (g *GuardedProvider) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	name := g.inner.Name()

	quote, err := Retry(ctx, g.retry, func() (models.Quote, error) {
		g.metrics.RecordExternalAPIRequest(name, operationQuote)
		timer := g.metrics.NewTimer()
		q, err := g.breakers.Fetch(ctx, name, func() (models.Quote, error) {
			return g.inner.FetchQuote(ctx, symbol)
		})
		timer.ObserveExternalAPI(name, operationQuote)
		if err != nil {
			g.metrics.RecordExternalAPIError(name, operationQuote, errorType(err))
		}
		return q, err
	})
	if err != nil {
		return models.Quote{}, fmt.Errorf("%w: %s %s: %w", models.ErrProviderUnavailable, name, symbol, err)
	}

	if quote.Symbol == "" {
		quote.Symbol = symbol
	}
	return quote, nil
}
