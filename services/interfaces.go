package services

import (
	"context"

	"investment-monitor/models"
)

// QuoteProvider fetches the latest price and daily change for a provider symbol.
type QuoteProvider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// Compile-time interface verification
var _ QuoteProvider = (*YahooProvider)(nil)
var _ QuoteProvider = (*AlphaVantageProvider)(nil)
var _ QuoteProvider = (*AlpacaProvider)(nil)
var _ QuoteProvider = (*FMPProvider)(nil)
var _ QuoteProvider = (*GuardedProvider)(nil)
