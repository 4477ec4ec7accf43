package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"investment-monitor/models"
)

// FMPProvider reads quotes from the Financial Modeling Prep quote endpoint.
type FMPProvider struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewFMPProvider creates an FMPProvider
func NewFMPProvider(apiKey string, timeout time.Duration) *FMPProvider {
	return &FMPProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://financialmodelingprep.com/api/v3",
	}
}

// Name implements QuoteProvider.
func (p *FMPProvider) Name() string {
	return BreakerFMP
}

// fmpQuote is one element of the /quote response array
type fmpQuote struct {
	Symbol            string   `json:"symbol"`
	Name              string   `json:"name"`
	Price             *float64 `json:"price"`
	ChangesPercentage float64  `json:"changesPercentage"`
	Change            float64  `json:"change"`
	PreviousClose     float64  `json:"previousClose"`
	Exchange          string   `json:"exchange"`
}

// FetchQuote returns the latest price for symbol
func (p *FMPProvider) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	reqURL := fmt.Sprintf("%s/quote/%s?apikey=%s", p.baseURL, url.PathEscape(symbol), url.QueryEscape(p.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.Quote{}, Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to fetch quote: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(p.Name(), symbol, resp); err != nil {
		return models.Quote{}, err
	}

	var quotes []fmpQuote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return models.Quote{}, fmt.Errorf("failed to decode quote: %w", err)
	}

	// FMP answers an unknown ticker with an empty array
	if len(quotes) == 0 || quotes[0].Price == nil {
		return models.Quote{}, Permanent(fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol))
	}

	q := quotes[0]
	return models.Quote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(*q.Price).Round(2),
		ChangePct: decimal.NewFromFloat(q.ChangesPercentage).Round(2),
		FetchedAt: time.Now(),
	}, nil
}
