package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"investment-monitor/models"
)

// ErrRateLimited is returned when Alpha Vantage answers with a throttling notice.
var ErrRateLimited = errors.New("alpha vantage rate limit reached")

// AlphaVantageProvider reads quotes from the Alpha Vantage GLOBAL_QUOTE endpoint.
type AlphaVantageProvider struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

// NewAlphaVantageProvider creates an AlphaVantageProvider
func NewAlphaVantageProvider(apiKey string, timeout time.Duration) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://www.alphavantage.co/query",
	}
}

// Name implements QuoteProvider.
func (p *AlphaVantageProvider) Name() string {
	return BreakerAlphaVantage
}

// QuoteResponse represents a quote from Alpha Vantage
type QuoteResponse struct {
	GlobalQuote struct {
		Symbol        string `json:"01. symbol"`
		Open          string `json:"02. open"`
		High          string `json:"03. high"`
		Low           string `json:"04. low"`
		Price         string `json:"05. price"`
		Volume        string `json:"06. volume"`
		LatestDay     string `json:"07. latest trading day"`
		PrevClose     string `json:"08. previous close"`
		Change        string `json:"09. change"`
		ChangePercent string `json:"10. change percent"`
	} `json:"Global Quote"`
	Note        string `json:"Note"`
	Information string `json:"Information"`
	Error       string `json:"Error Message"`
}

// FetchQuote returns the latest price for symbol
func (p *AlphaVantageProvider) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)
	params.Set("apikey", p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
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

	var quoteResp QuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quoteResp); err != nil {
		return models.Quote{}, fmt.Errorf("failed to decode quote: %w", err)
	}

	switch {
	case quoteResp.Note != "" || quoteResp.Information != "":
		return models.Quote{}, ErrRateLimited
	case quoteResp.Error != "":
		return models.Quote{}, Permanent(fmt.Errorf("%w: %s: %s", ErrSymbolNotFound, symbol, quoteResp.Error))
	case quoteResp.GlobalQuote.Price == "":
		return models.Quote{}, Permanent(fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol))
	}

	price, err := decimal.NewFromString(quoteResp.GlobalQuote.Price)
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to parse price %q: %w", quoteResp.GlobalQuote.Price, err)
	}

	// "10. change percent" carries a trailing percent sign, e.g. "-0.8123%"
	change := decimal.Zero
	if raw := strings.TrimSuffix(strings.TrimSpace(quoteResp.GlobalQuote.ChangePercent), "%"); raw != "" {
		if parsed, err := decimal.NewFromString(raw); err == nil {
			change = parsed.Round(2)
		}
	}

	return models.Quote{
		Symbol:    symbol,
		Price:     price.Round(2),
		ChangePct: change,
		FetchedAt: time.Now(),
	}, nil
}
