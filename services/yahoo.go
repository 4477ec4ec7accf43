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

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// YahooProvider reads quotes from the Yahoo Finance chart API.
type YahooProvider struct {
	httpClient *http.Client
	baseURL    string
}

// NewYahooProvider creates a YahooProvider whose requests time out after timeout.
func NewYahooProvider(timeout time.Duration) *YahooProvider {
	return &YahooProvider{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    yahooChartURL,
	}
}

// Name implements QuoteProvider.
func (p *YahooProvider) Name() string {
	return BreakerYahoo
}

// chartResponse is the subset of the chart payload carrying the latest price.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string          `json:"symbol"`
				Currency           string          `json:"currency"`
				RegularMarketPrice decimal.Decimal `json:"regularMarketPrice"`
				ChartPreviousClose decimal.Decimal `json:"chartPreviousClose"`
				PreviousClose      decimal.Decimal `json:"previousClose"`
				RegularMarketTime  int64           `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchQuote returns the regular market price of symbol and its change
// against the previous close, both rounded to two places.
func (p *YahooProvider) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	params := url.Values{}
	params.Set("range", "1d")
	params.Set("interval", "1d")
	reqURL := p.baseURL + "/" + url.PathEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.Quote{}, Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to fetch chart: %w", err)
	}
	defer resp.Body.Close()

	if err := checkResponse(p.Name(), symbol, resp); err != nil {
		return models.Quote{}, err
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return models.Quote{}, fmt.Errorf("failed to decode chart: %w", err)
	}

	if chart.Chart.Error != nil {
		return models.Quote{}, Permanent(fmt.Errorf("%w: %s: %s", ErrSymbolNotFound, symbol, chart.Chart.Error.Description))
	}
	if len(chart.Chart.Result) == 0 {
		return models.Quote{}, Permanent(fmt.Errorf("%w: %s: empty chart", ErrSymbolNotFound, symbol))
	}

	meta := chart.Chart.Result[0].Meta
	if !meta.RegularMarketPrice.IsPositive() {
		return models.Quote{}, fmt.Errorf("no market price for %s", symbol)
	}

	prev := meta.ChartPreviousClose
	if !prev.IsPositive() {
		prev = meta.PreviousClose
	}

	quotedAt := time.Now()
	if meta.RegularMarketTime > 0 {
		quotedAt = time.Unix(meta.RegularMarketTime, 0)
	}

	return models.Quote{
		Symbol:    symbol,
		Price:     meta.RegularMarketPrice.Round(2),
		ChangePct: changePct(meta.RegularMarketPrice, prev),
		FetchedAt: quotedAt,
	}, nil
}

// changePct returns the percentage move from prev to price, rounded to two
// places, or zero when prev is unknown.
func changePct(price, prev decimal.Decimal) decimal.Decimal {
	if !prev.IsPositive() {
		return decimal.Zero
	}
	return price.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Round(2)
}
