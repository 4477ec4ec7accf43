package services

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"investment-monitor/models"
)

// alpacaMarketData is the part of the Alpaca market data client the provider uses.
type alpacaMarketData interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
	GetBars(symbol string, req marketdata.GetBarsRequest) ([]marketdata.Bar, error)
}

// AlpacaProvider prices symbols from Alpaca's latest trade and computes the
// change against the previous daily close.
type AlpacaProvider struct {
	dataClient alpacaMarketData
	now        func() time.Time
}

// NewAlpacaProvider creates an AlpacaProvider. An empty baseURL uses Alpaca's default.
func NewAlpacaProvider(apiKey, apiSecret, baseURL string) *AlpacaProvider {
	dataClient := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	})

	return &AlpacaProvider{
		dataClient: dataClient,
		now:        time.Now,
	}
}

// Name implements QuoteProvider.
func (p *AlpacaProvider) Name() string {
	return BreakerAlpaca
}

// FetchQuote returns the latest trade price for symbol. The Alpaca client does
// not take a context; ctx is only checked before each call.
func (p *AlpacaProvider) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return models.Quote{}, err
	}
	trade, err := p.dataClient.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return models.Quote{}, fmt.Errorf("failed to get trade for %s: %w", symbol, err)
	}
	if trade == nil {
		return models.Quote{}, Permanent(fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol))
	}

	price := decimal.NewFromFloat(trade.Price)

	if err := ctx.Err(); err != nil {
		return models.Quote{}, err
	}
	prevClose, err := p.previousClose(symbol, trade.Timestamp)
	if err != nil {
		// the price alone is still a usable quote
		prevClose = decimal.Zero
	}

	return models.Quote{
		Symbol:    symbol,
		Price:     price.Round(2),
		ChangePct: changePct(price, prevClose),
		FetchedAt: trade.Timestamp,
	}, nil
}

// previousClose returns the close of the last daily bar before the trading
// day of tradeTime.
func (p *AlpacaProvider) previousClose(symbol string, tradeTime time.Time) (decimal.Decimal, error) {
	end := p.now()
	bars, err := p.dataClient.GetBars(symbol, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     end.AddDate(0, 0, -10),
		End:       end,
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get bars for %s: %w", symbol, err)
	}

	ty, tm, td := tradeTime.UTC().Date()
	for i := len(bars) - 1; i >= 0; i-- {
		by, bm, bd := bars[i].Timestamp.UTC().Date()
		if by == ty && bm == tm && bd == td {
			continue
		}
		return decimal.NewFromFloat(bars[i].Close), nil
	}
	return decimal.Zero, fmt.Errorf("no previous close for %s", symbol)
}
