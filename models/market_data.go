package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the market data the engine needs for one symbol: the latest price
// and its percentage change against the previous close.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	ChangePct decimal.Decimal `json:"change_pct"`
	FetchedAt time.Time       `json:"fetched_at"`
	// Stale is set when the quote is older than the cache TTL and was served
	// because a fresh fetch failed.
	Stale bool `json:"stale,omitempty"`
}

// Opportunity is a holding priced at or below its fair value threshold.
type Opportunity struct {
	Symbol             string          `json:"symbol"`
	Name               string          `json:"name"`
	LastPrice          decimal.Decimal `json:"last_price"`
	FairValueThreshold decimal.Decimal `json:"fair_value_threshold"`
}

// DiscountPct returns how far below the threshold the price sits, in percent.
func (o Opportunity) DiscountPct() decimal.Decimal {
	if o.FairValueThreshold.IsZero() {
		return decimal.Zero
	}
	return o.FairValueThreshold.Sub(o.LastPrice).Div(o.FairValueThreshold).Mul(hundred).Round(2)
}
