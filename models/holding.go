package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RequiredYieldPct is the dividend yield a holding must offer to be considered
// fairly priced. The fair value threshold is DividendsPerShare * 100 / RequiredYieldPct.
const RequiredYieldPct = 6

var (
	hundred       = decimal.NewFromInt(100)
	requiredYield = decimal.NewFromInt(RequiredYieldPct)
)

// Holding is one portfolio row for a single ticker.
type Holding struct {
	Symbol             string              `json:"symbol"`
	Name               string              `json:"name"`
	AvgCost            decimal.Decimal     `json:"avg_cost"`
	LastPrice          decimal.NullDecimal `json:"last_price"`
	ChangePct          decimal.NullDecimal `json:"change_pct"`
	Quantity           int64               `json:"quantity"`
	Invested           decimal.Decimal     `json:"invested"`
	CurrentValue       decimal.Decimal     `json:"current_value"`
	DividendsTotal     decimal.Decimal     `json:"dividends_total"`
	DividendsPerShare  decimal.Decimal     `json:"dividends_per_share"`
	ProfitabilityPct   decimal.Decimal     `json:"profitability_pct"`
	FairValueThreshold decimal.Decimal     `json:"fair_value_threshold"`
	QuotedAt           time.Time           `json:"quoted_at,omitempty"`
}

// HoldingStatus classifies a row for presentation.
type HoldingStatus string

const (
	HoldingStatusUndervalued HoldingStatus = "undervalued"
	HoldingStatusPositive    HoldingStatus = "positive"
	HoldingStatusNegative    HoldingStatus = "negative"
)

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// FairValueThreshold returns the price ceiling implied by the required yield,
// rounded to cents.
func FairValueThreshold(dividendsPerShare decimal.Decimal) decimal.Decimal {
	return dividendsPerShare.Mul(hundred).Div(requiredYield).Round(2)
}

// Profitability returns the percentage gain of value over invested capital,
// rounded to two places. It is zero when nothing was invested.
func Profitability(currentValue, invested decimal.Decimal) decimal.Decimal {
	if !invested.IsPositive() {
		return decimal.Zero
	}
	return currentValue.Sub(invested).Div(invested).Mul(hundred).Round(2)
}

// Recompute refreshes every derived field from Quantity, Invested, LastPrice
// and DividendsPerShare.
func (h *Holding) Recompute() {
	price := decimal.Zero
	if h.LastPrice.Valid {
		price = h.LastPrice.Decimal
	}
	h.CurrentValue = price.Mul(decimal.NewFromInt(h.Quantity)).Round(2)
	h.ProfitabilityPct = Profitability(h.CurrentValue, h.Invested)
	h.FairValueThreshold = FairValueThreshold(h.DividendsPerShare)
}

// ApplyQuote folds a market quote into the row. Quotes without a positive
// price, or fetched before the row's current price, are ignored and false is
// returned.
func (h *Holding) ApplyQuote(q Quote) bool {
	if !q.Price.IsPositive() {
		return false
	}
	if !h.QuotedAt.IsZero() && q.FetchedAt.Before(h.QuotedAt) {
		return false
	}
	h.LastPrice = decimal.NewNullDecimal(q.Price)
	h.ChangePct = decimal.NewNullDecimal(q.ChangePct)
	h.QuotedAt = q.FetchedAt
	h.Recompute()
	return true
}

// IsOpportunity reports whether the last price is at or below a known fair
// value threshold. A zero threshold means no dividend data and never matches.
func (h Holding) IsOpportunity() bool {
	if !h.LastPrice.Valid || !h.FairValueThreshold.IsPositive() {
		return false
	}
	return h.LastPrice.Decimal.LessThanOrEqual(h.FairValueThreshold)
}

// Status classifies the row the same way the dashboard colours it.
func (h Holding) Status() HoldingStatus {
	switch {
	case h.IsOpportunity():
		return HoldingStatusUndervalued
	case h.ProfitabilityPct.IsPositive():
		return HoldingStatusPositive
	default:
		return HoldingStatusNegative
	}
}
