package models

import (
	"sort"

	"github.com/shopspring/decimal"
)

// summaryTopN is how many holdings each ranking in a Summary lists.
const summaryTopN = 3

// Summary aggregates a portfolio for the overview screen.
type Summary struct {
	Holdings             int             `json:"holdings"`
	TotalInvested        decimal.Decimal `json:"total_invested"`
	TotalCurrentValue    decimal.Decimal `json:"total_current_value"`
	AverageProfitability decimal.Decimal `json:"average_profitability_pct"`
	Positive             int             `json:"positive"`
	Negative             int             `json:"negative"`
	TopProfitability     []RankedHolding `json:"top_profitability"`
	TopDividends         []RankedHolding `json:"top_dividends"`
	Opportunities        int             `json:"opportunities"`
}

// RankedHolding is one entry of a Summary ranking.
type RankedHolding struct {
	Symbol string          `json:"symbol"`
	Value  decimal.Decimal `json:"value"`
}

// Summarize computes the overview figures for p. Rows with zero or negative
// profitability count as negative.
func Summarize(p Portfolio) Summary {
	s := Summary{
		Holdings:          len(p.Holdings),
		TotalInvested:     decimal.Zero,
		TotalCurrentValue: decimal.Zero,
	}

	profitSum := decimal.Zero
	for _, h := range p.Holdings {
		s.TotalInvested = s.TotalInvested.Add(h.Invested)
		s.TotalCurrentValue = s.TotalCurrentValue.Add(h.CurrentValue)
		profitSum = profitSum.Add(h.ProfitabilityPct)
		if h.ProfitabilityPct.IsPositive() {
			s.Positive++
		} else {
			s.Negative++
		}
		if h.IsOpportunity() {
			s.Opportunities++
		}
	}
	if len(p.Holdings) > 0 {
		s.AverageProfitability = profitSum.Div(decimal.NewFromInt(int64(len(p.Holdings)))).Round(2)
	}

	s.TopProfitability = topBy(p.Holdings, func(h Holding) decimal.Decimal { return h.ProfitabilityPct })
	s.TopDividends = topBy(p.Holdings, func(h Holding) decimal.Decimal { return h.DividendsTotal })
	return s
}

func topBy(holdings []Holding, value func(Holding) decimal.Decimal) []RankedHolding {
	ranked := make([]RankedHolding, 0, len(holdings))
	for _, h := range holdings {
		ranked = append(ranked, RankedHolding{Symbol: h.Symbol, Value: value(h)})
	}
	// stable keeps portfolio order among ties
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Value.GreaterThan(ranked[j].Value)
	})
	if len(ranked) > summaryTopN {
		ranked = ranked[:summaryTopN]
	}
	return ranked
}
