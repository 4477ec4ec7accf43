// Package report renders portfolio tables and summaries as Markdown.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"investment-monitor/models"
	"investment-monitor/portfolio"
)

// Currency of every amount in the portfolio.
const Currency = money.BRL

// Money formats d as a BRL amount, e.g. R$1.234,56.
func Money(d decimal.Decimal) string {
	cents := d.Shift(2).Round(0).IntPart()
	return money.New(cents, Currency).Display()
}

// Price formats an optional quote price; "-" when there is none.
func Price(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return Money(d.Decimal)
}

// Percent formats d with two decimals and a sign, e.g. +16.67%.
func Percent(d decimal.Decimal) string {
	s := d.StringFixed(2) + "%"
	if d.IsPositive() {
		return "+" + s
	}
	return s
}

func statusMark(s models.HoldingStatus) string {
	switch s {
	case models.HoldingStatusUndervalued:
		return "🟡"
	case models.HoldingStatusPositive:
		return "🟢"
	default:
		return "🔴"
	}
}

// PortfolioMarkdown renders the holdings table.
func PortfolioMarkdown(p models.Portfolio) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Portfolio\n\n")
	if !p.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "Updated %s\n\n", p.UpdatedAt.Local().Format(time.DateTime))
	}
	if len(p.Holdings) == 0 {
		fmt.Fprintln(&b, "No holdings.")
		return b.String()
	}

	fmt.Fprintln(&b, "| | Symbol | Company | Avg Cost | Price | Change | Qty | Invested | Value | Return | Dividends | Div/Share | Fair Value |")
	fmt.Fprintln(&b, "|:---:|:---|:---|---:|---:|---:|---:|---:|---:|---:|---:|---:|---:|")
	for _, h := range p.Holdings {
		change := "-"
		if h.ChangePct.Valid {
			change = Percent(h.ChangePct.Decimal)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %d | %s | %s | %s | %s | %s | %s |\n",
			statusMark(h.Status()),
			h.Symbol,
			h.Name,
			Money(h.AvgCost),
			Price(h.LastPrice),
			change,
			h.Quantity,
			Money(h.Invested),
			Money(h.CurrentValue),
			Percent(h.ProfitabilityPct),
			Money(h.DividendsTotal),
			Money(h.DividendsPerShare),
			Money(h.FairValueThreshold),
		)
	}
	return b.String()
}

// OpportunitiesMarkdown lists holdings priced at or below their fair value threshold.
func OpportunitiesMarkdown(opps []models.Opportunity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Opportunities\n\n")
	if len(opps) == 0 {
		fmt.Fprintln(&b, "No holding is priced at or below its fair value threshold.")
		return b.String()
	}
	fmt.Fprintf(&b, "%d holding(s) priced at or below the %d%% yield threshold:\n\n", len(opps), models.RequiredYieldPct)
	fmt.Fprintln(&b, "| Symbol | Company | Price | Fair Value | Discount |")
	fmt.Fprintln(&b, "|:---|:---|---:|---:|---:|")
	for _, o := range opps {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			o.Symbol, o.Name, Money(o.LastPrice), Money(o.FairValueThreshold), o.DiscountPct().StringFixed(2)+"%")
	}
	return b.String()
}

// SummaryMarkdown renders the aggregate figures.
func SummaryMarkdown(s models.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Summary\n\n")
	fmt.Fprintln(&b, "| | |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Holdings | %d |\n", s.Holdings)
	fmt.Fprintf(&b, "| Total invested | %s |\n", Money(s.TotalInvested))
	fmt.Fprintf(&b, "| Current value | %s |\n", Money(s.TotalCurrentValue))
	fmt.Fprintf(&b, "| Average return | %s |\n", Percent(s.AverageProfitability))
	fmt.Fprintf(&b, "| Positive / negative | %d / %d |\n", s.Positive, s.Negative)
	fmt.Fprintf(&b, "| Opportunities | %d |\n", s.Opportunities)

	ranked := func(title string, rows []models.RankedHolding, format func(decimal.Decimal) string) {
		if len(rows) == 0 {
			return
		}
		fmt.Fprintf(&b, "\n## %s\n\n", title)
		for i, r := range rows {
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, r.Symbol, format(r.Value))
		}
	}
	ranked("Top return", s.TopProfitability, Percent)
	ranked("Top dividends", s.TopDividends, Money)
	return b.String()
}

// RefreshMarkdown reports the outcome of a quote refresh.
func RefreshMarkdown(res portfolio.RefreshResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Refreshed %d quote(s) in %s", res.Refreshed, res.Duration.Round(time.Millisecond))
	if res.Stale > 0 {
		fmt.Fprintf(&b, ", %d from an expired cache entry", res.Stale)
	}
	fmt.Fprintln(&b, ".")
	if len(res.Missing) > 0 {
		fmt.Fprintf(&b, "\nNo quote for: %s\n", strings.Join(res.Missing, ", "))
	}
	return b.String()
}
