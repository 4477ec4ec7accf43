package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestFairValueThreshold(t *testing.T) {
	tests := []struct {
		name string
		dps  string
		want string
	}{
		{name: "zero dividends", dps: "0", want: "0"},
		{name: "exact", dps: "1.2", want: "20"},
		{name: "rounded to cents", dps: "1", want: "16.67"},
		{name: "small dividend", dps: "0.35", want: "5.83"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FairValueThreshold(dec(tt.dps))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("FairValueThreshold(%s) = %s, want %s", tt.dps, got, tt.want)
			}
		})
	}
}

func TestProfitability(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		invested string
		want     string
	}{
		{name: "gain", value: "1100", invested: "1000", want: "10"},
		{name: "loss", value: "900", invested: "1000", want: "-10"},
		{name: "rounded", value: "1000", invested: "3000", want: "-66.67"},
		{name: "zero invested", value: "500", invested: "0", want: "0"},
		{name: "negative invested", value: "500", invested: "-10", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Profitability(dec(tt.value), dec(tt.invested))
			if !got.Equal(dec(tt.want)) {
				t.Errorf("Profitability(%s, %s) = %s, want %s", tt.value, tt.invested, got, tt.want)
			}
		})
	}
}

func TestHolding_Recompute(t *testing.T) {
	t.Run("with price", func(t *testing.T) {
		h := Holding{
			Symbol:            "PETR4",
			Quantity:          100,
			Invested:          dec("2500"),
			LastPrice:         decimal.NewNullDecimal(dec("30.15")),
			DividendsPerShare: dec("2.4"),
		}
		h.Recompute()

		if !h.CurrentValue.Equal(dec("3015")) {
			t.Errorf("CurrentValue = %s, want 3015", h.CurrentValue)
		}
		if !h.ProfitabilityPct.Equal(dec("20.6")) {
			t.Errorf("ProfitabilityPct = %s, want 20.6", h.ProfitabilityPct)
		}
		if !h.FairValueThreshold.Equal(dec("40")) {
			t.Errorf("FairValueThreshold = %s, want 40", h.FairValueThreshold)
		}
	})

	t.Run("without price", func(t *testing.T) {
		h := Holding{Symbol: "VALE3", Quantity: 10, Invested: dec("700")}
		h.Recompute()

		if !h.CurrentValue.IsZero() {
			t.Errorf("CurrentValue = %s, want 0", h.CurrentValue)
		}
		if !h.ProfitabilityPct.Equal(dec("-100")) {
			t.Errorf("ProfitabilityPct = %s, want -100", h.ProfitabilityPct)
		}
	})

	t.Run("nothing invested", func(t *testing.T) {
		h := Holding{Symbol: "ITSA4", Quantity: 10, LastPrice: decimal.NewNullDecimal(dec("10"))}
		h.Recompute()

		if !h.ProfitabilityPct.IsZero() {
			t.Errorf("ProfitabilityPct = %s, want 0", h.ProfitabilityPct)
		}
	})
}

func TestHolding_ApplyQuote(t *testing.T) {
	fetched := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	t.Run("positive price", func(t *testing.T) {
		h := Holding{Symbol: "BBAS3", Quantity: 50, Invested: dec("1000")}
		ok := h.ApplyQuote(Quote{Price: dec("22.00"), ChangePct: dec("-1.5"), FetchedAt: fetched})

		if !ok {
			t.Fatal("ApplyQuote returned false")
		}
		if !h.LastPrice.Valid || !h.LastPrice.Decimal.Equal(dec("22")) {
			t.Errorf("LastPrice = %v, want 22", h.LastPrice)
		}
		if !h.CurrentValue.Equal(dec("1100")) {
			t.Errorf("CurrentValue = %s, want 1100", h.CurrentValue)
		}
		if !h.ProfitabilityPct.Equal(dec("10")) {
			t.Errorf("ProfitabilityPct = %s, want 10", h.ProfitabilityPct)
		}
		if !h.QuotedAt.Equal(fetched) {
			t.Errorf("QuotedAt = %v, want %v", h.QuotedAt, fetched)
		}
	})

	t.Run("older quote ignored", func(t *testing.T) {
		h := Holding{Symbol: "BBAS3", Quantity: 50, Invested: dec("1000")}
		h.ApplyQuote(Quote{Price: dec("20"), FetchedAt: fetched})

		if h.ApplyQuote(Quote{Price: dec("10"), FetchedAt: fetched.Add(-time.Hour), Stale: true}) {
			t.Error("ApplyQuote should reject a quote older than the current price")
		}
		if !h.LastPrice.Decimal.Equal(dec("20")) || !h.QuotedAt.Equal(fetched) {
			t.Errorf("row changed to %v at %v", h.LastPrice, h.QuotedAt)
		}
		if !h.ApplyQuote(Quote{Price: dec("21"), FetchedAt: fetched}) {
			t.Error("a quote from the same instant should apply")
		}
	})

	t.Run("zero price ignored", func(t *testing.T) {
		h := Holding{Symbol: "BBAS3", Quantity: 50, Invested: dec("1000")}
		if h.ApplyQuote(Quote{Price: decimal.Zero}) {
			t.Error("ApplyQuote should reject a zero price")
		}
		if h.LastPrice.Valid {
			t.Error("LastPrice should stay absent")
		}
	})
}

func TestHolding_IsOpportunity(t *testing.T) {
	tests := []struct {
		name      string
		price     *string
		threshold string
		want      bool
	}{
		{name: "below threshold", price: strPtr("18.00"), threshold: "20.00", want: true},
		{name: "at threshold", price: strPtr("20.00"), threshold: "20.00", want: true},
		{name: "above threshold", price: strPtr("22.00"), threshold: "20.00", want: false},
		{name: "no price", price: nil, threshold: "20.00", want: false},
		{name: "no dividend data", price: strPtr("1.00"), threshold: "0", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Holding{FairValueThreshold: dec(tt.threshold)}
			if tt.price != nil {
				h.LastPrice = decimal.NewNullDecimal(dec(*tt.price))
			}
			if got := h.IsOpportunity(); got != tt.want {
				t.Errorf("IsOpportunity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHolding_Status(t *testing.T) {
	undervalued := Holding{
		LastPrice:          decimal.NewNullDecimal(dec("10")),
		FairValueThreshold: dec("12"),
		ProfitabilityPct:   dec("-5"),
	}
	if got := undervalued.Status(); got != HoldingStatusUndervalued {
		t.Errorf("Status() = %s, want %s", got, HoldingStatusUndervalued)
	}

	positive := Holding{ProfitabilityPct: dec("3.2")}
	if got := positive.Status(); got != HoldingStatusPositive {
		t.Errorf("Status() = %s, want %s", got, HoldingStatusPositive)
	}

	flat := Holding{ProfitabilityPct: decimal.Zero}
	if got := flat.Status(); got != HoldingStatusNegative {
		t.Errorf("Status() = %s, want %s", got, HoldingStatusNegative)
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("  petr4 "); got != "PETR4" {
		t.Errorf("NormalizeSymbol() = %q, want PETR4", got)
	}
}

func strPtr(s string) *string {
	return &s
}
