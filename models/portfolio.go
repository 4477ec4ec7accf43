package models

import (
	"fmt"
	"time"
)

// Portfolio is an ordered collection of holdings keyed by symbol.
type Portfolio struct {
	Holdings  []Holding `json:"holdings"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy that shares no backing array with p.
func (p Portfolio) Clone() Portfolio {
	holdings := make([]Holding, len(p.Holdings))
	copy(holdings, p.Holdings)
	return Portfolio{Holdings: holdings, UpdatedAt: p.UpdatedAt}
}

// Index returns the position of symbol in the portfolio, or -1.
func (p Portfolio) Index(symbol string) int {
	for i := range p.Holdings {
		if p.Holdings[i].Symbol == symbol {
			return i
		}
	}
	return -1
}

// Get returns the holding for symbol.
func (p Portfolio) Get(symbol string) (Holding, bool) {
	if i := p.Index(symbol); i >= 0 {
		return p.Holdings[i], true
	}
	return Holding{}, false
}

// Symbols returns the held symbols in portfolio order.
func (p Portfolio) Symbols() []string {
	symbols := make([]string, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		symbols = append(symbols, h.Symbol)
	}
	return symbols
}

// Validate checks symbol identity constraints.
func (p Portfolio) Validate() error {
	seen := make(map[string]struct{}, len(p.Holdings))
	for _, h := range p.Holdings {
		if h.Symbol == "" {
			return fmt.Errorf("%w: holding without symbol", ErrInvalidInput)
		}
		if _, ok := seen[h.Symbol]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSymbol, h.Symbol)
		}
		seen[h.Symbol] = struct{}{}
	}
	return nil
}

// RecomputeAll refreshes the derived fields of every holding.
func (p *Portfolio) RecomputeAll() {
	for i := range p.Holdings {
		p.Holdings[i].Recompute()
	}
}

// Opportunities returns the holdings priced at or below their fair value
// threshold, in portfolio order.
func (p Portfolio) Opportunities() []Opportunity {
	out := make([]Opportunity, 0)
	for _, h := range p.Holdings {
		if !h.IsOpportunity() {
			continue
		}
		out = append(out, Opportunity{
			Symbol:             h.Symbol,
			Name:               h.Name,
			LastPrice:          h.LastPrice.Decimal,
			FairValueThreshold: h.FairValueThreshold,
		})
	}
	return out
}
