package services

import (
	"strings"

	"investment-monitor/models"
)

// DefaultSymbolSuffix is the exchange suffix Yahoo uses for B3 listings.
const DefaultSymbolSuffix = ".SA"

// SymbolFormat converts between the bare tickers stored in the portfolio and
// the form the quote provider expects.
type SymbolFormat struct {
	Suffix string
}

// NewSymbolFormat returns a SymbolFormat that appends suffix. An empty suffix
// leaves symbols untouched.
func NewSymbolFormat(suffix string) SymbolFormat {
	return SymbolFormat{Suffix: strings.ToUpper(strings.TrimSpace(suffix))}
}

// ProviderSymbol returns the provider form of a bare ticker.
func (f SymbolFormat) ProviderSymbol(symbol string) string {
	bare := f.BareSymbol(symbol)
	if bare == "" {
		return ""
	}
	return bare + f.Suffix
}

// BareSymbol normalises symbol and strips the provider suffix if present.
func (f SymbolFormat) BareSymbol(symbol string) string {
	s := models.NormalizeSymbol(symbol)
	if f.Suffix != "" {
		s = strings.TrimSuffix(s, f.Suffix)
	}
	return s
}
