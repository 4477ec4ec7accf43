package portfolio

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"investment-monitor/models"
)

// Editable fields.
const (
	FieldQuantity = "quantity"
	FieldInvested = "invested"
)

// fieldAliases accepts the column labels of the original spreadsheet.
var fieldAliases = map[string]string{
	"quantity":        FieldQuantity,
	"quantidade":      FieldQuantity,
	"invested":        FieldInvested,
	"total investido": FieldInvested,
	"total_investido": FieldInvested,
}

var maxQuantity = decimal.NewFromInt(1 << 53)

// NewHolding is the input of AddHolding.
type NewHolding struct {
	Symbol            string          `json:"symbol"`
	Name              string          `json:"name"`
	Quantity          int64           `json:"quantity"`
	AvgCost           decimal.Decimal `json:"avg_cost"`
	DividendsPerShare decimal.Decimal `json:"dividends_per_share"`
}

// ParseField resolves a field name or alias.
func ParseField(field string) (string, error) {
	f, ok := fieldAliases[strings.ToLower(strings.TrimSpace(field))]
	if !ok {
		return "", fmt.Errorf("%w: unknown field %q", models.ErrInvalidInput, field)
	}
	return f, nil
}

// ParseAmount parses a non-negative decimal. A lone comma is accepted as the
// decimal separator.
func ParseAmount(value string) (decimal.Decimal, error) {
	s := strings.TrimSpace(value)
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q is not a number", models.ErrInvalidInput, value)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q is negative", models.ErrInvalidInput, value)
	}
	return d, nil
}

// ParseQuantity parses a non-negative whole number of shares.
func ParseQuantity(value string) (int64, error) {
	d, err := ParseAmount(value)
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: quantity %q is not a whole number", models.ErrInvalidInput, value)
	}
	if d.GreaterThan(maxQuantity) {
		return 0, fmt.Errorf("%w: quantity %q is out of range", models.ErrInvalidInput, value)
	}
	return d.IntPart(), nil
}

// EditField sets quantity or invested capital for symbol and persists the
// result. A quantity of zero removes the row. Invalid input, unknown fields
// and unknown symbols leave the table unchanged.
func (e *Engine) EditField(ctx context.Context, symbol, field, value string) (models.Portfolio, error) {
	p, op, err := e.editField(ctx, symbol, field, value)
	e.metrics.RecordEdit(op, outcome(err))
	return p, err
}

func (e *Engine) editField(ctx context.Context, symbol, field, value string) (models.Portfolio, string, error) {
	op := "edit"
	f, err := ParseField(field)
	if err != nil {
		return models.Portfolio{}, op, err
	}

	var qty int64
	var amount decimal.Decimal
	switch f {
	case FieldQuantity:
		qty, err = ParseQuantity(value)
		if qty == 0 && err == nil {
			op = "remove"
		}
	case FieldInvested:
		amount, err = ParseAmount(value)
	}
	if err != nil {
		return models.Portfolio{}, op, err
	}

	sym := e.symbols.BareSymbol(symbol)
	snap, err := e.mutate(ctx, op, func(next *models.Portfolio) error {
		i := next.Index(sym)
		if i < 0 {
			return fmt.Errorf("%w: %s", models.ErrNotFound, sym)
		}
		if f == FieldQuantity && qty == 0 {
			next.Holdings = append(next.Holdings[:i], next.Holdings[i+1:]...)
			return nil
		}
		h := &next.Holdings[i]
		switch f {
		case FieldQuantity:
			h.Quantity = qty
		case FieldInvested:
			h.Invested = amount
		}
		h.Recompute()
		return nil
	})
	return snap, op, err
}

// AddHolding appends a new row. Invested is AvgCost times Quantity, dividends
// start at zero except the supplied per-share figure, and there is no quote yet.
func (e *Engine) AddHolding(ctx context.Context, in NewHolding) (models.Portfolio, error) {
	snap, err := e.addHolding(ctx, in)
	e.metrics.RecordEdit("add", outcome(err))
	return snap, err
}

func (e *Engine) addHolding(ctx context.Context, in NewHolding) (models.Portfolio, error) {
	sym := e.symbols.BareSymbol(in.Symbol)
	switch {
	case sym == "":
		return models.Portfolio{}, fmt.Errorf("%w: symbol is required", models.ErrInvalidInput)
	case in.Quantity < 0:
		return models.Portfolio{}, fmt.Errorf("%w: negative quantity", models.ErrInvalidInput)
	case in.AvgCost.IsNegative():
		return models.Portfolio{}, fmt.Errorf("%w: negative average cost", models.ErrInvalidInput)
	case in.DividendsPerShare.IsNegative():
		return models.Portfolio{}, fmt.Errorf("%w: negative dividends per share", models.ErrInvalidInput)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = sym
	}
	h := models.Holding{
		Symbol:            sym,
		Name:              name,
		AvgCost:           in.AvgCost,
		Quantity:          in.Quantity,
		Invested:          in.AvgCost.Mul(decimal.NewFromInt(in.Quantity)).Round(2),
		DividendsTotal:    decimal.Zero,
		DividendsPerShare: in.DividendsPerShare,
	}
	h.Recompute()

	return e.mutate(ctx, "add", func(next *models.Portfolio) error {
		if next.Index(sym) >= 0 {
			return fmt.Errorf("%w: %s", models.ErrDuplicateSymbol, sym)
		}
		next.Holdings = append(next.Holdings, h)
		return nil
	})
}

// RemoveHolding deletes the row for symbol and persists the result.
func (e *Engine) RemoveHolding(ctx context.Context, symbol string) (models.Portfolio, error) {
	sym := e.symbols.BareSymbol(symbol)
	snap, err := e.mutate(ctx, "remove", func(next *models.Portfolio) error {
		i := next.Index(sym)
		if i < 0 {
			return fmt.Errorf("%w: %s", models.ErrNotFound, sym)
		}
		next.Holdings = append(next.Holdings[:i], next.Holdings[i+1:]...)
		return nil
	})
	e.metrics.RecordEdit("remove", outcome(err))
	return snap, err
}

// mutate runs fn against a copy of the latest state and, if it succeeds,
// commits and persists the result. A save failure is returned as
// models.ErrPersistence together with the committed snapshot.
func (e *Engine) mutate(ctx context.Context, reason string, fn func(next *models.Portfolio) error) (models.Portfolio, error) {
	snap, err := e.install(reason, fn)
	if err != nil {
		return models.Portfolio{}, err
	}
	if err := e.persist(ctx, snap); err != nil {
		return snap.Portfolio, err
	}
	return snap.Portfolio, nil
}
