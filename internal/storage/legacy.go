package storage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"investment-monitor/models"
)

// legacyRecord is one row of the spreadsheet export. Derived columns
// (Valor Atual, Rentabilidade, Preço Teto) are ignored and recomputed.
type legacyRecord struct {
	Symbol            string              `json:"Papel"`
	Company           string              `json:"Empresa"`
	AvgCost           decimal.NullDecimal `json:"Preço Médio"`
	LastPrice         decimal.NullDecimal `json:"Preço Atual"`
	ChangePct         decimal.NullDecimal `json:"Variação"`
	Quantity          decimal.NullDecimal `json:"Quantidade"`
	Invested          decimal.NullDecimal `json:"Total Investido"`
	DividendsTotal    decimal.NullDecimal `json:"Dividendos"`
	DividendsPerShare decimal.NullDecimal `json:"Dividendos/Ação"`
}

// ReadLegacy decodes a legacy record list from r.
func ReadLegacy(r io.Reader) (models.Portfolio, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.Portfolio{}, fmt.Errorf("failed to read legacy records: %w", err)
	}
	return DecodeLegacy(data)
}

// DecodeLegacy converts the record list written by the spreadsheet tool.
// Rows without a symbol are skipped.
func DecodeLegacy(data []byte) (models.Portfolio, error) {
	var records []legacyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return models.Portfolio{}, fmt.Errorf("failed to unmarshal legacy records: %w", err)
	}

	p := models.Portfolio{Holdings: make([]models.Holding, 0, len(records))}
	for i, rec := range records {
		sym := models.NormalizeSymbol(rec.Symbol)
		if sym == "" {
			continue
		}
		qty := orZero(rec.Quantity)
		if !qty.IsInteger() {
			return models.Portfolio{}, fmt.Errorf("%w: record %d (%s): fractional quantity %s", models.ErrInvalidInput, i, sym, qty)
		}

		h := models.Holding{
			Symbol:            sym,
			Name:              rec.Company,
			AvgCost:           orZero(rec.AvgCost),
			Quantity:          qty.IntPart(),
			Invested:          orZero(rec.Invested),
			DividendsTotal:    orZero(rec.DividendsTotal),
			DividendsPerShare: orZero(rec.DividendsPerShare),
		}
		if rec.LastPrice.Valid && rec.LastPrice.Decimal.IsPositive() {
			h.LastPrice = rec.LastPrice
			if rec.ChangePct.Valid {
				h.ChangePct = rec.ChangePct
			}
		}
		h.Recompute()
		p.Holdings = append(p.Holdings, h)
	}
	return p, nil
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
