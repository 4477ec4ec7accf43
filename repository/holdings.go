package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"investment-monitor/models"
)

const selectHoldings = `
	SELECT symbol, name, avg_cost, last_price, change_pct, quantity, invested,
	       dividends_total, dividends_per_share, quoted_at, updated_at
	FROM holdings
	ORDER BY position, symbol
`

const insertHolding = `
	INSERT INTO holdings (position, symbol, name, avg_cost, last_price, change_pct, quantity,
	                      invested, dividends_total, dividends_per_share, quoted_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

// Load returns the stored portfolio in its saved order. Derived fields are
// left for the caller to recompute.
func (r *Repository) Load(ctx context.Context) (models.Portfolio, error) {
	timer := r.metrics.NewTimer()
	p, err := r.loadHoldings(ctx)
	r.observe(timer, "select", "holdings", err)
	return p, err
}

func (r *Repository) loadHoldings(ctx context.Context) (models.Portfolio, error) {
	rows, err := r.db.Query(ctx, selectHoldings)
	if err != nil {
		return models.Portfolio{}, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	p := models.Portfolio{Holdings: []models.Holding{}}
	for rows.Next() {
		var h models.Holding
		var quotedAt *time.Time
		var updatedAt time.Time
		err := rows.Scan(&h.Symbol, &h.Name, &h.AvgCost, &h.LastPrice, &h.ChangePct, &h.Quantity,
			&h.Invested, &h.DividendsTotal, &h.DividendsPerShare, &quotedAt, &updatedAt)
		if err != nil {
			return models.Portfolio{}, fmt.Errorf("failed to scan holding: %w", err)
		}
		if quotedAt != nil {
			h.QuotedAt = *quotedAt
		}
		if updatedAt.After(p.UpdatedAt) {
			p.UpdatedAt = updatedAt
		}
		p.Holdings = append(p.Holdings, h)
	}
	if err := rows.Err(); err != nil {
		return models.Portfolio{}, fmt.Errorf("failed to iterate holdings: %w", err)
	}

	return p, nil
}

// Save replaces the stored holdings with p in a single transaction.
func (r *Repository) Save(ctx context.Context, p models.Portfolio) error {
	timer := r.metrics.NewTimer()
	err := r.saveHoldings(ctx, p)
	r.observe(timer, "replace", "holdings", err)
	return err
}

func (r *Repository) saveHoldings(ctx context.Context, p models.Portfolio) error {
	return r.inTx(ctx, func(tx *Repository) error {
		return tx.replaceHoldings(ctx, p)
	})
}

func (r *Repository) replaceHoldings(ctx context.Context, p models.Portfolio) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM holdings`); err != nil {
		return fmt.Errorf("failed to clear holdings: %w", err)
	}
	if len(p.Holdings) == 0 {
		return nil
	}

	updatedAt := p.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	batch := &pgx.Batch{}
	for i, h := range p.Holdings {
		var quotedAt *time.Time
		if !h.QuotedAt.IsZero() {
			t := h.QuotedAt
			quotedAt = &t
		}
		batch.Queue(insertHolding, i, h.Symbol, h.Name, h.AvgCost, h.LastPrice, h.ChangePct, h.Quantity,
			h.Invested, h.DividendsTotal, h.DividendsPerShare, quotedAt, updatedAt)
	}

	results := r.db.SendBatch(ctx, batch)
	for _, h := range p.Holdings {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert holding %s: %w", h.Symbol, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to insert holdings: %w", err)
	}
	return nil
}
