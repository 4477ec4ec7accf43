package repository

import (
	"context"
	"fmt"

	"investment-monitor/models"
)

// RecordQuote appends a fetched quote to the archive.
func (r *Repository) RecordQuote(ctx context.Context, q models.Quote) error {
	timer := r.metrics.NewTimer()
	_, err := r.db.Exec(ctx, `
		INSERT INTO quote_history (symbol, price, change_pct, fetched_at)
		VALUES ($1, $2, $3, $4)
	`, q.Symbol, q.Price, q.ChangePct, q.FetchedAt)
	r.observe(timer, "insert", "quote_history", err)

	if err != nil {
		return fmt.Errorf("failed to record quote for %s: %w", q.Symbol, err)
	}
	return nil
}

// LatestQuotes returns the most recent archived quote of every symbol.
func (r *Repository) LatestQuotes(ctx context.Context) ([]models.Quote, error) {
	timer := r.metrics.NewTimer()
	quotes, err := r.latestQuotes(ctx)
	r.observe(timer, "select", "quote_history", err)
	return quotes, err
}

func (r *Repository) latestQuotes(ctx context.Context) ([]models.Quote, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT ON (symbol) symbol, price, change_pct, fetched_at
		FROM quote_history
		ORDER BY symbol, fetched_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query quote history: %w", err)
	}
	defer rows.Close()

	var quotes []models.Quote
	for rows.Next() {
		var q models.Quote
		if err := rows.Scan(&q.Symbol, &q.Price, &q.ChangePct, &q.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		quotes = append(quotes, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quote history: %w", err)
	}

	return quotes, nil
}

// PruneQuotes deletes archived quotes older than the newest keep per symbol.
func (r *Repository) PruneQuotes(ctx context.Context, keep int) (int64, error) {
	timer := r.metrics.NewTimer()
	result, err := r.db.Exec(ctx, `
		DELETE FROM quote_history
		WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY symbol ORDER BY fetched_at DESC) AS rn
				FROM quote_history
			) ranked
			WHERE rn > $1
		)
	`, keep)
	r.observe(timer, "delete", "quote_history", err)

	if err != nil {
		return 0, fmt.Errorf("failed to prune quote history: %w", err)
	}
	return result.RowsAffected(), nil
}
