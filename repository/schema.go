package repository

import (
	"context"
	"fmt"
)

// Schema creates the tables used by the repository.
const Schema = `
CREATE TABLE IF NOT EXISTS holdings (
    position            INTEGER NOT NULL,
    symbol              TEXT PRIMARY KEY,
    name                TEXT NOT NULL,
    avg_cost            NUMERIC(18, 4) NOT NULL DEFAULT 0,
    last_price          NUMERIC(18, 4),
    change_pct          NUMERIC(10, 4),
    quantity            BIGINT NOT NULL DEFAULT 0,
    invested            NUMERIC(18, 2) NOT NULL DEFAULT 0,
    dividends_total     NUMERIC(18, 2) NOT NULL DEFAULT 0,
    dividends_per_share NUMERIC(18, 4) NOT NULL DEFAULT 0,
    quoted_at           TIMESTAMPTZ,
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS quote_history (
    id         BIGSERIAL PRIMARY KEY,
    symbol     TEXT NOT NULL,
    price      NUMERIC(18, 4) NOT NULL,
    change_pct NUMERIC(10, 4) NOT NULL DEFAULT 0,
    fetched_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_quote_history_symbol_fetched ON quote_history(symbol, fetched_at DESC);
`

// EnsureSchema creates missing tables and indexes.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
