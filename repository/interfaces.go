package repository

import (
	"context"

	"investment-monitor/cache"
	"investment-monitor/models"
	"investment-monitor/portfolio"
)

// RepositoryInterface defines all repository operations
type RepositoryInterface interface {
	// Health and lifecycle
	Close()
	Health(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	// Holdings
	Load(ctx context.Context) (models.Portfolio, error)
	Save(ctx context.Context, p models.Portfolio) error

	// Quote archive
	RecordQuote(ctx context.Context, q models.Quote) error
	LatestQuotes(ctx context.Context) ([]models.Quote, error)
	PruneQuotes(ctx context.Context, keep int) (int64, error)
}

// Compile-time interface verification
var (
	_ RepositoryInterface = (*Repository)(nil)
	_ portfolio.Store     = (*Repository)(nil)
	_ cache.Archive       = (*Repository)(nil)
)
