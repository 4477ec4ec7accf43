package portfolio

import (
	"context"
	"sync"

	"investment-monitor/models"
)

// Store loads and saves the whole portfolio.
type Store interface {
	Load(ctx context.Context) (models.Portfolio, error)
	Save(ctx context.Context, p models.Portfolio) error
}

// QuoteSource serves quotes by provider symbol. *cache.QuoteCache implements it.
type QuoteSource interface {
	Get(ctx context.Context, symbol string) (models.Quote, error)
}

// SymbolMapper converts between stored and provider symbols.
type SymbolMapper interface {
	ProviderSymbol(symbol string) string
	BareSymbol(symbol string) string
}

// MemoryStore keeps the portfolio in memory. It is used when no persistent
// backend is configured and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	p     models.Portfolio
	saves int
}

// NewMemoryStore returns a MemoryStore holding a copy of p.
func NewMemoryStore(p models.Portfolio) *MemoryStore {
	return &MemoryStore{p: p.Clone()}
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context) (models.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.p.Clone(), nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, p models.Portfolio) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.p = p.Clone()
	s.saves++
	return nil
}

// Saves returns how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
