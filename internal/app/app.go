// Package app is the application facade shared by the HTTP server and the
// CLI. It owns the portfolio engine, the quote cache and background refreshes.
package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"investment-monitor/cache"
	"investment-monitor/config"
	"investment-monitor/internal/storage"
	"investment-monitor/models"
	"investment-monitor/observability"
	"investment-monitor/portfolio"
	"investment-monitor/services"
)

// maxJobHistory bounds the refresh jobs kept for status queries.
const maxJobHistory = 20

// App struct holds application dependencies
type App struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *config.Config

	engine    *portfolio.Engine
	quotes    *cache.QuoteCache
	store     portfolio.Store
	breakers  *services.CircuitBreakerRegistry
	scheduler *Scheduler

	jobsMu   sync.Mutex
	jobs     map[string]*RefreshJob
	jobOrder []string
	active   string
	stopping bool
	wg       sync.WaitGroup

	shutdownOnce sync.Once
}

// New creates an App around an already wired engine and cache.
func New(cfg *config.Config, engine *portfolio.Engine, quotes *cache.QuoteCache, store portfolio.Store) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		engine: engine,
		quotes: quotes,
		store:  store,
		jobs:   make(map[string]*RefreshJob),
	}
}

// WithBreakers exposes the provider circuit breakers in Health.
func (a *App) WithBreakers(r *services.CircuitBreakerRegistry) *App {
	a.breakers = r
	return a
}

// Startup starts the refresh schedule when one is configured.
func (a *App) Startup(ctx context.Context) error {
	if !a.cfg.HasSchedule() {
		return nil
	}
	a.scheduler = NewScheduler()
	if err := a.scheduler.AddJob(a.cfg.Refresh.Schedule, refreshJob{app: a}); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	a.scheduler.Start()
	return nil
}

// Shutdown stops the schedule, cancels running refreshes and waits for them
// until ctx expires, then releases the store.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.shutdownOnce.Do(func() {
		if a.scheduler != nil {
			a.scheduler.Stop()
		}
		a.jobsMu.Lock()
		a.stopping = true
		a.jobsMu.Unlock()
		a.cancel()

		done := make(chan struct{})
		go func() {
			a.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("refresh jobs still running: %w", ctx.Err())
		}

		a.engine.Close()
		if c, ok := a.store.(interface{ Close() }); ok {
			c.Close()
		}
		observability.Info("application stopped")
	})
	return err
}

// Engine returns the portfolio engine.
func (a *App) Engine() *portfolio.Engine {
	return a.engine
}

// Portfolio returns the current table.
func (a *App) Portfolio() models.Portfolio {
	return a.engine.Snapshot()
}

// Current returns the table and its version as one consistent snapshot.
func (a *App) Current() portfolio.Snapshot {
	return a.engine.Current()
}

// Holding returns one row.
func (a *App) Holding(symbol string) (models.Holding, error) {
	return a.engine.Holding(symbol)
}

// Opportunities returns holdings priced at or below their fair value threshold.
func (a *App) Opportunities() []models.Opportunity {
	return a.engine.Opportunities()
}

// Summary returns the aggregate figures.
func (a *App) Summary() models.Summary {
	return a.engine.Summary()
}

// Refresh runs a refresh and waits for it. It fails with
// models.ErrRefreshInProgress while a background job is running.
func (a *App) Refresh(ctx context.Context) (portfolio.RefreshResult, error) {
	a.jobsMu.Lock()
	busy := a.active != ""
	a.jobsMu.Unlock()
	if busy {
		return portfolio.RefreshResult{}, models.ErrRefreshInProgress
	}
	return a.engine.RefreshQuotes(ctx)
}

// EditField sets quantity or invested capital of a holding.
func (a *App) EditField(ctx context.Context, symbol, field, value string) (models.Portfolio, error) {
	return a.engine.EditField(ctx, symbol, field, value)
}

// AddHolding appends a holding.
func (a *App) AddHolding(ctx context.Context, in portfolio.NewHolding) (models.Portfolio, error) {
	return a.engine.AddHolding(ctx, in)
}

// RemoveHolding deletes a holding.
func (a *App) RemoveHolding(ctx context.Context, symbol string) (models.Portfolio, error) {
	return a.engine.RemoveHolding(ctx, symbol)
}

// Save persists the current table.
func (a *App) Save(ctx context.Context) error {
	return a.engine.Save(ctx)
}

// Import replaces the table with the legacy records read from r. Malformed
// records are reported as models.ErrInvalidInput.
func (a *App) Import(ctx context.Context, r io.Reader) (models.Portfolio, error) {
	p, err := storage.ReadLegacy(r)
	if err != nil {
		return models.Portfolio{}, fmt.Errorf("%w: %w", models.ErrInvalidInput, err)
	}
	return a.engine.Replace(ctx, p)
}

// ClearCache drops every cached quote and returns how many were dropped.
func (a *App) ClearCache() int {
	n := a.quotes.Len()
	a.quotes.Clear()
	return n
}

// quoteArchive is implemented by stores that keep fetched quotes.
type quoteArchive interface {
	PruneQuotes(ctx context.Context, keep int) (int64, error)
}

// PruneQuotes trims the quote archive to the newest keep quotes per symbol.
// Only the PostgreSQL store keeps an archive.
func (a *App) PruneQuotes(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		return 0, fmt.Errorf("%w: keep must be at least 1", models.ErrInvalidInput)
	}
	archive, ok := a.store.(quoteArchive)
	if !ok {
		return 0, fmt.Errorf("%w: the %s store has no quote archive", models.ErrInvalidInput, storeName(a.store))
	}
	n, err := archive.PruneQuotes(ctx, keep)
	if err != nil {
		return 0, err
	}
	observability.Info("quote archive pruned", "deleted", n, "keep", keep)
	return n, nil
}

// CacheStats returns quote cache counters.
func (a *App) CacheStats() cache.Stats {
	return a.quotes.Stats()
}

// Subscribe streams committed snapshots.
func (a *App) Subscribe() (<-chan portfolio.Snapshot, func()) {
	return a.engine.Subscribe()
}

// HealthStatus reports the state of the application's dependencies.
type HealthStatus struct {
	Status     string                                   `json:"status"`
	Time       time.Time                                `json:"time"`
	Holdings   int                                      `json:"holdings"`
	Version    uint64                                   `json:"version"`
	Refreshing bool                                     `json:"refreshing"`
	Cache      cache.Stats                              `json:"cache"`
	Store      string                                   `json:"store"`
	StoreError string                                   `json:"store_error,omitempty"`
	Breakers   map[string]services.CircuitBreakerStatus `json:"circuit_breakers,omitempty"`
}

// Health checks the store and summarises runtime state. Status is
// "degraded" when the store is unreachable or a provider breaker is open.
func (a *App) Health(ctx context.Context) HealthStatus {
	h := HealthStatus{
		Status:     "healthy",
		Time:       time.Now(),
		Holdings:   len(a.engine.Snapshot().Holdings),
		Version:    a.engine.Version(),
		Refreshing: a.engine.Refreshing(),
		Cache:      a.quotes.Stats(),
		Store:      "memory",
	}
	if b, ok := a.store.(interface{ Backend() string }); ok {
		h.Store = b.Backend()
	}
	if hc, ok := a.store.(interface{ Health(context.Context) error }); ok {
		if err := hc.Health(ctx); err != nil {
			h.Status = "degraded"
			h.StoreError = err.Error()
		}
	}
	if a.breakers != nil {
		h.Breakers = a.breakers.Status()
		for _, s := range h.Breakers {
			if s.State == "open" {
				h.Status = "degraded"
			}
		}
	}
	return h
}
