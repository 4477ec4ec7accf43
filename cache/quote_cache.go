// Package cache holds the time-bounded quote cache that sits between the
// portfolio engine and the market data provider.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"investment-monitor/models"
	"investment-monitor/observability"
)

// DefaultTTL is how long a fetched quote is served without asking the provider again.
const DefaultTTL = 30 * time.Minute

// DefaultFetchTimeout bounds a single provider call.
const DefaultFetchTimeout = 15 * time.Second

// Fetcher retrieves a quote from the market data provider.
type Fetcher interface {
	FetchQuote(ctx context.Context, symbol string) (models.Quote, error)
}

// Archive keeps fetched quotes across restarts.
type Archive interface {
	RecordQuote(ctx context.Context, q models.Quote) error
	LatestQuotes(ctx context.Context) ([]models.Quote, error)
}

type entry struct {
	price     decimal.Decimal
	changePct decimal.Decimal
	fetchedAt time.Time
}

func (e entry) quote(symbol string, stale bool) models.Quote {
	return models.Quote{
		Symbol:    symbol,
		Price:     e.price,
		ChangePct: e.changePct,
		FetchedAt: e.fetchedAt,
		Stale:     stale,
	}
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Entries     int   `json:"entries"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Fetches     int64 `json:"fetches"`
	Fallbacks   int64 `json:"fallbacks"`
	Unavailable int64 `json:"unavailable"`
}

// QuoteCache maps provider symbols to their most recent quote. Entries are
// fresh for the TTL; after that the next lookup goes to the provider, and the
// old entry is only served when that fetch fails.
type QuoteCache struct {
	mu      sync.RWMutex
	entries map[string]entry

	fetcher      Fetcher
	archive      Archive
	metrics      *observability.Metrics
	now          func() time.Time
	ttl          time.Duration
	fetchTimeout time.Duration

	flights singleflight.Group

	hits        atomic.Int64
	misses      atomic.Int64
	fetches     atomic.Int64
	fallbacks   atomic.Int64
	unavailable atomic.Int64
}

// Option configures a QuoteCache.
type Option func(*QuoteCache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *QuoteCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *QuoteCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithFetchTimeout overrides DefaultFetchTimeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *QuoteCache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// WithArchive records every successful fetch in a and lets Warm seed the cache from it.
func WithArchive(a Archive) Option {
	return func(c *QuoteCache) {
		c.archive = a
	}
}

// WithMetrics uses m instead of the global metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *QuoteCache) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a QuoteCache in front of fetcher.
func New(fetcher Fetcher, opts ...Option) *QuoteCache {
	c := &QuoteCache{
		entries:      make(map[string]entry),
		fetcher:      fetcher,
		now:          time.Now,
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.metrics == nil {
		c.metrics = observability.GetMetrics()
	}
	return c
}

// TTL returns the freshness window.
func (c *QuoteCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the quote for symbol. A fresh entry is served without I/O.
// Otherwise the provider is asked; concurrent lookups of the same symbol share
// one call. When the provider fails the previous entry is returned with Stale
// set, and without one the error wraps models.ErrQuoteUnavailable.
func (c *QuoteCache) Get(ctx context.Context, symbol string) (models.Quote, error) {
	if symbol == "" {
		return models.Quote{}, fmt.Errorf("%w: empty symbol", models.ErrInvalidInput)
	}

	if e, ok := c.fresh(symbol); ok {
		c.hits.Add(1)
		c.metrics.RecordCacheLookup(observability.CacheResultHit)
		return e.quote(symbol, false), nil
	}
	c.misses.Add(1)

	// The fetch outlives a cancelled caller so that other waiters and the
	// next lookup still benefit from it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.flights.DoChan(symbol, func() (any, error) {
		return c.fetch(fetchCtx, symbol)
	})

	select {
	case res := <-ch:
		if res.Err == nil {
			c.metrics.RecordCacheLookup(observability.CacheResultMiss)
			return res.Val.(entry).quote(symbol, false), nil
		}
		return c.fallback(symbol, res.Err)
	case <-ctx.Done():
		return c.fallback(symbol, ctx.Err())
	}
}

// Peek returns whatever is cached for symbol without contacting the provider.
func (c *QuoteCache) Peek(symbol string) (models.Quote, bool) {
	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()
	if !ok {
		return models.Quote{}, false
	}
	return e.quote(symbol, !c.isFresh(e)), true
}

func (c *QuoteCache) fresh(symbol string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[symbol]
	if !ok || !c.isFresh(e) {
		return entry{}, false
	}
	return e, true
}

func (c *QuoteCache) isFresh(e entry) bool {
	return c.now().Sub(e.fetchedAt) < c.ttl
}

func (c *QuoteCache) fetch(ctx context.Context, symbol string) (entry, error) {
	// Another flight may have filled the entry between our miss and now.
	if e, ok := c.fresh(symbol); ok {
		return e, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	c.fetches.Add(1)
	q, err := c.fetcher.FetchQuote(ctx, symbol)
	if err != nil {
		if !errors.Is(err, models.ErrProviderUnavailable) {
			err = fmt.Errorf("%w: %w", models.ErrProviderUnavailable, err)
		}
		return entry{}, err
	}
	if !q.Price.IsPositive() {
		return entry{}, fmt.Errorf("%w: non-positive price %s for %s", models.ErrProviderUnavailable, q.Price, symbol)
	}

	e := entry{price: q.Price, changePct: q.ChangePct, fetchedAt: c.now()}

	c.mu.Lock()
	c.entries[symbol] = e
	n := len(c.entries)
	c.mu.Unlock()
	c.metrics.SetCacheEntries(n)

	if c.archive != nil {
		if err := c.archive.RecordQuote(ctx, e.quote(symbol, false)); err != nil {
			observability.WithSymbol(symbol).Warn("failed to archive quote", "error", err)
		}
	}
	return e, nil
}

func (c *QuoteCache) fallback(symbol string, cause error) (models.Quote, error) {
	observability.WithSymbol(symbol).Warn("quote fetch failed", "error", cause)

	c.mu.RLock()
	e, ok := c.entries[symbol]
	c.mu.RUnlock()

	if ok {
		c.fallbacks.Add(1)
		c.metrics.RecordCacheLookup(observability.CacheResultStale)
		return e.quote(symbol, !c.isFresh(e)), nil
	}

	c.unavailable.Add(1)
	c.metrics.RecordCacheLookup(observability.CacheResultUnavailable)
	return models.Quote{}, fmt.Errorf("%w: %s: %w", models.ErrQuoteUnavailable, symbol, cause)
}

// Warm seeds the cache from the archive. Archived quotes keep their original
// fetch time, so old ones only serve as fallbacks. Entries already present
// and newer are kept. It returns the number of entries loaded.
func (c *QuoteCache) Warm(ctx context.Context) (int, error) {
	if c.archive == nil {
		return 0, nil
	}
	quotes, err := c.archive.LatestQuotes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load archived quotes: %w", err)
	}

	loaded := 0
	c.mu.Lock()
	for _, q := range quotes {
		if q.Symbol == "" || !q.Price.IsPositive() {
			continue
		}
		if cur, ok := c.entries[q.Symbol]; ok && !cur.fetchedAt.Before(q.FetchedAt) {
			continue
		}
		c.entries[q.Symbol] = entry{price: q.Price, changePct: q.ChangePct, fetchedAt: q.FetchedAt}
		loaded++
	}
	n := len(c.entries)
	c.mu.Unlock()

	c.metrics.SetCacheEntries(n)
	observability.Info("quote cache warmed from archive", "loaded", loaded, "archived", len(quotes))
	return loaded, nil
}

// Clear drops every entry. The next lookup of any symbol goes to the provider.
func (c *QuoteCache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry)
	c.mu.Unlock()

	c.metrics.RecordCacheClear()
	observability.Info("quote cache cleared", "dropped", n)
}

// Len returns the number of cached symbols, fresh or not.
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns counters accumulated since the cache was created.
func (c *QuoteCache) Stats() Stats {
	return Stats{
		Entries:     c.Len(),
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Fetches:     c.fetches.Load(),
		Fallbacks:   c.fallbacks.Load(),
		Unavailable: c.unavailable.Load(),
	}
}
