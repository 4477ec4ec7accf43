// Package portfolio owns the authoritative holdings table. It applies market
// quotes and user edits, keeps derived fields consistent, and hands out
// immutable snapshots.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"investment-monitor/models"
	"investment-monitor/observability"
	"investment-monitor/services"
)

// DefaultConcurrency bounds parallel quote lookups during a refresh.
const DefaultConcurrency = 4

// Snapshot is a committed portfolio state. Version increases with every commit.
type Snapshot struct {
	Portfolio models.Portfolio `json:"portfolio"`
	Version   uint64           `json:"version"`
	Reason    string           `json:"reason"`
}

// Engine is the portfolio engine. All methods are safe for concurrent use.
// Readers always receive deep copies; writers commit a whole new table under
// the lock so no partially updated state is ever observable.
type Engine struct {
	mu      sync.RWMutex
	state   models.Portfolio
	version uint64

	quotes      QuoteSource
	store       Store
	symbols     SymbolMapper
	concurrency int
	metrics     *observability.Metrics
	now         func() time.Time

	refreshing atomic.Bool

	saveMu       sync.Mutex
	savedVersion uint64

	subsMu    sync.Mutex
	subs      map[int]chan Snapshot
	nextSub   int
	published uint64
	closed    bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithConcurrency sets the number of parallel quote lookups during a refresh.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithSymbolMapper replaces the default B3 symbol format.
func WithSymbolMapper(m SymbolMapper) Option {
	return func(e *Engine) {
		if m != nil {
			e.symbols = m
		}
	}
}

// WithMetrics records on m instead of the global metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an empty Engine. Call Load to populate it from store.
func New(quotes QuoteSource, store Store, opts ...Option) *Engine {
	e := &Engine{
		state:       models.Portfolio{Holdings: []models.Holding{}},
		quotes:      quotes,
		store:       store,
		symbols:     services.NewSymbolFormat(services.DefaultSymbolSuffix),
		concurrency: DefaultConcurrency,
		now:         time.Now,
		subs:        make(map[int]chan Snapshot),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = NewMemoryStore(models.Portfolio{})
	}
	if e.metrics == nil {
		e.metrics = observability.GetMetrics()
	}
	return e
}

// Load replaces the in-memory table with the stored portfolio. Symbols are
// normalised and derived fields recomputed; duplicates are rejected.
func (e *Engine) Load(ctx context.Context) (models.Portfolio, error) {
	timer := e.metrics.NewTimer()
	p, err := e.store.Load(ctx)
	timer.ObserveStore(storeBackend(e.store), "load", err)
	if err != nil {
		return models.Portfolio{}, fmt.Errorf("failed to load portfolio: %w", err)
	}

	p, err = e.prepare(p)
	if err != nil {
		return models.Portfolio{}, err
	}

	snap := e.commit("load", func(next *models.Portfolio) {
		*next = p
	})
	observability.Info("portfolio loaded", "holdings", len(snap.Portfolio.Holdings))
	return snap.Portfolio, nil
}

// Replace swaps the whole table for p, as when importing a legacy file, and persists it.
func (e *Engine) Replace(ctx context.Context, p models.Portfolio) (models.Portfolio, error) {
	p, err := e.prepare(p)
	if err != nil {
		e.metrics.RecordEdit("replace", outcome(err))
		return models.Portfolio{}, err
	}
	snap := e.commit("replace", func(next *models.Portfolio) {
		*next = p
	})
	err = e.persist(ctx, snap)
	e.metrics.RecordEdit("replace", outcome(err))
	return snap.Portfolio, err
}

func (e *Engine) prepare(p models.Portfolio) (models.Portfolio, error) {
	p = p.Clone()
	if p.Holdings == nil {
		p.Holdings = []models.Holding{}
	}
	for i := range p.Holdings {
		p.Holdings[i].Symbol = e.symbols.BareSymbol(p.Holdings[i].Symbol)
		if p.Holdings[i].Name == "" {
			p.Holdings[i].Name = p.Holdings[i].Symbol
		}
	}
	if err := p.Validate(); err != nil {
		return models.Portfolio{}, err
	}
	p.RecomputeAll()
	return p, nil
}

// Snapshot returns a deep copy of the committed table.
func (e *Engine) Snapshot() models.Portfolio {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

// Version returns the current commit version.
func (e *Engine) Version() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.version
}

// Current returns the committed table together with its version.
func (e *Engine) Current() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return Snapshot{Portfolio: e.state.Clone(), Version: e.version, Reason: "current"}
}

// Holding returns the row for symbol.
func (e *Engine) Holding(symbol string) (models.Holding, error) {
	sym := e.symbols.BareSymbol(symbol)
	e.mu.RLock()
	defer e.mu.RUnlock()
	h, ok := e.state.Get(sym)
	if !ok {
		return models.Holding{}, fmt.Errorf("%w: %s", models.ErrNotFound, sym)
	}
	return h, nil
}

// Opportunities returns the holdings priced at or below their fair value
// threshold, in portfolio order. It is computed on every call.
func (e *Engine) Opportunities() []models.Opportunity {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Opportunities()
}

// Summary returns the aggregate figures of the committed table.
func (e *Engine) Summary() models.Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.Summarize(e.state)
}

// Save persists the committed table on request.
func (e *Engine) Save(ctx context.Context) error {
	e.mu.RLock()
	snap := Snapshot{Portfolio: e.state.Clone(), Version: e.version, Reason: "save"}
	e.mu.RUnlock()
	return e.persist(ctx, snap)
}

// commit installs a change that cannot fail.
func (e *Engine) commit(reason string, fn func(next *models.Portfolio)) Snapshot {
	snap, _ := e.install(reason, func(next *models.Portfolio) error {
		fn(next)
		return nil
	})
	return snap
}

// install applies fn to a copy of the latest state under the write lock and
// makes the copy the committed state. If fn fails nothing changes.
func (e *Engine) install(reason string, fn func(next *models.Portfolio) error) (Snapshot, error) {
	e.mu.Lock()
	next := e.state.Clone()
	if err := fn(&next); err != nil {
		e.mu.Unlock()
		return Snapshot{}, err
	}
	next.UpdatedAt = e.now()
	e.state = next
	e.version++
	snap := Snapshot{Portfolio: next.Clone(), Version: e.version, Reason: reason}
	opportunities := len(next.Opportunities())
	e.mu.Unlock()

	e.metrics.SetPortfolioSize(len(snap.Portfolio.Holdings), opportunities)
	e.publish(snap)
	return snap, nil
}

// persist saves snap unless a newer version has already been saved.
func (e *Engine) persist(ctx context.Context, snap Snapshot) error {
	e.saveMu.Lock()
	defer e.saveMu.Unlock()

	if snap.Version < e.savedVersion {
		observability.Debug("skipping save of superseded snapshot",
			"version", snap.Version,
			"saved_version", e.savedVersion)
		return nil
	}

	timer := e.metrics.NewTimer()
	err := e.store.Save(ctx, snap.Portfolio)
	timer.ObserveStore(storeBackend(e.store), "save", err)
	if err != nil {
		observability.WithError(err).Error("failed to persist portfolio", "version", snap.Version)
		return fmt.Errorf("%w: %w", models.ErrPersistence, err)
	}
	e.savedVersion = snap.Version
	return nil
}

// storeBackend names a store for metrics.
func storeBackend(s Store) string {
	if n, ok := s.(interface{ Backend() string }); ok {
		return n.Backend()
	}
	return "memory"
}

// outcome labels an edit result for metrics.
func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, models.ErrPersistence):
		return "persistence_error"
	case errors.Is(err, models.ErrDuplicateSymbol):
		return "duplicate"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
