package portfolio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"investment-monitor/models"
	"investment-monitor/observability"
)

// RefreshResult describes one completed refresh.
type RefreshResult struct {
	Portfolio models.Portfolio `json:"portfolio"`
	Version   uint64           `json:"version"`
	// Refreshed counts rows that received a quote, stale fallbacks included.
	Refreshed int `json:"refreshed"`
	// Stale counts quotes served from an expired cache entry.
	Stale int `json:"stale"`
	// Missing lists symbols for which no usable quote was available, including
	// fallback quotes older than the row's price.
	Missing  []string      `json:"missing"`
	Duration time.Duration `json:"duration"`
}

// RefreshQuotes looks up a quote for every holding and folds the usable ones
// into the table. Lookups run outside the lock with bounded concurrency; the
// results are then applied to the latest committed state in one step, so
// edits made meanwhile are kept. Rows without a quote, or whose price is newer
// than the quote, are left untouched.
//
// Only one refresh runs at a time; a concurrent call fails with
// models.ErrRefreshInProgress. Refresh does not persist.
func (e *Engine) RefreshQuotes(ctx context.Context) (RefreshResult, error) {
	if !e.refreshing.CompareAndSwap(false, true) {
		e.metrics.RecordRefreshRejected()
		return RefreshResult{}, models.ErrRefreshInProgress
	}
	defer e.refreshing.Store(false)

	start := e.now()
	log := observability.WithContext(ctx)
	symbols := e.Snapshot().Symbols()

	var mu sync.Mutex
	quotes := make(map[string]models.Quote, len(symbols))

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for _, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			q, err := e.quotes.Get(ctx, e.symbols.ProviderSymbol(sym))
			if err != nil {
				log.Warn("quote unavailable, keeping previous values", "symbol", sym, "error", err)
				return nil
			}
			mu.Lock()
			quotes[sym] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		e.metrics.RecordRefresh("canceled", 0, 0, e.now().Sub(start))
		return RefreshResult{}, fmt.Errorf("refresh canceled: %w", err)
	}

	var refreshed, stale int
	missing := []string{}
	snap, _ := e.install("refresh", func(next *models.Portfolio) error {
		for i := range next.Holdings {
			h := &next.Holdings[i]
			q, ok := quotes[h.Symbol]
			if !ok || !h.ApplyQuote(q) {
				missing = append(missing, h.Symbol)
				continue
			}
			refreshed++
			if q.Stale {
				stale++
			}
		}
		return nil
	})

	result := RefreshResult{
		Portfolio: snap.Portfolio,
		Version:   snap.Version,
		Refreshed: refreshed,
		Stale:     stale,
		Missing:   missing,
		Duration:  e.now().Sub(start),
	}

	status := "success"
	if len(missing) > 0 {
		status = "partial"
	}
	e.metrics.RecordRefresh(status, refreshed, len(missing), result.Duration)
	log.Info("quotes refreshed",
		"holdings", len(snap.Portfolio.Holdings),
		"refreshed", refreshed,
		"stale", stale,
		"missing", len(missing),
		"duration", result.Duration)
	return result, nil
}

// Refreshing reports whether a refresh is running.
func (e *Engine) Refreshing() bool {
	return e.refreshing.Load()
}
