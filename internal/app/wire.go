package app

import (
	"context"
	"fmt"

	"investment-monitor/cache"
	"investment-monitor/config"
	"investment-monitor/internal/storage"
	"investment-monitor/observability"
	"investment-monitor/portfolio"
	"investment-monitor/repository"
	"investment-monitor/services"
)

// NewProvider creates the quote provider selected by cfg.
func NewProvider(cfg *config.Config) (services.QuoteProvider, error) {
	switch cfg.Quotes.Provider {
	case config.ProviderYahoo, "":
		return services.NewYahooProvider(cfg.FetchTimeout()), nil
	case config.ProviderAlphaVantage:
		if !cfg.HasAlphaVantage() {
			return nil, fmt.Errorf("alpha vantage selected but ALPHA_VANTAGE_API_KEY is not set")
		}
		return services.NewAlphaVantageProvider(cfg.AlphaVantage.APIKey, cfg.FetchTimeout()), nil
	case config.ProviderAlpaca:
		if !cfg.HasAlpaca() {
			return nil, fmt.Errorf("alpaca selected but ALPACA_API_KEY or ALPACA_API_SECRET is not set")
		}
		return services.NewAlpacaProvider(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.BaseURL), nil
	case config.ProviderFMP:
		if !cfg.HasFMP() {
			return nil, fmt.Errorf("fmp selected but FMP_API_KEY is not set")
		}
		return services.NewFMPProvider(cfg.FMP.APIKey, cfg.FetchTimeout()), nil
	default:
		return nil, fmt.Errorf("unknown quote provider %q", cfg.Quotes.Provider)
	}
}

// Build wires the application from cfg: provider behind a circuit breaker,
// quote cache, persistence (PostgreSQL when DATABASE_URL is set, otherwise
// the JSON data file) and the engine, then loads the stored portfolio.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	provider, err := NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	breakers := services.GetGlobalRegistry()
	guarded := services.NewGuardedProvider(provider, breakers, services.DefaultRetryConfig)

	cacheOpts := []cache.Option{
		cache.WithTTL(cfg.CacheTTL()),
		cache.WithFetchTimeout(cfg.FetchTimeout()),
	}

	var store portfolio.Store
	var repo *repository.Repository
	if cfg.HasDatabase() {
		repo, err = repository.NewRepository(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			return nil, err
		}
		store = repo
		cacheOpts = append(cacheOpts, cache.WithArchive(repo))
	} else {
		fs, err := storage.NewFileStore(cfg.Storage.DataFile)
		if err != nil {
			return nil, err
		}
		store = fs
	}

	quotes := cache.New(guarded, cacheOpts...)
	engine := portfolio.New(quotes, store,
		portfolio.WithConcurrency(cfg.Refresh.Concurrency),
		portfolio.WithSymbolMapper(services.NewSymbolFormat(cfg.Quotes.SymbolSuffix)),
	)

	a := New(cfg, engine, quotes, store).WithBreakers(breakers)

	if _, err := engine.Load(ctx); err != nil {
		if repo != nil {
			repo.Close()
		}
		return nil, err
	}

	if repo != nil {
		if _, err := quotes.Warm(ctx); err != nil {
			observability.Warn("failed to warm quote cache", "error", err)
		}
	}

	observability.Info("application ready",
		"provider", provider.Name(),
		"store", storeName(store),
		"cache_ttl", cfg.CacheTTL(),
		"schedule", cfg.Refresh.Schedule)
	return a, nil
}

func storeName(s portfolio.Store) string {
	if b, ok := s.(interface{ Backend() string }); ok {
		return b.Backend()
	}
	return "memory"
}
