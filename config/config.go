package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Quote provider names accepted in QUOTE_PROVIDER.
const (
	ProviderYahoo        = "yahoo"
	ProviderAlphaVantage = "alphavantage"
	ProviderAlpaca       = "alpaca"
	ProviderFMP          = "fmp"
)

// Config holds all application configuration
type Config struct {
	// Storage configuration
	Storage StorageConfig

	// Database configuration
	Database DatabaseConfig

	// Quote configuration
	Quotes QuoteConfig

	// External service configurations
	Alpaca       AlpacaConfig
	AlphaVantage AlphaVantageConfig
	FMP          FMPConfig

	// Refresh configuration
	Refresh RefreshConfig

	// HTTP configuration
	HTTP HTTPConfig

	// Logging configuration
	Log LogConfig
}

// StorageConfig holds file storage configuration
type StorageConfig struct {
	DataFile string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// QuoteConfig holds quote provider and cache configuration
type QuoteConfig struct {
	Provider            string
	SymbolSuffix        string
	CacheTTLMinutes     int
	FetchTimeoutSeconds int
}

// AlpacaConfig holds Alpaca API configuration
type AlpacaConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// AlphaVantageConfig holds Alpha Vantage API configuration
type AlphaVantageConfig struct {
	APIKey string
}

// FMPConfig holds Financial Modeling Prep API configuration
type FMPConfig struct {
	APIKey string
}

// RefreshConfig holds quote refresh configuration
type RefreshConfig struct {
	Concurrency int
	Schedule    string // cron spec, empty disables scheduled refresh
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr                  string
	CORSAllowedOrigins    string
	RequestTimeoutSeconds int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Format string // text or json
	Level  string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			DataFile: getEnvString("DATA_FILE", "dados_salvos.json"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Quotes: QuoteConfig{
			Provider:            strings.ToLower(getEnvString("QUOTE_PROVIDER", ProviderYahoo)),
			SymbolSuffix:        getEnvStringAllowEmpty("QUOTE_SYMBOL_SUFFIX", ".SA"),
			CacheTTLMinutes:     getEnvInt("QUOTE_CACHE_TTL_MINUTES", 30),
			FetchTimeoutSeconds: getEnvInt("QUOTE_FETCH_TIMEOUT_SECONDS", 15),
		},
		Alpaca: AlpacaConfig{
			APIKey:    os.Getenv("ALPACA_API_KEY"),
			APISecret: os.Getenv("ALPACA_API_SECRET"),
			BaseURL:   os.Getenv("ALPACA_DATA_URL"),
		},
		AlphaVantage: AlphaVantageConfig{
			APIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),
		},
		FMP: FMPConfig{
			APIKey: os.Getenv("FMP_API_KEY"),
		},
		Refresh: RefreshConfig{
			Concurrency: getEnvInt("REFRESH_CONCURRENCY", 4),
			Schedule:    strings.TrimSpace(os.Getenv("REFRESH_SCHEDULE")),
		},
		HTTP: HTTPConfig{
			Addr:                  getEnvString("HTTP_ADDR", ":8080"),
			CORSAllowedOrigins:    getEnvString("CORS_ALLOWED_ORIGINS", "*"),
			RequestTimeoutSeconds: getEnvInt("HTTP_REQUEST_TIMEOUT_SECONDS", 60),
		},
		Log: LogConfig{
			Format: strings.ToLower(getEnvString("LOG_FORMAT", "text")),
			Level:  getEnvString("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Quotes.Provider {
	case ProviderYahoo:
	case ProviderAlphaVantage:
		if !c.HasAlphaVantage() {
			return fmt.Errorf("QUOTE_PROVIDER=%s requires ALPHA_VANTAGE_API_KEY", c.Quotes.Provider)
		}
	case ProviderAlpaca:
		if !c.HasAlpaca() {
			return fmt.Errorf("QUOTE_PROVIDER=%s requires ALPACA_API_KEY and ALPACA_API_SECRET", c.Quotes.Provider)
		}
	case ProviderFMP:
		if !c.HasFMP() {
			return fmt.Errorf("QUOTE_PROVIDER=%s requires FMP_API_KEY", c.Quotes.Provider)
		}
	default:
		return fmt.Errorf("unknown QUOTE_PROVIDER %q (want %s, %s, %s or %s)",
			c.Quotes.Provider, ProviderYahoo, ProviderAlphaVantage, ProviderAlpaca, ProviderFMP)
	}

	// Validate positive integers
	if c.Quotes.CacheTTLMinutes <= 0 {
		return fmt.Errorf("QUOTE_CACHE_TTL_MINUTES must be positive, got %d", c.Quotes.CacheTTLMinutes)
	}
	if c.Quotes.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("QUOTE_FETCH_TIMEOUT_SECONDS must be positive, got %d", c.Quotes.FetchTimeoutSeconds)
	}
	if c.Refresh.Concurrency <= 0 {
		return fmt.Errorf("REFRESH_CONCURRENCY must be positive, got %d", c.Refresh.Concurrency)
	}
	if c.HTTP.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.HTTP.RequestTimeoutSeconds)
	}

	if c.Refresh.Schedule != "" {
		if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
			return fmt.Errorf("invalid REFRESH_SCHEDULE %q: %w", c.Refresh.Schedule, err)
		}
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.Log.Format)
	}

	return nil
}

// HasDatabase returns true if database configuration is available
func (c *Config) HasDatabase() bool {
	return c.Database.URL != ""
}

// HasAlpaca returns true if Alpaca configuration is available
func (c *Config) HasAlpaca() bool {
	return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
}

// HasAlphaVantage returns true if Alpha Vantage configuration is available
func (c *Config) HasAlphaVantage() bool {
	return c.AlphaVantage.APIKey != ""
}

// HasFMP returns true if Financial Modeling Prep configuration is available
func (c *Config) HasFMP() bool {
	return c.FMP.APIKey != ""
}

// HasSchedule returns true if scheduled refresh is enabled
func (c *Config) HasSchedule() bool {
	return c.Refresh.Schedule != ""
}

// CacheTTL returns the quote cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Quotes.CacheTTLMinutes) * time.Minute
}

// FetchTimeout returns the per-fetch provider timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Quotes.FetchTimeoutSeconds) * time.Second
}

// RequestTimeout bounds a single HTTP request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.RequestTimeoutSeconds) * time.Second
}

// Production reports whether logs should be JSON.
func (c *Config) Production() bool {
	return c.Log.Format == "json"
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

// getEnvStringAllowEmpty distinguishes an unset variable from one set to "".
func getEnvStringAllowEmpty(key, defaultValue string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

// NewTestConfig creates a Config with default values for testing
func NewTestConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			DataFile: "dados_salvos.json",
		},
		Database: DatabaseConfig{
			URL: "",
		},
		Quotes: QuoteConfig{
			Provider:            ProviderYahoo,
			SymbolSuffix:        ".SA",
			CacheTTLMinutes:     30,
			FetchTimeoutSeconds: 15,
		},
		Alpaca: AlpacaConfig{
			APIKey:    "",
			APISecret: "",
		},
		AlphaVantage: AlphaVantageConfig{
			APIKey: "",
		},
		Refresh: RefreshConfig{
			Concurrency: 4,
		},
		HTTP: HTTPConfig{
			Addr:                  ":8080",
			CORSAllowedOrigins:    "*",
			RequestTimeoutSeconds: 60,
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}
