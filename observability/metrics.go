package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "investment_monitor"

// Cache lookup results.
const (
	CacheResultHit         = "hit"
	CacheResultMiss        = "miss"
	CacheResultStale       = "stale"
	CacheResultUnavailable = "unavailable"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Quote cache metrics
	QuoteCacheLookupsTotal *prometheus.CounterVec
	QuoteCacheEntries      prometheus.Gauge
	QuoteCacheClearsTotal  prometheus.Counter

	// Portfolio metrics
	RefreshRunsTotal     *prometheus.CounterVec
	RefreshDuration      prometheus.Histogram
	RefreshQuotesApplied prometheus.Counter
	RefreshQuotesMissing prometheus.Counter
	Holdings             prometheus.Gauge
	Opportunities        prometheus.Gauge
	EditsTotal           *prometheus.CounterVec

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// Store metrics
	StoreOperationsTotal *prometheus.CounterVec
	StoreDuration        *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec
	StreamClients       prometheus.Gauge

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// refreshBuckets cover a full portfolio refresh, which can take a minute on a cold cache.
var refreshBuckets = []float64{.05, .1, .5, 1, 2.5, 5, 10, 30, 60, 120}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		QuoteCacheLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quote_cache",
				Name:      "lookups_total",
				Help:      "Quote cache lookups by result (hit, miss, stale, unavailable)",
			},
			[]string{"result"},
		),
		QuoteCacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "quote_cache",
				Name:      "entries",
				Help:      "Number of symbols held by the quote cache",
			},
		),
		QuoteCacheClearsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "quote_cache",
				Name:      "clears_total",
				Help:      "Total number of quote cache clears",
			},
		),

		RefreshRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "portfolio",
				Name:      "refresh_runs_total",
				Help:      "Total number of quote refresh runs by status",
			},
			[]string{"status"},
		),
		RefreshDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "portfolio",
				Name:      "refresh_duration_seconds",
				Help:      "Duration of quote refresh runs in seconds",
				Buckets:   refreshBuckets,
			},
		),
		RefreshQuotesApplied: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "portfolio",
				Name:      "refresh_quotes_applied_total",
				Help:      "Total number of holdings updated by refresh runs",
			},
		),
		RefreshQuotesMissing: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "portfolio",
				Name:      "refresh_quotes_missing_total",
				Help:      "Total number of holdings left untouched because no quote was available",
			},
		),
		Holdings: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "portfolio",
				Name:      "holdings",
				Help:      "Number of holdings in the portfolio",
			},
		),
		Opportunities: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "portfolio",
				Name:      "opportunities",
				Help:      "Number of holdings priced at or below their fair value threshold",
			},
		),
		EditsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "portfolio",
				Name:      "edits_total",
				Help:      "Total number of portfolio edits by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),

		StoreOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "operations_total",
				Help:      "Total number of portfolio store operations",
			},
			[]string{"backend", "operation", "status"},
		),
		StoreDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "duration_seconds",
				Help:      "Duration of portfolio store operations in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"backend", "operation"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "database",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "database",
				Name:      "queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "database",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),
		StreamClients: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "stream_clients",
				Help:      "Number of connected snapshot stream clients",
			},
		),

		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance on the default registry.
// Subsequent calls return the same instance.
func InitMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = NewMetrics(nil)
	})
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	return InitMetrics()
}

// RecordCacheLookup records a quote cache lookup outcome
func (m *Metrics) RecordCacheLookup(result string) {
	m.QuoteCacheLookupsTotal.WithLabelValues(result).Inc()
}

// SetCacheEntries sets the number of cached symbols
func (m *Metrics) SetCacheEntries(n int) {
	m.QuoteCacheEntries.Set(float64(n))
}

// RecordCacheClear records a quote cache clear
func (m *Metrics) RecordCacheClear() {
	m.QuoteCacheClearsTotal.Inc()
	m.QuoteCacheEntries.Set(0)
}

// RecordRefresh records a completed refresh run
func (m *Metrics) RecordRefresh(status string, applied, missing int, duration time.Duration) {
	m.RefreshRunsTotal.WithLabelValues(status).Inc()
	m.RefreshDuration.Observe(duration.Seconds())
	m.RefreshQuotesApplied.Add(float64(applied))
	m.RefreshQuotesMissing.Add(float64(missing))
}

// RecordRefreshRejected records a refresh refused because another one was running
func (m *Metrics) RecordRefreshRejected() {
	m.RefreshRunsTotal.WithLabelValues("rejected").Inc()
}

// SetPortfolioSize updates the holdings and opportunities gauges
func (m *Metrics) SetPortfolioSize(holdings, opportunities int) {
	m.Holdings.Set(float64(holdings))
	m.Opportunities.Set(float64(opportunities))
}

// RecordEdit records a portfolio edit
func (m *Metrics) RecordEdit(operation, outcome string) {
	m.EditsTotal.WithLabelValues(operation, outcome).Inc()
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(service, operation string) {
	m.ExternalAPIRequestsTotal.WithLabelValues(service, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(service, operation, errorType string) {
	m.ExternalAPIErrorsTotal.WithLabelValues(service, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(service, operation string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordStoreOperation records a portfolio store load or save
func (m *Metrics) RecordStoreOperation(backend, operation string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.StoreOperationsTotal.WithLabelValues(backend, operation, status).Inc()
	m.StoreDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, table).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error
func (m *Metrics) RecordDBError(operation, table string) {
	m.DBErrorsTotal.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// ObserveDB records the database query duration
func (t *Timer) ObserveDB(operation, table string) {
	t.metrics.RecordDBQuery(operation, table, time.Since(t.start))
}

// ObserveStore records a store operation with its outcome
func (t *Timer) ObserveStore(backend, operation string, err error) {
	t.metrics.RecordStoreOperation(backend, operation, err, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
