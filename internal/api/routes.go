package api

import (
	"net/http"

	"investment-monitor/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware(cfg.HTTP.CORSAllowedOrigins))
	r.Use(MetricsMiddleware)

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	// Snapshot stream; long-lived, so outside the request timeout
	r.Get("/ws", h.HandleStream)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout()))

		// Health check
		r.Get("/health", h.HandleHealth)

		// Portfolio
		r.Get("/portfolio", h.HandleGetPortfolio)
		r.Get("/opportunities", h.HandleGetOpportunities)
		r.Get("/summary", h.HandleGetSummary)
		r.Post("/save", h.HandleSave)
		r.Post("/import", h.HandleImport)

		// Holdings
		r.Route("/holdings", func(r chi.Router) {
			r.Get("/", h.HandleGetPortfolio)
			r.Post("/", h.HandleAddHolding)
			r.Get("/{symbol}", h.HandleGetHolding)
			r.Patch("/{symbol}", h.HandleEditHolding)
			r.Delete("/{symbol}", h.HandleRemoveHolding)
		})

		// Quote refresh
		r.Route("/refresh", func(r chi.Router) {
			r.Post("/", h.HandleRefresh)
			r.Get("/jobs", h.HandleGetRefreshJobs)
			r.Get("/jobs/{id}", h.HandleGetRefreshJob)
		})

		// Quote cache
		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", h.HandleGetCacheStats)
			r.Post("/clear", h.HandleClearCache)
			r.Post("/prune", h.HandlePruneQuotes)
		})
	})

	return r
}
