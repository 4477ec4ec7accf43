package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"investment-monitor/config"
	"investment-monitor/internal/app"
	"investment-monitor/models"
	"investment-monitor/observability"
	"investment-monitor/portfolio"

	"github.com/go-chi/chi/v5"
)

// maxImportBytes bounds the body of an import request.
const maxImportBytes = 4 << 20

// defaultArchiveKeep is how many archived quotes per symbol a prune keeps.
const defaultArchiveKeep = 100

// Handler handles HTTP API requests
type Handler struct {
	app *app.App
	cfg *config.Config

	// streamSubscribed, when set, runs after a stream subscribes and before
	// it reads the current table.
	streamSubscribed func()
}

// NewHandler creates a new Handler
func NewHandler(application *app.App, cfg *config.Config) *Handler {
	return &Handler{app: application, cfg: cfg}
}

// HoldingView is a table row with its presentation status.
type HoldingView struct {
	models.Holding
	Status        models.HoldingStatus `json:"status"`
	IsOpportunity bool                 `json:"is_opportunity"`
}

// PortfolioResponse is the table as served to clients.
type PortfolioResponse struct {
	Holdings  []HoldingView `json:"holdings"`
	UpdatedAt time.Time     `json:"updated_at"`
	Warning   string        `json:"warning,omitempty"`
}

// EditRequest sets one field of a holding.
type EditRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// RefreshAccepted is returned when a refresh runs in the background.
type RefreshAccepted struct {
	JobID string `json:"job_id"`
	Href  string `json:"href"`
}

// StatusResponse represents a status response
type StatusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func newPortfolioResponse(p models.Portfolio) PortfolioResponse {
	rows := make([]HoldingView, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		rows = append(rows, newHoldingView(h))
	}
	return PortfolioResponse{Holdings: rows, UpdatedAt: p.UpdatedAt}
}

func newHoldingView(h models.Holding) HoldingView {
	return HoldingView{Holding: h, Status: h.Status(), IsOpportunity: h.IsOpportunity()}
}

// HandleHealth returns the health status of the application
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.Health(r.Context()))
}

// HandleGetPortfolio returns the whole table
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, newPortfolioResponse(h.app.Portfolio()))
}

// HandleGetOpportunities returns holdings priced at or below their fair value threshold
func (h *Handler) HandleGetOpportunities(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.Opportunities())
}

// HandleGetSummary returns aggregate portfolio figures
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.Summary())
}

// HandleGetHolding returns one row
func (h *Handler) HandleGetHolding(w http.ResponseWriter, r *http.Request) {
	holding, err := h.app.Holding(chi.URLParam(r, "symbol"))
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.jsonResponse(w, newHoldingView(holding))
}

// HandleAddHolding appends a holding to the table
func (h *Handler) HandleAddHolding(w http.ResponseWriter, r *http.Request) {
	var req portfolio.NewHolding
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.app.AddHolding(r.Context(), req)
	h.mutationResponse(w, http.StatusCreated, p, err)
}

// HandleEditHolding sets quantity or invested capital of a holding
func (h *Handler) HandleEditHolding(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.app.EditField(r.Context(), chi.URLParam(r, "symbol"), req.Field, req.Value)
	h.mutationResponse(w, http.StatusOK, p, err)
}

// HandleRemoveHolding deletes a holding
func (h *Handler) HandleRemoveHolding(w http.ResponseWriter, r *http.Request) {
	p, err := h.app.RemoveHolding(r.Context(), chi.URLParam(r, "symbol"))
	h.mutationResponse(w, http.StatusOK, p, err)
}

// HandleRefresh refreshes quotes. With ?async=true the refresh runs in the
// background and the response carries the job id.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		id, err := h.app.StartRefresh()
		if err != nil {
			h.errorResponse(w, err)
			return
		}
		w.Header().Set("Location", "/api/refresh/jobs/"+id)
		h.jsonStatus(w, http.StatusAccepted, RefreshAccepted{JobID: id, Href: "/api/refresh/jobs/" + id})
		return
	}

	res, err := h.app.Refresh(r.Context())
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.jsonResponse(w, res)
}

// HandleGetRefreshJobs lists recent background refreshes
func (h *Handler) HandleGetRefreshJobs(w http.ResponseWriter, r *http.Request) {
	jobs := h.app.Jobs()
	if limit := h.ParseLimitParam(r, len(jobs)); limit < len(jobs) {
		jobs = jobs[:limit]
	}
	h.jsonResponse(w, jobs)
}

// HandleGetRefreshJob returns one background refresh
func (h *Handler) HandleGetRefreshJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.app.Job(chi.URLParam(r, "id"))
	if !ok {
		h.jsonError(w, "Refresh job not found", http.StatusNotFound)
		return
	}
	h.jsonResponse(w, job)
}

// HandleClearCache drops every cached quote
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	n := h.app.ClearCache()
	h.jsonResponse(w, map[string]int{"cleared": n})
}

// HandleGetCacheStats returns quote cache counters
func (h *Handler) HandleGetCacheStats(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, h.app.CacheStats())
}

// HandlePruneQuotes trims the quote archive to ?keep= quotes per symbol
func (h *Handler) HandlePruneQuotes(w http.ResponseWriter, r *http.Request) {
	keep := defaultArchiveKeep
	if v := r.URL.Query().Get("keep"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.jsonError(w, "Invalid keep parameter", http.StatusBadRequest)
			return
		}
		keep = n
	}

	n, err := h.app.PruneQuotes(r.Context(), keep)
	if err != nil {
		h.errorResponse(w, err)
		return
	}
	h.jsonResponse(w, map[string]int64{"deleted": n})
}

// HandleSave persists the current table
func (h *Handler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if err := h.app.Save(r.Context()); err != nil {
		h.errorResponse(w, err)
		return
	}
	h.jsonResponse(w, StatusResponse{Status: "saved"})
}

// HandleImport replaces the table with legacy records from the request body
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	p, err := h.app.Import(r.Context(), body)
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.jsonError(w, "Import too large", http.StatusRequestEntityTooLarge)
		return
	}
	h.mutationResponse(w, http.StatusOK, p, err)
}

// ParseLimitParam parses the limit query parameter
func (h *Handler) ParseLimitParam(r *http.Request, defaultLimit int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			return l
		}
	}
	return defaultLimit
}

// mutationResponse writes the table after an edit. A persistence failure
// still returns the committed table, with a warning.
func (h *Handler) mutationResponse(w http.ResponseWriter, status int, p models.Portfolio, err error) {
	if err != nil && !errors.Is(err, models.ErrPersistence) {
		h.errorResponse(w, err)
		return
	}
	resp := newPortfolioResponse(p)
	if err != nil {
		observability.Error("portfolio change not persisted", "error", err)
		resp.Warning = err.Error()
	}
	h.jsonStatus(w, status, resp)
}

// errorResponse maps domain errors to HTTP statuses.
func (h *Handler) errorResponse(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		observability.Warn("request failed", "status", status, "error", err)
	}
	h.jsonError(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateSymbol), errors.Is(err, models.ErrRefreshInProgress):
		return http.StatusConflict
	case errors.Is(err, models.ErrQuoteUnavailable), errors.Is(err, models.ErrProviderUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data interface{}) {
	h.jsonStatus(w, http.StatusOK, data)
}

func (h *Handler) jsonStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		observability.Warn("failed to encode response", "error", fmt.Errorf("encode: %w", err))
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
