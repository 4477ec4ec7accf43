package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"investment-monitor/cache"
	"investment-monitor/config"
	"investment-monitor/internal/app"
	"investment-monitor/models"
	"investment-monitor/portfolio"
)

// fakeFetcher serves fixed prices keyed by provider symbol
type fakeFetcher struct {
	mu     sync.Mutex
	prices map[string]string
	gate   chan struct{}
}

func (f *fakeFetcher) FetchQuote(ctx context.Context, symbol string) (models.Quote, error) {
	f.mu.Lock()
	price, ok := f.prices[symbol]
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return models.Quote{}, ctx.Err()
		}
	}
	if !ok {
		return models.Quote{}, fmt.Errorf("%w: %s", models.ErrProviderUnavailable, symbol)
	}
	return models.Quote{
		Symbol:    symbol,
		Price:     decimal.RequireFromString(price),
		FetchedAt: time.Now(),
	}, nil
}

// brokenStore loads fine but never saves
type brokenStore struct {
	*portfolio.MemoryStore
}

func (s *brokenStore) Save(ctx context.Context, p models.Portfolio) error {
	return errors.New("disk full")
}

func seedPortfolio() models.Portfolio {
	return models.Portfolio{Holdings: []models.Holding{
		{Symbol: "TAEE11", Name: "Taesa", Quantity: 100, Invested: decimal.RequireFromString("3000"), DividendsPerShare: decimal.RequireFromString("2.4")},
		{Symbol: "WEGE3", Name: "WEG", Quantity: 50, Invested: decimal.RequireFromString("2000"), DividendsPerShare: decimal.RequireFromString("0.6")},
	}}
}

func defaultPrices() map[string]string {
	return map[string]string{"TAEE11.SA": "35", "WEGE3.SA": "40"}
}

// testConfig returns a test configuration
func testConfig() *config.Config {
	return config.NewTestConfig()
}

// testApp creates an App over an in-memory store seeded with two holdings
func testApp(t *testing.T, f *fakeFetcher, store portfolio.Store) *app.App {
	t.Helper()
	if f == nil {
		f = &fakeFetcher{prices: defaultPrices()}
	}
	if store == nil {
		store = portfolio.NewMemoryStore(seedPortfolio())
	}
	quotes := cache.New(f, cache.WithFetchTimeout(time.Second))
	engine := portfolio.New(quotes, store)
	if _, err := engine.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	a := app.New(testConfig(), engine, quotes, store)
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

// testHandler creates a Handler with test config for testing
func testHandler(application *app.App) *Handler {
	return NewHandler(application, testConfig())
}

// testRouter creates a Chi router with test config for testing
func testRouter(application *app.App) http.Handler {
	cfg := testConfig()
	handler := NewHandler(application, cfg)
	return NewRouter(handler, cfg)
}

func serve(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodePortfolio(t *testing.T, w *httptest.ResponseRecorder) PortfolioResponse {
	t.Helper()
	var resp PortfolioResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHandler_Health(t *testing.T) {
	t.Run("health check with memory store", func(t *testing.T) {
		router := testRouter(testApp(t, nil, nil))

		w := serve(router, http.MethodGet, "/api/health", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}

		var response map[string]interface{}
		if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["status"] != "healthy" {
			t.Errorf("expected status healthy, got %v", response["status"])
		}
		if response["store"] != "memory" {
			t.Errorf("expected store memory, got %v", response["store"])
		}
		if response["holdings"] != float64(2) {
			t.Errorf("expected 2 holdings, got %v", response["holdings"])
		}
	})
}

func TestHandler_GetPortfolio(t *testing.T) {
	router := testRouter(testApp(t, nil, nil))

	for _, path := range []string{"/api/portfolio", "/api/holdings"} {
		t.Run(path, func(t *testing.T) {
			w := serve(router, http.MethodGet, path, "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d", w.Code)
			}
			resp := decodePortfolio(t, w)
			if len(resp.Holdings) != 2 {
				t.Fatalf("expected 2 holdings, got %d", len(resp.Holdings))
			}
			if resp.Holdings[0].Symbol != "TAEE11" {
				t.Errorf("expected TAEE11 first, got %s", resp.Holdings[0].Symbol)
			}
			if resp.Holdings[0].Status != models.HoldingStatusNegative {
				t.Errorf("expected negative status without a quote, got %s", resp.Holdings[0].Status)
			}
			if !resp.Holdings[0].FairValueThreshold.Equal(decimal.NewFromInt(40)) {
				t.Errorf("expected threshold 40, got %s", resp.Holdings[0].FairValueThreshold)
			}
		})
	}
}

func TestHandler_GetHolding(t *testing.T) {
	router := testRouter(testApp(t, nil, nil))

	t.Run("found with lowercase symbol", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/api/holdings/taee11", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var view HoldingView
		if err := json.NewDecoder(w.Body).Decode(&view); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if view.Symbol != "TAEE11" || view.Quantity != 100 {
			t.Errorf("unexpected holding %+v", view.Holding)
		}
	})

	t.Run("unknown symbol", func(t *testing.T) {
		w := serve(router, http.MethodGet, "/api/holdings/PETR4", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})
}

func TestHandler_AddHolding(t *testing.T) {
	t.Run("appends a row", func(t *testing.T) {
		router := testRouter(testApp(t, nil, nil))

		w := serve(router, http.MethodPost, "/api/holdings",
			`{"symbol":"bbas3","name":"Banco do Brasil","quantity":10,"avg_cost":"25.50","dividends_per_share":"3"}`)
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
		}
		resp := decodePortfolio(t, w)
		if len(resp.Holdings) != 3 {
			t.Fatalf("expected 3 holdings, got %d", len(resp.Holdings))
		}
		added := resp.Holdings[2]
		if added.Symbol != "BBAS3" {
			t.Errorf("expected BBAS3, got %s", added.Symbol)
		}
		if !added.Invested.Equal(decimal.RequireFromString("255")) {
			t.Errorf("expected invested 255, got %s", added.Invested)
		}
		if added.LastPrice.Valid {
			t.Error("expected no quote on a new row")
		}
	})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"duplicate symbol", `{"symbol":"TAEE11","quantity":1,"avg_cost":"10"}`, http.StatusConflict},
		{"missing symbol", `{"quantity":1,"avg_cost":"10"}`, http.StatusBadRequest},
		{"negative quantity", `{"symbol":"BBAS3","quantity":-1,"avg_cost":"10"}`, http.StatusBadRequest},
		{"invalid json", `{"symbol":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testRouter(testApp(t, nil, nil))
			w := serve(router, http.MethodPost, "/api/holdings", tt.body)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandler_EditHolding(t *testing.T) {
	t.Run("sets quantity", func(t *testing.T) {
		router := testRouter(testApp(t, nil, nil))

		w := serve(router, http.MethodPatch, "/api/holdings/TAEE11", `{"field":"quantity","value":"200"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		resp := decodePortfolio(t, w)
		if resp.Holdings[0].Quantity != 200 {
			t.Errorf("expected quantity 200, got %d", resp.Holdings[0].Quantity)
		}
		if resp.Warning != "" {
			t.Errorf("unexpected warning %q", resp.Warning)
		}
	})

	t.Run("sets invested capital", func(t *testing.T) {
		router := testRouter(testApp(t, nil, nil))

		w := serve(router, http.MethodPatch, "/api/holdings/WEGE3", `{"field":"invested","value":"2500.50"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		resp := decodePortfolio(t, w)
		if !resp.Holdings[1].Invested.Equal(decimal.RequireFromString("2500.50")) {
			t.Errorf("expected invested 2500.50, got %s", resp.Holdings[1].Invested)
		}
	})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown field", "/api/holdings/TAEE11", `{"field":"price","value":"10"}`, http.StatusBadRequest},
		{"fractional quantity", "/api/holdings/TAEE11", `{"field":"quantity","value":"1.5"}`, http.StatusBadRequest},
		{"unknown symbol", "/api/holdings/PETR4", `{"field":"quantity","value":"10"}`, http.StatusNotFound},
		{"invalid json", "/api/holdings/TAEE11", `not json`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testRouter(testApp(t, nil, nil))
			w := serve(router, http.MethodPatch, tt.path, tt.body)
			if w.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandler_EditHolding_PersistenceFailure(t *testing.T) {
	store := &brokenStore{MemoryStore: portfolio.NewMemoryStore(seedPortfolio())}
	a := testApp(t, nil, store)
	router := testRouter(a)

	w := serve(router, http.MethodPatch, "/api/holdings/TAEE11", `{"field":"quantity","value":"150"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	resp := decodePortfolio(t, w)
	if resp.Warning == "" {
		t.Error("expected a persistence warning")
	}
	if resp.Holdings[0].Quantity != 150 {
		t.Errorf("expected committed quantity 150, got %d", resp.Holdings[0].Quantity)
	}

	h, err := a.Holding("TAEE11")
	if err != nil || h.Quantity != 150 {
		t.Errorf("Holding() = %d, %v; want the edit kept in memory", h.Quantity, err)
	}
}

func TestHandler_RemoveHolding(t *testing.T) {
	router := testRouter(testApp(t, nil, nil))

	w := serve(router, http.MethodDelete, "/api/holdings/WEGE3", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if resp := decodePortfolio(t, w); len(resp.Holdings) != 1 {
		t.Errorf("expected 1 holding left, got %d", len(resp.Holdings))
	}

	w = serve(router, http.MethodDelete, "/api/holdings/WEGE3", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 on second delete, got %d", w.Code)
	}
}

func TestHandler_Refresh(t *testing.T) {
	t.Run("synchronous", func(t *testing.T) {
		router := testRouter(testApp(t, nil, nil))

		w := serve(router, http.MethodPost, "/api/refresh", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		var res portfolio.RefreshResult
		if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if res.Refreshed != 2 || len(res.Missing) != 0 {
			t.Errorf("expected 2 refreshed and none missing, got %d / %v", res.Refreshed, res.Missing)
		}
		if !res.Portfolio.Holdings[0].ProfitabilityPct.Equal(decimal.RequireFromString("16.67")) {
			t.Errorf("expected profitability 16.67, got %s", res.Portfolio.Holdings[0].ProfitabilityPct)
		}

		w = serve(router, http.MethodGet, "/api/opportunities", "")
		var opps []models.Opportunity
		if err := json.NewDecoder(w.Body).Decode(&opps); err != nil {
			t.Fatalf("failed to decode opportunities: %v", err)
		}
		if len(opps) != 1 || opps[0].Symbol != "TAEE11" {
			t.Errorf("expected TAEE11 as the only opportunity, got %+v", opps)
		}
	})

	t.Run("symbols without a quote are reported", func(t *testing.T) {
		f := &fakeFetcher{prices: map[string]string{"TAEE11.SA": "35"}}
		router := testRouter(testApp(t, f, nil))

		w := serve(router, http.MethodPost, "/api/refresh", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		var res portfolio.RefreshResult
		if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(res.Missing) != 1 || res.Missing[0] != "WEGE3" {
			t.Errorf("expected WEGE3 missing, got %v", res.Missing)
		}
	})

	t.Run("asynchronous", func(t *testing.T) {
		router := testRouter(testApp(t, nil, nil))

		w := serve(router, http.MethodPost, "/api/refresh?async=true", "")
		if w.Code != http.StatusAccepted {
			t.Fatalf("expected status 202, got %d", w.Code)
		}
		var accepted RefreshAccepted
		if err := json.NewDecoder(w.Body).Decode(&accepted); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if accepted.JobID == "" {
			t.Fatal("expected a job id")
		}
		if loc := w.Header().Get("Location"); loc != accepted.Href {
			t.Errorf("Location = %q, want %q", loc, accepted.Href)
		}

		var job app.RefreshJob
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			w = serve(router, http.MethodGet, accepted.Href, "")
			if w.Code != http.StatusOK {
				t.Fatalf("expected status 200 for job, got %d", w.Code)
			}
			if err := json.NewDecoder(w.Body).Decode(&job); err != nil {
				t.Fatalf("failed to decode job: %v", err)
			}
			if job.Status != app.JobRunning {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		if job.Status != app.JobSucceeded || job.Refreshed != 2 {
			t.Errorf("unexpected job %+v", job)
		}

		w = serve(router, http.MethodGet, "/api/refresh/jobs", "")
		var jobs []app.RefreshJob
		if err := json.NewDecoder(w.Body).Decode(&jobs); err != nil {
			t.Fatalf("failed to decode jobs: %v", err)
		}
		if len(jobs) != 1 || jobs[0].ID != accepted.JobID {
			t.Errorf("expected the job in the list, got %+v", jobs)
		}
	})

	t.Run("rejected while running", func(t *testing.T) {
		f := &fakeFetcher{prices: defaultPrices(), gate: make(chan struct{})}
		router := testRouter(testApp(t, f, nil))

		w := serve(router, http.MethodPost, "/api/refresh?async=1", "")
		if w.Code != http.StatusAccepted {
			t.Fatalf("expected status 202, got %d", w.Code)
		}
		w = serve(router, http.MethodPost, "/api/refresh", "")
		if w.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", w.Code)
		}
		close(f.gate)
	})

	t.Run("unknown job", func(t *testing.T) {
		router := testRouter(testApp(t, nil, nil))
		w := serve(router, http.MethodGet, "/api/refresh/jobs/nope", "")
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})
}

func TestHandler_Summary(t *testing.T) {
	router := testRouter(testApp(t, nil, nil))
	serve(router, http.MethodPost, "/api/refresh", "")

	w := serve(router, http.MethodGet, "/api/summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var s models.Summary
	if err := json.NewDecoder(w.Body).Decode(&s); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if s.Holdings != 2 || s.Opportunities != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if !s.TotalInvested.Equal(decimal.NewFromInt(5000)) {
		t.Errorf("expected total invested 5000, got %s", s.TotalInvested)
	}
}

func TestHandler_Cache(t *testing.T) {
	router := testRouter(testApp(t, nil, nil))
	serve(router, http.MethodPost, "/api/refresh", "")

	w := serve(router, http.MethodGet, "/api/cache/stats", "")
	var stats cache.Stats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats.Entries != 2 {
		t.Errorf("expected 2 cache entries, got %d", stats.Entries)
	}

	w = serve(router, http.MethodPost, "/api/cache/clear", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var cleared map[string]int
	if err := json.NewDecoder(w.Body).Decode(&cleared); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if cleared["cleared"] != 2 {
		t.Errorf("expected 2 cleared, got %d", cleared["cleared"])
	}
}

func TestHandler_PruneQuotes(t *testing.T) {
	router := testRouter(testApp(t, nil, nil))

	w := serve(router, http.MethodPost, "/api/cache/prune?keep=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 for bad keep, got %d", w.Code)
	}

	// the memory store keeps no archive
	w = serve(router, http.MethodPost, "/api/cache/prune", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without an archive, got %d", w.Code)
	}
}

func TestHandler_Save(t *testing.T) {
	t.Run("saves", func(t *testing.T) {
		store := portfolio.NewMemoryStore(seedPortfolio())
		router := testRouter(testApp(t, nil, store))

		w := serve(router, http.MethodPost, "/api/save", "")
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if store.Saves() != 1 {
			t.Errorf("expected 1 save, got %d", store.Saves())
		}
	})

	t.Run("store failure", func(t *testing.T) {
		store := &brokenStore{MemoryStore: portfolio.NewMemoryStore(seedPortfolio())}
		router := testRouter(testApp(t, nil, store))

		w := serve(router, http.MethodPost, "/api/save", "")
		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", w.Code)
		}
	})
}

func TestHandler_Import(t *testing.T) {
	t.Run("replaces the table", func(t *testing.T) {
		router := testRouter(testApp(t, nil, nil))

		body := `[{"Papel":"itsa4","Empresa":"Itaúsa","Preço Médio":9.5,"Quantidade":300,"Total Investido":2850,"Dividendos/Ação":0.9}]`
		w := serve(router, http.MethodPost, "/api/import", body)
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
		}
		resp := decodePortfolio(t, w)
		if len(resp.Holdings) != 1 || resp.Holdings[0].Symbol != "ITSA4" {
			t.Fatalf("unexpected holdings %+v", resp.Holdings)
		}
		if !resp.Holdings[0].FairValueThreshold.Equal(decimal.NewFromInt(15)) {
			t.Errorf("expected threshold 15, got %s", resp.Holdings[0].FairValueThreshold)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		router := testRouter(testApp(t, nil, nil))
		w := serve(router, http.MethodPost, "/api/import", `{"Papel":`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: bad", models.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: X", models.ErrNotFound), http.StatusNotFound},
		{models.ErrDuplicateSymbol, http.StatusConflict},
		{models.ErrRefreshInProgress, http.StatusConflict},
		{fmt.Errorf("%w: X", models.ErrQuoteUnavailable), http.StatusServiceUnavailable},
		{models.ErrProviderUnavailable, http.StatusServiceUnavailable},
		{fmt.Errorf("%w: %w", models.ErrPersistence, errors.New("io")), http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandler_NotFound(t *testing.T) {
	router := testRouter(testApp(t, nil, nil))

	w := serve(router, http.MethodGet, "/api/nonexistent", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestHandler_MethodsNotAllowed(t *testing.T) {
	router := testRouter(testApp(t, nil, nil))

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"health with POST", http.MethodPost, "/api/health"},
		{"portfolio with POST", http.MethodPost, "/api/portfolio"},
		{"refresh with GET", http.MethodGet, "/api/refresh"},
		{"cache clear with GET", http.MethodGet, "/api/cache/clear"},
		{"save with GET", http.MethodGet, "/api/save"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, tt.method, tt.path, "")
			if w.Code != http.StatusMethodNotAllowed {
				t.Errorf("expected status 405, got %d", w.Code)
			}
		})
	}
}

func TestHandler_CORSHeaders(t *testing.T) {
	router := testRouter(testApp(t, nil, nil))

	w := serve(router, http.MethodGet, "/api/health", "")
	if w.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("missing CORS Allow-Origin header")
	}
}

func TestHandler_OptionsRequest(t *testing.T) {
	router := testRouter(testApp(t, nil, nil))

	w := serve(router, http.MethodOptions, "/api/holdings/TAEE11", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 for OPTIONS, got %d", w.Code)
	}
}

func TestHandler_Metrics(t *testing.T) {
	router := testRouter(testApp(t, nil, nil))
	serve(router, http.MethodGet, "/api/portfolio", "")

	w := serve(router, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Error("expected HTTP request metrics to be exported")
	}
}

func TestHandler_ParseLimitParam(t *testing.T) {
	tests := []struct {
		name         string
		queryParam   string
		defaultLimit int
		expected     int
	}{
		{"no parameter", "", 20, 20},
		{"valid limit", "limit=5", 20, 5},
		{"invalid limit", "limit=abc", 20, 20},
		{"negative limit", "limit=-10", 20, 20},
		{"zero limit", "limit=0", 20, 20},
	}

	handler := testHandler(testApp(t, nil, nil))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := "/api/refresh/jobs"
			if tt.queryParam != "" {
				url += "?" + tt.queryParam
			}

			req := httptest.NewRequest(http.MethodGet, url, nil)
			if result := handler.ParseLimitParam(req, tt.defaultLimit); result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}
