package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNewAlphaVantageProvider(t *testing.T) {
	p := NewAlphaVantageProvider("test-api-key", 10*time.Second)
	if p.apiKey != "test-api-key" {
		t.Errorf("apiKey = %v, want 'test-api-key'", p.apiKey)
	}
	if p.httpClient == nil {
		t.Error("httpClient should not be nil")
	}
	if p.baseURL != "https://www.alphavantage.co/query" {
		t.Errorf("baseURL = %v, want 'https://www.alphavantage.co/query'", p.baseURL)
	}
}

func TestQuoteResponse_Deserialization(t *testing.T) {
	jsonResponse := `{
		"Global Quote": {
			"01. symbol": "ITUB4.SA",
			"02. open": "33.1000",
			"03. high": "33.9000",
			"04. low": "32.8800",
			"05. price": "33.7500",
			"06. volume": "21034500",
			"07. latest trading day": "2026-03-02",
			"08. previous close": "33.0000",
			"09. change": "0.7500",
			"10. change percent": "2.2727%"
		}
	}`

	var resp QuoteResponse
	if err := json.Unmarshal([]byte(jsonResponse), &resp); err != nil {
		t.Fatalf("Failed to unmarshal QuoteResponse: %v", err)
	}
	if resp.GlobalQuote.Symbol != "ITUB4.SA" {
		t.Errorf("Symbol = %v, want 'ITUB4.SA'", resp.GlobalQuote.Symbol)
	}
	if resp.GlobalQuote.ChangePercent != "2.2727%" {
		t.Errorf("ChangePercent = %v, want '2.2727%%'", resp.GlobalQuote.ChangePercent)
	}
}

func TestAlphaVantageProvider_FetchQuote(t *testing.T) {
	var gotFunction, gotSymbol, gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFunction = r.URL.Query().Get("function")
		gotSymbol = r.URL.Query().Get("symbol")
		gotKey = r.URL.Query().Get("apikey")
		_, _ = w.Write([]byte(`{"Global Quote": {"01. symbol": "ITUB4.SA", "05. price": "33.7550", "10. change percent": "-2.2767%"}}`))
	}))
	defer srv.Close()

	p := NewAlphaVantageProvider("secret", time.Second)
	p.baseURL = srv.URL

	q, err := p.FetchQuote(context.Background(), "ITUB4.SA")
	if err != nil {
		t.Fatalf("FetchQuote() error = %v", err)
	}
	if gotFunction != "GLOBAL_QUOTE" || gotSymbol != "ITUB4.SA" || gotKey != "secret" {
		t.Errorf("query = %s/%s/%s", gotFunction, gotSymbol, gotKey)
	}
	if !q.Price.Equal(decimal.RequireFromString("33.76")) {
		t.Errorf("Price = %s, want 33.76", q.Price)
	}
	if !q.ChangePct.Equal(decimal.RequireFromString("-2.28")) {
		t.Errorf("ChangePct = %s, want -2.28", q.ChangePct)
	}
	if q.Symbol != "ITUB4.SA" {
		t.Errorf("Symbol = %s", q.Symbol)
	}
}

func TestAlphaVantageProvider_Errors(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantNotFound bool
		wantRate     bool
	}{
		{name: "unknown symbol", body: `{"Global Quote": {}}`, wantNotFound: true},
		{name: "error message", body: `{"Error Message": "Invalid API call."}`, wantNotFound: true},
		{name: "rate limit note", body: `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`, wantRate: true},
		{name: "rate limit information", body: `{"Information": "Our standard API rate limit is 25 requests per day."}`, wantRate: true},
		{name: "bad price", body: `{"Global Quote": {"05. price": "n/a"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			p := NewAlphaVantageProvider("k", time.Second)
			p.baseURL = srv.URL

			_, err := p.FetchQuote(context.Background(), "XXXX3.SA")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrSymbolNotFound); got != tt.wantNotFound {
				t.Errorf("errors.Is(ErrSymbolNotFound) = %v, want %v", got, tt.wantNotFound)
			}
			if got := errors.Is(err, ErrRateLimited); got != tt.wantRate {
				t.Errorf("errors.Is(ErrRateLimited) = %v, want %v", got, tt.wantRate)
			}
		})
	}
}
