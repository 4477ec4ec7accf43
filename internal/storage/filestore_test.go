package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"investment-monitor/models"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data", "portfolio.json"))
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}

	p, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.Holdings == nil || len(p.Holdings) != 0 {
		t.Errorf("Holdings = %v, want empty", p.Holdings)
	}
}

func TestFileStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portfolio.json")
	s, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()
	updated := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	h := models.Holding{
		Symbol:            "TAEE11",
		Name:              "Taesa",
		AvgCost:           decimal.RequireFromString("30"),
		LastPrice:         decimal.NewNullDecimal(decimal.RequireFromString("35")),
		Quantity:          100,
		Invested:          decimal.RequireFromString("3000"),
		DividendsPerShare: decimal.RequireFromString("2.4"),
	}
	h.Recompute()
	in := models.Portfolio{Holdings: []models.Holding{h}, UpdatedAt: updated}

	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !out.UpdatedAt.Equal(updated) {
		t.Errorf("UpdatedAt = %v, want %v", out.UpdatedAt, updated)
	}
	if len(out.Holdings) != 1 {
		t.Fatalf("holdings = %d, want 1", len(out.Holdings))
	}
	got := out.Holdings[0]
	if !got.LastPrice.Valid || !got.LastPrice.Decimal.Equal(decimal.RequireFromString("35")) {
		t.Errorf("LastPrice = %v", got.LastPrice)
	}
	if got.ChangePct.Valid {
		t.Error("absent ChangePct should stay absent")
	}
	if !got.FairValueThreshold.Equal(decimal.RequireFromString("40")) {
		t.Errorf("FairValueThreshold = %s", got.FairValueThreshold)
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, temp files left behind", len(entries))
	}
}

func TestFileStore_SaveOverwrites(t *testing.T) {
	s, _ := NewFileStore(filepath.Join(t.TempDir(), "portfolio.json"))
	ctx := context.Background()

	_ = s.Save(ctx, models.Portfolio{Holdings: []models.Holding{{Symbol: "A"}, {Symbol: "B"}}})
	if err := s.Save(ctx, models.Portfolio{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	p, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(p.Holdings) != 0 {
		t.Errorf("holdings = %d, want 0", len(p.Holdings))
	}
}

func TestFileStore_LoadsLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	legacy := `[
  {"Papel": "taee11", "Empresa": "Taesa", "Preço Médio": 30.0, "Preço Atual": 35.0,
   "Preço Teto": 40.0, "Quantidade": 100.0, "Total Investido": 3000.0, "Valor Atual": 3500.0,
   "Dividendos": 240.5, "Dividendos/Ação": 2.4, "Rentabilidade": 16.67},
  {"Papel": "MGLU3", "Empresa": "Magalu", "Preço Médio": 5.0, "Preço Atual": null,
   "Preço Teto": null, "Quantidade": 100, "Total Investido": 500, "Valor Atual": null,
   "Dividendos": null, "Dividendos/Ação": null, "Rentabilidade": null},
  {"Papel": null, "Empresa": null}
]`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	s, _ := NewFileStore(path)
	p, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := p.Symbols(); len(got) != 2 || got[0] != "TAEE11" || got[1] != "MGLU3" {
		t.Fatalf("symbols = %v, want [TAEE11 MGLU3]", got)
	}

	taee := p.Holdings[0]
	if taee.Quantity != 100 || !taee.DividendsTotal.Equal(decimal.RequireFromString("240.5")) {
		t.Errorf("TAEE11 = %+v", taee)
	}
	if !taee.CurrentValue.Equal(decimal.RequireFromString("3500")) {
		t.Errorf("CurrentValue = %s, want 3500", taee.CurrentValue)
	}
	if !taee.FairValueThreshold.Equal(decimal.RequireFromString("40")) {
		t.Errorf("FairValueThreshold = %s, want 40", taee.FairValueThreshold)
	}

	mglu := p.Holdings[1]
	if mglu.LastPrice.Valid {
		t.Error("null price should stay absent")
	}
	if !mglu.ProfitabilityPct.Equal(decimal.RequireFromString("-100")) {
		t.Errorf("ProfitabilityPct = %s, want -100", mglu.ProfitabilityPct)
	}
}

func TestDecode(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		p, err := Decode([]byte("  \n"))
		if err != nil || len(p.Holdings) != 0 {
			t.Errorf("Decode(empty) = %v, %v", p, err)
		}
	})
	t.Run("newer version", func(t *testing.T) {
		if _, err := Decode([]byte(`{"version": 99, "holdings": []}`)); err == nil {
			t.Error("expected an error for an unknown version")
		}
	})
	t.Run("garbage", func(t *testing.T) {
		if _, err := Decode([]byte(`{"holdings": 12`)); err == nil {
			t.Error("expected an error for malformed JSON")
		}
	})
}

func TestReadLegacy_FractionalQuantity(t *testing.T) {
	_, err := ReadLegacy(strings.NewReader(`[{"Papel": "X", "Quantidade": 1.5}]`))
	if err == nil || !strings.Contains(err.Error(), "fractional") {
		t.Errorf("ReadLegacy() error = %v, want fractional quantity error", err)
	}
}

func TestFileStore_Backend(t *testing.T) {
	s, _ := NewFileStore(filepath.Join(t.TempDir(), "p.json"))
	if s.Backend() != "file" {
		t.Errorf("Backend() = %q", s.Backend())
	}
}
