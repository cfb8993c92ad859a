package barstore_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/barstore"
	"github.com/quartzline/goldintel/pkg/types"
	"github.com/shopspring/decimal"
)

func TestOpenCreatesSchema(t *testing.T) {
	store, err := barstore.Open(zap.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()
}

func TestSaveAndLoadBars(t *testing.T) {
	store, err := barstore.Open(zap.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := []types.Bar{
		{
			Symbol: "MGC=F", Timestamp: start,
			Open: decimal.NewFromFloat(2000), High: decimal.NewFromFloat(2010),
			Low: decimal.NewFromFloat(1995), Close: decimal.NewFromFloat(2005),
			Volume: decimal.NewFromFloat(1000),
		},
		{
			Symbol: "MGC=F", Timestamp: start.AddDate(0, 0, 1),
			Open: decimal.NewFromFloat(2005), High: decimal.NewFromFloat(2020),
			Low: decimal.NewFromFloat(2000), Close: decimal.NewFromFloat(2015),
			Volume: decimal.NewFromFloat(1200),
		},
	}

	ctx := context.Background()
	if err := store.SaveBars(ctx, bars); err != nil {
		t.Fatalf("SaveBars failed: %v", err)
	}

	loaded, err := store.LoadBars(ctx, "MGC=F", start, start.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("LoadBars failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(loaded))
	}
	if !loaded[0].Close.Equal(decimal.NewFromFloat(2005)) {
		t.Errorf("unexpected first close: %s", loaded[0].Close)
	}
}

func TestLoadBarsWithoutFallbackIsEmpty(t *testing.T) {
	store, err := barstore.Open(zap.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars, err := store.LoadBars(context.Background(), "UNKNOWN", start, start.AddDate(0, 0, 5))
	if err != nil {
		t.Fatalf("LoadBars failed: %v", err)
	}
	if len(bars) != 0 {
		t.Fatalf("expected no synthetic fallback by default, got %d bars", len(bars))
	}
}

func TestLoadBarsSyntheticFallbackIsDeterministic(t *testing.T) {
	store, err := barstore.Open(zap.NewNop(), t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()
	store.AllowSyntheticFallback = true

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 10)

	first, err := store.LoadBars(context.Background(), "UNKNOWN", start, end)
	if err != nil {
		t.Fatalf("LoadBars failed: %v", err)
	}
	if len(first) == 0 {
		t.Fatal("expected synthetic bars to be generated")
	}

	store.ClearCache()
	second, err := store.LoadBars(context.Background(), "UNKNOWN", start, end)
	if err != nil {
		t.Fatalf("LoadBars failed: %v", err)
	}
	if len(first) != len(second) || !first[0].Close.Equal(second[0].Close) {
		t.Fatal("synthetic fallback must be deterministic across runs")
	}
}
