package multiconfig_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/autologger"
	"github.com/quartzline/goldintel/internal/multiconfig"
	"github.com/quartzline/goldintel/internal/ticksource"
)

func price(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func TestRunIsolatesCandidatesAcrossPrivateStores(t *testing.T) {
	ticks := []ticksource.Tick{
		{Price: price(2000), ScoreLong: decimal.NewFromInt(4), ScoreShort: decimal.NewFromInt(1)},
		{Price: price(2009), ScoreLong: decimal.NewFromInt(1), ScoreShort: decimal.NewFromInt(1)},
	}

	tight := autologger.DefaultConfig()
	tight.StopLossPoints = decimal.NewFromInt(4)
	tight.TakeProfitPoints = decimal.NewFromInt(8)

	wide := autologger.DefaultConfig()
	wide.StopLossPoints = decimal.NewFromInt(40)
	wide.TakeProfitPoints = decimal.NewFromInt(80)

	tester := multiconfig.New(zap.NewNop(), t.TempDir())
	results := tester.Run(context.Background(), []multiconfig.Candidate{
		{Name: "tight", Config: tight},
		{Name: "wide", Config: wide},
	}, ticks)

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Err != nil {
			t.Fatalf("candidate %s: %v", r.Name, r.Err)
		}
	}
	tightResult, wideResult := results[0], results[1]
	if tightResult.Stats.Wins != 1 {
		t.Errorf("expected tight candidate to close a win on the 2009 tick, got wins=%d losses=%d open=%d",
			tightResult.Stats.Wins, tightResult.Stats.Losses, tightResult.Stats.Open)
	}
	if wideResult.Stats.Open != 1 {
		t.Errorf("expected wide candidate's trade to still be open, got open=%d", wideResult.Stats.Open)
	}

	best, ok := multiconfig.Best(results)
	if !ok {
		t.Fatal("expected a best candidate among closed trades")
	}
	if best.Name != "tight" {
		t.Errorf("expected tight to be best (only candidate with a closed trade), got %s", best.Name)
	}
}

func TestRunSkipsTicksWithoutPrice(t *testing.T) {
	ticks := []ticksource.Tick{{Price: nil, ScoreLong: decimal.NewFromInt(5)}}
	tester := multiconfig.New(zap.NewNop(), t.TempDir())
	results := tester.Run(context.Background(), []multiconfig.Candidate{
		{Name: "solo", Config: autologger.DefaultConfig()},
	}, ticks)
	if results[0].Err != nil {
		t.Fatalf("unexpected error: %v", results[0].Err)
	}
	if results[0].Stats.Total != 0 {
		t.Errorf("expected no trades admitted from a priceless tick, got %d", results[0].Stats.Total)
	}
}
