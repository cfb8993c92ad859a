package autologger_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/autologger"
	"github.com/quartzline/goldintel/pkg/types"
)

func openTestLogger(t *testing.T) *autologger.AutoLogger {
	t.Helper()
	dir := t.TempDir()
	al, err := autologger.Open(zap.NewNop(), filepath.Join(dir, "auto_signals.db"), autologger.DefaultConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { al.Close() })
	return al
}

func TestCheckForNewSignalAdmitsAboveMinScore(t *testing.T) {
	al := openTestLogger(t)
	snap := autologger.Snapshot{
		Timestamp: time.Now(),
		Price:     decimal.NewFromInt(2000),
		ScoreLong: decimal.NewFromInt(4),
		ScoreShort: decimal.NewFromInt(1),
	}
	trade, ok := al.CheckForNewSignal(snap)
	if !ok {
		t.Fatal("expected admission above min_score")
	}
	if trade.Direction != types.Long {
		t.Errorf("expected LONG, got %s", trade.Direction)
	}
	if !trade.StopLoss.Equal(decimal.NewFromInt(1996)) {
		t.Errorf("expected stop loss 1996, got %s", trade.StopLoss)
	}
	if !trade.TakeProfit.Equal(decimal.NewFromInt(2008)) {
		t.Errorf("expected take profit 2008, got %s", trade.TakeProfit)
	}
}

func TestCheckForNewSignalDeduplicatesIdenticalHash(t *testing.T) {
	al := openTestLogger(t)
	snap := autologger.Snapshot{
		Timestamp:  time.Now(),
		Price:      decimal.NewFromInt(2000),
		ScoreLong:  decimal.NewFromInt(4),
		ScoreShort: decimal.NewFromInt(1),
	}
	if _, ok := al.CheckForNewSignal(snap); !ok {
		t.Fatal("expected first tick to admit")
	}
	if _, ok := al.CheckForNewSignal(snap); ok {
		t.Error("expected identical tick to be deduplicated")
	}
}

func TestCheckForNewSignalRejectsBelowMinScore(t *testing.T) {
	al := openTestLogger(t)
	snap := autologger.Snapshot{
		Timestamp:  time.Now(),
		Price:      decimal.NewFromInt(2000),
		ScoreLong:  decimal.NewFromInt(1),
		ScoreShort: decimal.NewFromInt(1),
	}
	if _, ok := al.CheckForNewSignal(snap); ok {
		t.Error("expected rejection below min_score")
	}
}

func TestEvaluateTickClosesOnTakeProfitBeforeExpiry(t *testing.T) {
	al := openTestLogger(t)
	ctx := context.Background()
	now := time.Now()

	snap := autologger.Snapshot{Timestamp: now, Price: decimal.NewFromInt(2000), ScoreLong: decimal.NewFromInt(4), ScoreShort: decimal.Zero}
	trade, ok := al.CheckForNewSignal(snap)
	if !ok {
		t.Fatal("expected admission")
	}
	if err := al.LogTrade(ctx, trade, snap); err != nil {
		t.Fatalf("LogTrade: %v", err)
	}

	if err := al.EvaluateTick(ctx, decimal.NewFromInt(2009), now.Add(time.Minute)); err != nil {
		t.Fatalf("EvaluateTick: %v", err)
	}

	stats, err := al.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Wins != 1 {
		t.Errorf("expected 1 win, got stats %+v", stats)
	}
	if stats.Open != 0 {
		t.Errorf("expected 0 open trades, got %d", stats.Open)
	}
}

func TestEvaluateTickExpiresStaleTrade(t *testing.T) {
	al := openTestLogger(t)
	ctx := context.Background()
	now := time.Now()

	snap := autologger.Snapshot{Timestamp: now, Price: decimal.NewFromInt(2000), ScoreLong: decimal.NewFromInt(4), ScoreShort: decimal.Zero}
	trade, _ := al.CheckForNewSignal(snap)
	_ = al.LogTrade(ctx, trade, snap)

	if err := al.EvaluateTick(ctx, decimal.NewFromInt(2001), now.Add(5*time.Hour)); err != nil {
		t.Fatalf("EvaluateTick: %v", err)
	}

	stats, err := al.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Expired != 1 {
		t.Errorf("expected 1 expired trade, got %+v", stats)
	}
}
