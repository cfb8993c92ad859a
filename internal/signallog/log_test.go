package signallog_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/signallog"
	"github.com/quartzline/goldintel/pkg/types"
)

func openTestLog(t *testing.T) *signallog.Log {
	t.Helper()
	dir := t.TempDir()
	l, err := signallog.Open(zap.NewNop(), filepath.Join(dir, "signal_history.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return l
}

func sampleSignal(entry decimal.Decimal, ts time.Time) types.Signal {
	return types.Signal{
		Timestamp:  ts,
		Type:       types.Long,
		Strength:   types.Strong,
		EntryPrice: entry,
		StopLoss:   entry.Sub(decimal.NewFromInt(10)),
		TakeProfit: entry.Add(decimal.NewFromInt(20)),
	}
}

func TestLogThenUpdateThenComplete(t *testing.T) {
	l := openTestLog(t)
	entry := decimal.NewFromInt(2000)
	ts := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	id, err := l.Log(sampleSignal(entry, ts), types.MarketConditions{}, types.IndicatorSnapshot{}, types.PatternMatchInfo{}, types.RiskFactors{}, types.ScoreBreakdown{}, types.ConfigurationUsed{})
	if err != nil {
		t.Fatalf("Log: %v", err)
	}

	rec, ok := l.Get(id)
	if !ok || rec.Status != types.StatusPending {
		t.Fatalf("expected PENDING record, got %+v", rec)
	}

	if err := l.UpdateOutcome(id, entry.Add(decimal.NewFromInt(25)), 5, ts.Add(5*time.Minute)); err != nil {
		t.Fatalf("UpdateOutcome: %v", err)
	}
	rec, _ = l.Get(id)
	if rec.Status != types.StatusTracking {
		t.Errorf("expected TRACKING after update, got %s", rec.Status)
	}
	if !rec.Outcome.TargetHit {
		t.Error("expected target hit once price crossed take-profit")
	}

	if err := l.Complete(id, entry.Add(decimal.NewFromInt(25))); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	rec, _ = l.Get(id)
	if rec.Status != types.StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", rec.Status)
	}
	if rec.Outcome.Result != types.ResultWin {
		t.Errorf("expected WIN (target_hit priority), got %s", rec.Outcome.Result)
	}
}

func TestUpdateOutcomeRejectsDecreasingMinutes(t *testing.T) {
	l := openTestLog(t)
	entry := decimal.NewFromInt(2000)
	ts := time.Now()
	id, _ := l.Log(sampleSignal(entry, ts), types.MarketConditions{}, types.IndicatorSnapshot{}, types.PatternMatchInfo{}, types.RiskFactors{}, types.ScoreBreakdown{}, types.ConfigurationUsed{})

	if err := l.UpdateOutcome(id, entry, 10, ts); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := l.UpdateOutcome(id, entry, 5, ts); err == nil {
		t.Error("expected an error for decreasing minutesElapsed")
	}
}

func TestCompleteUsesStopHitPriorityOverSign(t *testing.T) {
	l := openTestLog(t)
	entry := decimal.NewFromInt(2000)
	ts := time.Now()
	id, _ := l.Log(sampleSignal(entry, ts), types.MarketConditions{}, types.IndicatorSnapshot{}, types.PatternMatchInfo{}, types.RiskFactors{}, types.ScoreBreakdown{}, types.ConfigurationUsed{})

	// Dip below stop, then recover slightly above entry before completion;
	// stop_hit must still win over the final positive PnL sign.
	_ = l.UpdateOutcome(id, entry.Sub(decimal.NewFromInt(15)), 1, ts)
	_ = l.UpdateOutcome(id, entry.Add(decimal.NewFromInt(1)), 2, ts)

	if err := l.Complete(id, entry.Add(decimal.NewFromInt(1))); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	rec, _ := l.Get(id)
	if rec.Outcome.Result != types.ResultLoss {
		t.Errorf("expected LOSS (stop_hit priority), got %s", rec.Outcome.Result)
	}
}

func TestOpenReloadsPersistedHistory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "signal_history.json")
	l, err := signallog.Open(zap.NewNop(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	entry := decimal.NewFromInt(2000)
	id, _ := l.Log(sampleSignal(entry, time.Now()), types.MarketConditions{}, types.IndicatorSnapshot{}, types.PatternMatchInfo{}, types.RiskFactors{}, types.ScoreBreakdown{}, types.ConfigurationUsed{})

	reloaded, err := signallog.Open(zap.NewNop(), path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if _, ok := reloaded.Get(id); !ok {
		t.Error("expected previously logged signal to survive reopen")
	}
}
