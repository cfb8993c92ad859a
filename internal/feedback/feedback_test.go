package feedback_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/feedback"
	"github.com/quartzline/goldintel/pkg/types"
)

func openLoop(t *testing.T) *feedback.Loop {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "feedback.db")
	l, err := feedback.Open(zap.NewNop(), dbPath, feedback.DefaultConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func logSignal(t *testing.T, l *feedback.Loop, id string, ts time.Time, direction types.Direction, regime types.Trend, session types.Session) {
	t.Helper()
	ctx := context.Background()
	sig := types.FeedbackSignal{
		SignalID:       id,
		Timestamp:      ts,
		Direction:      direction,
		EntryPrice:     decimal.NewFromInt(2650),
		StopLoss:       decimal.NewFromInt(2645),
		TakeProfit:     decimal.NewFromInt(2660),
		Score:          70,
		Regime:         regime,
		Session:        session,
		Indicators:     map[string]float64{"rsi": 45, "stoch_k": 18, "adx": 28},
		RulesTriggered: []string{"RULE_01"},
	}
	if err := l.LogSignal(ctx, sig); err != nil {
		t.Fatalf("LogSignal: %v", err)
	}
}

func TestLogSignalAndUpdateOutcomeComputesPnLByDirection(t *testing.T) {
	l := openLoop(t)
	ctx := context.Background()
	entryTime := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	logSignal(t, l, "S1", entryTime, types.Long, types.WeakUptrend, types.SessionLondon)

	exitTime := entryTime.Add(30 * time.Minute)
	ok, err := l.UpdateOutcome(ctx, "S1", decimal.NewFromInt(2658), types.ResultWin, exitTime)
	if err != nil {
		t.Fatalf("UpdateOutcome: %v", err)
	}
	if !ok {
		t.Fatal("expected UpdateOutcome to find signal S1")
	}

	signals, err := l.GetSignals(ctx, exitTime, 30, true)
	if err != nil {
		t.Fatalf("GetSignals: %v", err)
	}
	if len(signals) != 1 {
		t.Fatalf("expected 1 completed signal, got %d", len(signals))
	}
	if signals[0].PnL == nil || !signals[0].PnL.Equal(decimal.NewFromInt(8)) {
		t.Errorf("expected PnL 8 (2658-2650), got %v", signals[0].PnL)
	}
	if signals[0].HoldMinutes == nil || *signals[0].HoldMinutes != 30 {
		t.Errorf("expected hold time 30 minutes, got %v", signals[0].HoldMinutes)
	}
}

func TestUpdateOutcomeUnknownSignalReturnsFalse(t *testing.T) {
	l := openLoop(t)
	ok, err := l.UpdateOutcome(context.Background(), "MISSING", decimal.NewFromInt(2660), types.ResultWin, time.Now())
	if err != nil {
		t.Fatalf("UpdateOutcome: %v", err)
	}
	if ok {
		t.Fatal("expected false for an unknown signal id")
	}
}

func TestCalculateMetricsReturnsNilWithoutSignals(t *testing.T) {
	l := openLoop(t)
	m, err := l.CalculateMetrics(context.Background(), time.Now(), 30)
	if err != nil {
		t.Fatalf("CalculateMetrics: %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil metrics with no signals, got %+v", m)
	}
}

func TestCalculateMetricsComputesWinRateAndBestRegime(t *testing.T) {
	l := openLoop(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 10; i++ {
		id := "W" + string(rune('0'+i))
		ts := base.Add(time.Duration(i) * time.Hour)
		logSignal(t, l, id, ts, types.Long, types.StrongUptrend, types.SessionLondon)
		outcome := types.ResultWin
		if i >= 8 {
			outcome = types.ResultLoss
		}
		exitPrice := decimal.NewFromInt(2658)
		if outcome == types.ResultLoss {
			exitPrice = decimal.NewFromInt(2645)
		}
		if _, err := l.UpdateOutcome(ctx, id, exitPrice, outcome, ts.Add(20*time.Minute)); err != nil {
			t.Fatalf("UpdateOutcome: %v", err)
		}
	}

	m, err := l.CalculateMetrics(ctx, base.Add(24*time.Hour), 30)
	if err != nil {
		t.Fatalf("CalculateMetrics: %v", err)
	}
	if m == nil {
		t.Fatal("expected non-nil metrics")
	}
	if m.Wins != 8 || m.Losses != 2 {
		t.Errorf("expected 8 wins / 2 losses, got %d/%d", m.Wins, m.Losses)
	}
	if m.WinRate != 80 {
		t.Errorf("expected 80%% win rate, got %f", m.WinRate)
	}
	if m.BestRegime == nil || *m.BestRegime != types.StrongUptrend {
		t.Errorf("expected best regime STRONG_UPTREND, got %v", m.BestRegime)
	}
}

func TestCheckPerformanceTriggersBelowMinimumWinRate(t *testing.T) {
	l := openLoop(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 15; i++ {
		id := "L" + string(rune('a'+i))
		ts := base.Add(time.Duration(i) * time.Hour)
		logSignal(t, l, id, ts, types.Long, types.Ranging, types.SessionAsia)
		outcome := types.ResultLoss
		if i < 3 {
			outcome = types.ResultWin
		}
		if _, err := l.UpdateOutcome(ctx, id, decimal.NewFromInt(2645), outcome, ts.Add(20*time.Minute)); err != nil {
			t.Fatalf("UpdateOutcome: %v", err)
		}
	}

	triggered, reasons, err := l.CheckPerformance(ctx, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("CheckPerformance: %v", err)
	}
	if !triggered {
		t.Fatal("expected a performance trigger with a 20%% win rate")
	}
	if len(reasons) == 0 {
		t.Error("expected at least one trigger reason")
	}
}

func TestGetFeedbackDataDefaultsMissingIndicators(t *testing.T) {
	l := openLoop(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	logSignal(t, l, "F1", ts, types.Long, types.WeakUptrend, types.SessionLondon)
	if _, err := l.UpdateOutcome(ctx, "F1", decimal.NewFromInt(2658), types.ResultWin, ts.Add(10*time.Minute)); err != nil {
		t.Fatalf("UpdateOutcome: %v", err)
	}

	points, err := l.GetFeedbackData(ctx, ts.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("GetFeedbackData: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 data point, got %d", len(points))
	}
	if points[0].RSI != 45 {
		t.Errorf("expected RSI 45 from logged indicators, got %f", points[0].RSI)
	}
	if points[0].ATR != 10 {
		t.Errorf("expected default ATR of 10 for a missing indicator, got %f", points[0].ATR)
	}
}

func TestGetRulePerformanceTalliesByTriggeredRule(t *testing.T) {
	l := openLoop(t)
	ctx := context.Background()
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	logSignal(t, l, "R1", ts, types.Long, types.WeakUptrend, types.SessionLondon)
	if _, err := l.UpdateOutcome(ctx, "R1", decimal.NewFromInt(2658), types.ResultWin, ts.Add(10*time.Minute)); err != nil {
		t.Fatalf("UpdateOutcome: %v", err)
	}

	stats, err := l.GetRulePerformance(ctx, ts.Add(24*time.Hour), 30)
	if err != nil {
		t.Fatalf("GetRulePerformance: %v", err)
	}
	rule, ok := stats["RULE_01"]
	if !ok {
		t.Fatal("expected stats for RULE_01")
	}
	if rule.Wins != 1 || rule.TotalTrades != 1 {
		t.Errorf("expected 1 win / 1 total trade, got %+v", rule)
	}
}
