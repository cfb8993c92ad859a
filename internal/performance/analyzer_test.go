package performance_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/internal/performance"
	"github.com/quartzline/goldintel/pkg/types"
)

func completedSignal(result types.OutcomeResult, regime types.Trend, session types.Session, direction types.Direction, scoreTotal float64, maxProfit, maxDrawdown float64, ts time.Time) types.SignalRecord {
	return types.SignalRecord{
		Timestamp:        ts,
		SignalType:       direction,
		Status:           types.StatusCompleted,
		MarketConditions: types.MarketConditions{Regime: regime, Session: session},
		Score:            types.ScoreBreakdown{Total: scoreTotal},
		Outcome: types.SignalOutcome{
			Result:      result,
			MaxProfit:   decimal.NewFromFloat(maxProfit),
			MaxDrawdown: decimal.NewFromFloat(maxDrawdown),
		},
	}
}

func TestOverallMetricsComputesWinRateAndExpectedValue(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	signals := []types.SignalRecord{
		completedSignal(types.ResultWin, types.StrongUptrend, types.SessionNY, types.Long, 75, 20, 0, base),
		completedSignal(types.ResultWin, types.StrongUptrend, types.SessionNY, types.Long, 75, 10, 0, base.Add(time.Hour)),
		completedSignal(types.ResultLoss, types.StrongDowntrend, types.SessionAsia, types.Short, 55, 0, -10, base.Add(2*time.Hour)),
	}

	m := performance.New(signals).OverallMetrics()

	if m.CompletedSignals != 3 {
		t.Fatalf("expected 3 completed signals, got %d", m.CompletedSignals)
	}
	if m.Wins != 2 || m.Losses != 1 {
		t.Fatalf("expected 2 wins / 1 loss, got wins=%d losses=%d", m.Wins, m.Losses)
	}
	wantWinRate := 200.0 / 3.0
	if diff := m.WinRate - wantWinRate; diff > 0.001 || diff < -0.001 {
		t.Errorf("expected win rate %.4f, got %.4f", wantWinRate, m.WinRate)
	}
	if m.AvgWin != 15 {
		t.Errorf("expected avg win 15 (mean of MaxProfit 20,10), got %f", m.AvgWin)
	}
	if m.AvgLoss != 10 {
		t.Errorf("expected avg loss 10 (abs of MaxDrawdown), got %f", m.AvgLoss)
	}
	wantEV := (wantWinRate/100)*15 - ((100-wantWinRate)/100)*10
	if diff := m.ExpectedValue - wantEV; diff > 0.001 || diff < -0.001 {
		t.Errorf("expected EV %.4f, got %.4f", wantEV, m.ExpectedValue)
	}
}

func TestByRegimeAssignsRecommendedMultiplierTiers(t *testing.T) {
	base := time.Now()
	var signals []types.SignalRecord
	// 8 wins, 2 losses in STRONG_UPTREND -> win rate 80% -> multiplier 1.30
	for i := 0; i < 8; i++ {
		signals = append(signals, completedSignal(types.ResultWin, types.StrongUptrend, types.SessionNY, types.Long, 70, 10, 0, base))
	}
	for i := 0; i < 2; i++ {
		signals = append(signals, completedSignal(types.ResultLoss, types.StrongUptrend, types.SessionNY, types.Long, 70, 0, -5, base))
	}

	byRegime := performance.New(signals).ByRegime()
	rp, ok := byRegime[types.StrongUptrend]
	if !ok {
		t.Fatal("expected a STRONG_UPTREND bucket")
	}
	if rp.Total != 10 || rp.Wins != 8 {
		t.Fatalf("expected total=10 wins=8, got %+v", rp)
	}
	if rp.RecommendedMultiplier != 1.30 {
		t.Errorf("expected recommended multiplier 1.30 for 80%% win rate, got %f", rp.RecommendedMultiplier)
	}
}

func TestScoreAccuracyBandsCompareActualVsPredicted(t *testing.T) {
	base := time.Now()
	signals := []types.SignalRecord{
		completedSignal(types.ResultWin, types.StrongUptrend, types.SessionNY, types.Long, 85, 10, 0, base),
		completedSignal(types.ResultLoss, types.StrongUptrend, types.SessionNY, types.Long, 85, 0, -5, base),
	}
	accuracy := performance.New(signals).ScoreAccuracy()

	var veryHigh *performance.ScoreAccuracy
	for i := range accuracy {
		if accuracy[i].Label == "Very High (80-100)" {
			veryHigh = &accuracy[i]
		}
	}
	if veryHigh == nil {
		t.Fatal("expected a Very High band entry")
	}
	if veryHigh.Count != 2 {
		t.Errorf("expected 2 signals in the Very High band, got %d", veryHigh.Count)
	}
	if veryHigh.ActualAccuracy != 50 {
		t.Errorf("expected actual accuracy 50%% (1 of 2 wins), got %f", veryHigh.ActualAccuracy)
	}
	if veryHigh.PredictedAccuracy != 90 {
		t.Errorf("expected predicted accuracy 90 (band midpoint), got %f", veryHigh.PredictedAccuracy)
	}
}

func TestRollingWinRateEmptyBelowWindow(t *testing.T) {
	base := time.Now()
	signals := []types.SignalRecord{
		completedSignal(types.ResultWin, types.StrongUptrend, types.SessionNY, types.Long, 70, 10, 0, base),
	}
	if got := performance.New(signals).RollingWinRate(50); got != nil {
		t.Errorf("expected nil rolling series below window size, got %+v", got)
	}
}

func TestRollingWinRateComputesSlidingWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var signals []types.SignalRecord
	for i := 0; i < 3; i++ {
		signals = append(signals, completedSignal(types.ResultWin, types.StrongUptrend, types.SessionNY, types.Long, 70, 10, 0, base.Add(time.Duration(i)*time.Minute)))
	}
	signals = append(signals, completedSignal(types.ResultLoss, types.StrongUptrend, types.SessionNY, types.Long, 70, 0, -5, base.Add(3*time.Minute)))

	points := performance.New(signals).RollingWinRate(2)
	if len(points) != 3 {
		t.Fatalf("expected 3 rolling points over 4 signals with window 2, got %d", len(points))
	}
	last := points[len(points)-1]
	if last.WinRate != 50 {
		t.Errorf("expected final window win rate 50%% (1 win, 1 loss), got %f", last.WinRate)
	}
}

func TestBySignalTypeSeparatesLongAndShort(t *testing.T) {
	base := time.Now()
	signals := []types.SignalRecord{
		completedSignal(types.ResultWin, types.StrongUptrend, types.SessionNY, types.Long, 70, 10, 0, base),
		completedSignal(types.ResultLoss, types.StrongDowntrend, types.SessionAsia, types.Short, 70, 0, -5, base),
	}
	byType := performance.New(signals).BySignalType()
	if byType[types.Long].WinRate != 100 {
		t.Errorf("expected LONG win rate 100%%, got %f", byType[types.Long].WinRate)
	}
	if byType[types.Short].WinRate != 0 {
		t.Errorf("expected SHORT win rate 0%%, got %f", byType[types.Short].WinRate)
	}
}
