package scorer_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/internal/scorer"
	"github.com/quartzline/goldintel/pkg/types"
)

func decPtr(v float64) *decimal.Decimal {
	d := decimal.NewFromFloat(v)
	return &d
}

func TestScoreStrongLongSignal(t *testing.T) {
	bar := types.Bar{
		Symbol:    "MGC=F",
		Timestamp: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		Close:     decimal.NewFromInt(2000),
	}
	row := types.IndicatorRow{
		EMA9:   decPtr(2001),
		EMA21:  decPtr(1999),
		ATR:    decPtr(5),
		StochK: decPtr(20),
	}
	prevRow := &types.IndicatorRow{
		EMA9:  decPtr(1998),
		EMA21: decPtr(1999),
	}
	regime := types.Regime{Trend: types.StrongUptrend}
	pattern := types.PatternAnalysis{BullishSuccessRate: 70}
	sentiment := types.SentimentReport{Label: types.RiskOn}

	cfg := types.TuningConfig{
		ATRStopMult: decimal.NewFromInt(2),
		ATRTPMult:   decimal.NewFromInt(4),
	}

	s := scorer.New()
	sig := s.Score(bar, row, prevRow, regime, pattern, sentiment, cfg)

	if sig.Type != types.Long {
		t.Fatalf("expected LONG, got %s", sig.Type)
	}
	if sig.Strength != types.Strong {
		t.Errorf("expected STRONG (5/5 criteria), got %s (%f)", sig.Strength, sig.CriteriaMet)
	}
	if sig.CriteriaMet != 5 {
		t.Errorf("expected CriteriaMet == 5 (EMA9 crossed above EMA21 this bar scores 1.0, not 0.5), got %f", sig.CriteriaMet)
	}
	if !sig.StopLoss.Equal(decimal.NewFromInt(1990)) {
		t.Errorf("expected stop loss 1990, got %s", sig.StopLoss)
	}
	if !sig.TakeProfit.Equal(decimal.NewFromInt(2020)) {
		t.Errorf("expected take profit 2020, got %s", sig.TakeProfit)
	}
	if !sig.RRRatio.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected RR ratio 2, got %s", sig.RRRatio)
	}
}

func TestScoreNoneWhenBothDirectionsWeak(t *testing.T) {
	bar := types.Bar{Close: decimal.NewFromInt(2000)}
	row := types.IndicatorRow{}
	regime := types.Regime{Trend: types.Ranging}
	pattern := types.PatternAnalysis{}
	sentiment := types.SentimentReport{Label: types.NeutralSnt}
	cfg := types.TuningConfig{ATRStopMult: decimal.NewFromInt(2), ATRTPMult: decimal.NewFromInt(4)}

	s := scorer.New()
	sig := s.Score(bar, row, nil, regime, pattern, sentiment, cfg)

	if sig.Type != types.None {
		t.Errorf("expected NONE, got %s", sig.Type)
	}
	if sig.Strength != types.NoStrength {
		t.Errorf("expected NONE strength, got %s", sig.Strength)
	}
}

func TestScoreTiesGoToLong(t *testing.T) {
	bar := types.Bar{Close: decimal.NewFromInt(2000)}
	// Long: stoch below midline 0.5 + pattern 1.0 + neutral 0.5 = 2.0.
	// Short: EMA9 below EMA21 0.5 + pattern 1.0 + neutral 0.5 = 2.0.
	row := types.IndicatorRow{
		EMA9:   decPtr(1999),
		EMA21:  decPtr(2001),
		StochK: decPtr(40),
	}
	regime := types.Regime{Trend: types.Ranging}
	pattern := types.PatternAnalysis{BullishSuccessRate: 70, BearishSuccessRate: 70}
	sentiment := types.SentimentReport{Label: types.NeutralSnt}
	cfg := types.TuningConfig{ATRStopMult: decimal.NewFromInt(2), ATRTPMult: decimal.NewFromInt(4)}

	s := scorer.New()
	sig := s.Score(bar, row, nil, regime, pattern, sentiment, cfg)
	if sig.Type != types.Long {
		t.Errorf("expected a 2.0-2.0 tie to resolve to LONG, got %s", sig.Type)
	}
}
