package patterns_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/internal/indicators"
	"github.com/quartzline/goldintel/internal/patterns"
	"github.com/quartzline/goldintel/internal/regime"
	"github.com/quartzline/goldintel/pkg/types"
)

func monotoneBars(n int) []types.Bar {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, n)
	for i := 0; i < n; i++ {
		price := decimal.NewFromInt(int64(100 + i))
		bars[i] = types.Bar{
			Symbol:    "MGC=F",
			Timestamp: start.AddDate(0, 0, i),
			Open:      price,
			High:      price.Add(decimal.NewFromInt(1)),
			Low:       price.Sub(decimal.NewFromInt(1)),
			Close:     price,
			Volume:    decimal.NewFromInt(1000),
		}
	}
	return bars
}

func allRegimes(bars []types.Bar, rows []types.IndicatorRow) []types.Regime {
	c := regime.New(regime.DefaultConfig())
	out := make([]types.Regime, len(bars))
	for i := range bars {
		if r, ok := c.Classify(bars, rows, i); ok {
			out[i] = r
		}
	}
	return out
}

func TestSetupSimilarityMatchesSpecExample(t *testing.T) {
	a := types.Setup{
		Trend: types.StrongUptrend, Volatility: types.NormalVol, Liquidity: types.NormalLiq,
		EMACross: types.BullAligned, StochLevel: types.LevelOversold, RSILevel: types.LevelLow,
	}
	b := a
	b.RSILevel = types.LevelNeutral

	sim := a.Similarity(b)
	if sim < 0.83 || sim > 0.84 {
		t.Errorf("expected similarity ~0.833, got %f", sim)
	}
}

func TestAnalyzeOnStrongUptrendPredictsBullish(t *testing.T) {
	bars := monotoneBars(120)
	rows := indicators.Compute(bars, indicators.DefaultConfig())
	regimes := allRegimes(bars, rows)

	last := len(bars) - 1
	reference := patterns.BuildSetup(bars, rows, last, regimes[last])

	m := patterns.New(patterns.DefaultConfig())
	analysis := m.Analyze(bars, rows, regimes, reference)

	if analysis.TotalMatches == 0 {
		t.Fatal("expected at least one historical match on a monotone series")
	}
	if analysis.Prediction != types.Bullish {
		t.Errorf("expected BULLISH prediction, got %s (bullish rate %f)", analysis.Prediction, analysis.BullishSuccessRate)
	}
}

func TestBuildSetupClassifiesRSIOverboughtOnRisingSeries(t *testing.T) {
	bars := monotoneBars(40)
	rows := indicators.Compute(bars, indicators.DefaultConfig())
	regimes := allRegimes(bars, rows)

	setup := patterns.BuildSetup(bars, rows, 39, regimes[39])
	if setup.RSILevel != types.LevelOverbought {
		t.Errorf("expected RSI overbought on a strictly increasing series, got %s", setup.RSILevel)
	}
}
