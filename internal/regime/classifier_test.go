package regime_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/internal/indicators"
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

func TestClassifyStrongUptrendOnMonotoneSeries(t *testing.T) {
	bars := monotoneBars(50)
	rows := indicators.Compute(bars, indicators.DefaultConfig())
	c := regime.New(regime.DefaultConfig())

	r, ok := c.Classify(bars, rows, 49)
	if !ok {
		t.Fatal("expected a classified regime at bar 49")
	}
	if r.Trend != types.StrongUptrend {
		t.Errorf("expected STRONG_UPTREND, got %s", r.Trend)
	}
	if r.Liquidity != types.NormalLiq {
		t.Errorf("expected NORMAL_LIQ on flat volume, got %s", r.Liquidity)
	}
}

func TestClassifyBeforeWarmupIsUnavailable(t *testing.T) {
	bars := monotoneBars(50)
	rows := indicators.Compute(bars, indicators.DefaultConfig())
	c := regime.New(regime.DefaultConfig())

	if _, ok := c.Classify(bars, rows, 10); ok {
		t.Error("expected no regime before index 30")
	}
}

func TestClassifyDefaultsToNormalLiquidityWithoutVolume(t *testing.T) {
	bars := monotoneBars(50)
	for i := range bars {
		bars[i].Volume = decimal.Zero
	}
	rows := indicators.Compute(bars, indicators.DefaultConfig())
	c := regime.New(regime.DefaultConfig())

	r, ok := c.Classify(bars, rows, 49)
	if !ok {
		t.Fatal("expected a classified regime at bar 49")
	}
	if r.Liquidity != types.NormalLiq {
		t.Errorf("expected NORMAL_LIQ when volume is unavailable, got %s", r.Liquidity)
	}
}
