package indicators_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/internal/indicators"
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

func TestIndicatorSanityOnMonotoneSeries(t *testing.T) {
	bars := monotoneBars(50)
	rows := indicators.Compute(bars, indicators.DefaultConfig())
	last := rows[len(rows)-1]

	if last.RSI == nil {
		t.Fatal("expected RSI to be populated at bar 50")
	}
	if !last.RSI.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected RSI=100 on a strictly increasing series, got %s", last.RSI)
	}

	if last.EMA21 == nil {
		t.Fatal("expected EMA21 to be populated at bar 50")
	}
	// close_49 = 149; EMA21 should trail a steadily rising series, the
	// scenario in SPEC_FULL section 8 puts it around 90.7.
	f, _ := last.EMA21.Float64()
	if f < 85 || f > 96 {
		t.Errorf("expected EMA21 roughly 90.7, got %f", f)
	}

	if last.ADX == nil {
		t.Fatal("expected ADX to be populated at bar 50")
	}
	adxF, _ := last.ADX.Float64()
	if adxF <= 25 {
		t.Errorf("expected ADX > 25 on a strong monotone trend, got %f", adxF)
	}
}

func TestIndicatorsAbsentDuringWarmup(t *testing.T) {
	bars := monotoneBars(5)
	rows := indicators.Compute(bars, indicators.DefaultConfig())
	if rows[0].RSI != nil {
		t.Error("RSI must be nil before warm-up completes")
	}
	if rows[0].EMA200 != nil {
		t.Error("EMA200 must be nil with only 5 bars")
	}
}

func TestBollingerSampleStdDev(t *testing.T) {
	bars := monotoneBars(25)
	rows := indicators.Compute(bars, indicators.DefaultConfig())
	last := rows[len(rows)-1]
	if last.BBUpper == nil || last.BBLower == nil || last.BBMiddle == nil {
		t.Fatal("expected Bollinger bands to be populated at bar 25")
	}
	if !last.BBUpper.GreaterThan(*last.BBMiddle) || !last.BBMiddle.GreaterThan(*last.BBLower) {
		t.Errorf("expected upper > middle > lower, got %s/%s/%s", last.BBUpper, last.BBMiddle, last.BBLower)
	}
}
