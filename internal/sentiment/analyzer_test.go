package sentiment_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/internal/sentiment"
	"github.com/quartzline/goldintel/pkg/types"
)

func seriesFrom(prices []float64) []types.Bar {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(prices))
	for i, p := range prices {
		price := decimal.NewFromFloat(p)
		bars[i] = types.Bar{
			Symbol:    "MGC=F",
			Timestamp: start.AddDate(0, 0, i),
			Open:      price,
			High:      price,
			Low:       price,
			Close:     price,
			Volume:    decimal.NewFromInt(1000),
		}
	}
	return bars
}

func rising(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestAnalyzeRiskOffWhenEquityFallsAndGoldRises(t *testing.T) {
	n := 45
	gold := seriesFrom(rising(n, 2000, 10.0))
	equity := seriesFrom(rising(n, 5000, -20.0))
	usd := seriesFrom(rising(n, 100, 0.5))

	a := sentiment.New(sentiment.DefaultConfig())
	report := a.Analyze(gold, map[string][]types.Bar{
		"DX-Y.NYB": usd,
		"^GSPC":    equity,
	})

	if report.Label != types.RiskOff {
		t.Errorf("expected RISK_OFF, got %s (confidence %f)", report.Label, report.Confidence)
	}
}

func TestAnalyzeNeutralWithInsufficientHistory(t *testing.T) {
	gold := seriesFrom(rising(5, 2000, 1.0))
	a := sentiment.New(sentiment.DefaultConfig())
	report := a.Analyze(gold, map[string][]types.Bar{"^GSPC": gold})
	if report.Label != types.NeutralSnt {
		t.Errorf("expected NEUTRAL on insufficient history, got %s", report.Label)
	}
	if report.Confidence != 0.5 {
		t.Errorf("expected confidence 0.5, got %f", report.Confidence)
	}
}

func TestGetCorrelationMatrixReturnsCopy(t *testing.T) {
	n := 45
	gold := seriesFrom(rising(n, 2000, 1.0))
	equity := seriesFrom(rising(n, 5000, 1.0))

	a := sentiment.New(sentiment.DefaultConfig())
	report := a.Analyze(gold, map[string][]types.Bar{"^GSPC": equity})

	matrix := sentiment.GetCorrelationMatrix(report)
	matrix["^GSPC"] = -99
	if report.Correlations["^GSPC"] == -99 {
		t.Error("expected GetCorrelationMatrix to return an independent copy")
	}
}
