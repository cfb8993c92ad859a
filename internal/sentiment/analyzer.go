// Package sentiment classifies the cross-market risk posture by correlating
// gold returns against a fixed basket (USD index, 10Y yield, a broad-equity
// index, silver, crude). Grounded in
// original_source/trading_intelligence/analysis/sentiment.py.
package sentiment

import (
	"math"
	"time"

	"github.com/quartzline/goldintel/pkg/types"
)

// Config names the basket member roles the classification cascade inspects.
type Config struct {
	USDIndexSymbol   string
	YieldSymbol      string
	EquityIndexSymbol string
	RollingWindow    int
	DivergeThreshold float64
	Deadband         float64
}

// DefaultConfig mirrors settings.py's correlated-symbol basket.
func DefaultConfig() Config {
	return Config{
		USDIndexSymbol:    "DX-Y.NYB",
		YieldSymbol:       "^TNX",
		EquityIndexSymbol: "^GSPC",
		RollingWindow:     20,
		DivergeThreshold:  0.3,
		Deadband:          0.3,
	}
}

// Analyzer computes SentimentReports from aligned bar series.
type Analyzer struct {
	cfg Config
}

// New creates an Analyzer.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze computes the sentiment report for gold given the basket series,
// keyed by symbol. Series must be aligned on shared timestamps and ordered
// ascending; the report reflects the last bar in goldBars.
func (a *Analyzer) Analyze(goldBars []types.Bar, basket map[string][]types.Bar) types.SentimentReport {
	now := time.Now()
	if len(goldBars) > 0 {
		now = goldBars[len(goldBars)-1].Timestamp
	}
	report := types.SentimentReport{
		Timestamp:           now,
		Correlations:        map[string]float64{},
		RollingCorrelations: map[string]float64{},
		CorrelationChanges:  map[string]float64{},
		Diverging:           map[string]bool{},
	}

	if len(basket) == 0 || len(goldBars) < a.cfg.RollingWindow+1 {
		report.Label = types.NeutralSnt
		report.Confidence = 0.5
		return report
	}

	goldReturns := closeReturns(goldBars)

	for symbol, bars := range basket {
		otherReturns := closeReturns(bars)
		aligned := min(len(goldReturns), len(otherReturns))
		if aligned < 2 {
			continue
		}
		g := goldReturns[len(goldReturns)-aligned:]
		o := otherReturns[len(otherReturns)-aligned:]

		report.Correlations[symbol] = pearson(g, o)

		w := a.cfg.RollingWindow
		if aligned >= w {
			rolling := pearson(g[aligned-w:], o[aligned-w:])
			report.RollingCorrelations[symbol] = rolling
			if aligned >= 2*w {
				prior := pearson(g[aligned-2*w:aligned-w], o[aligned-2*w:aligned-w])
				change := rolling - prior
				report.CorrelationChanges[symbol] = change
				report.Diverging[symbol] = math.Abs(change) > a.cfg.DivergeThreshold
			}
		}
	}

	report.GoldChange5 = lookbackChange(goldBars, 5)
	if equityBars, ok := basket[a.cfg.EquityIndexSymbol]; ok {
		report.EquityChange5 = lookbackChange(equityBars, 5)
	}
	if usdBars, ok := basket[a.cfg.USDIndexSymbol]; ok {
		report.USDChange5 = lookbackChange(usdBars, 5)
	}
	if yieldBars, ok := basket[a.cfg.YieldSymbol]; ok {
		report.YieldChange5 = lookbackChange(yieldBars, 5)
	}

	report.Label, report.Confidence = a.classify(report)
	return report
}

func (a *Analyzer) classify(r types.SentimentReport) (types.Sentiment, float64) {
	d := a.cfg.Deadband
	equityUp := r.EquityChange5 > d
	equityDown := r.EquityChange5 < -d
	usdUp := r.USDChange5 > d
	usdDown := r.USDChange5 < -d
	goldUp := r.GoldChange5 > d
	goldDown := r.GoldChange5 < -d

	// magnitude sums |vals|, caps at cap, and scales to [0,1] — cap=3 for the
	// three-term primary RISK_ON/RISK_OFF conditions, cap=2 for the two-term
	// "Alternative" fallback conditions, matching sentiment.py's
	// confidence = min(sum, cap) / cap for each branch respectively.
	magnitude := func(cap float64, vals ...float64) float64 {
		sum := 0.0
		for _, v := range vals {
			sum += math.Abs(v)
		}
		if sum > cap {
			sum = cap
		}
		return sum / cap
	}

	switch {
	case equityUp && usdDown && goldUp:
		return types.RiskOn, magnitude(3, r.EquityChange5, r.USDChange5, r.GoldChange5)
	case equityDown && usdUp && goldUp:
		return types.RiskOff, magnitude(3, r.EquityChange5, r.USDChange5, r.GoldChange5)
	case equityDown && goldUp:
		return types.RiskOff, 0.7 * magnitude(2, r.EquityChange5, r.GoldChange5)
	case equityUp && goldUp:
		return types.RiskOn, 0.7 * magnitude(2, r.EquityChange5, r.GoldChange5)
	case (goldUp && equityUp && usdUp) || (goldDown && equityDown && usdDown):
		return types.Uncertain, 0.3
	default:
		return types.NeutralSnt, 0.5
	}
}

// GetCorrelationMatrix is a read-only accessor over the computed report,
// surfaced for the CLI status output and the performance analyzer (a
// supplemented feature from sentiment.py's own public accessor of the same
// shape, not excluded by any Non-goal).
func GetCorrelationMatrix(r types.SentimentReport) map[string]float64 {
	out := make(map[string]float64, len(r.Correlations))
	for k, v := range r.Correlations {
		out[k] = v
	}
	return out
}

// GetRollingCorrelations is the rolling-window analogue of
// GetCorrelationMatrix.
func GetRollingCorrelations(r types.SentimentReport) map[string]float64 {
	out := make(map[string]float64, len(r.RollingCorrelations))
	for k, v := range r.RollingCorrelations {
		out[k] = v
	}
	return out
}

func closeReturns(bars []types.Bar) []float64 {
	if len(bars) < 2 {
		return nil
	}
	out := make([]float64, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		prev, _ := bars[i-1].Close.Float64()
		cur, _ := bars[i].Close.Float64()
		if prev == 0 {
			out[i-1] = 0
			continue
		}
		out[i-1] = (cur - prev) / prev
	}
	return out
}

func lookbackChange(bars []types.Bar, n int) float64 {
	if len(bars) < n+1 {
		return 0
	}
	prev, _ := bars[len(bars)-1-n].Close.Float64()
	cur, _ := bars[len(bars)-1].Close.Float64()
	if prev == 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

func pearson(x, y []float64) float64 {
	n := len(x)
	if n == 0 || n != len(y) {
		return 0
	}
	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var num, denomX, denomY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		num += dx * dy
		denomX += dx * dx
		denomY += dy * dy
	}
	if denomX == 0 || denomY == 0 {
		return 0
	}
	return num / math.Sqrt(denomX*denomY)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
