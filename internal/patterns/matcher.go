// Package patterns builds Setup fingerprints and matches the current bar
// against historical bars with a similar fingerprint to produce a forward
// directional prediction. Grounded in
// original_source/trading_intelligence/analysis/patterns.py.
package patterns

import (
	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/pkg/types"
)

// Config names the matcher's tunables.
type Config struct {
	MinSimilarity float64
	Lookback1b    int
	Lookback4b    int
	Lookback24b   int
}

// DefaultConfig mirrors patterns.py's PatternMatcher defaults.
func DefaultConfig() Config {
	return Config{
		MinSimilarity: 0.7,
		Lookback1b:    1,
		Lookback4b:    4,
		Lookback24b:   24,
	}
}

// Matcher finds historical setups similar to a reference setup.
type Matcher struct {
	cfg Config
}

// New creates a Matcher.
func New(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// BuildSetup encodes the Setup fingerprint for bars[i], given its Regime.
func BuildSetup(bars []types.Bar, rows []types.IndicatorRow, i int, regime types.Regime) types.Setup {
	row := rows[i]

	rsi := decimal.NewFromInt(50)
	if row.RSI != nil {
		rsi = *row.RSI
	}
	stochK := decimal.NewFromInt(50)
	if row.StochK != nil {
		stochK = *row.StochK
	}
	adx := decimal.NewFromInt(20)
	if row.ADX != nil {
		adx = *row.ADX
	}

	return types.Setup{
		Trend:      regime.Trend,
		Volatility: regime.Volatility,
		Liquidity:  regime.Liquidity,
		EMACross:   emaCross(rows, i),
		StochLevel: classifyStoch(stochK),
		RSILevel:   classifyRSI(rsi),
		RSI:        rsi,
		StochK:     stochK,
		ADX:        adx,
	}
}

// emaCross detects the EMA9/EMA21 crossover state at bar i. Absent a prior
// bar or the EMAs themselves, defaults to BULL_ALIGNED, matching
// patterns.py's _detect_ema_cross fallback.
func emaCross(rows []types.IndicatorRow, i int) types.EMACross {
	if i < 1 || rows[i].EMA9 == nil || rows[i].EMA21 == nil || rows[i-1].EMA9 == nil || rows[i-1].EMA21 == nil {
		return types.BullAligned
	}
	ema9Now, ema21Now := *rows[i].EMA9, *rows[i].EMA21
	ema9Prev, ema21Prev := *rows[i-1].EMA9, *rows[i-1].EMA21

	switch {
	case ema9Prev.LessThanOrEqual(ema21Prev) && ema9Now.GreaterThan(ema21Now):
		return types.BullCross
	case ema9Prev.GreaterThanOrEqual(ema21Prev) && ema9Now.LessThan(ema21Now):
		return types.BearCross
	case ema9Now.GreaterThan(ema21Now):
		return types.BullAligned
	default:
		return types.BearAligned
	}
}

func classifyStoch(stochK decimal.Decimal) types.OscillatorLevel {
	f, _ := stochK.Float64()
	switch {
	case f < 20:
		return types.LevelOversold
	case f < 40:
		return types.LevelLow
	case f < 60:
		return types.LevelNeutral
	case f < 80:
		return types.LevelHigh
	default:
		return types.LevelOverbought
	}
}

func classifyRSI(rsi decimal.Decimal) types.OscillatorLevel {
	f, _ := rsi.Float64()
	switch {
	case f < 30:
		return types.LevelOversold
	case f < 45:
		return types.LevelLow
	case f < 55:
		return types.LevelNeutral
	case f < 70:
		return types.LevelHigh
	default:
		return types.LevelOverbought
	}
}

// Analyze scans bars[30, len(bars)-24) for setups similar to reference,
// aggregates forward outcomes, and predicts a direction.
func (m *Matcher) Analyze(bars []types.Bar, rows []types.IndicatorRow, regimes []types.Regime, reference types.Setup) types.PatternAnalysis {
	var matches []types.PatternMatch
	n := len(bars)
	end := n - m.cfg.Lookback24b
	for i := 30; i < end && i < len(regimes); i++ {
		if regimes[i].Timestamp.IsZero() {
			continue
		}
		setup := BuildSetup(bars, rows, i, regimes[i])
		sim := setup.Similarity(reference)
		if sim < m.cfg.MinSimilarity {
			continue
		}
		matches = append(matches, buildMatch(bars, i, setup, sim, m.cfg))
	}

	return aggregate(matches)
}

func buildMatch(bars []types.Bar, i int, setup types.Setup, sim float64, cfg Config) types.PatternMatch {
	pm := types.PatternMatch{Setup: setup, Similarity: sim}
	if v := outcome(bars, i, cfg.Lookback1b); v != nil {
		pm.Outcome1b = v
	}
	if v := outcome(bars, i, cfg.Lookback4b); v != nil {
		pm.Outcome4b = v
	}
	if v := outcome(bars, i, cfg.Lookback24b); v != nil {
		pm.Outcome24b = v
		bull := *v > 0
		bear := *v < 0
		pm.BullSuccess = &bull
		pm.BearSuccess = &bear
	}
	return pm
}

func outcome(bars []types.Bar, i, forward int) *float64 {
	if i+forward >= len(bars) {
		return nil
	}
	now, _ := bars[i].Close.Float64()
	future, _ := bars[i+forward].Close.Float64()
	if now == 0 {
		return nil
	}
	v := (future - now) / now * 100
	return &v
}

func aggregate(matches []types.PatternMatch) types.PatternAnalysis {
	analysis := types.PatternAnalysis{Matches: matches, TotalMatches: len(matches)}

	var withOutcome int
	var bullCount, bearCount int
	var sumOutcome24 float64
	for _, m := range matches {
		if m.Outcome24b == nil {
			continue
		}
		withOutcome++
		sumOutcome24 += *m.Outcome24b
		if m.BullSuccess != nil && *m.BullSuccess {
			bullCount++
		}
		if m.BearSuccess != nil && *m.BearSuccess {
			bearCount++
		}
	}

	if withOutcome == 0 {
		analysis.Prediction = types.NeutralPattern
		return analysis
	}

	analysis.BullishSuccessRate = float64(bullCount) / float64(withOutcome) * 100
	analysis.BearishSuccessRate = float64(bearCount) / float64(withOutcome) * 100
	analysis.AvgOutcome24b = sumOutcome24 / float64(withOutcome)

	switch {
	case analysis.BullishSuccessRate > 60:
		analysis.Prediction = types.Bullish
		analysis.Confidence = scaleConfidence(analysis.BullishSuccessRate, len(matches))
	case analysis.BearishSuccessRate > 60:
		analysis.Prediction = types.Bearish
		analysis.Confidence = scaleConfidence(analysis.BearishSuccessRate, len(matches))
	default:
		analysis.Prediction = types.NeutralPattern
	}

	return analysis
}

func scaleConfidence(rate float64, matchCount int) float64 {
	c := (rate - 50) / 50
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	switch {
	case matchCount < 5:
		c *= 0.5
	case matchCount < 10:
		c *= 0.75
	}
	return c
}
