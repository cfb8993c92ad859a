// Package scorer evaluates the 5-criterion LONG/SHORT checklist against the
// latest indicator row, regime, pattern analysis, and sentiment report to
// emit a Signal. Grounded in
// original_source/trading_intelligence/analysis/signals.py.
package scorer

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/pkg/types"
)

// Scorer turns market context into a Signal per a TuningConfig.
type Scorer struct{}

// New creates a Scorer.
func New() *Scorer {
	return &Scorer{}
}

// Score evaluates both directions and returns the stronger one, ties going
// to long. prevRow is the indicator row for the bar immediately before bar;
// pass nil when no prior bar is available (criterion 2 then falls back to
// mere EMA alignment, never a strict crossover).
func (s *Scorer) Score(bar types.Bar, row types.IndicatorRow, prevRow *types.IndicatorRow, regime types.Regime, pattern types.PatternAnalysis, sentiment types.SentimentReport, cfg types.TuningConfig) types.Signal {
	longScore, longReasons := s.evaluate(types.Long, bar, row, prevRow, regime, pattern, sentiment)
	shortScore, shortReasons := s.evaluate(types.Short, bar, row, prevRow, regime, pattern, sentiment)

	direction := types.Long
	score := longScore
	reasons := longReasons
	if shortScore > longScore {
		direction = types.Short
		score = shortScore
		reasons = shortReasons
	}

	floored := math.Floor(score)
	strength := classifyStrength(floored)
	signal := types.Signal{
		Timestamp:          bar.Timestamp,
		EntryPrice:         bar.Close,
		RegimeLabel:        regime.Trend,
		PatternSuccessRate: patternRate(direction, pattern),
		SentimentLabel:     sentiment.Label,
		CriteriaMet:        floored,
		CriteriaTotal:      5,
		Reasons:            reasons,
	}

	if strength == types.NoStrength {
		signal.Type = types.None
		signal.Strength = types.NoStrength
		return signal
	}

	signal.Type = direction
	signal.Strength = strength

	atr := decimal.Zero
	if row.ATR != nil {
		atr = *row.ATR
	}
	stopDist := cfg.ATRStopMult.Mul(atr)
	tpDist := cfg.ATRTPMult.Mul(atr)

	if direction == types.Long {
		signal.StopLoss = bar.Close.Sub(stopDist)
		signal.TakeProfit = bar.Close.Add(tpDist)
	} else {
		signal.StopLoss = bar.Close.Add(stopDist)
		signal.TakeProfit = bar.Close.Sub(tpDist)
	}

	risk := bar.Close.Sub(signal.StopLoss).Abs()
	reward := signal.TakeProfit.Sub(bar.Close).Abs()
	if !risk.IsZero() {
		signal.RRRatio = reward.Div(risk)
	}

	return signal
}

func classifyStrength(score float64) types.Strength {
	switch {
	case score >= 4:
		return types.Strong
	case score >= 3:
		return types.Medium
	case score >= 2:
		return types.Weak
	default:
		return types.NoStrength
	}
}

func patternRate(direction types.Direction, pattern types.PatternAnalysis) float64 {
	if direction == types.Long {
		return pattern.BullishSuccessRate
	}
	return pattern.BearishSuccessRate
}

// evaluate scores the 5-criterion checklist for one direction, returning the
// unfloored sum (Score applies the floor).
func (s *Scorer) evaluate(direction types.Direction, bar types.Bar, row types.IndicatorRow, prevRow *types.IndicatorRow, regime types.Regime, pattern types.PatternAnalysis, sentiment types.SentimentReport) (float64, []string) {
	var score float64
	var reasons []string

	add := func(points float64, format string, args ...interface{}) {
		if points <= 0 {
			return
		}
		score += points
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	// 1. Trend
	if direction == types.Long {
		switch regime.Trend {
		case types.StrongUptrend:
			add(1.0, "strong uptrend")
		case types.WeakUptrend:
			add(1.0, "weak uptrend")
		}
	} else {
		switch regime.Trend {
		case types.StrongDowntrend:
			add(1.0, "strong downtrend")
		case types.WeakDowntrend:
			add(1.0, "weak downtrend")
		}
	}

	// 2. EMA cross: 1.0 for a strict crossover this bar, 0.5 for mere
	// alignment, matching signals.py's ema9_prev<=ema21_prev and ema9>ema21
	// distinction from its plain ema9>ema21 fallback.
	if row.EMA9 != nil && row.EMA21 != nil {
		ema9, ema21 := *row.EMA9, *row.EMA21
		var prevEMA9, prevEMA21 *decimal.Decimal
		if prevRow != nil {
			prevEMA9, prevEMA21 = prevRow.EMA9, prevRow.EMA21
		}
		if direction == types.Long {
			switch {
			case prevEMA9 != nil && prevEMA21 != nil && prevEMA9.LessThanOrEqual(*prevEMA21) && ema9.GreaterThan(ema21):
				add(1.0, "EMA9 crossed above EMA21")
			case ema9.GreaterThan(ema21):
				add(0.5, "EMA9 above EMA21")
			}
		} else {
			switch {
			case prevEMA9 != nil && prevEMA21 != nil && prevEMA9.GreaterThanOrEqual(*prevEMA21) && ema9.LessThan(ema21):
				add(1.0, "EMA9 crossed below EMA21")
			case ema9.LessThan(ema21):
				add(0.5, "EMA9 below EMA21")
			}
		}
	}

	// 3. Stochastic
	if row.StochK != nil {
		k, _ := row.StochK.Float64()
		if direction == types.Long {
			switch {
			case k < 30:
				add(1.0, "stochastic oversold (%.1f)", k)
			case k < 50:
				add(0.5, "stochastic below midline (%.1f)", k)
			}
		} else {
			switch {
			case k > 70:
				add(1.0, "stochastic overbought (%.1f)", k)
			case k > 50:
				add(0.5, "stochastic above midline (%.1f)", k)
			}
		}
	}

	// 4. Pattern
	if direction == types.Long && pattern.BullishSuccessRate > 60 {
		add(1.0, "pattern bullish success rate %.1f%%", pattern.BullishSuccessRate)
	} else if direction == types.Short && pattern.BearishSuccessRate > 60 {
		add(1.0, "pattern bearish success rate %.1f%%", pattern.BearishSuccessRate)
	}

	// 5. Sentiment
	if direction == types.Long {
		switch sentiment.Label {
		case types.RiskOn:
			add(1.0, "risk-on sentiment")
		case types.NeutralSnt:
			add(0.5, "neutral sentiment")
		}
	} else {
		switch sentiment.Label {
		case types.RiskOff:
			add(1.0, "risk-off sentiment")
		case types.NeutralSnt:
			add(0.5, "neutral sentiment")
		}
	}

	return score, reasons
}
