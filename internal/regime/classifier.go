// Package regime classifies each bar into a (trend, volatility, liquidity)
// Regime using a deterministic rule cascade. Structurally grounded in the
// teacher's internal/regime/detector.go (a Classifier type with a
// default-threshold Config, a Detect-style entry point); the cascade itself
// is taken from original_source/trading_intelligence/analysis/regime.py,
// replacing the teacher's HMM-era algorithm entirely.
package regime

import (
	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/pkg/types"
)

// Config names the thresholds driving the classification cascade.
type Config struct {
	EMASlopePeriod int

	StrongADX     decimal.Decimal
	RangingADX    decimal.Decimal
	StrongSlope   decimal.Decimal
	WeakSlope     decimal.Decimal

	HighVolRatio decimal.Decimal
	LowVolRatio  decimal.Decimal

	HighLiqRatio decimal.Decimal
	LowLiqRatio  decimal.Decimal

	ATRLookback    int
	VolumeLookback int
}

// DefaultConfig matches the thresholds confirmed in regime.py.
func DefaultConfig() Config {
	return Config{
		EMASlopePeriod: 5,
		StrongADX:      decimal.NewFromInt(25),
		RangingADX:     decimal.NewFromInt(20),
		StrongSlope:    decimal.NewFromFloat(0.5),
		WeakSlope:      decimal.NewFromFloat(0.2),
		HighVolRatio:   decimal.NewFromFloat(1.5),
		LowVolRatio:    decimal.NewFromFloat(0.7),
		HighLiqRatio:   decimal.NewFromFloat(1.5),
		LowLiqRatio:    decimal.NewFromFloat(0.7),
		ATRLookback:    20,
		VolumeLookback: 20,
	}
}

// Classifier labels bars given their indicator rows and raw bars.
type Classifier struct {
	cfg Config
}

// New creates a Classifier with the given configuration.
func New(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Classify produces the Regime for bars[i] given the full aligned bar and
// indicator series. Returns false if bar i is before index 30 (insufficient
// warm-up per SPEC_FULL section 3) or required indicators are absent.
func (c *Classifier) Classify(bars []types.Bar, rows []types.IndicatorRow, i int) (types.Regime, bool) {
	if i < 30 || i >= len(bars) || i >= len(rows) {
		return types.Regime{}, false
	}
	row := rows[i]
	if row.EMA9 == nil || row.EMA21 == nil || row.EMA50 == nil || row.ADX == nil || row.ATR == nil {
		return types.Regime{}, false
	}
	slopeIdx := i - c.cfg.EMASlopePeriod
	if slopeIdx < 0 || rows[slopeIdx].EMA21 == nil {
		return types.Regime{}, false
	}

	prevEMA21 := *rows[slopeIdx].EMA21
	curEMA21 := *row.EMA21
	var slopePct decimal.Decimal
	if prevEMA21.IsZero() {
		slopePct = decimal.Zero
	} else {
		slopePct = curEMA21.Sub(prevEMA21).Div(prevEMA21).Mul(decimal.NewFromInt(100))
	}

	price := bars[i].Close
	bullishAligned := price.GreaterThan(*row.EMA9) && row.EMA9.GreaterThan(*row.EMA21) && row.EMA21.GreaterThan(*row.EMA50)
	bearishAligned := price.LessThan(*row.EMA9) && row.EMA9.LessThan(*row.EMA21) && row.EMA21.LessThan(*row.EMA50)

	adx := *row.ADX
	trend := c.classifyTrend(adx, slopePct, bullishAligned, bearishAligned)

	atrRatio := c.ratioVsLookback(rows, i, c.cfg.ATRLookback, func(r types.IndicatorRow) *decimal.Decimal { return r.ATR })
	volatility := bucketRatio(atrRatio, c.cfg.HighVolRatio, c.cfg.LowVolRatio,
		types.HighVol, types.LowVol, types.NormalVol)

	volRatio, volOK := c.volumeRatio(bars, i)
	liquidity := types.NormalLiq
	if volOK {
		liquidity = bucketRatio(volRatio, c.cfg.HighLiqRatio, c.cfg.LowLiqRatio,
			types.HighLiq, types.LowLiq, types.NormalLiq)
	}

	return types.Regime{
		Timestamp:   bars[i].Timestamp,
		Trend:       trend,
		Volatility:  volatility,
		Liquidity:   liquidity,
		ADX:         adx,
		EMASlopePct: slopePct,
		ATRRatio:    atrRatio,
		VolRatio:    volRatio,
		Price:       price,
		EMA9:        *row.EMA9,
		EMA21:       *row.EMA21,
		EMA50:       *row.EMA50,
	}, true
}

func (c *Classifier) classifyTrend(adx, slopePct decimal.Decimal, bullishAligned, bearishAligned bool) types.Trend {
	switch {
	case adx.GreaterThan(c.cfg.StrongADX):
		if slopePct.GreaterThan(c.cfg.StrongSlope) || bullishAligned {
			return types.StrongUptrend
		}
		if slopePct.LessThan(c.cfg.StrongSlope.Neg()) || bearishAligned {
			return types.StrongDowntrend
		}
		if slopePct.GreaterThan(decimal.Zero) {
			return types.WeakUptrend
		}
		return types.WeakDowntrend
	case adx.LessThan(c.cfg.RangingADX):
		return types.Ranging
	default:
		if slopePct.GreaterThan(c.cfg.WeakSlope) {
			return types.WeakUptrend
		}
		if slopePct.LessThan(c.cfg.WeakSlope.Neg()) {
			return types.WeakDowntrend
		}
		return types.Ranging
	}
}

// ratioVsLookback computes field[i] / mean(field over the trailing lookback
// values ending at and including i), returning 1 if the mean is
// zero/unavailable. Matches regime.py's df.iloc[-period:].mean() over the
// history up to and including the current bar.
func (c *Classifier) ratioVsLookback(rows []types.IndicatorRow, i, lookback int, field func(types.IndicatorRow) *decimal.Decimal) decimal.Decimal {
	cur := field(rows[i])
	if cur == nil {
		return decimal.NewFromInt(1)
	}
	start := i - lookback + 1
	if start < 0 {
		start = 0
	}
	sum := decimal.Zero
	count := 0
	for j := start; j <= i; j++ {
		v := field(rows[j])
		if v == nil {
			continue
		}
		sum = sum.Add(*v)
		count++
	}
	if count == 0 {
		return decimal.NewFromInt(1)
	}
	mean := sum.Div(decimal.NewFromInt(int64(count)))
	if mean.IsZero() {
		return decimal.NewFromInt(1)
	}
	return cur.Div(mean)
}

func (c *Classifier) volumeRatio(bars []types.Bar, i int) (decimal.Decimal, bool) {
	cur := bars[i].Volume
	if cur.IsZero() {
		return decimal.Zero, false
	}
	start := i - c.cfg.VolumeLookback + 1
	if start < 0 {
		start = 0
	}
	sum := decimal.Zero
	count := 0
	for j := start; j <= i; j++ {
		sum = sum.Add(bars[j].Volume)
		count++
	}
	if count == 0 {
		return decimal.Zero, false
	}
	mean := sum.Div(decimal.NewFromInt(int64(count)))
	if mean.IsZero() {
		return decimal.Zero, false
	}
	return cur.Div(mean), true
}

func bucketRatio[T any](ratio, high, low decimal.Decimal, highLabel, lowLabel, normalLabel T) T {
	switch {
	case ratio.GreaterThan(high):
		return highLabel
	case ratio.LessThan(low):
		return lowLabel
	default:
		return normalLabel
	}
}
