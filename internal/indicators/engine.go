// Package indicators computes the technical indicator library (EMA/SMA,
// RSI, MACD, Bollinger Bands, ATR, ADX, Stochastic) over an ordered bar
// series. Grounded in the teacher's pkg/utils EMA/SMA calculators, extended
// with the exact formulas confirmed against
// original_source/trading_intelligence/indicators/technical.py.
package indicators

import (
	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/pkg/types"
	"github.com/quartzline/goldintel/pkg/utils"
)

// Config names the periods used by each indicator. Zero-value fields fall
// back to the package defaults via WithDefaults.
type Config struct {
	EMAPeriods   []int
	RSIPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	BBPeriod     int
	BBStdDev     int
	ATRPeriod    int
	ADXPeriod    int
	StochKPeriod int
	StochDPeriod int
	StochSmoothK int
}

// DefaultConfig mirrors settings.py's IndicatorConfig.
func DefaultConfig() Config {
	return Config{
		EMAPeriods:   []int{9, 21, 50, 200},
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		BBPeriod:     20,
		BBStdDev:     2,
		ATRPeriod:    14,
		ADXPeriod:    14,
		StochKPeriod: 14,
		StochDPeriod: 3,
		StochSmoothK: 3,
	}
}

// Compute returns one IndicatorRow per input bar, with nil fields wherever
// the corresponding indicator's warm-up window is not yet satisfied.
func Compute(bars []types.Bar, cfg Config) []types.IndicatorRow {
	n := len(bars)
	rows := make([]types.IndicatorRow, n)
	for i, b := range bars {
		rows[i].Timestamp = b.Timestamp
	}
	if n == 0 {
		return rows
	}

	closes := closeSeries(bars)

	emaCalcs := make(map[int]*utils.EMA, len(cfg.EMAPeriods))
	for _, p := range cfg.EMAPeriods {
		emaCalcs[p] = utils.NewEMA(p)
	}
	for i, c := range closes {
		for _, p := range cfg.EMAPeriods {
			v := emaCalcs[p].Add(c)
			if i+1 < p {
				continue
			}
			set := v
			switch p {
			case 9:
				rows[i].EMA9 = &set
			case 21:
				rows[i].EMA21 = &set
			case 50:
				rows[i].EMA50 = &set
			case 200:
				rows[i].EMA200 = &set
			}
		}
	}

	computeSMA(rows, closes, cfg.BBPeriod)
	computeRSI(rows, closes, cfg.RSIPeriod)
	computeMACD(rows, closes, cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal)
	computeBollinger(rows, closes, cfg.BBPeriod, cfg.BBStdDev)
	computeATR(rows, bars, cfg.ATRPeriod)
	computeADX(rows, bars, cfg.ADXPeriod)
	computeStochastic(rows, bars, cfg.StochKPeriod, cfg.StochDPeriod, cfg.StochSmoothK)

	return rows
}

func closeSeries(bars []types.Bar) []decimal.Decimal {
	out := make([]decimal.Decimal, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func computeSMA(rows []types.IndicatorRow, closes []decimal.Decimal, period int) {
	sma := utils.NewSMA(period)
	for i, c := range closes {
		v := sma.Add(c)
		if i+1 < period {
			continue
		}
		set := v
		rows[i].SMA = &set
	}
}

// computeRSI uses a simple rolling mean of gains/losses (not Wilder's
// exponential smoothing), matching technical.py's
// rolling(window=period).mean().
func computeRSI(rows []types.IndicatorRow, closes []decimal.Decimal, period int) {
	if len(closes) < period+1 {
		return
	}
	gains := utils.NewSMA(period)
	losses := utils.NewSMA(period)
	for i := 1; i < len(closes); i++ {
		delta := closes[i].Sub(closes[i-1])
		gain := decimal.Zero
		loss := decimal.Zero
		if delta.GreaterThan(decimal.Zero) {
			gain = delta
		} else {
			loss = delta.Neg()
		}
		avgGain := gains.Add(gain)
		avgLoss := losses.Add(loss)

		if i+1 < period+1 {
			continue
		}
		var rsi decimal.Decimal
		if avgLoss.IsZero() {
			rsi = decimal.NewFromInt(100)
		} else {
			rs := avgGain.Div(avgLoss)
			rsi = decimal.NewFromInt(100).Sub(decimal.NewFromInt(100).Div(decimal.NewFromInt(1).Add(rs)))
		}
		rsi = utils.ClampDecimal(rsi, decimal.Zero, decimal.NewFromInt(100))
		set := rsi
		rows[i].RSI = &set
	}
}

func computeMACD(rows []types.IndicatorRow, closes []decimal.Decimal, fast, slow, signal int) {
	fastEMA := utils.NewEMA(fast)
	slowEMA := utils.NewEMA(slow)
	signalEMA := utils.NewEMA(signal)

	for i, c := range closes {
		f := fastEMA.Add(c)
		s := slowEMA.Add(c)
		if i+1 < slow {
			continue
		}
		line := f.Sub(s)
		sig := signalEMA.Add(line)
		if i+1 < slow+signal-1 {
			continue
		}
		l, sg := line, sig
		hist := l.Sub(sg)
		rows[i].MACDLine = &l
		rows[i].MACDSignal = &sg
		rows[i].MACDHist = &hist
	}
}

func computeBollinger(rows []types.IndicatorRow, closes []decimal.Decimal, period, stdDevMult int) {
	if period <= 1 {
		return
	}
	mult := decimal.NewFromInt(int64(stdDevMult))
	for i := range closes {
		if i+1 < period {
			continue
		}
		window := closes[i+1-period : i+1]
		mean := utils.CalculateMean(window)
		std := utils.CalculateStdDev(window)
		upper := mean.Add(std.Mul(mult))
		lower := mean.Sub(std.Mul(mult))
		m, u, l := mean, upper, lower
		rows[i].BBMiddle = &m
		rows[i].BBUpper = &u
		rows[i].BBLower = &l
	}
}

// trueRange computes the true range for bar i (i>0): the largest of the
// high-low range and the gaps to the previous close.
func trueRange(bars []types.Bar, i int) decimal.Decimal {
	if i == 0 {
		return bars[i].High.Sub(bars[i].Low)
	}
	hl := bars[i].High.Sub(bars[i].Low)
	hc := bars[i].High.Sub(bars[i-1].Close).Abs()
	lc := bars[i].Low.Sub(bars[i-1].Close).Abs()
	return utils.MaxDecimal(hl, utils.MaxDecimal(hc, lc))
}

// computeATR is the standard EMA of true range (not Wilder's smoothing),
// matching technical.py's ewm(span=period, adjust=False) on TR.
func computeATR(rows []types.IndicatorRow, bars []types.Bar, period int) {
	atrEMA := utils.NewEMA(period)
	for i := range bars {
		tr := trueRange(bars, i)
		v := atrEMA.Add(tr)
		if i+1 < period {
			continue
		}
		set := v
		rows[i].ATR = &set
	}
}

// computeADX computes +DI/-DI/ADX with standard EMA smoothing at every
// stage (directional movement, then DX->ADX), per technical.py.
func computeADX(rows []types.IndicatorRow, bars []types.Bar, period int) {
	n := len(bars)
	if n < 2 {
		return
	}
	plusDMEMA := utils.NewEMA(period)
	minusDMEMA := utils.NewEMA(period)
	trEMA := utils.NewEMA(period)
	dxEMA := utils.NewEMA(period)
	var lastDX decimal.Decimal
	haveDX := false

	for i := 0; i < n; i++ {
		var plusDM, minusDM decimal.Decimal
		if i > 0 {
			upMove := bars[i].High.Sub(bars[i-1].High)
			downMove := bars[i-1].Low.Sub(bars[i].Low)
			if upMove.GreaterThan(downMove) && upMove.GreaterThan(decimal.Zero) {
				plusDM = upMove
			}
			if downMove.GreaterThan(upMove) && downMove.GreaterThan(decimal.Zero) {
				minusDM = downMove
			}
		}
		tr := trueRange(bars, i)

		plusSmoothed := plusDMEMA.Add(plusDM)
		minusSmoothed := minusDMEMA.Add(minusDM)
		trSmoothed := trEMA.Add(tr)

		if i+1 < period || trSmoothed.IsZero() {
			continue
		}

		plusDI := decimal.NewFromInt(100).Mul(plusSmoothed).Div(trSmoothed)
		minusDI := decimal.NewFromInt(100).Mul(minusSmoothed).Div(trSmoothed)

		pd, md := plusDI, minusDI
		rows[i].PlusDI = &pd
		rows[i].MinusDI = &md

		sum := plusDI.Add(minusDI)
		var dx decimal.Decimal
		if sum.IsZero() {
			if !haveDX {
				continue
			}
			dx = lastDX
		} else {
			dx = decimal.NewFromInt(100).Mul(plusDI.Sub(minusDI).Abs()).Div(sum)
		}
		lastDX, haveDX = dx, true
		a := dxEMA.Add(dx)
		rows[i].ADX = &a
	}
}

// computeStochastic double-smooths %K: raw %K over rawPeriod, SMA(smoothK)
// to produce the displayed %K, then SMA(dPeriod) of that for %D.
func computeStochastic(rows []types.IndicatorRow, bars []types.Bar, rawPeriod, dPeriod, smoothK int) {
	n := len(bars)
	if n < rawPeriod {
		return
	}
	rawK := make([]decimal.Decimal, n)
	haveRaw := make([]bool, n)

	for i := 0; i < n; i++ {
		if i+1 < rawPeriod {
			continue
		}
		window := bars[i+1-rawPeriod : i+1]
		lowMin := window[0].Low
		highMax := window[0].High
		for _, b := range window {
			lowMin = utils.MinDecimal(lowMin, b.Low)
			highMax = utils.MaxDecimal(highMax, b.High)
		}
		denom := highMax.Sub(lowMin)
		if denom.IsZero() {
			if i == 0 || !haveRaw[i-1] {
				continue
			}
			rawK[i] = rawK[i-1]
		} else {
			rawK[i] = decimal.NewFromInt(100).Mul(bars[i].Close.Sub(lowMin)).Div(denom)
		}
		haveRaw[i] = true
	}

	smoothedK := utils.NewSMA(smoothK)
	smoothedKSeries := make([]decimal.Decimal, n)
	haveSmoothedK := make([]bool, n)
	count := 0
	for i := 0; i < n; i++ {
		if !haveRaw[i] {
			continue
		}
		v := smoothedK.Add(rawK[i])
		count++
		if count < smoothK {
			continue
		}
		smoothedKSeries[i] = v
		haveSmoothedK[i] = true
	}

	dSMA := utils.NewSMA(dPeriod)
	countD := 0
	for i := 0; i < n; i++ {
		if !haveSmoothedK[i] {
			continue
		}
		k := smoothedKSeries[i]
		set := k
		rows[i].StochK = &set

		d := dSMA.Add(k)
		countD++
		if countD < dPeriod {
			continue
		}
		dv := d
		rows[i].StochD = &dv
	}
}
