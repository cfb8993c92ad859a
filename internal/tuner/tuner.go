// Package tuner optimizes TuningConfig thresholds against historical data
// via grid search, globally and per-regime/per-session.
package tuner

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/internal/miner"
	"github.com/quartzline/goldintel/pkg/types"
)

// ParamRange names one tunable scalar and its grid search space.
type ParamRange struct {
	Name   string
	Values []float64
}

// Config names the tuner's search spaces and gates.
type Config struct {
	ParamRanges           []ParamRange
	Regimes               []types.Trend
	Sessions              []types.Session
	MinEvalSample         int
	MinOptimizeSample     int
	MinRegimeSessionData  int
	GlobalApplyThreshold  float64 // % improvement required to apply a global result
	RegimeApplyThreshold  float64 // % improvement required to apply a regime/session override
}

// DefaultConfig matches auto_tuner.py's param_ranges, regimes, sessions and
// gates (20/10 evaluation minimums, 50 regime/session minimum, ≥10% global
// apply threshold, ≥5% regime/session apply threshold).
func DefaultConfig() Config {
	return Config{
		ParamRanges: []ParamRange{
			{Name: "stoch_oversold", Values: rangeValues(10, 35, 5)},
			{Name: "stoch_overbought", Values: rangeValues(65, 95, 5)},
			{Name: "rsi_oversold", Values: rangeValues(20, 40, 5)},
			{Name: "rsi_overbought", Values: rangeValues(60, 80, 5)},
			{Name: "min_score_long", Values: rangeValues(50, 80, 5)},
			{Name: "min_score_short", Values: rangeValues(50, 80, 5)},
			{Name: "atr_stop_mult", Values: []float64{1.5, 2.0, 2.5, 3.0}},
			{Name: "atr_tp_mult", Values: []float64{2.0, 2.5, 3.0, 3.5, 4.0}},
			{Name: "adx_min_trend", Values: rangeValues(15, 40, 5)},
		},
		Regimes: []types.Trend{
			types.StrongUptrend, types.WeakUptrend, types.Ranging,
			types.WeakDowntrend, types.StrongDowntrend,
		},
		Sessions: []types.Session{
			types.SessionAsia, types.SessionLondon, types.SessionNY, types.SessionOverlap,
		},
		MinEvalSample:        20,
		MinOptimizeSample:    10,
		MinRegimeSessionData: 50,
		GlobalApplyThreshold: 10,
		RegimeApplyThreshold: 5,
	}
}

// rangeValues reproduces Python's range(start, stop, step) as a float slice.
func rangeValues(start, stop, step int) []float64 {
	var out []float64
	for v := start; v < stop; v += step {
		out = append(out, float64(v))
	}
	return out
}

// scalars is the flat, named view of TuningConfig's tunable fields used
// during grid search, mirroring auto_tuner.py's plain dict config.
type scalars struct {
	StochOversold   float64
	StochOverbought float64
	RSIOversold     float64
	RSIOverbought   float64
	MinScoreLong    float64
	MinScoreShort   float64
	ATRStopMult     float64
	ATRTPMult       float64
	ADXMinTrend     float64
}

func scalarsFrom(cfg types.TuningConfig) scalars {
	f := func(d decimal.Decimal) float64 { return d.InexactFloat64() }
	return scalars{
		StochOversold:   f(cfg.StochOversold),
		StochOverbought: f(cfg.StochOverbought),
		RSIOversold:     f(cfg.RSIOversold),
		RSIOverbought:   f(cfg.RSIOverbought),
		MinScoreLong:    f(cfg.MinScoreLong),
		MinScoreShort:   f(cfg.MinScoreShort),
		ATRStopMult:     f(cfg.ATRStopMult),
		ATRTPMult:       f(cfg.ATRTPMult),
		ADXMinTrend:     f(cfg.ADXMinTrend),
	}
}

func (s scalars) with(param string, value float64) scalars {
	switch param {
	case "stoch_oversold":
		s.StochOversold = value
	case "stoch_overbought":
		s.StochOverbought = value
	case "rsi_oversold":
		s.RSIOversold = value
	case "rsi_overbought":
		s.RSIOverbought = value
	case "min_score_long":
		s.MinScoreLong = value
	case "min_score_short":
		s.MinScoreShort = value
	case "atr_stop_mult":
		s.ATRStopMult = value
	case "atr_tp_mult":
		s.ATRTPMult = value
	case "adx_min_trend":
		s.ADXMinTrend = value
	}
	return s
}

// DefaultTuningConfig returns the starting scalar values auto_tuner.py ships
// with (TuningConfig dataclass defaults).
func DefaultTuningConfig() types.TuningConfig {
	d := func(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }
	return types.TuningConfig{
		StochOversold:   d(20),
		StochOverbought: d(80),
		RSIOversold:     d(30),
		RSIOverbought:   d(70),
		MinScoreLong:    d(60),
		MinScoreShort:   d(60),
		ATRStopMult:     d(2.0),
		ATRTPMult:       d(3.0),
		ADXMinTrend:     d(25),
	}
}

// EvalResult is the outcome of evaluating one scalar configuration against a
// filtered data slice.
type EvalResult struct {
	WinRate      float64
	ProfitFactor float64
	Trades       int
	Fitness      float64
}

// OptimizationResult is the best value found for one parameter, scoped to an
// optional regime/session and direction.
type OptimizationResult struct {
	ParameterName string
	OptimalValue  float64
	Improvement   float64
	WinRate       float64
	ProfitFactor  float64
	SampleSize    int
	Regime        *types.Trend
	Session       *types.Session
}

// Tuner grid-searches TuningConfig scalars against historical DataPoints.
type Tuner struct {
	cfg     Config
	current types.TuningConfig
	history []OptimizationRun
}

// OptimizationRun records one full optimization pass for audit purposes.
type OptimizationRun struct {
	Timestamp             time.Time
	DataPoints            int
	GlobalImprovements    int
	RegimeOptimizations   int
	SessionOptimizations  int
}

// New builds a Tuner seeded with the given starting configuration.
func New(cfg Config, start types.TuningConfig) *Tuner {
	return &Tuner{cfg: cfg, current: start}
}

// Current returns the tuner's live configuration.
func (t *Tuner) Current() types.TuningConfig { return t.current }

// History returns the recorded optimization runs.
func (t *Tuner) History() []OptimizationRun {
	out := make([]OptimizationRun, len(t.history))
	copy(out, t.history)
	return out
}

func filterData(data []miner.DataPoint, regime *types.Trend, session *types.Session, direction *types.Direction) []miner.DataPoint {
	out := make([]miner.DataPoint, 0, len(data))
	for _, d := range data {
		if regime != nil && d.Regime != *regime {
			continue
		}
		if session != nil && d.Session != *session {
			continue
		}
		if direction != nil && d.Direction != *direction {
			continue
		}
		out = append(out, d)
	}
	return out
}

// EvaluateConfig evaluates a scalar configuration against filtered data
// using the OR-admission rule and fitness formula from auto_tuner.py:
// a trade is counted if stoch_ok OR rsi_ok OR adx_ok, and fitness is
// (win_rate-50)*2 + (profit_factor-1)*15 + min(trades/5, 20).
func (t *Tuner) EvaluateConfig(s scalars, data []miner.DataPoint, direction *types.Direction, regime *types.Trend, session *types.Session) EvalResult {
	filtered := filterData(data, regime, session, direction)
	if len(filtered) < t.cfg.MinEvalSample {
		return EvalResult{}
	}

	long := direction != nil && *direction == types.Long

	var wins, losses int
	var totalProfit, totalLoss float64
	for _, d := range filtered {
		var stochOK, rsiOK bool
		if long {
			stochOK = d.StochK < s.StochOversold
			rsiOK = d.RSI < s.RSIOverbought
		} else {
			stochOK = d.StochK > s.StochOverbought
			rsiOK = d.RSI > s.RSIOversold
		}
		adxOK := d.ADX >= s.ADXMinTrend

		if !(stochOK || rsiOK || adxOK) {
			continue
		}
		if d.Win {
			wins++
			totalProfit += absF(d.PnL)
		} else {
			losses++
			totalLoss += absF(d.PnL)
		}
	}

	total := wins + losses
	if total < t.cfg.MinOptimizeSample {
		return EvalResult{}
	}

	winRate := float64(wins) / float64(total) * 100
	var profitFactor float64
	if totalLoss > 0 {
		profitFactor = totalProfit / totalLoss
	}

	fitness := (winRate-50)*2 + (profitFactor-1)*15 + minF(float64(total)/5, 20)

	return EvalResult{WinRate: winRate, ProfitFactor: profitFactor, Trades: total, Fitness: fitness}
}

// OptimizeParameter grid-searches a single parameter's values, keeping the
// best-fitness value found, and reports improvement over the baseline
// (current configuration, unchanged).
func (t *Tuner) OptimizeParameter(param string, data []miner.DataPoint, direction *types.Direction, regime *types.Trend, session *types.Session) *OptimizationResult {
	var paramRange *ParamRange
	for i := range t.cfg.ParamRanges {
		if t.cfg.ParamRanges[i].Name == param {
			paramRange = &t.cfg.ParamRanges[i]
			break
		}
	}
	if paramRange == nil {
		return nil
	}

	base := scalarsFrom(t.current)
	baseResult := t.EvaluateConfig(base, data, direction, regime, session)

	var bestValue float64
	haveBest := false
	bestFitness := negInf
	var bestResult EvalResult

	for _, v := range paramRange.Values {
		test := base.with(param, v)
		result := t.EvaluateConfig(test, data, direction, regime, session)
		if result.Trades == 0 {
			continue
		}
		if result.Fitness > bestFitness {
			bestFitness = result.Fitness
			bestValue = v
			bestResult = result
			haveBest = true
		}
	}
	if !haveBest {
		return nil
	}

	var improvement float64
	if baseResult.Fitness > 0 {
		improvement = (bestFitness - baseResult.Fitness) / baseResult.Fitness * 100
	}

	return &OptimizationResult{
		ParameterName: param,
		OptimalValue:  bestValue,
		Improvement:   improvement,
		WinRate:       bestResult.WinRate,
		ProfitFactor:  bestResult.ProfitFactor,
		SampleSize:    bestResult.Trades,
		Regime:        regime,
		Session:       session,
	}
}

// OptimizeAllParameters optimizes every parameter in the search space, for
// both LONG and SHORT directions, keeping only results with positive
// improvement.
func (t *Tuner) OptimizeAllParameters(data []miner.DataPoint) map[string]OptimizationResult {
	results := make(map[string]OptimizationResult)
	long, short := types.Long, types.Short

	for _, pr := range t.cfg.ParamRanges {
		if r := t.OptimizeParameter(pr.Name, data, &long, nil, nil); r != nil && r.Improvement > 0 {
			results[pr.Name+"_long"] = *r
		}
		if r := t.OptimizeParameter(pr.Name, data, &short, nil, nil); r != nil && r.Improvement > 0 {
			results[pr.Name+"_short"] = *r
		}
	}
	return results
}

// OptimizeForRegime searches the key parameters (stoch_oversold,
// stoch_overbought, min_score_long, adx_min_trend) against data restricted
// to one regime, applying only results with ≥5% improvement, and returns
// nil when fewer than MinRegimeSessionData points are available.
func (t *Tuner) OptimizeForRegime(regime types.Trend, data []miner.DataPoint) *types.TuningOverride {
	regimeData := filterData(data, &regime, nil, nil)
	if len(regimeData) < t.cfg.MinRegimeSessionData {
		return nil
	}

	var override types.TuningOverride
	touched := false
	for _, param := range []string{"stoch_oversold", "stoch_overbought", "min_score_long", "adx_min_trend"} {
		r := t.OptimizeParameter(param, regimeData, nil, nil, nil)
		if r == nil || r.Improvement < t.cfg.RegimeApplyThreshold {
			continue
		}
		touched = true
		applyOverride(&override, param, r.OptimalValue)
	}
	if !touched {
		return nil
	}
	return &override
}

// OptimizeForSession mirrors OptimizeForRegime, searching
// (stoch_oversold, stoch_overbought, min_score_long) against one session.
func (t *Tuner) OptimizeForSession(session types.Session, data []miner.DataPoint) *types.TuningOverride {
	sessionData := filterData(data, nil, &session, nil)
	if len(sessionData) < t.cfg.MinRegimeSessionData {
		return nil
	}

	var override types.TuningOverride
	touched := false
	for _, param := range []string{"stoch_oversold", "stoch_overbought", "min_score_long"} {
		r := t.OptimizeParameter(param, sessionData, nil, nil, nil)
		if r == nil || r.Improvement < t.cfg.RegimeApplyThreshold {
			continue
		}
		touched = true
		applyOverride(&override, param, r.OptimalValue)
	}
	if !touched {
		return nil
	}
	return &override
}

// applyOverride maps a param name onto TuningOverride's narrower surface.
// TuningOverride only carries MinScoreLong/MinScoreShort (see DESIGN.md);
// stoch/adx results have no override slot and are not kept, so an override
// touched only by them comes back with both fields nil. This matches the
// narrower field set the rest of this repo already settled on for
// ConfigurationUsed.
func applyOverride(o *types.TuningOverride, param string, value float64) {
	d := decimal.NewFromFloat(value)
	if param == "min_score_long" {
		o.MinScoreLong = &d
	}
}

// RunFullOptimization runs the global, per-regime and per-session passes in
// sequence, mutating and returning the tuner's current configuration, and
// appends an OptimizationRun to the history.
func (t *Tuner) RunFullOptimization(data []miner.DataPoint, now time.Time) types.TuningConfig {
	globalResults := t.OptimizeAllParameters(data)

	base := scalarsFrom(t.current)
	for key, r := range globalResults {
		param := stripDirectionSuffix(key)
		if r.Improvement >= t.cfg.GlobalApplyThreshold {
			base = base.with(param, r.OptimalValue)
		}
	}
	t.current = applyScalars(t.current, base)

	if t.current.PerRegime == nil {
		t.current.PerRegime = make(map[types.Trend]types.TuningOverride)
	}
	if t.current.PerSession == nil {
		t.current.PerSession = make(map[types.Session]types.TuningOverride)
	}

	regimeCount := 0
	for _, regime := range t.cfg.Regimes {
		if override := t.OptimizeForRegime(regime, data); override != nil {
			t.current.PerRegime[regime] = *override
			regimeCount++
		}
	}

	sessionCount := 0
	for _, session := range t.cfg.Sessions {
		if override := t.OptimizeForSession(session, data); override != nil {
			t.current.PerSession[session] = *override
			sessionCount++
		}
	}

	t.history = append(t.history, OptimizationRun{
		Timestamp:            now,
		DataPoints:           len(data),
		GlobalImprovements:   len(globalResults),
		RegimeOptimizations:  regimeCount,
		SessionOptimizations: sessionCount,
	})

	return t.current
}

func applyScalars(cfg types.TuningConfig, s scalars) types.TuningConfig {
	d := func(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }
	cfg.StochOversold = d(s.StochOversold)
	cfg.StochOverbought = d(s.StochOverbought)
	cfg.RSIOversold = d(s.RSIOversold)
	cfg.RSIOverbought = d(s.RSIOverbought)
	cfg.MinScoreLong = d(s.MinScoreLong)
	cfg.MinScoreShort = d(s.MinScoreShort)
	cfg.ATRStopMult = d(s.ATRStopMult)
	cfg.ATRTPMult = d(s.ATRTPMult)
	cfg.ADXMinTrend = d(s.ADXMinTrend)
	return cfg
}

func stripDirectionSuffix(key string) string {
	switch {
	case len(key) > 5 && key[len(key)-5:] == "_long":
		return key[:len(key)-5]
	case len(key) > 6 && key[len(key)-6:] == "_short":
		return key[:len(key)-6]
	default:
		return key
	}
}

const negInf = -1 << 62

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
