// Package miner mines a history of closed trades/signals for profitable
// indicator thresholds, combinations, regime-specific, and session-specific
// patterns. Grounded in
// original_source/trading_intelligence/learning/pattern_miner.py.
package miner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/internal/autologger"
	"github.com/quartzline/goldintel/pkg/types"
)

// DataPoint is one closed trade/signal flattened to the feature set the
// miner searches over.
type DataPoint struct {
	Timestamp time.Time
	RSI       float64
	StochK    float64
	ADX       float64
	ATR       float64
	Regime    types.Trend
	Session   types.Session
	Direction types.Direction
	Win       bool
	PnL       float64
}

// Config names the miner's sample-size/quality gates and search space.
type Config struct {
	MinSampleSize  int
	MinWinRate     float64
	MinProfitFactor float64

	Thresholds map[string][]float64
	Regimes    []types.Trend
	Sessions   []types.Session
}

// DefaultConfig mirrors pattern_miner.py's PatternMiner.__init__ defaults.
func DefaultConfig() Config {
	return Config{
		MinSampleSize:   30,
		MinWinRate:      55.0,
		MinProfitFactor: 1.3,
		Thresholds: map[string][]float64{
			"rsi":            {20, 25, 30, 35, 40, 60, 65, 70, 75, 80},
			"stoch_k":        {15, 20, 25, 30, 70, 75, 80, 85},
			"adx":            {15, 20, 25, 30, 35, 40},
			"atr_percentile": {20, 30, 40, 60, 70, 80},
		},
		Regimes: []types.Trend{
			types.StrongUptrend, types.WeakUptrend, types.Ranging,
			types.WeakDowntrend, types.StrongDowntrend,
		},
		Sessions: []types.Session{
			types.SessionAsia, types.SessionLondon, types.SessionNY, types.SessionOverlap,
		},
	}
}

// Miner discovers DiscoveredPatterns over a fixed DataPoint history.
type Miner struct {
	cfg Config
}

// New builds a Miner with cfg.
func New(cfg Config) *Miner {
	return &Miner{cfg: cfg}
}

// FromSignalRecords flattens completed SignalRecords into DataPoints,
// keeping only WIN/LOSS outcomes (matching the original's `outcome IS NOT
// NULL` filter restricted to realized results).
func FromSignalRecords(records []types.SignalRecord) []DataPoint {
	var out []DataPoint
	for _, r := range records {
		if r.Status != types.StatusCompleted {
			continue
		}
		if r.Outcome.Result != types.ResultWin && r.Outcome.Result != types.ResultLoss {
			continue
		}
		pnl, _ := r.Outcome.FinalPnL.Float64()
		out = append(out, DataPoint{
			Timestamp: r.Timestamp,
			RSI:       decOr(r.Indicators.RSI, 50),
			StochK:    decOr(r.Indicators.StochK, 50),
			ADX:       decOr(r.Indicators.ADX, 20),
			ATR:       decOr(r.Indicators.ATR, 0),
			Regime:    r.MarketConditions.Regime,
			Session:   r.MarketConditions.Session,
			Direction: r.SignalType,
			Win:       r.Outcome.Result == types.ResultWin,
			PnL:       pnl,
		})
	}
	return out
}

// FromAutoLoggerTrades flattens exported Auto-Logger TradeRecords into
// DataPoints. Concatenated with FromSignalRecords with no deduplication,
// matching load_historical_data's "load from both, concatenate" behavior.
func FromAutoLoggerTrades(trades []autologger.TradeRecord) []DataPoint {
	out := make([]DataPoint, 0, len(trades))
	for _, t := range trades {
		out = append(out, DataPoint{
			Timestamp: t.Timestamp,
			RSI:       t.RSI,
			StochK:    t.StochK,
			ADX:       t.ADX,
			ATR:       t.ATR,
			Regime:    t.Regime,
			Session:   t.Session,
			Direction: t.Direction,
			Win:       t.Win,
			PnL:       t.PnL,
		})
	}
	return out
}

func decOr(d decimal.Decimal, fallback float64) float64 {
	if d.IsZero() {
		return fallback
	}
	v, _ := d.Float64()
	return v
}

func feature(d DataPoint, name string) float64 {
	switch name {
	case "rsi":
		return d.RSI
	case "stoch_k":
		return d.StochK
	case "adx":
		return d.ADX
	case "atr_percentile":
		return d.ATR
	default:
		return 50
	}
}

// MineAll runs every pattern family and returns them sorted by confidence
// descending, matching mine_all_patterns.
func (m *Miner) MineAll(data []DataPoint) []types.DiscoveredPattern {
	var all []types.DiscoveredPattern
	all = append(all, m.MineSingleIndicator(data)...)
	all = append(all, m.MineCombos(data)...)
	all = append(all, m.MineRegimes(data)...)
	all = append(all, m.MineSessions(data)...)

	sort.SliceStable(all, func(i, j int) bool { return all[i].Confidence > all[j].Confidence })
	return all
}

// MineSingleIndicator searches every (indicator, threshold, direction,
// comparison) quadruple in the configured search space.
func (m *Miner) MineSingleIndicator(data []DataPoint) []types.DiscoveredPattern {
	var patterns []types.DiscoveredPattern

	indicators := sortedKeys(m.cfg.Thresholds)
	for _, indicator := range indicators {
		for _, threshold := range m.cfg.Thresholds[indicator] {
			for _, direction := range []types.Direction{types.Long, types.Short} {
				for _, op := range []string{"<", ">"} {
					filtered := filterBy(data, func(d DataPoint) bool {
						v := feature(d, indicator)
						if op == "<" {
							return v < threshold && d.Direction == direction
						}
						return v > threshold && d.Direction == direction
					})

					stats, ok := m.evaluate(filtered, 0)
					if !ok {
						continue
					}

					regime, session := bestRegimeSession(filtered)
					patterns = append(patterns, types.DiscoveredPattern{
						ID:     fmt.Sprintf("P_%s_%s_%g_%s", indicator, op, threshold, direction),
						Family: "single",
						Conditions: map[string]types.Condition{
							indicator: {Op: op, Threshold: decimal.NewFromFloat(threshold)},
						},
						Direction:    direction,
						Regime:       regime,
						Session:      session,
						WinRate:      stats.winRate,
						ProfitFactor: stats.profitFactor,
						SampleSize:   len(filtered),
						Confidence:   stats.confidence,
					})
				}
			}
		}
	}
	return patterns
}

type combo struct {
	name       string
	conditions []comboCond
	direction  types.Direction
}

type comboCond struct {
	indicator string
	op        string
	value     float64
}

var combos = []combo{
	{"Oversold Stoch + Bullish RSI", []comboCond{{"stoch_k", "<", 25}, {"rsi", ">", 45}}, types.Long},
	{"Overbought Stoch + Bearish RSI", []comboCond{{"stoch_k", ">", 75}, {"rsi", "<", 55}}, types.Short},
	{"Strong Trend + RSI Momentum Long", []comboCond{{"adx", ">", 30}, {"rsi", ">", 55}}, types.Long},
	{"Strong Trend + RSI Momentum Short", []comboCond{{"adx", ">", 30}, {"rsi", "<", 45}}, types.Short},
	{"Extreme Oversold", []comboCond{{"stoch_k", "<", 20}, {"rsi", "<", 30}}, types.Long},
	{"Extreme Overbought", []comboCond{{"stoch_k", ">", 80}, {"rsi", ">", 70}}, types.Short},
}

// MineCombos checks the 6 fixed multi-indicator combinations, matching
// mine_combo_patterns.
func (m *Miner) MineCombos(data []DataPoint) []types.DiscoveredPattern {
	var patterns []types.DiscoveredPattern
	for _, c := range combos {
		filtered := filterBy(data, func(d DataPoint) bool {
			if d.Direction != c.direction {
				return false
			}
			for _, cond := range c.conditions {
				v := feature(d, cond.indicator)
				if cond.op == "<" && !(v < cond.value) {
					return false
				}
				if cond.op == ">" && !(v > cond.value) {
					return false
				}
			}
			return true
		})

		stats, ok := m.evaluate(filtered, 10)
		if !ok {
			continue
		}

		regime, session := bestRegimeSession(filtered)
		conditions := make(map[string]types.Condition, len(c.conditions))
		for _, cond := range c.conditions {
			conditions[cond.indicator] = types.Condition{Op: cond.op, Threshold: decimal.NewFromFloat(cond.value)}
		}
		patterns = append(patterns, types.DiscoveredPattern{
			ID:           fmt.Sprintf("COMBO_%s_%s", strings.ReplaceAll(c.name, " ", "_"), c.direction),
			Family:       "combo",
			Conditions:   conditions,
			Direction:    c.direction,
			Regime:       regime,
			Session:      session,
			WinRate:      stats.winRate,
			ProfitFactor: stats.profitFactor,
			SampleSize:   len(filtered),
			Confidence:   stats.confidence,
		})
	}
	return patterns
}

// MineRegimes finds the best direction within each regime, matching
// mine_regime_patterns.
func (m *Miner) MineRegimes(data []DataPoint) []types.DiscoveredPattern {
	var patterns []types.DiscoveredPattern
	for _, regime := range m.cfg.Regimes {
		regimeData := filterBy(data, func(d DataPoint) bool { return d.Regime == regime })
		if len(regimeData) < m.cfg.MinSampleSize {
			continue
		}

		for _, direction := range []types.Direction{types.Long, types.Short} {
			dirData := filterBy(regimeData, func(d DataPoint) bool { return d.Direction == direction })
			if len(dirData) < m.cfg.MinSampleSize/2 {
				continue
			}

			stats, ok := m.evaluate(dirData, 0)
			if !ok {
				continue
			}

			r := regime
			patterns = append(patterns, types.DiscoveredPattern{
				ID:           fmt.Sprintf("REGIME_%s_%s", regime, direction),
				Family:       "regime",
				Conditions:   map[string]types.Condition{"regime": {Op: "==", Threshold: decimal.Zero}},
				Direction:    direction,
				Regime:       &r,
				WinRate:      stats.winRate,
				ProfitFactor: stats.profitFactor,
				SampleSize:   len(dirData),
				Confidence:   stats.confidence,
			})
		}
	}
	return patterns
}

// MineSessions finds the best direction within each session, matching
// mine_session_patterns.
func (m *Miner) MineSessions(data []DataPoint) []types.DiscoveredPattern {
	var patterns []types.DiscoveredPattern
	for _, session := range m.cfg.Sessions {
		sessionData := filterBy(data, func(d DataPoint) bool { return d.Session == session })
		if len(sessionData) < m.cfg.MinSampleSize {
			continue
		}

		for _, direction := range []types.Direction{types.Long, types.Short} {
			dirData := filterBy(sessionData, func(d DataPoint) bool { return d.Direction == direction })
			if len(dirData) < m.cfg.MinSampleSize/2 {
				continue
			}

			stats, ok := m.evaluate(dirData, 0)
			if !ok {
				continue
			}

			s := session
			patterns = append(patterns, types.DiscoveredPattern{
				ID:           fmt.Sprintf("SESSION_%s_%s", session, direction),
				Family:       "session",
				Conditions:   map[string]types.Condition{"session": {Op: "==", Threshold: decimal.Zero}},
				Direction:    direction,
				Session:      &s,
				WinRate:      stats.winRate,
				ProfitFactor: stats.profitFactor,
				SampleSize:   len(dirData),
				Confidence:   stats.confidence,
			})
		}
	}
	return patterns
}

type evalStats struct {
	winRate      float64
	profitFactor float64
	confidence   float64
}

// evaluate applies the gating sequence (sample size -> win rate -> profit
// factor) and confidence formula common to all four pattern families.
// comboBonus is 10 for combo patterns, 0 otherwise.
func (m *Miner) evaluate(filtered []DataPoint, comboBonus float64) (evalStats, bool) {
	if len(filtered) < m.cfg.MinSampleSize {
		return evalStats{}, false
	}

	wins := 0
	var totalProfit, totalLoss float64
	for _, d := range filtered {
		if d.Win {
			wins++
			totalProfit += d.PnL
		} else {
			totalLoss += d.PnL
		}
	}
	winRate := float64(wins) / float64(len(filtered)) * 100
	if winRate < m.cfg.MinWinRate {
		return evalStats{}, false
	}

	absLoss := -totalLoss
	if absLoss == 0 {
		absLoss = 0.01
	}
	profitFactor := totalProfit / absLoss
	if profitFactor < m.cfg.MinProfitFactor {
		return evalStats{}, false
	}

	confidence := (winRate-50)*2 + (profitFactor-1)*20 + minFloat(float64(len(filtered))/10, 30) + comboBonus
	if confidence > 100 {
		confidence = 100
	}

	return evalStats{winRate: winRate, profitFactor: profitFactor, confidence: confidence}, true
}

func filterBy(data []DataPoint, pred func(DataPoint) bool) []DataPoint {
	var out []DataPoint
	for _, d := range data {
		if pred(d) {
			out = append(out, d)
		}
	}
	return out
}

// bestRegimeSession finds the regime/session with the highest win rate
// among filtered, matching the best_regime/best_session argmax. Returns
// nil for either when filtered is empty (equivalent to "ALL").
func bestRegimeSession(filtered []DataPoint) (*types.Trend, *types.Session) {
	if len(filtered) == 0 {
		return nil, nil
	}

	regimeWins := make(map[types.Trend][2]int)
	sessionWins := make(map[types.Session][2]int)
	for _, d := range filtered {
		rw := regimeWins[d.Regime]
		rw[1]++
		if d.Win {
			rw[0]++
		}
		regimeWins[d.Regime] = rw

		sw := sessionWins[d.Session]
		sw[1]++
		if d.Win {
			sw[0]++
		}
		sessionWins[d.Session] = sw
	}

	bestRegime := argmaxRegime(regimeWins)
	bestSession := argmaxSession(sessionWins)
	return &bestRegime, &bestSession
}

func argmaxRegime(m map[types.Trend][2]int) types.Trend {
	var best types.Trend
	bestRate := -1.0
	for r, wt := range m {
		rate := float64(wt[0]) / float64(wt[1])
		if rate > bestRate {
			bestRate = rate
			best = r
		}
	}
	return best
}

func argmaxSession(m map[types.Session][2]int) types.Session {
	var best types.Session
	bestRate := -1.0
	for s, wt := range m {
		rate := float64(wt[0]) / float64(wt[1])
		if rate > bestRate {
			bestRate = rate
			best = s
		}
	}
	return best
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
