// Package performance computes trading performance statistics over a set
// of completed SignalRecords: overall metrics, by-regime, by-session,
// score-band accuracy, by-direction, and a rolling win rate. Grounded in
// original_source/trading_intelligence/learning/performance.py.
package performance

import (
	"sort"

	"github.com/quartzline/goldintel/pkg/types"
)

// scoreRange is one of the five fixed score bands performance.py checks
// predicted-vs-actual accuracy against.
type scoreRange struct {
	Min   float64
	Max   float64
	Label string
}

var scoreRanges = []scoreRange{
	{80, 100, "Very High (80-100)"},
	{70, 79, "High (70-79)"},
	{60, 69, "Medium (60-69)"},
	{50, 59, "Low (50-59)"},
	{0, 49, "Very Low (0-49)"},
}

var sessions = []types.Session{
	types.SessionAsia, types.SessionLondonOpen, types.SessionLondon,
	types.SessionNYOpen, types.SessionOverlap, types.SessionNY, types.SessionNYClose,
}

// OverallMetrics are the aggregate win/loss statistics over all completed
// signals. Win/loss magnitudes use max_profit/max_drawdown (MFE/MAE), not
// final_pnl, matching performance.py's calculate_overall_metrics.
type OverallMetrics struct {
	TotalSignals     int
	CompletedSignals int
	Wins             int
	Losses           int
	Breakeven        int
	WinRate          float64
	AvgWin           float64
	AvgLoss          float64
	LargestWin       float64
	LargestLoss      float64
	ProfitFactor     float64
	ExpectedValue    float64
	AvgMaxDrawdown   float64
}

// RegimePerformance is the win/loss breakdown and recommended position-size
// multiplier for one Trend regime.
type RegimePerformance struct {
	Regime                Trend
	Total                 int
	Wins                  int
	Losses                int
	WinRate               float64
	AvgProfit             float64
	AvgLoss               float64
	RecommendedMultiplier float64
}

// Trend is a local alias kept for readability in RegimePerformance.
type Trend = types.Trend

// SessionPerformance is the win/loss breakdown for one 7-way Session.
type SessionPerformance struct {
	Session   types.Session
	Total     int
	Wins      int
	WinRate   float64
	AvgProfit float64
}

// ScoreAccuracy compares a score band's midpoint-as-predicted-probability
// against the actually observed win rate within that band.
type ScoreAccuracy struct {
	Label             string
	Min               float64
	Max               float64
	PredictedAccuracy float64
	ActualAccuracy    float64
	Difference        float64
	Count             int
}

// DirectionPerformance is the win/loss breakdown for LONG or SHORT.
type DirectionPerformance struct {
	Total     int
	Wins      int
	WinRate   float64
	AvgProfit float64
}

// RollingPoint is one entry of a rolling win-rate series.
type RollingPoint struct {
	Index     int
	Timestamp string
	WinRate   float64
	Window    int
}

// Analyzer computes performance statistics over a fixed set of signals.
type Analyzer struct {
	signals   []types.SignalRecord
	completed []types.SignalRecord
}

// New builds an Analyzer over signals.
func New(signals []types.SignalRecord) *Analyzer {
	var completed []types.SignalRecord
	for _, s := range signals {
		if s.Status == types.StatusCompleted {
			completed = append(completed, s)
		}
	}
	return &Analyzer{signals: signals, completed: completed}
}

// OverallMetrics computes the aggregate statistics.
func (a *Analyzer) OverallMetrics() OverallMetrics {
	m := OverallMetrics{TotalSignals: len(a.signals), CompletedSignals: len(a.completed)}
	if len(a.completed) == 0 {
		return m
	}

	var winPnLs, lossPnLs, drawdowns []float64
	for _, s := range a.completed {
		switch s.Outcome.Result {
		case types.ResultWin:
			m.Wins++
			v, _ := s.Outcome.MaxProfit.Float64()
			winPnLs = append(winPnLs, v)
		case types.ResultLoss:
			m.Losses++
			v, _ := s.Outcome.MaxDrawdown.Float64()
			lossPnLs = append(lossPnLs, abs(v))
		case types.ResultBreakeven:
			m.Breakeven++
		}
		dd, _ := s.Outcome.MaxDrawdown.Float64()
		drawdowns = append(drawdowns, abs(dd))
	}

	m.WinRate = float64(m.Wins) / float64(len(a.completed)) * 100
	m.AvgWin = mean(winPnLs)
	m.AvgLoss = mean(lossPnLs)
	m.LargestWin = maxOf(winPnLs)
	m.LargestLoss = minOf(lossPnLsNeg(lossPnLs))
	m.AvgMaxDrawdown = mean(drawdowns)

	totalWins := sum(winPnLs)
	totalLosses := sum(lossPnLs)
	if totalLosses > 0 {
		m.ProfitFactor = totalWins / totalLosses
	}

	m.ExpectedValue = (m.WinRate/100)*m.AvgWin - ((100-m.WinRate)/100)*m.AvgLoss
	return m
}

// ByRegime computes performance per observed Trend regime.
func (a *Analyzer) ByRegime() map[types.Trend]RegimePerformance {
	type bucket struct {
		winPnLs, lossPnLs []float64
		wins, losses      int
	}
	buckets := make(map[types.Trend]*bucket)

	for _, s := range a.completed {
		regime := s.MarketConditions.Regime
		b, ok := buckets[regime]
		if !ok {
			b = &bucket{}
			buckets[regime] = b
		}
		switch s.Outcome.Result {
		case types.ResultWin:
			b.wins++
			v, _ := s.Outcome.MaxProfit.Float64()
			b.winPnLs = append(b.winPnLs, v)
		case types.ResultLoss:
			b.losses++
			v, _ := s.Outcome.MaxDrawdown.Float64()
			b.lossPnLs = append(b.lossPnLs, abs(v))
		}
	}

	results := make(map[types.Trend]RegimePerformance, len(buckets))
	for regime, b := range buckets {
		total := countSignalsInRegime(a.completed, regime)
		winRate := 0.0
		if total > 0 {
			winRate = float64(b.wins) / float64(total) * 100
		}
		results[regime] = RegimePerformance{
			Regime:                regime,
			Total:                 total,
			Wins:                  b.wins,
			Losses:                b.losses,
			WinRate:               winRate,
			AvgProfit:             mean(b.winPnLs),
			AvgLoss:               mean(b.lossPnLs),
			RecommendedMultiplier: recommendedMultiplier(winRate),
		}
	}
	return results
}

func countSignalsInRegime(signals []types.SignalRecord, regime types.Trend) int {
	n := 0
	for _, s := range signals {
		if s.MarketConditions.Regime == regime {
			n++
		}
	}
	return n
}

func recommendedMultiplier(winRate float64) float64 {
	switch {
	case winRate > 75:
		return 1.30
	case winRate > 65:
		return 1.20
	case winRate > 55:
		return 1.10
	case winRate > 45:
		return 1.00
	case winRate > 35:
		return 0.90
	default:
		return 0.70
	}
}

// BySession computes performance for all 7 sessions, including zero-signal
// sessions (reported with total=0), matching analyze_by_session's
// fixed-iteration-over-SESSIONS behavior.
func (a *Analyzer) BySession() []SessionPerformance {
	results := make([]SessionPerformance, 0, len(sessions))
	for _, session := range sessions {
		var inSession []types.SignalRecord
		for _, s := range a.completed {
			if s.MarketConditions.Session == session {
				inSession = append(inSession, s)
			}
		}
		if len(inSession) == 0 {
			results = append(results, SessionPerformance{Session: session})
			continue
		}
		var wins int
		var winPnLs []float64
		for _, s := range inSession {
			if s.Outcome.Result == types.ResultWin {
				wins++
				v, _ := s.Outcome.MaxProfit.Float64()
				winPnLs = append(winPnLs, v)
			}
		}
		results = append(results, SessionPerformance{
			Session:   session,
			Total:     len(inSession),
			Wins:      wins,
			WinRate:   float64(wins) / float64(len(inSession)) * 100,
			AvgProfit: mean(winPnLs),
		})
	}
	return results
}

// ScoreAccuracy checks each fixed score band's midpoint against the
// actually observed win rate of signals whose ScoreBreakdown.Total falls
// within that band.
func (a *Analyzer) ScoreAccuracy() []ScoreAccuracy {
	results := make([]ScoreAccuracy, 0, len(scoreRanges))
	for _, band := range scoreRanges {
		var inBand []types.SignalRecord
		for _, s := range a.completed {
			if s.Score.Total >= band.Min && s.Score.Total <= band.Max {
				inBand = append(inBand, s)
			}
		}
		predicted := (band.Min + band.Max) / 2
		if len(inBand) == 0 {
			results = append(results, ScoreAccuracy{
				Label: band.Label, Min: band.Min, Max: band.Max,
				PredictedAccuracy: predicted,
			})
			continue
		}
		wins := 0
		for _, s := range inBand {
			if s.Outcome.Result == types.ResultWin {
				wins++
			}
		}
		actual := float64(wins) / float64(len(inBand)) * 100
		results = append(results, ScoreAccuracy{
			Label: band.Label, Min: band.Min, Max: band.Max,
			PredictedAccuracy: predicted,
			ActualAccuracy:    actual,
			Difference:        actual - predicted,
			Count:             len(inBand),
		})
	}
	return results
}

// BySignalType computes LONG vs SHORT performance.
func (a *Analyzer) BySignalType() map[types.Direction]DirectionPerformance {
	results := make(map[types.Direction]DirectionPerformance, 2)
	for _, direction := range []types.Direction{types.Long, types.Short} {
		var inType []types.SignalRecord
		for _, s := range a.completed {
			if s.SignalType == direction {
				inType = append(inType, s)
			}
		}
		if len(inType) == 0 {
			results[direction] = DirectionPerformance{}
			continue
		}
		var wins int
		var winPnLs []float64
		for _, s := range inType {
			if s.Outcome.Result == types.ResultWin {
				wins++
				v, _ := s.Outcome.MaxProfit.Float64()
				winPnLs = append(winPnLs, v)
			}
		}
		results[direction] = DirectionPerformance{
			Total:     len(inType),
			Wins:      wins,
			WinRate:   float64(wins) / float64(len(inType)) * 100,
			AvgProfit: mean(winPnLs),
		}
	}
	return results
}

// RollingWinRate computes the rolling win rate over fixed-size windows of
// completed signals ordered by timestamp. Empty if fewer than window
// signals are completed.
func (a *Analyzer) RollingWinRate(window int) []RollingPoint {
	if len(a.completed) < window {
		return nil
	}
	sorted := make([]types.SignalRecord, len(a.completed))
	copy(sorted, a.completed)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	var out []RollingPoint
	for i := window; i <= len(sorted); i++ {
		windowSignals := sorted[i-window : i]
		wins := 0
		for _, s := range windowSignals {
			if s.Outcome.Result == types.ResultWin {
				wins++
			}
		}
		out = append(out, RollingPoint{
			Index:     i,
			Timestamp: windowSignals[len(windowSignals)-1].Timestamp.UTC().Format("2006-01-02T15:04:05Z"),
			WinRate:   float64(wins) / float64(window) * 100,
			Window:    window,
		})
	}
	return out
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return sum(vals) / float64(len(vals))
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func maxOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// lossPnLsNeg reconstructs the (negative) max_drawdown values so largest
// loss is the most negative, matching performance.py's min() over raw
// (unabs'd) drawdowns.
func lossPnLsNeg(absLossPnLs []float64) []float64 {
	out := make([]float64, len(absLossPnLs))
	for i, v := range absLossPnLs {
		out[i] = -v
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
