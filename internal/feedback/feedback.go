// Package feedback closes the loop between generated signals and their
// outcomes: it logs every signal, records its eventual result, computes
// rolling performance metrics, and raises a re-optimization trigger when
// recent performance degrades against the historical baseline. Grounded
// in original_source/trading_intelligence/learning/feedback_loop.py,
// restructured onto the sqlx/modernc.org/sqlite relational-store pattern
// established by internal/autologger.
package feedback

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/miner"
	"github.com/quartzline/goldintel/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	signal_id TEXT PRIMARY KEY,
	timestamp DATETIME NOT NULL,
	direction TEXT NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	score REAL NOT NULL,
	regime TEXT,
	session TEXT,
	indicators TEXT,
	rules_triggered TEXT,
	exit_price REAL,
	exit_time DATETIME,
	outcome TEXT,
	pnl REAL,
	hold_minutes REAL
);
CREATE TABLE IF NOT EXISTS metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	period TEXT NOT NULL,
	total_signals INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL NOT NULL,
	avg_win REAL NOT NULL,
	avg_loss REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS optimization_triggers (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	reasons TEXT NOT NULL,
	metrics TEXT NOT NULL,
	action_taken TEXT NOT NULL
);
`

// Config names the feedback loop's degradation thresholds, matching
// feedback_loop.py's __init__ defaults.
type Config struct {
	MinWinRate           float64
	MinProfitFactor      float64
	DegradationThreshold float64
}

// DefaultConfig mirrors the Python defaults (50% win rate, 1.2 profit
// factor, 10-point degradation trigger).
func DefaultConfig() Config {
	return Config{
		MinWinRate:           50.0,
		MinProfitFactor:      1.2,
		DegradationThreshold: 10,
	}
}

type signalRow struct {
	SignalID       string          `db:"signal_id"`
	Timestamp      time.Time       `db:"timestamp"`
	Direction      string          `db:"direction"`
	EntryPrice     float64         `db:"entry_price"`
	StopLoss       float64         `db:"stop_loss"`
	TakeProfit     float64         `db:"take_profit"`
	Score          float64         `db:"score"`
	Regime         string          `db:"regime"`
	Session        string          `db:"session"`
	Indicators     string          `db:"indicators"`
	RulesTriggered string          `db:"rules_triggered"`
	ExitPrice      sql.NullFloat64 `db:"exit_price"`
	ExitTime       sql.NullTime    `db:"exit_time"`
	Outcome        sql.NullString  `db:"outcome"`
	PnL            sql.NullFloat64 `db:"pnl"`
	HoldMinutes    sql.NullFloat64 `db:"hold_minutes"`
}

// Loop manages the signal/outcome feedback database.
type Loop struct {
	logger *zap.Logger
	db     *sqlx.DB
	cfg    Config
}

// Open creates (or reopens) the feedback loop's own sqlite database at
// dbPath.
func Open(logger *zap.Logger, dbPath string, cfg Config) (*Loop, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("feedback: create data dir: %w", err)
	}
	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("feedback: open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("feedback: apply schema: %w", err)
	}
	return &Loop{logger: logger, db: db, cfg: cfg}, nil
}

// Close releases the underlying database handle.
func (l *Loop) Close() error { return l.db.Close() }

// LogSignal persists a newly generated signal, awaiting its outcome.
func (l *Loop) LogSignal(ctx context.Context, sig types.FeedbackSignal) error {
	indicators, err := json.Marshal(sig.Indicators)
	if err != nil {
		return fmt.Errorf("feedback: marshal indicators: %w", err)
	}
	rules, err := json.Marshal(sig.RulesTriggered)
	if err != nil {
		return fmt.Errorf("feedback: marshal rules triggered: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO signals
		(signal_id, timestamp, direction, entry_price, stop_loss, take_profit,
		 score, regime, session, indicators, rules_triggered)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.SignalID, sig.Timestamp, string(sig.Direction), f(sig.EntryPrice), f(sig.StopLoss), f(sig.TakeProfit),
		sig.Score, string(sig.Regime), string(sig.Session), string(indicators), string(rules),
	)
	if err != nil {
		return fmt.Errorf("feedback: insert signal: %w", err)
	}
	l.logger.Info("logged signal", zap.String("id", sig.SignalID), zap.String("direction", string(sig.Direction)))
	return nil
}

// UpdateOutcome fills in a signal's exit price and outcome, computing PnL
// by direction and hold time in minutes, then runs CheckPerformance.
// Returns false if the signal id is unknown.
func (l *Loop) UpdateOutcome(ctx context.Context, signalID string, exitPrice decimal.Decimal, outcome types.OutcomeResult, exitTime time.Time) (bool, error) {
	var row signalRow
	if err := l.db.GetContext(ctx, &row, `SELECT * FROM signals WHERE signal_id = ?`, signalID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("feedback: load signal: %w", err)
	}

	entry := decimal.NewFromFloat(row.EntryPrice)
	var pnl decimal.Decimal
	if types.Direction(row.Direction) == types.Long {
		pnl = exitPrice.Sub(entry)
	} else {
		pnl = entry.Sub(exitPrice)
	}
	holdMinutes := exitTime.Sub(row.Timestamp).Minutes()

	_, err := l.db.ExecContext(ctx, `
		UPDATE signals SET exit_price = ?, exit_time = ?, outcome = ?, pnl = ?, hold_minutes = ?
		WHERE signal_id = ?`,
		f(exitPrice), exitTime, string(outcome), f(pnl), holdMinutes, signalID,
	)
	if err != nil {
		return false, fmt.Errorf("feedback: update outcome: %w", err)
	}
	l.logger.Info("updated outcome", zap.String("id", signalID), zap.String("outcome", string(outcome)))

	if _, _, err := l.CheckPerformance(ctx, exitTime); err != nil {
		return true, err
	}
	return true, nil
}

// GetSignals returns signals from the last `days` days, newest first.
// When withOutcome is true, only signals with a recorded outcome are
// returned.
func (l *Loop) GetSignals(ctx context.Context, now time.Time, days int, withOutcome bool) ([]types.FeedbackSignal, error) {
	cutoff := now.AddDate(0, 0, -days)

	query := `SELECT * FROM signals WHERE timestamp > ?`
	if withOutcome {
		query += ` AND outcome IS NOT NULL`
	}
	query += ` ORDER BY timestamp DESC`

	var rows []signalRow
	if err := l.db.SelectContext(ctx, &rows, query, cutoff); err != nil {
		return nil, fmt.Errorf("feedback: load signals: %w", err)
	}

	out := make([]types.FeedbackSignal, 0, len(rows))
	for _, r := range rows {
		out = append(out, rowToSignal(r))
	}
	return out, nil
}

func rowToSignal(r signalRow) types.FeedbackSignal {
	var indicators map[string]float64
	if r.Indicators != "" {
		_ = json.Unmarshal([]byte(r.Indicators), &indicators)
	}
	var rules []string
	if r.RulesTriggered != "" {
		_ = json.Unmarshal([]byte(r.RulesTriggered), &rules)
	}

	sig := types.FeedbackSignal{
		SignalID:       r.SignalID,
		Timestamp:      r.Timestamp,
		Direction:      types.Direction(r.Direction),
		EntryPrice:     decimal.NewFromFloat(r.EntryPrice),
		StopLoss:       decimal.NewFromFloat(r.StopLoss),
		TakeProfit:     decimal.NewFromFloat(r.TakeProfit),
		Score:          r.Score,
		Regime:         types.Trend(r.Regime),
		Session:        types.Session(r.Session),
		Indicators:     indicators,
		RulesTriggered: rules,
	}
	if r.ExitPrice.Valid {
		v := decimal.NewFromFloat(r.ExitPrice.Float64)
		sig.ExitPrice = &v
	}
	if r.ExitTime.Valid {
		v := r.ExitTime.Time
		sig.ExitTime = &v
	}
	if r.Outcome.Valid {
		sig.Outcome = types.OutcomeResult(r.Outcome.String)
	}
	if r.PnL.Valid {
		v := decimal.NewFromFloat(r.PnL.Float64)
		sig.PnL = &v
	}
	if r.HoldMinutes.Valid {
		v := r.HoldMinutes.Float64
		sig.HoldMinutes = &v
	}
	return sig
}

// Metrics is the performance summary for one lookback window, mirroring
// feedback_loop.py's PerformanceMetrics dataclass.
type Metrics struct {
	Period       string
	TotalSignals int
	Wins         int
	Losses       int
	WinRate      float64
	ProfitFactor float64
	AvgWin       float64
	AvgLoss      float64
	LargestWin   float64
	LargestLoss  float64
	AvgHoldTime  float64
	BestRegime   *types.Trend
	BestSession  *types.Session
	WorstRegime  *types.Trend
	WorstSession *types.Session
}

// CalculateMetrics computes and persists performance metrics over the
// last `days` days, or returns nil if no completed signals exist in that
// window.
func (l *Loop) CalculateMetrics(ctx context.Context, now time.Time, days int) (*Metrics, error) {
	signals, err := l.GetSignals(ctx, now, days, true)
	if err != nil {
		return nil, err
	}
	if len(signals) == 0 {
		return nil, nil
	}

	var wins, losses []types.FeedbackSignal
	for _, s := range signals {
		switch s.Outcome {
		case types.ResultWin:
			wins = append(wins, s)
		case types.ResultLoss:
			losses = append(losses, s)
		}
	}

	total := len(signals)
	winRate := float64(len(wins)) / float64(total) * 100

	totalProfit := sumPnL(wins)
	totalLoss := 0.01
	if len(losses) > 0 {
		totalLoss = absF(sumPnL(losses))
	}
	profitFactor := totalProfit / totalLoss

	avgWin := meanPnL(wins)
	avgLoss := absF(meanPnL(losses))
	largestWin := maxPnL(wins)
	largestLoss := absF(minPnL(losses))
	avgHold := avgHoldMinutes(signals)

	bestRegime, worstRegime := bestWorstRegime(signals)
	bestSession, worstSession := bestWorstSession(signals)

	m := &Metrics{
		Period:       fmt.Sprintf("Last %d days", days),
		TotalSignals: total,
		Wins:         len(wins),
		Losses:       len(losses),
		WinRate:      winRate,
		ProfitFactor: profitFactor,
		AvgWin:       avgWin,
		AvgLoss:      avgLoss,
		LargestWin:   largestWin,
		LargestLoss:  largestLoss,
		AvgHoldTime:  avgHold,
		BestRegime:   bestRegime,
		BestSession:  bestSession,
		WorstRegime:  worstRegime,
		WorstSession: worstSession,
	}

	if err := l.saveMetrics(ctx, now, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (l *Loop) saveMetrics(ctx context.Context, now time.Time, m *Metrics) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO metrics
		(timestamp, period, total_signals, wins, losses, win_rate, profit_factor, avg_win, avg_loss)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		now, m.Period, m.TotalSignals, m.Wins, m.Losses, m.WinRate, m.ProfitFactor, m.AvgWin, m.AvgLoss,
	)
	if err != nil {
		return fmt.Errorf("feedback: save metrics: %w", err)
	}
	return nil
}

// CheckPerformance compares the last 7 days against the last 30 and
// raises a trigger, persisted to optimization_triggers, when any of the
// three degradation conditions from feedback_loop.py's _check_performance
// are met: win rate dropped by more than DegradationThreshold points,
// profit factor below MinProfitFactor, or win rate below MinWinRate.
func (l *Loop) CheckPerformance(ctx context.Context, now time.Time) (bool, []string, error) {
	recent, err := l.CalculateMetrics(ctx, now, 7)
	if err != nil {
		return false, nil, err
	}
	historical, err := l.CalculateMetrics(ctx, now, 30)
	if err != nil {
		return false, nil, err
	}
	if recent == nil || historical == nil {
		return false, nil, nil
	}

	var reasons []string
	if recent.WinRate < historical.WinRate-l.cfg.DegradationThreshold {
		reasons = append(reasons, fmt.Sprintf("Win rate dropped: %.1f%% -> %.1f%%", historical.WinRate, recent.WinRate))
	}
	if recent.ProfitFactor < l.cfg.MinProfitFactor {
		reasons = append(reasons, fmt.Sprintf("Profit factor below minimum: %.2f", recent.ProfitFactor))
	}
	if recent.WinRate < l.cfg.MinWinRate {
		reasons = append(reasons, fmt.Sprintf("Win rate below minimum: %.1f%%", recent.WinRate))
	}

	if len(reasons) == 0 {
		return false, nil, nil
	}

	if err := l.logTrigger(ctx, now, reasons, recent); err != nil {
		return true, reasons, err
	}
	l.logger.Warn("optimization triggered", zap.Strings("reasons", reasons))
	return true, reasons, nil
}

func (l *Loop) logTrigger(ctx context.Context, now time.Time, reasons []string, m *Metrics) error {
	reasonsJSON, err := json.Marshal(reasons)
	if err != nil {
		return fmt.Errorf("feedback: marshal trigger reasons: %w", err)
	}
	metricsJSON, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("feedback: marshal trigger metrics: %w", err)
	}

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO optimization_triggers (timestamp, reasons, metrics, action_taken)
		VALUES (?, ?, ?, 'PENDING')`,
		now, string(reasonsJSON), string(metricsJSON),
	)
	if err != nil {
		return fmt.Errorf("feedback: log trigger: %w", err)
	}
	return nil
}

// GetFeedbackData exports the last 90 days of completed signals as
// miner.DataPoint, so the pattern miner and rule evolver can consume the
// same feed the feedback loop tracks, in the exact shape those packages
// already expect.
func (l *Loop) GetFeedbackData(ctx context.Context, now time.Time) ([]miner.DataPoint, error) {
	signals, err := l.GetSignals(ctx, now, 90, true)
	if err != nil {
		return nil, err
	}

	out := make([]miner.DataPoint, 0, len(signals))
	for _, s := range signals {
		dp := miner.DataPoint{
			Timestamp: s.Timestamp,
			Regime:    s.Regime,
			Session:   s.Session,
			Direction: s.Direction,
			Win:       s.Outcome == types.ResultWin,
		}
		if v, ok := s.Indicators["rsi"]; ok {
			dp.RSI = v
		} else {
			dp.RSI = 50
		}
		if v, ok := s.Indicators["stoch_k"]; ok {
			dp.StochK = v
		} else {
			dp.StochK = 50
		}
		if v, ok := s.Indicators["adx"]; ok {
			dp.ADX = v
		} else {
			dp.ADX = 25
		}
		if v, ok := s.Indicators["atr"]; ok {
			dp.ATR = v
		} else {
			dp.ATR = 10
		}
		if s.PnL != nil {
			dp.PnL = s.PnL.InexactFloat64()
		}
		out = append(out, dp)
	}
	return out, nil
}

// RuleStats is one rule's win/loss/PnL tally.
type RuleStats struct {
	Wins        int
	Losses      int
	PnL         float64
	WinRate     float64
	TotalTrades int
}

// GetRulePerformance tallies win/loss/PnL per triggered rule over the
// last `days` days.
func (l *Loop) GetRulePerformance(ctx context.Context, now time.Time, days int) (map[string]RuleStats, error) {
	signals, err := l.GetSignals(ctx, now, days, true)
	if err != nil {
		return nil, err
	}

	stats := make(map[string]RuleStats)
	for _, s := range signals {
		pnl := 0.0
		if s.PnL != nil {
			pnl = s.PnL.InexactFloat64()
		}
		for _, rule := range s.RulesTriggered {
			rs := stats[rule]
			rs.PnL += pnl
			if s.Outcome == types.ResultWin {
				rs.Wins++
			} else {
				rs.Losses++
			}
			stats[rule] = rs
		}
	}

	for rule, rs := range stats {
		total := rs.Wins + rs.Losses
		rs.TotalTrades = total
		if total > 0 {
			rs.WinRate = float64(rs.Wins) / float64(total) * 100
		}
		stats[rule] = rs
	}
	return stats, nil
}

func f(d decimal.Decimal) float64 { return d.InexactFloat64() }

func sumPnL(signals []types.FeedbackSignal) float64 {
	var total float64
	for _, s := range signals {
		if s.PnL != nil {
			total += s.PnL.InexactFloat64()
		}
	}
	return total
}

func meanPnL(signals []types.FeedbackSignal) float64 {
	if len(signals) == 0 {
		return 0
	}
	return sumPnL(signals) / float64(len(signals))
}

func pnlOf(s types.FeedbackSignal) float64 {
	if s.PnL == nil {
		return 0
	}
	return s.PnL.InexactFloat64()
}

func maxPnL(signals []types.FeedbackSignal) float64 {
	if len(signals) == 0 {
		return 0
	}
	max := pnlOf(signals[0])
	for _, s := range signals[1:] {
		if v := pnlOf(s); v > max {
			max = v
		}
	}
	return max
}

func minPnL(signals []types.FeedbackSignal) float64 {
	if len(signals) == 0 {
		return 0
	}
	min := pnlOf(signals[0])
	for _, s := range signals[1:] {
		if v := pnlOf(s); v < min {
			min = v
		}
	}
	return min
}

func avgHoldMinutes(signals []types.FeedbackSignal) float64 {
	var total float64
	var n int
	for _, s := range signals {
		if s.HoldMinutes != nil {
			total += *s.HoldMinutes
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return total / float64(n)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

type tally struct {
	wins, total int
}

func bestWorstRegime(signals []types.FeedbackSignal) (*types.Trend, *types.Trend) {
	stats := make(map[types.Trend]*tally)
	for _, s := range signals {
		t := stats[s.Regime]
		if t == nil {
			t = &tally{}
			stats[s.Regime] = t
		}
		t.total++
		if s.Outcome == types.ResultWin {
			t.wins++
		}
	}
	return argmaxArgminTrend(stats)
}

func bestWorstSession(signals []types.FeedbackSignal) (*types.Session, *types.Session) {
	stats := make(map[types.Session]*tally)
	for _, s := range signals {
		t := stats[s.Session]
		if t == nil {
			t = &tally{}
			stats[s.Session] = t
		}
		t.total++
		if s.Outcome == types.ResultWin {
			t.wins++
		}
	}
	return argmaxArgminSession(stats)
}

func argmaxArgminTrend(stats map[types.Trend]*tally) (*types.Trend, *types.Trend) {
	if len(stats) == 0 {
		return nil, nil
	}
	keys := make([]types.Trend, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	best, worst := keys[0], keys[0]
	bestWR, worstWR := winRate(stats[best]), winRate(stats[worst])
	for _, k := range keys[1:] {
		wr := winRate(stats[k])
		if wr > bestWR {
			best, bestWR = k, wr
		}
		if wr < worstWR {
			worst, worstWR = k, wr
		}
	}
	return &best, &worst
}

func argmaxArgminSession(stats map[types.Session]*tally) (*types.Session, *types.Session) {
	if len(stats) == 0 {
		return nil, nil
	}
	keys := make([]types.Session, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	best, worst := keys[0], keys[0]
	bestWR, worstWR := winRate(stats[best]), winRate(stats[worst])
	for _, k := range keys[1:] {
		wr := winRate(stats[k])
		if wr > bestWR {
			best, bestWR = k, wr
		}
		if wr < worstWR {
			worst, worstWR = k, wr
		}
	}
	return &best, &worst
}

func winRate(t *tally) float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.wins) / float64(t.total) * 100
}
