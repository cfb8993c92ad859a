// Package autologger is the single-writer state machine that admits
// PaperTrades from a polled market snapshot and closes them on
// take-profit, stop-loss, or expiry without any manual input. Grounded in
// original_source/trading_intelligence/learning/auto_logger.py, restructured
// onto the relational-store pattern established by internal/barstore.
package autologger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/pkg/types"
)

// ErrTradeNotFound is returned by operations on an unknown signal id.
var ErrTradeNotFound = errors.New("autologger: trade not found")

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	signal_id TEXT PRIMARY KEY,
	direction TEXT NOT NULL,
	entry REAL NOT NULL,
	stop_loss REAL NOT NULL,
	take_profit REAL NOT NULL,
	score_long REAL NOT NULL,
	score_short REAL NOT NULL,
	regime TEXT,
	session TEXT,
	open_ts DATETIME NOT NULL,
	status TEXT NOT NULL,
	exit_price REAL,
	exit_ts DATETIME,
	pnl REAL,
	max_profit_during REAL NOT NULL DEFAULT 0,
	max_loss_during REAL NOT NULL DEFAULT 0,
	rsi REAL,
	stoch_k REAL,
	atr REAL,
	adx REAL
);
CREATE TABLE IF NOT EXISTS price_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	ts DATETIME NOT NULL,
	price REAL NOT NULL
);
`

// Config names the Auto-Logger's admission and outcome thresholds.
type Config struct {
	StopLossPoints     decimal.Decimal
	TakeProfitPoints   decimal.Decimal
	MinScore           decimal.Decimal
	SignalExpiry       time.Duration
	CheckInterval      time.Duration
}

// DefaultConfig mirrors auto_logger.py's self.config defaults.
func DefaultConfig() Config {
	return Config{
		StopLossPoints:   decimal.NewFromFloat(4.0),
		TakeProfitPoints: decimal.NewFromFloat(8.0),
		MinScore:         decimal.NewFromInt(3),
		SignalExpiry:     4 * time.Hour,
		CheckInterval:    10 * time.Second,
	}
}

// Snapshot is one polled tick of the scoring pipeline's output.
type Snapshot struct {
	Timestamp time.Time
	Price     decimal.Decimal
	ScoreLong decimal.Decimal
	ScoreShort decimal.Decimal
	Regime    types.Trend
	Session   types.Session
	RSI       decimal.Decimal
	StochK    decimal.Decimal
	ATR       decimal.Decimal
	ADX       decimal.Decimal
}

type tradeRow struct {
	SignalID        string         `db:"signal_id"`
	Direction       string         `db:"direction"`
	Entry           float64        `db:"entry"`
	StopLoss        float64        `db:"stop_loss"`
	TakeProfit      float64        `db:"take_profit"`
	ScoreLong       float64        `db:"score_long"`
	ScoreShort      float64        `db:"score_short"`
	Regime          string         `db:"regime"`
	Session         string         `db:"session"`
	OpenTS          time.Time      `db:"open_ts"`
	Status          string         `db:"status"`
	ExitPrice       sql.NullFloat64 `db:"exit_price"`
	ExitTS          sql.NullTime   `db:"exit_ts"`
	PnL             sql.NullFloat64 `db:"pnl"`
	MaxProfitDuring float64        `db:"max_profit_during"`
	MaxLossDuring   float64        `db:"max_loss_during"`
	RSI             sql.NullFloat64 `db:"rsi"`
	StochK          sql.NullFloat64 `db:"stoch_k"`
	ATR             sql.NullFloat64 `db:"atr"`
	ADX             sql.NullFloat64 `db:"adx"`
}

// AutoLogger admits and tracks PaperTrades against polled Snapshots.
type AutoLogger struct {
	mu            sync.Mutex
	logger        *zap.Logger
	db            *sqlx.DB
	cfg           Config
	open          map[string]*types.PaperTrade
	lastHash      string
}

// Open creates (or reopens) the Auto-Logger's own sqlite database at
// dbPath and reloads any still-open trades.
func Open(logger *zap.Logger, dbPath string, cfg Config) (*AutoLogger, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("autologger: create data dir: %w", err)
	}
	db, err := sqlx.Connect("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("autologger: open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("autologger: apply schema: %w", err)
	}

	al := &AutoLogger{
		logger: logger,
		db:     db,
		cfg:    cfg,
		open:   make(map[string]*types.PaperTrade),
	}
	if err := al.loadOpenTrades(); err != nil {
		db.Close()
		return nil, err
	}
	return al, nil
}

// Close releases the underlying database handle.
func (a *AutoLogger) Close() error {
	return a.db.Close()
}

func (a *AutoLogger) loadOpenTrades() error {
	var rows []tradeRow
	if err := a.db.Select(&rows, `SELECT * FROM trades WHERE status = 'OPEN'`); err != nil {
		return fmt.Errorf("autologger: load open trades: %w", err)
	}
	for _, r := range rows {
		a.open[r.SignalID] = rowToTrade(r)
	}
	a.logger.Info("loaded open trades", zap.Int("count", len(a.open)))
	return nil
}

func rowToTrade(r tradeRow) *types.PaperTrade {
	t := &types.PaperTrade{
		SignalID:        r.SignalID,
		Direction:       types.Direction(r.Direction),
		Entry:           decimal.NewFromFloat(r.Entry),
		StopLoss:        decimal.NewFromFloat(r.StopLoss),
		TakeProfit:      decimal.NewFromFloat(r.TakeProfit),
		OpenTimestamp:   r.OpenTS,
		Status:          types.TradeStatus(r.Status),
		MaxProfitDuring: decimal.NewFromFloat(r.MaxProfitDuring),
		MaxLossDuring:   decimal.NewFromFloat(r.MaxLossDuring),
	}
	if r.ExitPrice.Valid {
		v := decimal.NewFromFloat(r.ExitPrice.Float64)
		t.ExitPrice = &v
	}
	if r.ExitTS.Valid {
		v := r.ExitTS.Time
		t.ExitTimestamp = &v
	}
	if r.PnL.Valid {
		v := decimal.NewFromFloat(r.PnL.Float64)
		t.PnL = &v
	}
	return t
}

// CheckForNewSignal applies the de-duplication hash and admission rule to
// snap and, if admitted, returns the new open PaperTrade.
func (a *AutoLogger) CheckForNewSignal(snap Snapshot) (*types.PaperTrade, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	hash := fmt.Sprintf("%s_%s_%s", snap.Price.String(), snap.ScoreLong.String(), snap.ScoreShort.String())
	if hash == a.lastHash {
		return nil, false
	}

	maxScore := decimal.Max(snap.ScoreLong, snap.ScoreShort)
	if maxScore.LessThan(a.cfg.MinScore) {
		return nil, false
	}

	var direction types.Direction
	var stop, target decimal.Decimal
	switch {
	case snap.ScoreLong.GreaterThan(snap.ScoreShort) && snap.ScoreLong.GreaterThanOrEqual(a.cfg.MinScore):
		direction = types.Long
		stop = snap.Price.Sub(a.cfg.StopLossPoints)
		target = snap.Price.Add(a.cfg.TakeProfitPoints)
	case snap.ScoreShort.GreaterThan(snap.ScoreLong) && snap.ScoreShort.GreaterThanOrEqual(a.cfg.MinScore):
		direction = types.Short
		stop = snap.Price.Add(a.cfg.StopLossPoints)
		target = snap.Price.Sub(a.cfg.TakeProfitPoints)
	default:
		return nil, false
	}

	a.lastHash = hash
	trade := &types.PaperTrade{
		SignalID:      fmt.Sprintf("AUTO_%s", snap.Timestamp.UTC().Format("20060102_150405")),
		Direction:     direction,
		Entry:         snap.Price,
		StopLoss:      stop,
		TakeProfit:    target,
		OpenTimestamp: snap.Timestamp,
		Status:        types.TradeOpen,
	}
	return trade, true
}

// LogTrade admits and persists a new open trade.
func (a *AutoLogger) LogTrade(ctx context.Context, trade *types.PaperTrade, snap Snapshot) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	_, err := a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO trades
		(signal_id, direction, entry, stop_loss, take_profit, score_long, score_short,
		 regime, session, open_ts, status, exit_price, exit_ts, pnl, max_profit_during, max_loss_during,
		 rsi, stoch_k, atr, adx)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'OPEN', NULL, NULL, NULL, 0, 0, ?, ?, ?, ?)`,
		trade.SignalID, string(trade.Direction), f(trade.Entry), f(trade.StopLoss), f(trade.TakeProfit),
		f(snap.ScoreLong), f(snap.ScoreShort), string(snap.Regime), string(snap.Session), trade.OpenTimestamp,
		f(snap.RSI), f(snap.StochK), f(snap.ATR), f(snap.ADX),
	)
	if err != nil {
		return fmt.Errorf("autologger: insert trade: %w", err)
	}
	a.open[trade.SignalID] = trade
	a.logger.Info("paper trade opened", zap.String("id", trade.SignalID), zap.String("direction", string(trade.Direction)))
	return nil
}

// EvaluateTick applies the per-tick outcome check, in spec order (PnL
// update, target, stop, expiry), to every open trade.
func (a *AutoLogger) EvaluateTick(ctx context.Context, price decimal.Decimal, now time.Time) error {
	a.mu.Lock()
	ids := make([]string, 0, len(a.open))
	for id := range a.open {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		if err := a.evaluateOne(ctx, id, price, now); err != nil {
			return err
		}
	}
	return nil
}

func (a *AutoLogger) evaluateOne(ctx context.Context, id string, price decimal.Decimal, now time.Time) error {
	a.mu.Lock()
	trade, ok := a.open[id]
	if !ok {
		a.mu.Unlock()
		return nil
	}

	isLong := trade.Direction == types.Long
	var pnl decimal.Decimal
	if isLong {
		pnl = price.Sub(trade.Entry)
	} else {
		pnl = trade.Entry.Sub(price)
	}
	if pnl.GreaterThan(trade.MaxProfitDuring) {
		trade.MaxProfitDuring = pnl
	}
	if pnl.LessThan(trade.MaxLossDuring) {
		trade.MaxLossDuring = pnl
	}

	var terminal types.TradeStatus
	switch {
	case isLong && price.GreaterThanOrEqual(trade.TakeProfit):
		terminal = types.TradeWin
	case !isLong && price.LessThanOrEqual(trade.TakeProfit):
		terminal = types.TradeWin
	case isLong && price.LessThanOrEqual(trade.StopLoss):
		terminal = types.TradeLoss
	case !isLong && price.GreaterThanOrEqual(trade.StopLoss):
		terminal = types.TradeLoss
	case now.Sub(trade.OpenTimestamp) > a.cfg.SignalExpiry:
		terminal = types.TradeExpired
	}

	if terminal == "" {
		a.mu.Unlock()
		return a.persistProgress(ctx, trade)
	}

	trade.Status = terminal
	trade.ExitPrice = &price
	exitTS := now
	trade.ExitTimestamp = &exitTS
	trade.PnL = &pnl
	delete(a.open, id)
	a.mu.Unlock()

	return a.persistClose(ctx, trade)
}

func (a *AutoLogger) persistProgress(ctx context.Context, trade *types.PaperTrade) error {
	_, err := a.db.ExecContext(ctx, `
		UPDATE trades SET max_profit_during = ?, max_loss_during = ? WHERE signal_id = ?`,
		f(trade.MaxProfitDuring), f(trade.MaxLossDuring), trade.SignalID)
	if err != nil {
		return fmt.Errorf("autologger: persist progress: %w", err)
	}
	return nil
}

func (a *AutoLogger) persistClose(ctx context.Context, trade *types.PaperTrade) error {
	_, err := a.db.ExecContext(ctx, `
		UPDATE trades SET status = ?, exit_price = ?, exit_ts = ?, pnl = ?,
			max_profit_during = ?, max_loss_during = ? WHERE signal_id = ?`,
		string(trade.Status), f(*trade.ExitPrice), *trade.ExitTimestamp, f(*trade.PnL),
		f(trade.MaxProfitDuring), f(trade.MaxLossDuring), trade.SignalID)
	if err != nil {
		return fmt.Errorf("autologger: persist close: %w", err)
	}
	a.logger.Info("paper trade closed", zap.String("id", trade.SignalID), zap.String("status", string(trade.Status)))
	return nil
}

// Stats aggregates the persisted trade set.
type Stats struct {
	Total       int
	Wins        int
	Losses      int
	Expired     int
	Open        int
	WinRate     float64
	ProfitFactor float64
	AvgWin      decimal.Decimal
	AvgLoss     decimal.Decimal
	TotalPnL    decimal.Decimal
}

// Stats scans the persisted trade set and derives summary statistics.
func (a *AutoLogger) Stats(ctx context.Context) (Stats, error) {
	var rows []tradeRow
	if err := a.db.SelectContext(ctx, &rows, `SELECT * FROM trades`); err != nil {
		return Stats{}, fmt.Errorf("autologger: scan trades: %w", err)
	}

	var s Stats
	grossWin, grossLoss := decimal.Zero, decimal.Zero
	s.TotalPnL = decimal.Zero
	for _, r := range rows {
		s.Total++
		switch types.TradeStatus(r.Status) {
		case types.TradeOpen:
			s.Open++
			continue
		case types.TradeWin:
			s.Wins++
		case types.TradeLoss:
			s.Losses++
		case types.TradeExpired:
			s.Expired++
		}
		if r.PnL.Valid {
			pnl := decimal.NewFromFloat(r.PnL.Float64)
			s.TotalPnL = s.TotalPnL.Add(pnl)
			if pnl.IsPositive() {
				grossWin = grossWin.Add(pnl)
			} else if pnl.IsNegative() {
				grossLoss = grossLoss.Add(pnl.Abs())
			}
		}
	}

	closed := s.Wins + s.Losses
	if closed > 0 {
		s.WinRate = float64(s.Wins) / float64(closed) * 100
	}
	if !grossLoss.IsZero() {
		gw, _ := grossWin.Float64()
		gl, _ := grossLoss.Float64()
		s.ProfitFactor = gw / gl
	}
	if s.Wins > 0 {
		s.AvgWin = grossWin.Div(decimal.NewFromInt(int64(s.Wins)))
	}
	if s.Losses > 0 {
		s.AvgLoss = grossLoss.Div(decimal.NewFromInt(int64(s.Losses)))
	}

	return s, nil
}

// TradeRecord is one closed (WIN/LOSS) trade flattened for the pattern
// miner, mirroring the columns pattern_miner.py's load_historical_data
// selects out of the Auto-Logger's table.
type TradeRecord struct {
	Timestamp time.Time
	Price     float64
	RSI       float64
	StochK    float64
	ATR       float64
	ADX       float64
	Regime    types.Trend
	Session   types.Session
	Direction types.Direction
	Win       bool
	PnL       float64
}

// ExportTrades returns every closed (WIN/LOSS) trade for offline mining.
func (a *AutoLogger) ExportTrades(ctx context.Context) ([]TradeRecord, error) {
	var rows []tradeRow
	if err := a.db.SelectContext(ctx, &rows, `SELECT * FROM trades WHERE status IN ('WIN', 'LOSS') ORDER BY open_ts`); err != nil {
		return nil, fmt.Errorf("autologger: export trades: %w", err)
	}
	out := make([]TradeRecord, 0, len(rows))
	for _, r := range rows {
		if !r.PnL.Valid {
			continue
		}
		out = append(out, TradeRecord{
			Timestamp: r.OpenTS,
			Price:     r.Entry,
			RSI:       r.RSI.Float64,
			StochK:    r.StochK.Float64,
			ATR:       r.ATR.Float64,
			ADX:       r.ADX.Float64,
			Regime:    types.Trend(r.Regime),
			Session:   types.Session(r.Session),
			Direction: types.Direction(r.Direction),
			Win:       r.Status == string(types.TradeWin),
			PnL:       r.PnL.Float64,
		})
	}
	return out, nil
}

func f(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}
