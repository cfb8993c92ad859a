// Package signallog is the append-only Signal Log: a JSON document store
// that records every emitted Signal with its full context and tracks its
// outcome until completion. Grounded in
// original_source/trading_intelligence/learning/signal_logger.py.
package signallog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/session"
	"github.com/quartzline/goldintel/pkg/types"
	"github.com/quartzline/goldintel/pkg/utils"
)

// ErrSignalNotFound is returned when an id has no matching record.
var ErrSignalNotFound = errors.New("signallog: signal not found")

type document struct {
	Signals  []types.SignalRecord `json:"signals"`
	Metadata metadata             `json:"metadata"`
}

type metadata struct {
	LastUpdated   time.Time `json:"lastUpdated"`
	TotalSignals  int       `json:"totalSignals"`
	SchemaVersion string    `json:"schemaVersion"`
}

// Log is the Signal Log store. One file, full rewrite on every mutation,
// matching signal_logger.py's _save_history.
type Log struct {
	mu     sync.Mutex
	logger *zap.Logger
	path   string
	byID   map[string]*types.SignalRecord
	order  []string
}

// Open loads (or creates) the history file at path.
func Open(logger *zap.Logger, path string) (*Log, error) {
	l := &Log{
		logger: logger,
		path:   path,
		byID:   make(map[string]*types.SignalRecord),
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("signallog: create data dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, l.persist()
	}
	if err != nil {
		return nil, fmt.Errorf("signallog: read history file: %w", err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn("signallog: failed to parse existing history, starting fresh", zap.Error(err))
		return l, nil
	}
	for i := range doc.Signals {
		rec := doc.Signals[i]
		l.byID[rec.ID] = &rec
		l.order = append(l.order, rec.ID)
	}
	return l, nil
}

// Log records a new signal, assigns it an id, and writes status=PENDING.
func (l *Log) Log(signal types.Signal, conditions types.MarketConditions, indicators types.IndicatorSnapshot, pattern types.PatternMatchInfo, risk types.RiskFactors, score types.ScoreBreakdown, cfg types.ConfigurationUsed) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := signal.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id := utils.GenerateSignalID(now)
	conditions.Session = session.Of(now)

	rec := types.SignalRecord{
		ID:               id,
		Timestamp:        now,
		SignalType:       signal.Type,
		EntryPrice:       signal.EntryPrice,
		Session:          conditions.Session,
		MarketConditions: conditions,
		Indicators:       indicators,
		PatternMatch:     pattern,
		RiskFactors:      risk,
		Score:            score,
		Configuration:    cfg,
		SuggestedStop:    signal.StopLoss,
		SuggestedTarget:  signal.TakeProfit,
		Status:           types.StatusPending,
	}

	l.byID[id] = &rec
	l.order = append(l.order, id)

	if err := l.persist(); err != nil {
		return "", err
	}
	l.logger.Info("signal logged", zap.String("id", id), zap.String("type", string(signal.Type)))
	return id, nil
}

// UpdateOutcome records a PriceSnapshot at minutesElapsed, which must be
// non-decreasing for this id, updates peak-profit/drawdown and
// target/stop-hit latches, and transitions the record to TRACKING.
func (l *Log) UpdateOutcome(id string, currentPrice decimal.Decimal, minutesElapsed int, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.byID[id]
	if !ok {
		return ErrSignalNotFound
	}

	isLong := rec.SignalType == types.Long
	var pnl decimal.Decimal
	if isLong {
		pnl = currentPrice.Sub(rec.EntryPrice)
	} else {
		pnl = rec.EntryPrice.Sub(currentPrice)
	}
	var pnlPct decimal.Decimal
	if !rec.EntryPrice.IsZero() {
		pnlPct = pnl.Div(rec.EntryPrice).Mul(decimal.NewFromInt(100))
	}

	snap := types.PriceSnapshot{
		MinutesElapsed: minutesElapsed,
		Price:          currentPrice,
		PnL:            pnl,
		PnLPct:         pnlPct,
		Timestamp:      at,
	}
	if len(rec.Outcome.Snapshots) > 0 {
		last := rec.Outcome.Snapshots[len(rec.Outcome.Snapshots)-1]
		if minutesElapsed < last.MinutesElapsed {
			return fmt.Errorf("signallog: minutesElapsed must be non-decreasing for %s (got %d after %d)", id, minutesElapsed, last.MinutesElapsed)
		}
	}
	rec.Outcome.Snapshots = append(rec.Outcome.Snapshots, snap)

	if pnl.GreaterThan(rec.Outcome.MaxProfit) {
		rec.Outcome.MaxProfit = pnl
		rec.Outcome.MaxProfitPct = pnlPct
		peakTime := at
		rec.Outcome.PeakTime = &peakTime
	}
	if pnl.LessThan(rec.Outcome.MaxDrawdown) {
		rec.Outcome.MaxDrawdown = pnl
		rec.Outcome.MaxDrawdownPct = pnlPct
	}

	if isLong {
		if currentPrice.GreaterThanOrEqual(rec.SuggestedTarget) && !rec.Outcome.TargetHit {
			rec.Outcome.TargetHit = true
			rec.Outcome.TargetPrice = currentPrice
			targetTime := at
			rec.Outcome.TargetTime = &targetTime
		}
		if currentPrice.LessThanOrEqual(rec.SuggestedStop) {
			rec.Outcome.StopHit = true
		}
	} else {
		if currentPrice.LessThanOrEqual(rec.SuggestedTarget) && !rec.Outcome.TargetHit {
			rec.Outcome.TargetHit = true
			rec.Outcome.TargetPrice = currentPrice
			targetTime := at
			rec.Outcome.TargetTime = &targetTime
		}
		if currentPrice.GreaterThanOrEqual(rec.SuggestedStop) {
			rec.Outcome.StopHit = true
		}
	}

	trackedUntil := at
	rec.Outcome.TrackedUntil = &trackedUntil
	rec.Status = types.StatusTracking

	return l.persist()
}

// Complete finalizes the signal's outcome and transitions it to COMPLETED.
// Result priority: target_hit -> WIN, stop_hit -> LOSS, else by sign of
// final PnL (0 -> BREAKEVEN).
func (l *Log) Complete(id string, finalPrice decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, ok := l.byID[id]
	if !ok {
		return ErrSignalNotFound
	}

	isLong := rec.SignalType == types.Long
	var finalPnL decimal.Decimal
	if isLong {
		finalPnL = finalPrice.Sub(rec.EntryPrice)
	} else {
		finalPnL = rec.EntryPrice.Sub(finalPrice)
	}
	var finalPnLPct decimal.Decimal
	if !rec.EntryPrice.IsZero() {
		finalPnLPct = finalPnL.Div(rec.EntryPrice).Mul(decimal.NewFromInt(100))
	}

	rec.Outcome.FinalPnL = finalPnL
	rec.Outcome.FinalPnLPct = finalPnLPct

	switch {
	case rec.Outcome.TargetHit:
		rec.Outcome.Result = types.ResultWin
	case rec.Outcome.StopHit:
		rec.Outcome.Result = types.ResultLoss
	case finalPnL.IsPositive():
		rec.Outcome.Result = types.ResultWin
	case finalPnL.IsNegative():
		rec.Outcome.Result = types.ResultLoss
	default:
		rec.Outcome.Result = types.ResultBreakeven
	}

	rec.Status = types.StatusCompleted
	return l.persist()
}

// Get returns a copy of the record for id.
func (l *Log) Get(id string) (types.SignalRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.byID[id]
	if !ok {
		return types.SignalRecord{}, false
	}
	return *rec, true
}

// All returns a copy of every record, in log order.
func (l *Log) All() []types.SignalRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]types.SignalRecord, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, *l.byID[id])
	}
	return out
}

func (l *Log) persist() error {
	doc := document{
		Signals: make([]types.SignalRecord, 0, len(l.order)),
		Metadata: metadata{
			LastUpdated:   time.Now().UTC(),
			TotalSignals:  len(l.order),
			SchemaVersion: "1.0",
		},
	}
	for _, id := range l.order {
		doc.Signals = append(doc.Signals, *l.byID[id])
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("signallog: marshal history: %w", err)
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("signallog: write history file: %w", err)
	}
	return nil
}
