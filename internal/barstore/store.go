// Package barstore persists OHLCV bars, indicator values, and correlation
// readings in a relational store, and supplies historical windows to the
// rest of the pipeline. Grounded in the teacher's internal/data/store.go
// (constructor shape, RWMutex-guarded cache, logger-first convention), but
// re-targeted from a file-per-symbol JSON cache onto the relational,
// four-table layout SPEC_FULL section 6 calls for.
package barstore

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/pkg/types"
	"github.com/shopspring/decimal"
)

// Store provides access to historical bar, indicator, and correlation data.
type Store struct {
	mu     sync.RWMutex
	logger *zap.Logger
	db     *sqlx.DB
	cache  map[string][]types.Bar

	// AllowSyntheticFallback gates the deterministic sample-data generator
	// used when a symbol has no persisted bars (see SPEC_FULL design notes:
	// the teacher's own store falls back unconditionally; this store only
	// does so when explicitly opted in, so tests can tell "no data" apart
	// from "mocked data").
	AllowSyntheticFallback bool
}

const schema = `
CREATE TABLE IF NOT EXISTS bars (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	o REAL NOT NULL,
	h REAL NOT NULL,
	l REAL NOT NULL,
	c REAL NOT NULL,
	v REAL NOT NULL,
	PRIMARY KEY (symbol, date)
);
CREATE TABLE IF NOT EXISTS indicators (
	symbol TEXT NOT NULL,
	date   TEXT NOT NULL,
	name   TEXT NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (symbol, date, name)
);
CREATE TABLE IF NOT EXISTS correlations (
	base   TEXT NOT NULL,
	other  TEXT NOT NULL,
	start  TEXT NOT NULL,
	end    TEXT NOT NULL,
	window INTEGER NOT NULL,
	value  REAL NOT NULL,
	PRIMARY KEY (base, other, start, end, window)
);
CREATE TABLE IF NOT EXISTS metadata (
	key TEXT PRIMARY KEY,
	value_json TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Open creates or opens the sqlite-backed store at dataDir/bars.db.
func Open(logger *zap.Logger, dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	path := filepath.Join(dataDir, "bars.db")
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open bar store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate bar store: %w", err)
	}
	return &Store{
		logger: logger,
		db:     db,
		cache:  make(map[string][]types.Bar),
	}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type barRow struct {
	Symbol string  `db:"symbol"`
	Date   string  `db:"date"`
	O      float64 `db:"o"`
	H      float64 `db:"h"`
	L      float64 `db:"l"`
	C      float64 `db:"c"`
	V      float64 `db:"v"`
}

// SaveBars persists a bar series for a symbol, replacing any existing rows
// for the same (symbol, date) pairs.
func (s *Store) SaveBars(ctx context.Context, bars []types.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := `INSERT OR REPLACE INTO bars (symbol, date, o, h, l, c, v) VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, b := range bars {
		o, _ := b.Open.Float64()
		h, _ := b.High.Float64()
		l, _ := b.Low.Float64()
		c, _ := b.Close.Float64()
		v, _ := b.Volume.Float64()
		if _, err := tx.ExecContext(ctx, stmt, b.Symbol, b.Timestamp.UTC().Format(time.RFC3339), o, h, l, c, v); err != nil {
			return fmt.Errorf("insert bar: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bars: %w", err)
	}
	delete(s.cache, bars[0].Symbol)
	return nil
}

// LoadBars returns the bar series for symbol within [start,end], ordered by
// timestamp ascending. If no rows exist and AllowSyntheticFallback is set, a
// deterministic synthetic series is generated, cached, and returned instead
// of an empty slice.
func (s *Store) LoadBars(ctx context.Context, symbol string, start, end time.Time) ([]types.Bar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.cache[symbol]; ok {
		return filterRange(cached, start, end), nil
	}

	var rows []barRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT symbol, date, o, h, l, c, v FROM bars WHERE symbol = ? ORDER BY date ASC`, symbol)
	if err != nil {
		return nil, fmt.Errorf("load bars: %w", err)
	}

	bars := make([]types.Bar, 0, len(rows))
	for _, r := range rows {
		ts, perr := time.Parse(time.RFC3339, r.Date)
		if perr != nil {
			continue
		}
		bars = append(bars, types.Bar{
			Symbol:    r.Symbol,
			Timestamp: ts,
			Open:      decimal.NewFromFloat(r.O),
			High:      decimal.NewFromFloat(r.H),
			Low:       decimal.NewFromFloat(r.L),
			Close:     decimal.NewFromFloat(r.C),
			Volume:    decimal.NewFromFloat(r.V),
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })

	if len(bars) == 0 && s.AllowSyntheticFallback {
		s.logger.Info("generating synthetic bars", zap.String("symbol", symbol))
		bars = generateSyntheticBars(symbol, start, end)
	}

	s.cache[symbol] = bars
	return filterRange(bars, start, end), nil
}

func filterRange(bars []types.Bar, start, end time.Time) []types.Bar {
	out := make([]types.Bar, 0, len(bars))
	for _, b := range bars {
		if (b.Timestamp.Equal(start) || b.Timestamp.After(start)) &&
			(b.Timestamp.Equal(end) || b.Timestamp.Before(end)) {
			out = append(out, b)
		}
	}
	return out
}

// generateSyntheticBars produces a deterministic daily OHLCV series seeded
// from the symbol name, preserving the teacher's generateSampleData shape
// (random-walk close with a small high/low wick) while being reproducible
// across runs, unlike the teacher's wall-clock-seeded version.
func generateSyntheticBars(symbol string, start, end time.Time) []types.Bar {
	var seed int64
	for _, c := range symbol {
		seed = seed*31 + int64(c)
	}
	rng := rand.New(rand.NewSource(seed))

	price := 2000.0
	var bars []types.Bar
	for t := start; !t.After(end); t = t.AddDate(0, 0, 1) {
		change := (rng.Float64() - 0.5) * 0.02 * price
		open := price
		price += change
		closeP := price
		high := maxF(open, closeP) * (1 + rng.Float64()*0.005)
		low := minF(open, closeP) * (1 - rng.Float64()*0.005)
		volume := rng.Float64() * 100000

		bars = append(bars, types.Bar{
			Symbol:    symbol,
			Timestamp: t,
			Open:      decimal.NewFromFloat(open),
			High:      decimal.NewFromFloat(high),
			Low:       decimal.NewFromFloat(low),
			Close:     decimal.NewFromFloat(closeP),
			Volume:    decimal.NewFromFloat(volume),
		})
	}
	return bars
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// SaveIndicators persists every named indicator value in values for a
// (symbol, date).
func (s *Store) SaveIndicators(ctx context.Context, symbol string, date time.Time, values map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := `INSERT OR REPLACE INTO indicators (symbol, date, name, value) VALUES (?, ?, ?, ?)`
	dateStr := date.UTC().Format(time.RFC3339)
	for name, v := range values {
		f, _ := v.Float64()
		if _, err := tx.ExecContext(ctx, stmt, symbol, dateStr, name, f); err != nil {
			return fmt.Errorf("insert indicator %s: %w", name, err)
		}
	}
	return tx.Commit()
}

// SaveCorrelation persists one rolling-correlation reading between base and
// other over [start,end] at the given window length.
func (s *Store) SaveCorrelation(ctx context.Context, base, other string, start, end time.Time, window int, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO correlations (base, other, start, end, window, value) VALUES (?, ?, ?, ?, ?, ?)`,
		base, other, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339), window, value)
	if err != nil {
		return fmt.Errorf("save correlation: %w", err)
	}
	return nil
}

// ClearCache drops the in-memory bar cache, forcing the next load to hit
// the database.
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string][]types.Bar)
}
