// Package multiconfig runs several Auto-Logger configurations side by side
// against the same tick sequence. Per SPEC_FULL.md section 5's concurrency
// model, each configuration gets its own goroutine, its own private sqlite
// store, and its own in-memory open-trade set; results are aggregated only
// by reading each store's Stats afterward, never through shared memory.
// Grounded on the teacher's internal/workers.Pool goroutine-per-unit-of-work
// shape, reduced to the one-shot fan-out/fan-in this comparison actually
// needs (no task queue, no latency percentiles: there is no throughput
// target here, just N independent simulations run to completion).
package multiconfig

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/autologger"
	"github.com/quartzline/goldintel/internal/ticksource"
)

// Candidate names one Auto-Logger configuration under test.
type Candidate struct {
	Name   string
	Config autologger.Config
}

// Result pairs a candidate's name with the Stats its private store produced.
type Result struct {
	Name  string
	Stats autologger.Stats
	Err   error
}

// Tester fans a tick sequence out to one Auto-Logger instance per candidate.
type Tester struct {
	logger *zap.Logger
	dir    string
}

// New returns a Tester whose per-candidate databases live under dir.
func New(logger *zap.Logger, dir string) *Tester {
	return &Tester{logger: logger, dir: dir}
}

// Run drives every candidate against its own copy of the tick source to
// completion and returns one Result per candidate, in the order given.
// A candidate's failure to open its store or evaluate a tick is captured
// in its own Result and never aborts the others — each instance owns its
// store exclusively, so one candidate's failure cannot corrupt another's.
func (t *Tester) Run(ctx context.Context, candidates []Candidate, ticks []ticksource.Tick) []Result {
	results := make([]Result, len(candidates))
	var wg sync.WaitGroup
	wg.Add(len(candidates))

	for i, c := range candidates {
		i, c := i, c
		go func() {
			defer wg.Done()
			results[i] = t.runOne(ctx, c, ticks)
		}()
	}
	wg.Wait()
	return results
}

func (t *Tester) runOne(ctx context.Context, c Candidate, ticks []ticksource.Tick) Result {
	dbPath := filepath.Join(t.dir, fmt.Sprintf("multiconfig_%s.db", c.Name))
	al, err := autologger.Open(t.logger.With(zap.String("candidate", c.Name)), dbPath, c.Config)
	if err != nil {
		return Result{Name: c.Name, Err: fmt.Errorf("multiconfig: open %s: %w", c.Name, err)}
	}
	defer al.Close()

	now := time.Now()
	for _, tick := range ticks {
		if tick.Price == nil {
			continue
		}
		snap := autologger.Snapshot{
			Timestamp:  now,
			Price:      *tick.Price,
			ScoreLong:  tick.ScoreLong,
			ScoreShort: tick.ScoreShort,
		}
		if tick.RSI != nil {
			snap.RSI = *tick.RSI
		}
		if tick.Stoch != nil {
			snap.StochK = *tick.Stoch
		}
		if tick.ATR != nil {
			snap.ATR = *tick.ATR
		}
		if tick.Trend != nil {
			snap.Regime = *tick.Trend
		}
		if tick.Session != nil {
			snap.Session = *tick.Session
		}

		if trade, admitted := al.CheckForNewSignal(snap); admitted {
			if err := al.LogTrade(ctx, trade, snap); err != nil {
				return Result{Name: c.Name, Err: fmt.Errorf("multiconfig: log trade for %s: %w", c.Name, err)}
			}
		}
		if err := al.EvaluateTick(ctx, snap.Price, now); err != nil {
			return Result{Name: c.Name, Err: fmt.Errorf("multiconfig: evaluate tick for %s: %w", c.Name, err)}
		}
		now = now.Add(c.Config.CheckInterval)
	}

	stats, err := al.Stats(ctx)
	if err != nil {
		return Result{Name: c.Name, Err: fmt.Errorf("multiconfig: stats for %s: %w", c.Name, err)}
	}
	return Result{Name: c.Name, Stats: stats}
}

// Best returns the candidate with the highest win rate among results that
// did not error and closed at least one trade; ok is false if none qualify.
func Best(results []Result) (Result, bool) {
	var best Result
	found := false
	for _, r := range results {
		if r.Err != nil || r.Stats.Wins+r.Stats.Losses == 0 {
			continue
		}
		if !found || r.Stats.WinRate > best.Stats.WinRate {
			best = r
			found = true
		}
	}
	return best, found
}
