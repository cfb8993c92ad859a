// Package factory is the top-level orchestrator that runs the
// discover-evolve-optimize-deploy loop across the pattern miner, rule
// evolver, auto-tuner and feedback loop, and manages the resulting
// strategy version lifecycle. Grounded in
// original_source/trading_intelligence/learning/strategy_factory.py
// (StrategyFactory, "The Loop"), wired onto the component set built
// earlier in this repo rather than re-implementing any of their logic.
package factory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/evolver"
	"github.com/quartzline/goldintel/internal/feedback"
	"github.com/quartzline/goldintel/internal/miner"
	"github.com/quartzline/goldintel/internal/tuner"
	"github.com/quartzline/goldintel/pkg/types"
)

// Config names the factory's deployment gate and per-iteration budgets,
// matching strategy_factory.py's StrategyFactory.__init__ constants.
type Config struct {
	MinImprovement       float64 // percentage points of win rate required to deploy
	EvolutionGenerations int
	TopPatternsForEvolve int
	TopRulesForVersion   int
}

// DefaultConfig mirrors the Python defaults (5% minimum improvement, 15
// evolution generations per loop iteration, top 30 patterns seed the
// evolver, top 10 rules summarize a version).
func DefaultConfig() Config {
	return Config{
		MinImprovement:       5.0,
		EvolutionGenerations: 15,
		TopPatternsForEvolve: 30,
		TopRulesForVersion:   10,
	}
}

// DiscoveryResult summarizes one run_discovery pass.
type DiscoveryResult struct {
	PatternsFound int
	TopPatternID  string
	TopConfidence float64
}

// EvolutionResult summarizes one run_evolution pass.
type EvolutionResult struct {
	RulesEvolved int
	BestFitness  float64
	BestWinRate  float64
	Generation   int
}

// OptimizationResult summarizes one run_optimization pass.
type OptimizationResult struct {
	StochOversold       float64
	StochOverbought     float64
	MinScoreLong        float64
	RegimeAdjustments   int
	SessionAdjustments  int
}

// IterationResult is one pass of The Loop.
type IterationResult struct {
	Iteration    int
	StartedAt    time.Time
	CompletedAt  time.Time
	Discovery    DiscoveryResult
	Evolution    EvolutionResult
	Optimization OptimizationResult
	Version      string
	Deployed     bool
	Err          error
}

// Factory orchestrates the miner, evolver, tuner and feedback loop into
// the self-improvement cycle and tracks strategy version history.
type Factory struct {
	cfg      Config
	logger   *zap.Logger
	miner    *miner.Miner
	evolver  *evolver.Evolver
	tuner    *tuner.Tuner
	feedback *feedback.Loop

	discovered     []types.DiscoveredPattern
	versions       []types.StrategyVersion
	currentVersion *types.StrategyVersion
}

// New builds a Factory around already-open, externally-owned component
// instances (the miner wraps no resource of its own; the feedback loop
// owns a sqlite handle whose lifecycle the caller manages) plus a
// reproducible seed for the evolver it constructs internally.
func New(logger *zap.Logger, cfg Config, seed int64, m *miner.Miner, fb *feedback.Loop) *Factory {
	return &Factory{
		cfg:      cfg,
		logger:   logger.Named("factory"),
		miner:    m,
		evolver:  evolver.New(evolver.DefaultConfig(), seed),
		tuner:    tuner.New(tuner.DefaultConfig(), tuner.DefaultTuningConfig()),
		feedback: fb,
	}
}

// Versions returns the recorded strategy version history.
func (f *Factory) Versions() []types.StrategyVersion {
	out := make([]types.StrategyVersion, len(f.versions))
	copy(out, f.versions)
	return out
}

// CurrentVersion returns the currently deployed version, or nil if none
// has been deployed yet.
func (f *Factory) CurrentVersion() *types.StrategyVersion { return f.currentVersion }

// loadData pulls historical data from the feedback loop when available,
// matching get_feedback_data's role as the miner/evolver/tuner's shared
// training set; it is empty (not synthetic) when no feedback exists yet.
func (f *Factory) loadData(ctx context.Context, now time.Time) ([]miner.DataPoint, error) {
	data, err := f.feedback.GetFeedbackData(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("factory: load feedback data: %w", err)
	}
	if len(data) > 0 {
		f.logger.Info("using feedback loop data for discovery", zap.Int("points", len(data)))
	} else {
		f.logger.Info("no feedback data available yet")
	}
	return data, nil
}

// RunDiscovery mines all pattern families from the available data.
func (f *Factory) RunDiscovery(ctx context.Context, now time.Time) (DiscoveryResult, error) {
	data, err := f.loadData(ctx, now)
	if err != nil {
		return DiscoveryResult{}, err
	}

	patterns := f.miner.MineAll(data)
	f.discovered = patterns

	result := DiscoveryResult{PatternsFound: len(patterns)}
	if len(patterns) > 0 {
		result.TopPatternID = patterns[0].ID
		result.TopConfidence = patterns[0].Confidence
	}
	return result, nil
}

// RunEvolution seeds the evolver from the top discovered patterns (running
// discovery first if none exist yet) and evolves rules over the available
// data for EvolutionGenerations generations.
func (f *Factory) RunEvolution(ctx context.Context, now time.Time) (EvolutionResult, error) {
	if len(f.discovered) == 0 {
		if _, err := f.RunDiscovery(ctx, now); err != nil {
			return EvolutionResult{}, err
		}
	}

	patterns := topPatterns(f.discovered, f.cfg.TopPatternsForEvolve)
	f.evolver.InitializeFromPatterns(patterns)

	data, err := f.loadData(ctx, now)
	if err != nil {
		return EvolutionResult{}, err
	}

	topRules := f.evolver.RunEvolution(data, f.cfg.EvolutionGenerations)

	result := EvolutionResult{
		RulesEvolved: len(topRules),
		Generation:   f.evolver.Generation(),
	}
	if len(topRules) > 0 {
		result.BestFitness = topRules[0].Fitness
		result.BestWinRate = topRules[0].WinRate
	}
	return result, nil
}

// RunOptimization grid-searches TuningConfig scalars over the available
// data, globally and per-regime/per-session.
func (f *Factory) RunOptimization(ctx context.Context, now time.Time) (OptimizationResult, error) {
	data, err := f.loadData(ctx, now)
	if err != nil {
		return OptimizationResult{}, err
	}

	cfg := f.tuner.RunFullOptimization(data, now)

	return OptimizationResult{
		StochOversold:      cfg.StochOversold.InexactFloat64(),
		StochOverbought:    cfg.StochOverbought.InexactFloat64(),
		MinScoreLong:       cfg.MinScoreLong.InexactFloat64(),
		RegimeAdjustments:  len(cfg.PerRegime),
		SessionAdjustments: len(cfg.PerSession),
	}, nil
}

// CreateVersion summarizes the evolver's current top rules into a new,
// inactive StrategyVersion and appends it to the version history.
func (f *Factory) CreateVersion(now time.Time, notes string) types.StrategyVersion {
	top := f.evolver.GetTopRules(f.cfg.TopRulesForVersion)

	var sumWR, sumPF float64
	for _, r := range top {
		sumWR += r.WinRate
		sumPF += r.ProfitFactor
	}
	var avgWR, avgPF float64
	if len(top) > 0 {
		avgWR = sumWR / float64(len(top))
		avgPF = sumPF / float64(len(top))
	}

	version := types.StrategyVersion{
		VersionID:    fmt.Sprintf("v%d.0_%s", len(f.versions)+1, now.UTC().Format("20060102")),
		CreatedAt:    now,
		RulesCount:   len(top),
		WinRate:      avgWR,
		ProfitFactor: avgPF,
		IsActive:     false,
		Notes:        notes,
		Seed:         f.evolver.Seed(),
	}
	f.versions = append(f.versions, version)
	return version
}

// DeployVersion activates versionID and deactivates every other version,
// returning false if versionID is unknown.
func (f *Factory) DeployVersion(versionID string) bool {
	var target *types.StrategyVersion
	for i := range f.versions {
		f.versions[i].IsActive = false
		if f.versions[i].VersionID == versionID {
			target = &f.versions[i]
		}
	}
	if target == nil {
		return false
	}
	target.IsActive = true
	f.currentVersion = target
	f.logger.Info("deployed strategy version",
		zap.String("version", target.VersionID),
		zap.Float64("winRate", target.WinRate),
		zap.Float64("profitFactor", target.ProfitFactor),
	)
	return true
}

// RunTheLoop runs the complete discover-evolve-optimize-deploy cycle for
// the given number of iterations, deploying each new version only if it
// improves on the current version's win rate by at least MinImprovement
// points (or unconditionally, if there is no current version yet) —
// exactly strategy_factory.py's run_the_loop deploy gate.
func (f *Factory) RunTheLoop(ctx context.Context, now time.Time, iterations int) []IterationResult {
	results := make([]IterationResult, 0, iterations)

	for i := 0; i < iterations; i++ {
		iterStart := now
		result := IterationResult{Iteration: i + 1, StartedAt: iterStart}

		discovery, err := f.RunDiscovery(ctx, iterStart)
		if err != nil {
			result.Err = err
			results = append(results, result)
			continue
		}
		result.Discovery = discovery

		evolution, err := f.RunEvolution(ctx, iterStart)
		if err != nil {
			result.Err = err
			results = append(results, result)
			continue
		}
		result.Evolution = evolution

		optimization, err := f.RunOptimization(ctx, iterStart)
		if err != nil {
			result.Err = err
			results = append(results, result)
			continue
		}
		result.Optimization = optimization

		version := f.CreateVersion(iterStart, fmt.Sprintf("Auto-generated iteration %d", i+1))
		result.Version = version.VersionID

		shouldDeploy := f.currentVersion == nil || version.WinRate-f.currentVersion.WinRate >= f.cfg.MinImprovement
		if shouldDeploy {
			f.DeployVersion(version.VersionID)
		}
		result.Deployed = shouldDeploy
		result.CompletedAt = iterStart
		results = append(results, result)
	}
	return results
}

// Status is the status snapshot get_status returns.
type Status struct {
	CurrentVersion     *types.StrategyVersion
	TotalVersions      int
	PatternsDiscovered int
	RulesInPopulation  int
	OptimizationRuns   int
	RecentSignals      int
	RecentWinRate      float64
	RecentProfitFactor float64
	HasRecentMetrics   bool
}

// GetStatus reports the factory's current state, including the feedback
// loop's trailing 7-day performance when available.
func (f *Factory) GetStatus(ctx context.Context, now time.Time) (Status, error) {
	status := Status{
		CurrentVersion:     f.currentVersion,
		TotalVersions:      len(f.versions),
		PatternsDiscovered: len(f.discovered),
		RulesInPopulation:  len(f.evolver.Population()),
		OptimizationRuns:   len(f.tuner.History()),
	}

	metrics, err := f.feedback.CalculateMetrics(ctx, now, 7)
	if err != nil {
		return status, fmt.Errorf("factory: status metrics: %w", err)
	}
	if metrics != nil {
		status.HasRecentMetrics = true
		status.RecentSignals = metrics.TotalSignals
		status.RecentWinRate = metrics.WinRate
		status.RecentProfitFactor = metrics.ProfitFactor
	}
	return status, nil
}

func topPatterns(patterns []types.DiscoveredPattern, n int) []types.DiscoveredPattern {
	if n >= len(patterns) {
		return patterns
	}
	return patterns[:n]
}
