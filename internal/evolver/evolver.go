// Package evolver evolves a population of TradingRules with a genetic
// algorithm: tournament selection, elite carry-over, crossover, and
// mutation. Grounded in
// original_source/trading_intelligence/learning/rule_evolution.py, with
// the population/selection/crossover/mutation shape borrowed from the
// teacher's internal/optimization.Optimizer genetic-algorithm path.
package evolver

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/internal/miner"
	"github.com/quartzline/goldintel/pkg/types"
)

// IndicatorRange bounds the mutable value of one condition indicator.
type IndicatorRange struct {
	Min, Max float64
}

// Config names the evolver's population shape and genetic operator rates.
type Config struct {
	PopulationSize int
	EliteCount     int
	TournamentSize int
	MutationRate   float64
	CrossoverRate  float64
	Generations    int

	IndicatorRanges map[string]IndicatorRange
	Regimes         []*types.Trend
	Sessions        []*types.Session
}

// DefaultConfig mirrors rule_evolution.py's RuleEvolution.__init__
// defaults.
func DefaultConfig() Config {
	strongUp, weakUp, ranging, weakDown, strongDown := types.StrongUptrend, types.WeakUptrend, types.Ranging, types.WeakDowntrend, types.StrongDowntrend
	asia, london, ny, overlap := types.SessionAsia, types.SessionLondon, types.SessionNY, types.SessionOverlap
	return Config{
		PopulationSize: 50,
		EliteCount:     5,
		TournamentSize: 5,
		MutationRate:   0.2,
		CrossoverRate:  0.3,
		Generations:    20,
		IndicatorRanges: map[string]IndicatorRange{
			"rsi":            {10, 90},
			"stoch_k":        {5, 95},
			"adx":            {10, 60},
			"atr_percentile": {10, 90},
		},
		Regimes:  []*types.Trend{&strongUp, &weakUp, &ranging, &weakDown, &strongDown, nil},
		Sessions: []*types.Session{&asia, &london, &ny, &overlap, nil},
	}
}

// Evolver holds a population of TradingRules and the RNG that drives all
// stochastic operators. The RNG is explicitly seeded and the seed is
// expected to be persisted alongside any StrategyVersion produced from
// this population, so a given evolution run can be reproduced exactly —
// unlike the teacher's optimizer.go, which seeds from wall-clock time.
type Evolver struct {
	cfg        Config
	rng        *rand.Rand
	seed       int64
	generation int
	population []types.TradingRule
}

// New builds an Evolver with an explicit seed.
func New(cfg Config, seed int64) *Evolver {
	return &Evolver{cfg: cfg, rng: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed returns the RNG seed this Evolver was constructed with.
func (e *Evolver) Seed() int64 { return e.seed }

// Generation returns the current generation counter.
func (e *Evolver) Generation() int { return e.generation }

// Population returns a copy of the current population.
func (e *Evolver) Population() []types.TradingRule {
	out := make([]types.TradingRule, len(e.population))
	copy(out, e.population)
	return out
}

// InitializeFromPatterns seeds generation 0 from mined DiscoveredPatterns,
// filling any remaining population slots with random rules.
func (e *Evolver) InitializeFromPatterns(patterns []types.DiscoveredPattern) {
	e.population = nil
	for i, p := range patterns {
		if i >= e.cfg.PopulationSize {
			break
		}
		weight := int(p.Confidence / 10)
		if weight < 1 {
			weight = 1
		}
		if weight > 10 {
			weight = 10
		}
		e.population = append(e.population, types.TradingRule{
			RuleID:        fmt.Sprintf("GEN0_R%03d", i),
			Generation:    0,
			Conditions:    cloneConditions(p.Conditions),
			RegimeFilter:  p.Regime,
			SessionFilter: p.Session,
			Direction:     p.Direction,
			Weight:        weight,
			WinRate:       p.WinRate,
			ProfitFactor:  p.ProfitFactor,
			TotalTrades:   p.SampleSize,
			Fitness:       p.Confidence,
		})
	}
	for len(e.population) < e.cfg.PopulationSize {
		e.population = append(e.population, e.randomRule())
	}
}

func (e *Evolver) randomRule() types.TradingRule {
	indicators := []string{"rsi", "stoch_k", "adx", "atr_percentile"}
	e.rng.Shuffle(len(indicators), func(i, j int) { indicators[i], indicators[j] = indicators[j], indicators[i] })
	n := 1 + e.rng.Intn(3)
	conditions := make(map[string]types.Condition, n)
	for _, ind := range indicators[:n] {
		r := e.cfg.IndicatorRanges[ind]
		op := "<"
		if e.rng.Float64() < 0.5 {
			op = ">"
		}
		value := r.Min + float64(e.rng.Intn(int(r.Max-r.Min)+1))
		conditions[ind] = types.Condition{Op: op, Threshold: decimal.NewFromFloat(value)}
	}

	direction := types.Long
	if e.rng.Float64() < 0.5 {
		direction = types.Short
	}

	return types.TradingRule{
		RuleID:        fmt.Sprintf("GEN%d_R%03d", e.generation, e.rng.Intn(900)+100),
		Generation:    e.generation,
		Conditions:    conditions,
		RegimeFilter:  e.cfg.Regimes[e.rng.Intn(len(e.cfg.Regimes))],
		SessionFilter: e.cfg.Sessions[e.rng.Intn(len(e.cfg.Sessions))],
		Direction:     direction,
		Weight:        1 + e.rng.Intn(10),
	}
}

// EvaluateFitness scores rule against data and mutates its Fitness/
// WinRate/ProfitFactor/TotalTrades fields in place, matching
// evaluate_fitness's side-effecting update of the rule dataclass.
func (e *Evolver) EvaluateFitness(rule *types.TradingRule, data []miner.DataPoint) float64 {
	filtered := data
	if rule.RegimeFilter != nil {
		filtered = filterDP(filtered, func(d miner.DataPoint) bool { return d.Regime == *rule.RegimeFilter })
	}
	if rule.SessionFilter != nil {
		filtered = filterDP(filtered, func(d miner.DataPoint) bool { return d.Session == *rule.SessionFilter })
	}
	for indicator, cond := range rule.Conditions {
		threshold, _ := cond.Threshold.Float64()
		op := cond.Op
		filtered = filterDP(filtered, func(d miner.DataPoint) bool {
			v := featureOf(d, indicator)
			if op == "<" {
				return v < threshold
			}
			return v > threshold
		})
	}
	filtered = filterDP(filtered, func(d miner.DataPoint) bool { return d.Direction == rule.Direction })

	if len(filtered) < 10 {
		rule.Fitness = 0
		return 0
	}

	wins, losses := 0, 0
	var totalProfit, totalLoss float64
	for _, d := range filtered {
		if d.Win {
			wins++
			totalProfit += d.PnL
		} else {
			losses++
			totalLoss += d.PnL
		}
	}
	winRate := float64(wins) / float64(len(filtered)) * 100
	absLoss := -totalLoss
	if absLoss == 0 {
		absLoss = 0.01
	}
	profitFactor := totalProfit / absLoss

	rule.WinRate = winRate
	rule.ProfitFactor = profitFactor
	rule.TotalTrades = len(filtered)

	fitness := (winRate-50)*2 + (profitFactor-1)*20 + math.Min(float64(len(filtered))/5, 20)
	if len(filtered) < 20 {
		fitness *= 0.5
	}
	if fitness < 0 {
		fitness = 0
	}
	rule.Fitness = fitness
	return fitness
}

func featureOf(d miner.DataPoint, indicator string) float64 {
	switch indicator {
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

func filterDP(data []miner.DataPoint, pred func(miner.DataPoint) bool) []miner.DataPoint {
	var out []miner.DataPoint
	for _, d := range data {
		if pred(d) {
			out = append(out, d)
		}
	}
	return out
}

// EvaluatePopulation scores every rule and sorts the population by
// fitness descending.
func (e *Evolver) EvaluatePopulation(data []miner.DataPoint) {
	for i := range e.population {
		e.EvaluateFitness(&e.population[i], data)
	}
	sort.SliceStable(e.population, func(i, j int) bool { return e.population[i].Fitness > e.population[j].Fitness })
}

// selectParent runs one tournament of the configured size.
func (e *Evolver) selectParent() types.TradingRule {
	best := e.population[e.rng.Intn(len(e.population))]
	for i := 1; i < e.cfg.TournamentSize; i++ {
		candidate := e.population[e.rng.Intn(len(e.population))]
		if candidate.Fitness > best.Fitness {
			best = candidate
		}
	}
	return best
}

// crossover combines two parents' conditions (averaging shared
// indicators), filters, direction (from the fitter parent), and weight.
func (e *Evolver) crossover(p1, p2 types.TradingRule) types.TradingRule {
	conditions := make(map[string]types.Condition)
	seen := make(map[string]bool)
	for ind, c1 := range p1.Conditions {
		seen[ind] = true
		if c2, ok := p2.Conditions[ind]; ok {
			v1, _ := c1.Threshold.Float64()
			v2, _ := c2.Threshold.Float64()
			op := c1.Op
			if e.rng.Float64() < 0.5 {
				op = c2.Op
			}
			conditions[ind] = types.Condition{Op: op, Threshold: decimal.NewFromFloat((v1 + v2) / 2)}
		} else {
			conditions[ind] = c1
		}
	}
	for ind, c2 := range p2.Conditions {
		if !seen[ind] {
			conditions[ind] = c2
		}
	}

	regimeFilter := p1.RegimeFilter
	if e.rng.Float64() < 0.5 {
		regimeFilter = p2.RegimeFilter
	}
	sessionFilter := p1.SessionFilter
	if e.rng.Float64() < 0.5 {
		sessionFilter = p2.SessionFilter
	}

	direction := p2.Direction
	if p1.Fitness > p2.Fitness {
		direction = p1.Direction
	}

	return types.TradingRule{
		RuleID:        fmt.Sprintf("GEN%d_R%03d", e.generation, e.rng.Intn(900)+100),
		Generation:    e.generation,
		Conditions:    conditions,
		RegimeFilter:  regimeFilter,
		SessionFilter: sessionFilter,
		Direction:     direction,
		Weight:        (p1.Weight + p2.Weight) / 2,
		ParentIDs:     []string{p1.RuleID, p2.RuleID},
	}
}

// mutate produces a perturbed copy of rule: condition-value jitter
// (probability 0.3), operator flip (0.1), regime/session re-roll (0.15
// each), weight nudge (0.2).
func (e *Evolver) mutate(rule types.TradingRule) types.TradingRule {
	mutated := types.TradingRule{
		RuleID:        fmt.Sprintf("GEN%d_M%03d", e.generation, e.rng.Intn(900)+100),
		Generation:    e.generation,
		Conditions:    cloneConditions(rule.Conditions),
		RegimeFilter:  rule.RegimeFilter,
		SessionFilter: rule.SessionFilter,
		Direction:     rule.Direction,
		Weight:        rule.Weight,
		ParentIDs:     []string{rule.RuleID},
	}

	for ind, cond := range mutated.Conditions {
		r := e.cfg.IndicatorRanges[ind]
		value, _ := cond.Threshold.Float64()
		if e.rng.Float64() < 0.3 {
			delta := float64(e.rng.Intn(10) + 1)
			if e.rng.Intn(2) == 0 {
				delta = -delta
			}
			newValue := clamp(value+delta, r.Min, r.Max)
			mutated.Mutations = append(mutated.Mutations, fmt.Sprintf("%s: %g -> %g", ind, value, newValue))
			cond.Threshold = decimal.NewFromFloat(newValue)
		}
		if e.rng.Float64() < 0.1 {
			if cond.Op == "<" {
				cond.Op = ">"
			} else {
				cond.Op = "<"
			}
			mutated.Mutations = append(mutated.Mutations, fmt.Sprintf("%s operator flipped", ind))
		}
		mutated.Conditions[ind] = cond
	}

	if e.rng.Float64() < 0.15 {
		mutated.RegimeFilter = e.cfg.Regimes[e.rng.Intn(len(e.cfg.Regimes))]
		mutated.Mutations = append(mutated.Mutations, "regime_filter changed")
	}
	if e.rng.Float64() < 0.15 {
		mutated.SessionFilter = e.cfg.Sessions[e.rng.Intn(len(e.cfg.Sessions))]
		mutated.Mutations = append(mutated.Mutations, "session_filter changed")
	}
	if e.rng.Float64() < 0.2 {
		delta := 1
		if e.rng.Float64() < 0.5 {
			delta = -1
		}
		mutated.Weight = int(clamp(float64(mutated.Weight+delta), 1, 10))
		mutated.Mutations = append(mutated.Mutations, fmt.Sprintf("weight -> %d", mutated.Weight))
	}

	return mutated
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func cloneConditions(src map[string]types.Condition) map[string]types.Condition {
	out := make(map[string]types.Condition, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// GenerationStats summarizes one completed generation.
type GenerationStats struct {
	Generation int
	AvgFitness float64
	MaxFitness float64
	AvgWinRate float64
	BestRuleID string
}

// EvolveGeneration evaluates the current population against data, records
// generation statistics, then replaces the population: elites carried
// over, the remainder filled by the same sequential
// crossover-then-mutation-else-random branching as evolve_generation.
func (e *Evolver) EvolveGeneration(data []miner.DataPoint) GenerationStats {
	e.generation++
	e.EvaluatePopulation(data)

	var totalFitness, maxFitness, totalWinRate float64
	maxFitness = e.population[0].Fitness
	for _, r := range e.population {
		totalFitness += r.Fitness
		totalWinRate += r.WinRate
		if r.Fitness > maxFitness {
			maxFitness = r.Fitness
		}
	}
	stats := GenerationStats{
		Generation: e.generation,
		AvgFitness: totalFitness / float64(len(e.population)),
		MaxFitness: maxFitness,
		AvgWinRate: totalWinRate / float64(len(e.population)),
		BestRuleID: e.population[0].RuleID,
	}

	newPopulation := make([]types.TradingRule, 0, e.cfg.PopulationSize)
	for i := 0; i < e.cfg.EliteCount && i < len(e.population); i++ {
		newPopulation = append(newPopulation, e.population[i])
	}

	half := e.population[:len(e.population)/2]
	for len(newPopulation) < e.cfg.PopulationSize {
		switch {
		case e.rng.Float64() < e.cfg.CrossoverRate:
			p1, p2 := e.selectParent(), e.selectParent()
			newPopulation = append(newPopulation, e.crossover(p1, p2))
		case e.rng.Float64() < e.cfg.MutationRate:
			parent := half[e.rng.Intn(len(half))]
			newPopulation = append(newPopulation, e.mutate(parent))
		default:
			newPopulation = append(newPopulation, e.randomRule())
		}
	}

	e.population = newPopulation[:e.cfg.PopulationSize]
	return stats
}

// RunEvolution runs the configured number of generations (or the
// generations argument if non-zero) and returns the final population
// sorted by fitness.
func (e *Evolver) RunEvolution(data []miner.DataPoint, generations int) []types.TradingRule {
	if generations <= 0 {
		generations = e.cfg.Generations
	}
	for g := 0; g < generations; g++ {
		e.EvolveGeneration(data)
	}
	e.EvaluatePopulation(data)
	return e.GetTopRules(len(e.population))
}

// GetTopRules returns the top n rules by fitness.
func (e *Evolver) GetTopRules(n int) []types.TradingRule {
	sort.SliceStable(e.population, func(i, j int) bool { return e.population[i].Fitness > e.population[j].Fitness })
	if n > len(e.population) {
		n = len(e.population)
	}
	out := make([]types.TradingRule, n)
	copy(out, e.population[:n])
	return out
}
