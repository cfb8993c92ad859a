package evolver_test

import (
	"math"
	"testing"
	"time"

	"github.com/quartzline/goldintel/internal/evolver"
	"github.com/quartzline/goldintel/internal/miner"
	"github.com/quartzline/goldintel/pkg/types"
)

func oversoldLongData(n int, winRatio float64) []miner.DataPoint {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	wins := int(float64(n) * winRatio)
	out := make([]miner.DataPoint, 0, n)
	for i := 0; i < n; i++ {
		win := i < wins
		pnl := -3.0
		if win {
			pnl = 6.0
		}
		out = append(out, miner.DataPoint{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			RSI:       55,
			StochK:    18,
			ADX:       28,
			Regime:    types.WeakUptrend,
			Session:   types.SessionLondon,
			Direction: types.Long,
			Win:       win,
			PnL:       pnl,
		})
	}
	return out
}

func TestNewEvolversWithSameSeedProduceIdenticalFirstGeneration(t *testing.T) {
	data := oversoldLongData(40, 0.7)

	e1 := evolver.New(evolver.DefaultConfig(), 42)
	e1.InitializeFromPatterns(nil)
	s1 := e1.EvolveGeneration(data)

	e2 := evolver.New(evolver.DefaultConfig(), 42)
	e2.InitializeFromPatterns(nil)
	s2 := e2.EvolveGeneration(data)

	if s1.BestRuleID != s2.BestRuleID || s1.AvgFitness != s2.AvgFitness {
		t.Fatalf("expected identical generation stats for identical seeds, got %+v vs %+v", s1, s2)
	}
}

func TestEvaluateFitnessZeroBelowMinimumSample(t *testing.T) {
	e := evolver.New(evolver.DefaultConfig(), 7)
	rule := types.TradingRule{
		Direction:  types.Long,
		Conditions: map[string]types.Condition{},
	}
	data := oversoldLongData(5, 1.0)
	fitness := e.EvaluateFitness(&rule, data)
	if fitness != 0 {
		t.Errorf("expected zero fitness below the 10-trade minimum, got %f", fitness)
	}
}

func TestEvaluateFitnessPenalizesSmallSample(t *testing.T) {
	e := evolver.New(evolver.DefaultConfig(), 7)
	rule := types.TradingRule{Direction: types.Long, Conditions: map[string]types.Condition{}}
	data := oversoldLongData(15, 1.0)
	fitness := e.EvaluateFitness(&rule, data)
	if fitness <= 0 {
		t.Fatalf("expected positive fitness for all-winning sample, got %f", fitness)
	}
	if rule.TotalTrades != 15 {
		t.Errorf("expected rule.TotalTrades updated to 15, got %d", rule.TotalTrades)
	}
	full := (rule.WinRate-50)*2 + (rule.ProfitFactor-1)*20 + 3
	if math.Abs(fitness-full*0.5) > 1e-6 {
		t.Errorf("expected fitness halved below 20 trades: want %f, got %f", full*0.5, fitness)
	}
}

func TestInitializeFromPatternsFillsRemainderWithRandomRules(t *testing.T) {
	e := evolver.New(evolver.DefaultConfig(), 1)
	patterns := []types.DiscoveredPattern{
		{Direction: types.Long, Confidence: 80, Conditions: map[string]types.Condition{}},
	}
	e.InitializeFromPatterns(patterns)
	population := e.Population()
	if len(population) != 50 {
		t.Fatalf("expected population filled to size 50, got %d", len(population))
	}
	if population[0].RuleID != "GEN0_R000" {
		t.Errorf("expected first rule seeded from pattern with id GEN0_R000, got %s", population[0].RuleID)
	}
}

func TestRunEvolutionReturnsRulesSortedByFitness(t *testing.T) {
	data := oversoldLongData(40, 0.75)
	e := evolver.New(evolver.DefaultConfig(), 99)
	e.InitializeFromPatterns(nil)
	top := e.RunEvolution(data, 3)
	if len(top) == 0 {
		t.Fatal("expected a non-empty evolved population")
	}
	for i := 1; i < len(top); i++ {
		if top[i].Fitness > top[i-1].Fitness {
			t.Fatalf("expected top rules sorted by fitness descending at index %d", i)
		}
	}
}
