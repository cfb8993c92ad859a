package tuner_test

import (
	"testing"
	"time"

	"github.com/quartzline/goldintel/internal/miner"
	"github.com/quartzline/goldintel/internal/tuner"
	"github.com/quartzline/goldintel/pkg/types"
)

// lowStochLongData builds n LONG trades (RSI 50, stoch_k 12, ADX 18,
// WEAK_UPTREND/London); the first winRatio*n win +8, the rest lose -4.
func lowStochLongData(n int, winRatio float64) []miner.DataPoint {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	wins := int(float64(n) * winRatio)
	out := make([]miner.DataPoint, 0, n)
	for i := 0; i < n; i++ {
		win := i < wins
		pnl := -4.0
		if win {
			pnl = 8.0
		}
		out = append(out, miner.DataPoint{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			RSI:       50,
			StochK:    12,
			ADX:       18,
			Regime:    types.WeakUptrend,
			Session:   types.SessionLondon,
			Direction: types.Long,
			Win:       win,
			PnL:       pnl,
		})
	}
	return out
}

func TestOptimizeParameterBelowMinSampleReturnsNil(t *testing.T) {
	tn := tuner.New(tuner.DefaultConfig(), tuner.DefaultTuningConfig())
	data := lowStochLongData(5, 1.0)
	long := types.Long
	result := tn.OptimizeParameter("stoch_oversold", data, &long, nil, nil)
	if result != nil {
		t.Fatalf("expected nil result below MinEvalSample, got %+v", result)
	}
}

func TestOptimizeParameterReturnsResultAboveMinOptimizeSample(t *testing.T) {
	tn := tuner.New(tuner.DefaultConfig(), tuner.DefaultTuningConfig())
	data := lowStochLongData(40, 0.8)
	long := types.Long
	result := tn.OptimizeParameter("stoch_oversold", data, &long, nil, nil)
	if result == nil {
		t.Fatal("expected a non-nil optimization result")
	}
	if result.SampleSize < 10 {
		t.Errorf("expected sample size at or above MinOptimizeSample, got %d", result.SampleSize)
	}
}

func TestOptimizeForRegimeRequiresMinimumDataPoints(t *testing.T) {
	tn := tuner.New(tuner.DefaultConfig(), tuner.DefaultTuningConfig())
	data := lowStochLongData(30, 0.8) // below MinRegimeSessionData of 50
	override := tn.OptimizeForRegime(types.WeakUptrend, data)
	if override != nil {
		t.Fatalf("expected nil override below the 50-point regime minimum, got %+v", override)
	}
}

func TestOptimizeForRegimeAppliesOverrideAboveThreshold(t *testing.T) {
	tn := tuner.New(tuner.DefaultConfig(), tuner.DefaultTuningConfig())
	data := lowStochLongData(60, 0.85)
	// Every other losing trade carries RSI 25 and ADX 28, so raising
	// adx_min_trend above 28 keeps those losses out and lifts fitness.
	for i := range data {
		if !data[i].Win && i%2 == 0 {
			data[i].RSI = 25
			data[i].ADX = 28
		}
	}
	override := tn.OptimizeForRegime(types.WeakUptrend, data)
	if override == nil {
		t.Fatal("expected a non-nil override with 60 strongly-winning data points")
	}
}

func TestRunFullOptimizationRecordsHistory(t *testing.T) {
	tn := tuner.New(tuner.DefaultConfig(), tuner.DefaultTuningConfig())
	data := lowStochLongData(60, 0.85)
	now := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	cfg := tn.RunFullOptimization(data, now)
	if cfg.StochOversold.IsZero() {
		t.Error("expected a non-zero stoch_oversold after optimization")
	}
	history := tn.History()
	if len(history) != 1 {
		t.Fatalf("expected exactly one recorded optimization run, got %d", len(history))
	}
	if history[0].DataPoints != len(data) {
		t.Errorf("expected recorded data point count %d, got %d", len(data), history[0].DataPoints)
	}
}
