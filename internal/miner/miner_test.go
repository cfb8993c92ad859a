package miner_test

import (
	"testing"
	"time"

	"github.com/quartzline/goldintel/internal/miner"
	"github.com/quartzline/goldintel/pkg/types"
)

// oversoldLongData builds n LONG trades with low stoch_k, mostly winning,
// to exercise the single-indicator "stoch_k < threshold -> LONG" pattern.
func oversoldLongData(n int, winRatio float64) []miner.DataPoint {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]miner.DataPoint, 0, n)
	wins := int(float64(n) * winRatio)
	for i := 0; i < n; i++ {
		out = append(out, miner.DataPoint{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			RSI:       55,
			StochK:    18,
			ADX:       28,
			ATR:       12,
			Regime:    types.WeakUptrend,
			Session:   types.SessionLondon,
			Direction: types.Long,
			Win:       i < wins,
			PnL:       pnlFor(i < wins),
		})
	}
	return out
}

func pnlFor(win bool) float64 {
	if win {
		return 6
	}
	return -3
}

func TestMineSingleIndicatorFindsOversoldLongPattern(t *testing.T) {
	data := oversoldLongData(40, 0.70)
	m := miner.New(miner.DefaultConfig())
	patterns := m.MineSingleIndicator(data)

	found := false
	for _, p := range patterns {
		if p.Family == "single" && p.Direction == types.Long {
			if cond, ok := p.Conditions["stoch_k"]; ok && cond.Op == "<" {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatal("expected a stoch_k < threshold LONG pattern to survive the gates")
	}
}

func TestMineSingleIndicatorRejectsBelowSampleSize(t *testing.T) {
	data := oversoldLongData(10, 0.90)
	m := miner.New(miner.DefaultConfig())
	patterns := m.MineSingleIndicator(data)
	for _, p := range patterns {
		if p.SampleSize < 30 {
			t.Errorf("expected no pattern below MinSampleSize, got sample size %d", p.SampleSize)
		}
	}
}

func TestMineCombosFindsExtremeOversoldPattern(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var data []miner.DataPoint
	for i := 0; i < 40; i++ {
		win := i < 30
		data = append(data, miner.DataPoint{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			RSI:       25,
			StochK:    15,
			ADX:       20,
			Regime:    types.Ranging,
			Session:   types.SessionAsia,
			Direction: types.Long,
			Win:       win,
			PnL:       pnlFor(win),
		})
	}
	m := miner.New(miner.DefaultConfig())
	patterns := m.MineCombos(data)

	found := false
	for _, p := range patterns {
		if p.ID == "COMBO_Extreme_Oversold_LONG" {
			found = true
			if p.Confidence <= 0 {
				t.Errorf("expected positive confidence, got %f", p.Confidence)
			}
		}
	}
	if !found {
		t.Fatal("expected the Extreme Oversold combo pattern to fire")
	}
}

func TestMineRegimesRequiresHalfSampleSizePerDirection(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var data []miner.DataPoint
	for i := 0; i < 30; i++ {
		win := i < 22
		data = append(data, miner.DataPoint{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Regime:    types.StrongUptrend,
			Session:   types.SessionNY,
			Direction: types.Long,
			Win:       win,
			PnL:       pnlFor(win),
		})
	}
	m := miner.New(miner.DefaultConfig())
	patterns := m.MineRegimes(data)

	found := false
	for _, p := range patterns {
		if p.Family == "regime" && p.Regime != nil && *p.Regime == types.StrongUptrend {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a STRONG_UPTREND regime pattern with 30 LONG trades at 73% win rate")
	}
}

func TestMineAllSortsByConfidenceDescending(t *testing.T) {
	data := oversoldLongData(40, 0.70)
	m := miner.New(miner.DefaultConfig())
	patterns := m.MineAll(data)
	for i := 1; i < len(patterns); i++ {
		if patterns[i].Confidence > patterns[i-1].Confidence {
			t.Fatalf("patterns not sorted by confidence descending at index %d", i)
		}
	}
}

func TestFromSignalRecordsSkipsIncompleteAndPendingResults(t *testing.T) {
	records := []types.SignalRecord{
		{Status: types.StatusPending},
		{Status: types.StatusCompleted, Outcome: types.SignalOutcome{Result: types.ResultBreakeven}},
		{Status: types.StatusCompleted, Outcome: types.SignalOutcome{Result: types.ResultWin}},
	}
	points := miner.FromSignalRecords(records)
	if len(points) != 1 {
		t.Fatalf("expected only the single WIN record to survive, got %d", len(points))
	}
}
