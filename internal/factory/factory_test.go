package factory_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/factory"
	"github.com/quartzline/goldintel/internal/feedback"
	"github.com/quartzline/goldintel/internal/miner"
	"github.com/quartzline/goldintel/pkg/types"
)

func openFeedbackWithSignals(t *testing.T, base time.Time, n int, winRatio float64) *feedback.Loop {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "feedback.db")
	l, err := feedback.Open(zap.NewNop(), dbPath, feedback.DefaultConfig())
	if err != nil {
		t.Fatalf("feedback.Open: %v", err)
	}
	t.Cleanup(func() { l.Close() })

	ctx := context.Background()
	wins := int(float64(n) * winRatio)
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		id := fmt.Sprintf("S%04d", i)
		sig := types.FeedbackSignal{
			SignalID:       id,
			Timestamp:      ts,
			Direction:      types.Long,
			EntryPrice:     decimal.NewFromInt(2650),
			StopLoss:       decimal.NewFromInt(2645),
			TakeProfit:     decimal.NewFromInt(2660),
			Score:          70,
			Regime:         types.WeakUptrend,
			Session:        types.SessionLondon,
			Indicators:     map[string]float64{"rsi": 55, "stoch_k": 18, "adx": 28, "atr": 12},
			RulesTriggered: []string{"RULE_01"},
		}
		if err := l.LogSignal(ctx, sig); err != nil {
			t.Fatalf("LogSignal: %v", err)
		}
		win := i < wins
		exit := decimal.NewFromInt(2645)
		outcome := types.ResultLoss
		if win {
			exit = decimal.NewFromInt(2658)
			outcome = types.ResultWin
		}
		if _, err := l.UpdateOutcome(ctx, id, exit, outcome, ts.Add(20*time.Minute)); err != nil {
			t.Fatalf("UpdateOutcome: %v", err)
		}
	}
	return l
}

func TestRunDiscoveryMinesPatternsFromFeedbackData(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fb := openFeedbackWithSignals(t, base, 40, 0.75)
	m := miner.New(miner.DefaultConfig())
	f := factory.New(zap.NewNop(), factory.DefaultConfig(), 42, m, fb)

	now := base.Add(48 * time.Hour)
	result, err := f.RunDiscovery(context.Background(), now)
	if err != nil {
		t.Fatalf("RunDiscovery: %v", err)
	}
	if result.PatternsFound == 0 {
		t.Fatal("expected at least one discovered pattern from strongly-winning feedback data")
	}
}

func TestRunEvolutionRunsDiscoveryFirstWhenEmpty(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fb := openFeedbackWithSignals(t, base, 40, 0.75)
	m := miner.New(miner.DefaultConfig())
	f := factory.New(zap.NewNop(), factory.DefaultConfig(), 42, m, fb)

	now := base.Add(48 * time.Hour)
	result, err := f.RunEvolution(context.Background(), now)
	if err != nil {
		t.Fatalf("RunEvolution: %v", err)
	}
	if result.RulesEvolved == 0 {
		t.Fatal("expected a non-empty evolved rule population")
	}
	if result.Generation == 0 {
		t.Error("expected generation counter to advance")
	}
}

func TestRunTheLoopDeploysFirstVersionUnconditionally(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fb := openFeedbackWithSignals(t, base, 40, 0.75)
	m := miner.New(miner.DefaultConfig())
	f := factory.New(zap.NewNop(), factory.DefaultConfig(), 7, m, fb)

	now := base.Add(48 * time.Hour)
	results := f.RunTheLoop(context.Background(), now, 1)
	if len(results) != 1 {
		t.Fatalf("expected 1 iteration result, got %d", len(results))
	}
	if !results[0].Deployed {
		t.Fatal("expected the first version to deploy unconditionally")
	}
	if f.CurrentVersion() == nil {
		t.Fatal("expected a current version after deploying")
	}
}

func TestDeployVersionUnknownIDReturnsFalse(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fb := openFeedbackWithSignals(t, base, 5, 1.0)
	m := miner.New(miner.DefaultConfig())
	f := factory.New(zap.NewNop(), factory.DefaultConfig(), 1, m, fb)

	if f.DeployVersion("nonexistent") {
		t.Fatal("expected DeployVersion to return false for an unknown id")
	}
}

func TestGetStatusReportsRecentMetrics(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fb := openFeedbackWithSignals(t, base, 10, 0.8)
	m := miner.New(miner.DefaultConfig())
	f := factory.New(zap.NewNop(), factory.DefaultConfig(), 3, m, fb)

	now := base.Add(2 * time.Hour)
	status, err := f.GetStatus(context.Background(), now)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.HasRecentMetrics {
		t.Fatal("expected recent metrics to be populated from feedback signals")
	}
}
