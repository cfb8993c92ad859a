package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/barsource"
	"github.com/quartzline/goldintel/internal/barstore"
	"github.com/quartzline/goldintel/internal/pipeline"
	"github.com/quartzline/goldintel/internal/signallog"
	"github.com/quartzline/goldintel/internal/tuner"
	"github.com/quartzline/goldintel/pkg/types"
)

func newRunAnalysisCmd(a *app) *cobra.Command {
	var days int
	var noCharts bool

	cmd := &cobra.Command{
		Use:   "run-analysis",
		Short: "Run one end-to-end analysis cycle over the configured history window",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				days = a.cfg.Data.DefaultPeriodDays
			}
			_ = noCharts // chart rendering is out of scope; flag kept for CLI parity

			store, err := barstore.Open(a.logger, a.cfg.Data.DataDir)
			if err != nil {
				return fmt.Errorf("open bar store: %w", err)
			}
			defer store.Close()
			store.AllowSyntheticFallback = true

			pl := pipeline.New(a.logger, a.cfg, barsource.StoreSource{Store: store}, tuner.DefaultTuningConfig())

			ctx := context.Background()
			now := time.Now()
			cycle, err := pl.Run(ctx, now, days)
			if errors.Is(err, pipeline.ErrNoData) {
				fmt.Println("no bar data available for the requested window; skipping this cycle")
				return nil
			}
			if err != nil {
				return err
			}

			logPath := filepath.Join(a.cfg.Data.DataDir, "signal_history.json")
			log, err := signallog.Open(a.logger, logPath)
			if err != nil {
				return fmt.Errorf("open signal log: %w", err)
			}

			conditions, indicatorSnap, patternInfo, risk, score, cfgUsed := pipeline.BuildLogArgs(cycle)
			var signalID string
			if cycle.Signal.Type != types.None {
				id, err := log.Log(cycle.Signal, conditions, indicatorSnap, patternInfo, risk, score, cfgUsed)
				if err != nil {
					return fmt.Errorf("log signal: %w", err)
				}
				signalID = id
			}

			a.metrics.SignalsEmitted.WithLabelValues(string(cycle.Signal.Type)).Inc()

			fmt.Printf("symbol=%s regime=%s session=%s sentiment=%s\n",
				cycle.Symbol, cycle.Regime.Trend, conditions.Session, cycle.Sentiment.Label)
			fmt.Printf("patterns: %d matches, bullish=%.1f%% bearish=%.1f%%\n",
				cycle.Pattern.TotalMatches, cycle.Pattern.BullishSuccessRate, cycle.Pattern.BearishSuccessRate)
			if cycle.Signal.Type == types.None {
				fmt.Println("signal: none (criteria not met)")
			} else {
				fmt.Printf("signal: %s (%s) entry=%s stop=%s target=%s criteria=%.1f/%.1f id=%s\n",
					cycle.Signal.Type, cycle.Signal.Strength, cycle.Signal.EntryPrice.String(),
					cycle.Signal.StopLoss.String(), cycle.Signal.TakeProfit.String(),
					cycle.Signal.CriteriaMet, cycle.Signal.CriteriaTotal, signalID)
			}

			a.logger.Info("analysis cycle complete",
				zap.String("symbol", cycle.Symbol),
				zap.String("regime", string(cycle.Regime.Trend)),
				zap.String("signal", string(cycle.Signal.Type)),
			)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "history window in days (defaults to the configured period)")
	cmd.Flags().BoolVar(&noCharts, "no-charts", false, "suppress chart rendering (no-op: charts are out of scope)")
	return cmd
}
