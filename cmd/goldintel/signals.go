package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/quartzline/goldintel/internal/barsource"
	"github.com/quartzline/goldintel/internal/barstore"
	"github.com/quartzline/goldintel/internal/pipeline"
	"github.com/quartzline/goldintel/internal/signallog"
	"github.com/quartzline/goldintel/internal/tuner"
	"github.com/quartzline/goldintel/pkg/types"
)

func newRunSignalsCmd(a *app) *cobra.Command {
	var days int
	var noDashboard bool

	cmd := &cobra.Command{
		Use:   "run-signals",
		Short: "Emit a single signal from the latest available bar",
		RunE: func(cmd *cobra.Command, args []string) error {
			if days <= 0 {
				days = a.cfg.Data.DefaultPeriodDays
			}
			_ = noDashboard // dashboard rendering is out of scope; flag kept for CLI parity

			store, err := barstore.Open(a.logger, a.cfg.Data.DataDir)
			if err != nil {
				return fmt.Errorf("open bar store: %w", err)
			}
			defer store.Close()
			store.AllowSyntheticFallback = true

			pl := pipeline.New(a.logger, a.cfg, barsource.StoreSource{Store: store}, tuner.DefaultTuningConfig())

			cycle, err := pl.Run(context.Background(), time.Now(), days)
			if errors.Is(err, pipeline.ErrNoData) {
				fmt.Println("no bar data available for the requested window; no signal emitted")
				return nil
			}
			if err != nil {
				return err
			}

			if cycle.Signal.Type == types.None {
				fmt.Println("no signal: checklist criteria not met")
				return nil
			}

			logPath := filepath.Join(a.cfg.Data.DataDir, "signal_history.json")
			log, err := signallog.Open(a.logger, logPath)
			if err != nil {
				return fmt.Errorf("open signal log: %w", err)
			}
			conditions, indicatorSnap, patternInfo, risk, score, cfgUsed := pipeline.BuildLogArgs(cycle)
			id, err := log.Log(cycle.Signal, conditions, indicatorSnap, patternInfo, risk, score, cfgUsed)
			if err != nil {
				return fmt.Errorf("log signal: %w", err)
			}

			a.metrics.SignalsEmitted.WithLabelValues(string(cycle.Signal.Type)).Inc()
			fmt.Printf("%s %s entry=%s stop=%s target=%s rr=%s id=%s\n",
				cycle.Signal.Type, cycle.Signal.Strength, cycle.Signal.EntryPrice.String(),
				cycle.Signal.StopLoss.String(), cycle.Signal.TakeProfit.String(),
				cycle.Signal.RRRatio.String(), id)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "history window in days (defaults to the configured period)")
	cmd.Flags().BoolVar(&noDashboard, "no-dashboard", false, "suppress dashboard rendering (no-op: dashboards are out of scope)")
	return cmd
}
