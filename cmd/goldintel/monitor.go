package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/autologger"
	"github.com/quartzline/goldintel/internal/barsource"
	"github.com/quartzline/goldintel/internal/barstore"
	"github.com/quartzline/goldintel/internal/pipeline"
	"github.com/quartzline/goldintel/internal/tuner"
)

func newRunMonitorCmd(a *app) *cobra.Command {
	var continuous bool
	var intervalSeconds int
	var test bool

	cmd := &cobra.Command{
		Use:   "run-monitor",
		Short: "Poll the scoring pipeline and report admission/closure of paper trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := barstore.Open(a.logger, a.cfg.Data.DataDir)
			if err != nil {
				return fmt.Errorf("open bar store: %w", err)
			}
			defer store.Close()
			store.AllowSyntheticFallback = true

			pl := pipeline.New(a.logger, a.cfg, barsource.StoreSource{Store: store}, tuner.DefaultTuningConfig())

			dbPath := filepath.Join(a.cfg.Data.DataDir, a.cfg.AutoLogger.DatabaseName)
			alCfg := autoLoggerConfigFrom(a.cfg.AutoLogger)
			alCfg.CheckInterval = time.Duration(intervalSeconds) * time.Second
			al, err := autologger.Open(a.logger, dbPath, alCfg)
			if err != nil {
				return fmt.Errorf("open auto-logger: %w", err)
			}
			defer al.Close()

			runOnce := func() error {
				ctx := context.Background()
				now := time.Now()
				cycle, err := pl.Run(ctx, now, a.cfg.Data.DefaultPeriodDays)
				if errors.Is(err, pipeline.ErrNoData) {
					fmt.Println("no bar data available; monitor pass skipped")
					return nil
				}
				if err != nil {
					return err
				}

				snap := pipeline.ToSnapshot(cycle)
				if trade, admitted := al.CheckForNewSignal(snap); admitted {
					if err := al.LogTrade(ctx, trade, snap); err != nil {
						return fmt.Errorf("log paper trade: %w", err)
					}
					a.metrics.TradesOpened.Inc()
					fmt.Printf("opened %s %s entry=%s stop=%s target=%s\n",
						trade.SignalID, trade.Direction, trade.Entry.String(), trade.StopLoss.String(), trade.TakeProfit.String())
				}
				if err := al.EvaluateTick(ctx, snap.Price, now); err != nil {
					return fmt.Errorf("evaluate tick: %w", err)
				}
				return nil
			}

			if test || !continuous {
				return runOnce()
			}

			ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
			defer ticker.Stop()
			for range ticker.C {
				if err := runOnce(); err != nil {
					a.logger.Error("monitor pass failed", zap.Error(err))
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&continuous, "continuous", false, "keep polling at --interval instead of running once")
	cmd.Flags().IntVar(&intervalSeconds, "interval", 10, "polling interval in seconds")
	cmd.Flags().BoolVar(&test, "test", false, "run a single deterministic pass, ignoring --continuous")
	return cmd
}
