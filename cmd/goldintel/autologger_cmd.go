package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/autologger"
	"github.com/quartzline/goldintel/internal/barsource"
	"github.com/quartzline/goldintel/internal/barstore"
	"github.com/quartzline/goldintel/internal/pipeline"
	"github.com/quartzline/goldintel/internal/tuner"
)

func newRunAutoLoggerCmd(a *app) *cobra.Command {
	var sl, tp, minScore float64
	var intervalSeconds, expiryHours int
	var dbName string
	var showStats, export bool

	cmd := &cobra.Command{
		Use:   "run-auto-logger",
		Short: "Run one Auto-Logger pass: open a paper trade if admitted and evaluate open trades in the Auto-Logger's own database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbName == "" {
				dbName = a.cfg.AutoLogger.DatabaseName
			}
			dbPath := filepath.Join(a.cfg.Data.DataDir, dbName)

			alCfg := autoLoggerConfigFrom(a.cfg.AutoLogger)
			if cmd.Flags().Changed("sl") {
				alCfg.StopLossPoints = decimal.NewFromFloat(sl)
			}
			if cmd.Flags().Changed("tp") {
				alCfg.TakeProfitPoints = decimal.NewFromFloat(tp)
			}
			if cmd.Flags().Changed("min-score") {
				alCfg.MinScore = decimal.NewFromFloat(minScore)
			}
			if cmd.Flags().Changed("interval") {
				alCfg.CheckInterval = time.Duration(intervalSeconds) * time.Second
			}
			if cmd.Flags().Changed("expiry") {
				alCfg.SignalExpiry = time.Duration(expiryHours) * time.Hour
			}

			al, err := autologger.Open(a.logger, dbPath, alCfg)
			if err != nil {
				return fmt.Errorf("open auto-logger: %w", err)
			}
			defer al.Close()

			ctx := context.Background()

			if showStats {
				stats, err := al.Stats(ctx)
				if err != nil {
					return fmt.Errorf("compute stats: %w", err)
				}
				fmt.Printf("trades=%d wins=%d losses=%d expired=%d open=%d winRate=%.1f%% profitFactor=%.2f totalPnL=%s\n",
					stats.Total, stats.Wins, stats.Losses, stats.Expired, stats.Open, stats.WinRate, stats.ProfitFactor, stats.TotalPnL.String())
				return nil
			}

			if export {
				trades, err := al.ExportTrades(ctx)
				if err != nil {
					return fmt.Errorf("export trades: %w", err)
				}
				fmt.Printf("exported %d closed trades\n", len(trades))
				return nil
			}

			store, err := barstore.Open(a.logger, a.cfg.Data.DataDir)
			if err != nil {
				return fmt.Errorf("open bar store: %w", err)
			}
			defer store.Close()
			store.AllowSyntheticFallback = true

			pl := pipeline.New(a.logger, a.cfg, barsource.StoreSource{Store: store}, tuner.DefaultTuningConfig())

			now := time.Now()
			cycle, err := pl.Run(ctx, now, a.cfg.Data.DefaultPeriodDays)
			if errors.Is(err, pipeline.ErrNoData) {
				fmt.Println("no bar data available; auto-logger pass skipped")
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

			a.logger.Info("auto-logger pass complete", zap.Time("at", now))
			return nil
		},
	}

	cmd.Flags().Float64Var(&sl, "sl", 0, "stop-loss distance in points")
	cmd.Flags().Float64Var(&tp, "tp", 0, "take-profit distance in points")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum checklist score to admit a trade")
	cmd.Flags().IntVar(&intervalSeconds, "interval", 0, "check interval in seconds, stored in the Auto-Logger config (this command runs a single pass)")
	cmd.Flags().IntVar(&expiryHours, "expiry", 0, "signal expiry in hours")
	cmd.Flags().StringVar(&dbName, "db", "", "database file name (defaults to the configured name)")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print summary statistics and exit")
	cmd.Flags().BoolVar(&export, "export", false, "export closed trades and exit")
	return cmd
}
