package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/factory"
	"github.com/quartzline/goldintel/internal/feedback"
	"github.com/quartzline/goldintel/internal/miner"
)

func newRunTheLoopCmd(a *app) *cobra.Command {
	var continuous bool
	var intervalHours, iterations int
	var report bool

	cmd := &cobra.Command{
		Use:   "run-the-loop",
		Short: "Run the discover-evolve-optimize-deploy self-improvement cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			if iterations <= 0 {
				iterations = 1
			}

			dbPath := filepath.Join(a.cfg.Data.DataDir, a.cfg.Feedback.DatabaseName)
			fb, err := feedback.Open(a.logger, dbPath, feedback.Config{
				MinWinRate:           a.cfg.Feedback.MinWinRate,
				MinProfitFactor:      a.cfg.Feedback.MinProfitFactor,
				DegradationThreshold: a.cfg.Feedback.DegradationPoints,
			})
			if err != nil {
				return fmt.Errorf("open feedback loop: %w", err)
			}
			defer fb.Close()

			m := miner.New(miner.DefaultConfig())
			seed := time.Now().UnixNano()
			f := factory.New(a.logger, factory.DefaultConfig(), seed, m, fb)

			ctx := context.Background()
			now := time.Now()

			runIteration := func() {
				results := f.RunTheLoop(ctx, now, iterations)
				for _, r := range results {
					if r.Err != nil {
						a.logger.Error("loop iteration failed", zap.Int("iteration", r.Iteration), zap.Error(r.Err))
						continue
					}
					a.metrics.LearningCycles.Inc()
					status := "deployed"
					if !r.Deployed {
						status = "not deployed (insufficient improvement)"
						a.metrics.DeployDecisions.WithLabelValues("skipped").Inc()
					} else {
						a.metrics.DeployDecisions.WithLabelValues("deployed").Inc()
					}
					fmt.Printf("iteration %d: patterns=%d rules=%d version=%s %s\n",
						r.Iteration, r.Discovery.PatternsFound, r.Evolution.RulesEvolved, r.Version, status)
					if r.Deployed {
						fmt.Println(r.Version)
					}
				}

				if report {
					status, err := f.GetStatus(ctx, now)
					if err != nil {
						a.logger.Error("status report failed", zap.Error(err))
						return
					}
					fmt.Printf("status: versions=%d patterns=%d rules=%d optimizationRuns=%d\n",
						status.TotalVersions, status.PatternsDiscovered, status.RulesInPopulation, status.OptimizationRuns)
					if status.HasRecentMetrics {
						fmt.Printf("recent: signals=%d winRate=%.1f%% profitFactor=%.2f\n",
							status.RecentSignals, status.RecentWinRate, status.RecentProfitFactor)
					}
				}
			}

			if !continuous {
				runIteration()
				return nil
			}

			ticker := time.NewTicker(time.Duration(intervalHours) * time.Hour)
			defer ticker.Stop()
			runIteration()
			for range ticker.C {
				now = time.Now()
				runIteration()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&continuous, "continuous", false, "keep running at --interval instead of running once")
	cmd.Flags().IntVar(&intervalHours, "interval", 24, "interval between loop runs in hours")
	cmd.Flags().IntVar(&iterations, "iterations", 1, "number of discover-evolve-optimize-deploy iterations per run")
	cmd.Flags().BoolVar(&report, "report", false, "print a status report after each run")
	return cmd
}
