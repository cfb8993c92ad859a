package main

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/config"
	"github.com/quartzline/goldintel/internal/observability"
	"github.com/quartzline/goldintel/pkg/types"
)

// app bundles the resources every subcommand needs: the resolved
// configuration, a named logger, and the metrics registry.
type app struct {
	cfg     types.EngineConfig
	logger  *zap.Logger
	metrics *observability.Metrics
}

var (
	configPath string
	metricsAddr string
)

func newRootCmd() *cobra.Command {
	var a app

	root := &cobra.Command{
		Use:   "goldintel",
		Short: "Offline gold-futures trading-intelligence engine",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			a.cfg = cfg
			a.logger = setupLogger(cfg.LogLevel)
			a.metrics = observability.New()

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(a.metrics.Registry, promhttp.HandlerOpts{}))
				go func() {
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						a.logger.Warn("metrics listener stopped", zap.Error(err))
					}
				}()
				a.logger.Info("metrics listener started", zap.String("addr", metricsAddr))
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
			return nil
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML configuration file")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "optional host:port to expose Prometheus metrics on")

	root.AddCommand(
		newRunAnalysisCmd(&a),
		newRunSignalsCmd(&a),
		newRunMonitorCmd(&a),
		newRunAutoLoggerCmd(&a),
		newRunTheLoopCmd(&a),
	)
	return root
}
