// Package config loads the engine's layered configuration: compiled-in
// defaults (mirroring the original settings module), an optional YAML file,
// and environment variable overrides, via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/quartzline/goldintel/pkg/types"
)

// EnvPrefix is the prefix viper uses for environment variable overrides,
// e.g. GOLDINTEL_DATA_DATADIR.
const EnvPrefix = "GOLDINTEL"

// Defaults returns the compiled-in configuration, grounded in
// original_source/trading_intelligence/config/settings.py.
func Defaults() types.EngineConfig {
	return types.EngineConfig{
		Symbols: types.SymbolConfig{
			Primary: "MGC=F",
			DisplayNames: map[string]string{
				"MGC=F":    "Micro Gold Futures",
				"GC=F":     "Gold Futures",
				"DX-Y.NYB": "US Dollar Index",
				"^TNX":     "10-Year Treasury Yield",
				"^GSPC":    "S&P 500",
				"SI=F":     "Silver Futures",
				"CL=F":     "Crude Oil Futures",
			},
			Correlated: []string{"DX-Y.NYB", "^TNX", "^GSPC", "SI=F", "CL=F"},
		},
		Indicators: types.IndicatorConfig{
			EMAPeriods:   []int{9, 21, 50, 200},
			StochKPeriod: 14,
			StochDPeriod: 3,
			StochSmoothK: 3,
			RSIPeriod:    14,
			MACDFast:     12,
			MACDSlow:     26,
			MACDSignal:   9,
			BBPeriod:     20,
			BBStdDev:     2,
			ATRPeriod:    14,
			ADXPeriod:    14,
		},
		Data: types.DataConfig{
			DataDir:           "data",
			DefaultPeriodDays: 90,
			Interval:          "1d",
		},
		AutoLogger: types.AutoLoggerConfig{
			CheckIntervalSeconds: 10,
			MinScore:             3,
			StopLossPoints:       4,
			TakeProfitPoints:     8,
			SignalExpiry:         4 * time.Hour,
			DatabaseName:         "auto_signals.db",
		},
		Learning: types.LearningConfig{
			MinSampleSize:      30,
			MinWinRate:         55,
			MinProfitFactor:    1.3,
			PopulationSize:     50,
			Generations:        15,
			EliteCount:         5,
			MutationRate:       0.2,
			CrossoverRate:      0.3,
			TournamentSize:     5,
			MinImprovementPct:  5,
			GlobalImprovePct:   10,
			RegionalImprovePct: 5,
		},
		Feedback: types.FeedbackConfig{
			MinWinRate:        50,
			MinProfitFactor:   1.2,
			DegradationPoints: 10,
			RecentWindow:      7 * 24 * time.Hour,
			HistoricalWindow:  30 * 24 * time.Hour,
			DatabaseName:      "feedback.db",
		},
		LogLevel: "info",
	}
}

// Load builds the effective configuration: defaults, overlaid with
// configPath (if non-empty and present), overlaid with GOLDINTEL_*
// environment variables.
func Load(configPath string) (types.EngineConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := Defaults()
	if err := bindDefaults(v, defaults); err != nil {
		return types.EngineConfig{}, fmt.Errorf("bind defaults: %w", err)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return types.EngineConfig{}, fmt.Errorf("read config %s: %w", configPath, err)
		}
	}

	var cfg types.EngineConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return types.EngineConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

// bindDefaults seeds viper's defaults from the compiled-in struct so that
// fields absent from both the config file and the environment still resolve.
func bindDefaults(v *viper.Viper, d types.EngineConfig) error {
	v.SetDefault("symbols.primary", d.Symbols.Primary)
	v.SetDefault("symbols.displayNames", d.Symbols.DisplayNames)
	v.SetDefault("symbols.correlated", d.Symbols.Correlated)

	v.SetDefault("indicators.emaPeriods", d.Indicators.EMAPeriods)
	v.SetDefault("indicators.stochKPeriod", d.Indicators.StochKPeriod)
	v.SetDefault("indicators.stochDPeriod", d.Indicators.StochDPeriod)
	v.SetDefault("indicators.stochSmoothK", d.Indicators.StochSmoothK)
	v.SetDefault("indicators.rsiPeriod", d.Indicators.RSIPeriod)
	v.SetDefault("indicators.macdFast", d.Indicators.MACDFast)
	v.SetDefault("indicators.macdSlow", d.Indicators.MACDSlow)
	v.SetDefault("indicators.macdSignal", d.Indicators.MACDSignal)
	v.SetDefault("indicators.bbPeriod", d.Indicators.BBPeriod)
	v.SetDefault("indicators.bbStdDev", d.Indicators.BBStdDev)
	v.SetDefault("indicators.atrPeriod", d.Indicators.ATRPeriod)
	v.SetDefault("indicators.adxPeriod", d.Indicators.ADXPeriod)

	v.SetDefault("data.dataDir", d.Data.DataDir)
	v.SetDefault("data.defaultPeriodDays", d.Data.DefaultPeriodDays)
	v.SetDefault("data.interval", d.Data.Interval)

	v.SetDefault("autoLogger.checkIntervalSeconds", d.AutoLogger.CheckIntervalSeconds)
	v.SetDefault("autoLogger.minScore", d.AutoLogger.MinScore)
	v.SetDefault("autoLogger.stopLossPoints", d.AutoLogger.StopLossPoints)
	v.SetDefault("autoLogger.takeProfitPoints", d.AutoLogger.TakeProfitPoints)
	v.SetDefault("autoLogger.signalExpiry", d.AutoLogger.SignalExpiry)
	v.SetDefault("autoLogger.databaseName", d.AutoLogger.DatabaseName)

	v.SetDefault("learning.minSampleSize", d.Learning.MinSampleSize)
	v.SetDefault("learning.minWinRate", d.Learning.MinWinRate)
	v.SetDefault("learning.minProfitFactor", d.Learning.MinProfitFactor)
	v.SetDefault("learning.populationSize", d.Learning.PopulationSize)
	v.SetDefault("learning.generations", d.Learning.Generations)
	v.SetDefault("learning.eliteCount", d.Learning.EliteCount)
	v.SetDefault("learning.mutationRate", d.Learning.MutationRate)
	v.SetDefault("learning.crossoverRate", d.Learning.CrossoverRate)
	v.SetDefault("learning.tournamentSize", d.Learning.TournamentSize)
	v.SetDefault("learning.minImprovementPct", d.Learning.MinImprovementPct)
	v.SetDefault("learning.globalImprovePct", d.Learning.GlobalImprovePct)
	v.SetDefault("learning.regionalImprovePct", d.Learning.RegionalImprovePct)

	v.SetDefault("feedback.minWinRate", d.Feedback.MinWinRate)
	v.SetDefault("feedback.minProfitFactor", d.Feedback.MinProfitFactor)
	v.SetDefault("feedback.degradationPoints", d.Feedback.DegradationPoints)
	v.SetDefault("feedback.recentWindow", d.Feedback.RecentWindow)
	v.SetDefault("feedback.historicalWindow", d.Feedback.HistoricalWindow)
	v.SetDefault("feedback.databaseName", d.Feedback.DatabaseName)

	v.SetDefault("logLevel", d.LogLevel)
	return nil
}
