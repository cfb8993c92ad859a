// Package types provides configuration types for the engine, loaded by
// internal/config from a YAML file and environment overrides via viper.
package types

import "time"

// SymbolConfig names the primary instrument and the correlated basket used
// by the sentiment analyzer.
type SymbolConfig struct {
	Primary      string            `mapstructure:"primary" json:"primary"`
	DisplayNames map[string]string `mapstructure:"displayNames" json:"displayNames"`
	Correlated   []string          `mapstructure:"correlated" json:"correlated"`
}

// IndicatorConfig holds the fixed periods used by the indicator engine.
type IndicatorConfig struct {
	EMAPeriods    []int `mapstructure:"emaPeriods" json:"emaPeriods"`
	StochKPeriod  int   `mapstructure:"stochKPeriod" json:"stochKPeriod"`
	StochDPeriod  int   `mapstructure:"stochDPeriod" json:"stochDPeriod"`
	StochSmoothK  int   `mapstructure:"stochSmoothK" json:"stochSmoothK"`
	RSIPeriod     int   `mapstructure:"rsiPeriod" json:"rsiPeriod"`
	MACDFast      int   `mapstructure:"macdFast" json:"macdFast"`
	MACDSlow      int   `mapstructure:"macdSlow" json:"macdSlow"`
	MACDSignal    int   `mapstructure:"macdSignal" json:"macdSignal"`
	BBPeriod      int   `mapstructure:"bbPeriod" json:"bbPeriod"`
	BBStdDev      int   `mapstructure:"bbStdDev" json:"bbStdDev"`
	ATRPeriod     int   `mapstructure:"atrPeriod" json:"atrPeriod"`
	ADXPeriod     int   `mapstructure:"adxPeriod" json:"adxPeriod"`
}

// DataConfig controls the bar store's backing files and default fetch
// window.
type DataConfig struct {
	DataDir         string `mapstructure:"dataDir" json:"dataDir"`
	DefaultPeriodDays int  `mapstructure:"defaultPeriodDays" json:"defaultPeriodDays"`
	Interval        string `mapstructure:"interval" json:"interval"`
}

// AutoLoggerConfig configures the paper-trade poller, see SPEC_FULL
// section 4.7.
type AutoLoggerConfig struct {
	CheckIntervalSeconds int           `mapstructure:"checkIntervalSeconds" json:"checkIntervalSeconds"`
	MinScore             float64       `mapstructure:"minScore" json:"minScore"`
	StopLossPoints       float64       `mapstructure:"stopLossPoints" json:"stopLossPoints"`
	TakeProfitPoints     float64       `mapstructure:"takeProfitPoints" json:"takeProfitPoints"`
	SignalExpiry         time.Duration `mapstructure:"signalExpiry" json:"signalExpiry"`
	DatabaseName         string        `mapstructure:"databaseName" json:"databaseName"`
}

// LearningConfig configures the miner/evolver/tuner/factory cycle.
type LearningConfig struct {
	MinSampleSize      int     `mapstructure:"minSampleSize" json:"minSampleSize"`
	MinWinRate         float64 `mapstructure:"minWinRate" json:"minWinRate"`
	MinProfitFactor    float64 `mapstructure:"minProfitFactor" json:"minProfitFactor"`
	PopulationSize     int     `mapstructure:"populationSize" json:"populationSize"`
	Generations        int     `mapstructure:"generations" json:"generations"`
	EliteCount         int     `mapstructure:"eliteCount" json:"eliteCount"`
	MutationRate       float64 `mapstructure:"mutationRate" json:"mutationRate"`
	CrossoverRate      float64 `mapstructure:"crossoverRate" json:"crossoverRate"`
	TournamentSize     int     `mapstructure:"tournamentSize" json:"tournamentSize"`
	MinImprovementPct  float64 `mapstructure:"minImprovementPct" json:"minImprovementPct"`
	GlobalImprovePct   float64 `mapstructure:"globalImprovePct" json:"globalImprovePct"`
	RegionalImprovePct float64 `mapstructure:"regionalImprovePct" json:"regionalImprovePct"`
}

// FeedbackConfig configures the degradation-trigger thresholds, see
// SPEC_FULL section 4.12.
type FeedbackConfig struct {
	MinWinRate          float64       `mapstructure:"minWinRate" json:"minWinRate"`
	MinProfitFactor     float64       `mapstructure:"minProfitFactor" json:"minProfitFactor"`
	DegradationPoints   float64       `mapstructure:"degradationPoints" json:"degradationPoints"`
	RecentWindow        time.Duration `mapstructure:"recentWindow" json:"recentWindow"`
	HistoricalWindow    time.Duration `mapstructure:"historicalWindow" json:"historicalWindow"`
	DatabaseName        string        `mapstructure:"databaseName" json:"databaseName"`
}

// EngineConfig is the fully assembled, viper-unmarshaled configuration tree
// consumed by every CLI subcommand.
type EngineConfig struct {
	Symbols    SymbolConfig     `mapstructure:"symbols" json:"symbols"`
	Indicators IndicatorConfig  `mapstructure:"indicators" json:"indicators"`
	Data       DataConfig       `mapstructure:"data" json:"data"`
	AutoLogger AutoLoggerConfig `mapstructure:"autoLogger" json:"autoLogger"`
	Learning   LearningConfig   `mapstructure:"learning" json:"learning"`
	Feedback   FeedbackConfig   `mapstructure:"feedback" json:"feedback"`
	LogLevel   string           `mapstructure:"logLevel" json:"logLevel"`
}
