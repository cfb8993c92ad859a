package main

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/quartzline/goldintel/internal/autologger"
	"github.com/quartzline/goldintel/pkg/types"
)

// autoLoggerConfigFrom adapts the engine's AutoLoggerConfig into the
// package's own decimal-typed Config.
func autoLoggerConfigFrom(cfg types.AutoLoggerConfig) autologger.Config {
	return autologger.Config{
		StopLossPoints:   decimal.NewFromFloat(cfg.StopLossPoints),
		TakeProfitPoints: decimal.NewFromFloat(cfg.TakeProfitPoints),
		MinScore:         decimal.NewFromFloat(cfg.MinScore),
		SignalExpiry:     cfg.SignalExpiry,
		CheckInterval:    time.Duration(cfg.CheckIntervalSeconds) * time.Second,
	}
}
