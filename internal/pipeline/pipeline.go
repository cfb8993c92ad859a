// Package pipeline wires the bar source, indicator engine, regime
// classifier, sentiment analyzer, pattern matcher and scorer into the single
// end-to-end analysis cycle the CLI commands drive. Grounded in
// original_source/trading_intelligence's top-level run_analysis /
// run_signals scripts, which call the same component sequence from a thin
// driver rather than folding the logic into the components themselves.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/quartzline/goldintel/internal/autologger"
	"github.com/quartzline/goldintel/internal/barsource"
	"github.com/quartzline/goldintel/internal/indicators"
	"github.com/quartzline/goldintel/internal/patterns"
	"github.com/quartzline/goldintel/internal/regime"
	"github.com/quartzline/goldintel/internal/scorer"
	"github.com/quartzline/goldintel/internal/sentiment"
	"github.com/quartzline/goldintel/internal/session"
	"github.com/quartzline/goldintel/pkg/types"
)

// Pipeline holds the stateless analysis components plus the tuning
// configuration that parameterizes scoring.
type Pipeline struct {
	logger    *zap.Logger
	bars      barsource.Source
	cfg       types.EngineConfig
	indCfg    indicators.Config
	regime    *regime.Classifier
	sentiment *sentiment.Analyzer
	patterns  *patterns.Matcher
	scorer    *scorer.Scorer
	tuning    types.TuningConfig
}

// New builds a Pipeline from the engine configuration's indicator periods,
// with every sub-component's own default tuning otherwise.
func New(logger *zap.Logger, cfg types.EngineConfig, bars barsource.Source, tuning types.TuningConfig) *Pipeline {
	return &Pipeline{
		logger: logger.Named("pipeline"),
		bars:   bars,
		cfg:    cfg,
		indCfg: indicators.Config{
			EMAPeriods:   cfg.Indicators.EMAPeriods,
			StochKPeriod: cfg.Indicators.StochKPeriod,
			StochDPeriod: cfg.Indicators.StochDPeriod,
			StochSmoothK: cfg.Indicators.StochSmoothK,
			RSIPeriod:    cfg.Indicators.RSIPeriod,
			MACDFast:     cfg.Indicators.MACDFast,
			MACDSlow:     cfg.Indicators.MACDSlow,
			MACDSignal:   cfg.Indicators.MACDSignal,
			BBPeriod:     cfg.Indicators.BBPeriod,
			BBStdDev:     cfg.Indicators.BBStdDev,
			ATRPeriod:    cfg.Indicators.ATRPeriod,
			ADXPeriod:    cfg.Indicators.ADXPeriod,
		},
		regime:    regime.New(regime.DefaultConfig()),
		sentiment: sentiment.New(sentiment.DefaultConfig()),
		patterns:  patterns.New(patterns.DefaultConfig()),
		scorer:    scorer.New(),
		tuning:    tuning,
	}
}

// Cycle is the full output of one analysis pass at the latest available bar.
type Cycle struct {
	Symbol    string
	Bar       types.Bar
	Row       types.IndicatorRow
	Regime    types.Regime
	Pattern   types.PatternAnalysis
	Sentiment types.SentimentReport
	Signal    types.Signal
}

// ErrNoData is returned when the bar source has no bars for the requested
// window; callers treat it as a non-fatal, no-op condition.
var ErrNoData = fmt.Errorf("pipeline: no bar data available")

// Run fetches days of history for the configured primary symbol and its
// correlated basket, computes indicators/regime/pattern/sentiment over the
// series, and scores the latest bar.
func (p *Pipeline) Run(ctx context.Context, now time.Time, days int) (*Cycle, error) {
	symbol := p.cfg.Symbols.Primary
	start := now.AddDate(0, 0, -days)

	bars, err := p.bars.Bars(ctx, symbol, start, now, p.cfg.Data.Interval)
	if err != nil {
		return nil, fmt.Errorf("pipeline: fetch bars: %w", err)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}

	rows := indicators.Compute(bars, p.indCfg)

	regimes := make([]types.Regime, len(bars))
	for i := range bars {
		r, ok := p.regime.Classify(bars, rows, i)
		if ok {
			regimes[i] = r
		}
	}
	latest := len(bars) - 1
	latestRegime := regimes[latest]

	basket := make(map[string][]types.Bar, len(p.cfg.Symbols.Correlated))
	for _, sym := range p.cfg.Symbols.Correlated {
		b, err := p.bars.Bars(ctx, sym, start, now, p.cfg.Data.Interval)
		if err != nil {
			p.logger.Warn("failed to fetch correlated symbol", zap.String("symbol", sym), zap.Error(err))
			continue
		}
		basket[sym] = b
	}
	sentimentReport := p.sentiment.Analyze(bars, basket)

	reference := patterns.BuildSetup(bars, rows, latest, latestRegime)
	patternAnalysis := p.patterns.Analyze(bars, rows, regimes, reference)

	var prevRow *types.IndicatorRow
	if latest > 0 {
		prevRow = &rows[latest-1]
	}
	signal := p.scorer.Score(bars[latest], rows[latest], prevRow, latestRegime, patternAnalysis, sentimentReport, p.tuning)

	return &Cycle{
		Symbol:    symbol,
		Bar:       bars[latest],
		Row:       rows[latest],
		Regime:    latestRegime,
		Pattern:   patternAnalysis,
		Sentiment: sentimentReport,
		Signal:    signal,
	}, nil
}

func decOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

// BuildLogArgs assembles the denormalized context signallog.Log.Log expects
// from one Cycle. ScoreBreakdown.Total carries the checklist count; the
// scorer evaluates a 5-criterion checklist rather than a multiplicative
// model, so the per-criterion multiplier fields are left at their zero
// default (documented in DESIGN.md).
func BuildLogArgs(c *Cycle) (types.MarketConditions, types.IndicatorSnapshot, types.PatternMatchInfo, types.RiskFactors, types.ScoreBreakdown, types.ConfigurationUsed) {
	conditions := types.MarketConditions{
		Regime:            c.Regime.Trend,
		Volatility:        c.Regime.Volatility,
		Liquidity:         c.Regime.Liquidity,
		Session:           session.Of(c.Bar.Timestamp),
		CorrelationStatus: c.Sentiment.Label,
	}

	indicatorSnap := types.IndicatorSnapshot{
		StochK:   decOrZero(c.Row.StochK),
		StochD:   decOrZero(c.Row.StochD),
		RSI:      decOrZero(c.Row.RSI),
		ATR:      decOrZero(c.Row.ATR),
		EMA9:     decOrZero(c.Row.EMA9),
		EMA21:    decOrZero(c.Row.EMA21),
		EMA50:    decOrZero(c.Row.EMA50),
		EMA200:   decOrZero(c.Row.EMA200),
		MACD:     decOrZero(c.Row.MACDLine),
		MACDSig:  decOrZero(c.Row.MACDSignal),
		MACDHist: decOrZero(c.Row.MACDHist),
		BBUpper:  decOrZero(c.Row.BBUpper),
		BBLower:  decOrZero(c.Row.BBLower),
		ADX:      decOrZero(c.Row.ADX),
	}

	successRate := c.Pattern.BullishSuccessRate
	if c.Signal.Type == types.Short {
		successRate = c.Pattern.BearishSuccessRate
	}
	patternInfo := types.PatternMatchInfo{
		SimilarSetupsFound: c.Pattern.TotalMatches,
		SuccessRate:        successRate,
		AvgGainSimilar:     c.Pattern.AvgOutcome24b,
	}

	score := types.ScoreBreakdown{Total: c.Signal.CriteriaMet}

	cfgUsed := types.ConfigurationUsed{}

	return conditions, indicatorSnap, patternInfo, types.RiskFactors{}, score, cfgUsed
}

// ToSnapshot adapts a Cycle into the Auto-Logger's polled Snapshot shape.
func ToSnapshot(c *Cycle) autologger.Snapshot {
	scoreLong := decimal.NewFromFloat(0)
	scoreShort := decimal.NewFromFloat(0)
	if c.Signal.Type == types.Long {
		scoreLong = decimal.NewFromFloat(c.Signal.CriteriaMet)
	} else if c.Signal.Type == types.Short {
		scoreShort = decimal.NewFromFloat(c.Signal.CriteriaMet)
	}
	return autologger.Snapshot{
		Timestamp:  c.Bar.Timestamp,
		Price:      c.Bar.Close,
		ScoreLong:  scoreLong,
		ScoreShort: scoreShort,
		Regime:     c.Regime.Trend,
		Session:    session.Of(c.Bar.Timestamp),
		RSI:        decOrZero(c.Row.RSI),
		StochK:     decOrZero(c.Row.StochK),
		ATR:        decOrZero(c.Row.ATR),
		ADX:        decOrZero(c.Row.ADX),
	}
}
