// Package types holds the domain model shared across the analysis,
// learning, and logging subsystems.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trend labels the directional state of a Regime.
type Trend string

const (
	StrongUptrend   Trend = "STRONG_UPTREND"
	WeakUptrend     Trend = "WEAK_UPTREND"
	Ranging         Trend = "RANGING"
	WeakDowntrend   Trend = "WEAK_DOWNTREND"
	StrongDowntrend Trend = "STRONG_DOWNTREND"
)

// Volatility labels the ATR-ratio state of a Regime.
type Volatility string

const (
	LowVol    Volatility = "LOW_VOL"
	NormalVol Volatility = "NORMAL_VOL"
	HighVol   Volatility = "HIGH_VOL"
)

// Liquidity labels the volume-ratio state of a Regime.
type Liquidity string

const (
	LowLiq    Liquidity = "LOW_LIQ"
	NormalLiq Liquidity = "NORMAL_LIQ"
	HighLiq   Liquidity = "HIGH_LIQ"
)

// Sentiment labels the cross-market risk posture.
type Sentiment string

const (
	RiskOn     Sentiment = "RISK_ON"
	RiskOff    Sentiment = "RISK_OFF"
	Uncertain  Sentiment = "UNCERTAIN"
	NeutralSnt Sentiment = "NEUTRAL"
)

// Direction is a signal or pattern's long/short polarity.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
	None  Direction = "NONE"
)

// Strength classifies how many scoring criteria fired.
type Strength string

const (
	Strong     Strength = "STRONG"
	Medium     Strength = "MEDIUM"
	Weak       Strength = "WEAK"
	NoStrength Strength = "NONE"
)

// EMACross describes the relative position of the 9/21 EMAs.
type EMACross string

const (
	BullCross   EMACross = "BULL_CROSS"
	BearCross   EMACross = "BEAR_CROSS"
	BullAligned EMACross = "BULL_ALIGNED"
	BearAligned EMACross = "BEAR_ALIGNED"
)

// OscillatorLevel buckets an oscillator reading (stochastic or RSI) into a
// coarse discrete band used by the Setup fingerprint.
type OscillatorLevel string

const (
	LevelOversold   OscillatorLevel = "OS"
	LevelLow        OscillatorLevel = "LOW"
	LevelNeutral    OscillatorLevel = "NEUTRAL"
	LevelHigh       OscillatorLevel = "HIGH"
	LevelOverbought OscillatorLevel = "OB"
)

// Session is the UTC-hour trading session label, see SPEC_FULL section 4.6.
type Session string

const (
	SessionAsia       Session = "asia"
	SessionLondonOpen Session = "london_open"
	SessionLondon     Session = "london"
	SessionNYOpen     Session = "ny_open"
	SessionOverlap    Session = "overlap"
	SessionNY         Session = "ny"
	SessionNYClose    Session = "ny_close"
)

// PatternDirection is the predicted polarity of a PatternAnalysis.
type PatternDirection string

const (
	Bullish        PatternDirection = "BULLISH"
	Bearish        PatternDirection = "BEARISH"
	NeutralPattern PatternDirection = "NEUTRAL"
)

// SignalStatus is the lifecycle state of a logged SignalRecord.
type SignalStatus string

const (
	StatusPending   SignalStatus = "PENDING"
	StatusTracking  SignalStatus = "TRACKING"
	StatusCompleted SignalStatus = "COMPLETED"
	StatusExpired   SignalStatus = "EXPIRED"
)

// OutcomeResult is the realized win/loss classification of a completed
// SignalRecord or PaperTrade.
type OutcomeResult string

const (
	ResultWin       OutcomeResult = "WIN"
	ResultLoss      OutcomeResult = "LOSS"
	ResultBreakeven OutcomeResult = "BREAKEVEN"
	ResultPending   OutcomeResult = "PENDING"
)

// TradeStatus is the lifecycle state of an auto-logger PaperTrade.
type TradeStatus string

const (
	TradeOpen    TradeStatus = "OPEN"
	TradeWin     TradeStatus = "WIN"
	TradeLoss    TradeStatus = "LOSS"
	TradeExpired TradeStatus = "EXPIRED"
)

// Bar is a single OHLCV sample at the system's base interval.
type Bar struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// IndicatorRow carries the named indicator values computed for one Bar.
// Every field is a pointer: nil means undefined (insufficient warm-up),
// never a sentinel numeric value.
type IndicatorRow struct {
	Timestamp time.Time `json:"timestamp"`

	EMA9   *decimal.Decimal `json:"ema9,omitempty"`
	EMA21  *decimal.Decimal `json:"ema21,omitempty"`
	EMA50  *decimal.Decimal `json:"ema50,omitempty"`
	EMA200 *decimal.Decimal `json:"ema200,omitempty"`
	SMA    *decimal.Decimal `json:"sma,omitempty"`

	RSI *decimal.Decimal `json:"rsi,omitempty"`

	MACDLine   *decimal.Decimal `json:"macdLine,omitempty"`
	MACDSignal *decimal.Decimal `json:"macdSignal,omitempty"`
	MACDHist   *decimal.Decimal `json:"macdHist,omitempty"`

	BBUpper  *decimal.Decimal `json:"bbUpper,omitempty"`
	BBMiddle *decimal.Decimal `json:"bbMiddle,omitempty"`
	BBLower  *decimal.Decimal `json:"bbLower,omitempty"`

	ATR *decimal.Decimal `json:"atr,omitempty"`

	PlusDI  *decimal.Decimal `json:"plusDI,omitempty"`
	MinusDI *decimal.Decimal `json:"minusDI,omitempty"`
	ADX     *decimal.Decimal `json:"adx,omitempty"`

	StochK *decimal.Decimal `json:"stochK,omitempty"`
	StochD *decimal.Decimal `json:"stochD,omitempty"`
}

// Regime labels the prevailing market state at a bar.
type Regime struct {
	Timestamp   time.Time       `json:"timestamp"`
	Trend       Trend           `json:"trend"`
	Volatility  Volatility      `json:"volatility"`
	Liquidity   Liquidity       `json:"liquidity"`
	ADX         decimal.Decimal `json:"adx"`
	EMASlopePct decimal.Decimal `json:"emaSlopePct"`
	ATRRatio    decimal.Decimal `json:"atrRatio"`
	VolRatio    decimal.Decimal `json:"volRatio"`
	Price       decimal.Decimal `json:"price"`
	EMA9        decimal.Decimal `json:"ema9"`
	EMA21       decimal.Decimal `json:"ema21"`
	EMA50       decimal.Decimal `json:"ema50"`
}

// Setup is the discrete 6-field fingerprint used for pattern matching.
type Setup struct {
	Trend      Trend           `json:"trend"`
	Volatility Volatility      `json:"volatility"`
	Liquidity  Liquidity       `json:"liquidity"`
	EMACross   EMACross        `json:"emaCross"`
	StochLevel OscillatorLevel `json:"stochLevel"`
	RSILevel   OscillatorLevel `json:"rsiLevel"`

	RSI    decimal.Decimal `json:"rsi"`
	StochK decimal.Decimal `json:"stochK"`
	ADX    decimal.Decimal `json:"adx"`
}

// Similarity returns the fraction of the 6 discrete fields that match
// another Setup, in [0,1].
func (s Setup) Similarity(o Setup) float64 {
	matches := 0
	if s.Trend == o.Trend {
		matches++
	}
	if s.Volatility == o.Volatility {
		matches++
	}
	if s.Liquidity == o.Liquidity {
		matches++
	}
	if s.EMACross == o.EMACross {
		matches++
	}
	if s.StochLevel == o.StochLevel {
		matches++
	}
	if s.RSILevel == o.RSILevel {
		matches++
	}
	return float64(matches) / 6.0
}

// PatternMatch is one historical bar whose Setup matched a reference Setup.
type PatternMatch struct {
	Setup       Setup    `json:"setup"`
	Similarity  float64  `json:"similarity"`
	Outcome1b   *float64 `json:"outcome1b,omitempty"`
	Outcome4b   *float64 `json:"outcome4b,omitempty"`
	Outcome24b  *float64 `json:"outcome24b,omitempty"`
	BullSuccess *bool    `json:"bullSuccess,omitempty"`
	BearSuccess *bool    `json:"bearSuccess,omitempty"`
}

// PatternAnalysis aggregates a set of PatternMatches into a forward
// prediction, see SPEC_FULL section 4.4.
type PatternAnalysis struct {
	Matches            []PatternMatch   `json:"matches"`
	TotalMatches       int              `json:"totalMatches"`
	BullishSuccessRate float64          `json:"bullishSuccessRate"`
	BearishSuccessRate float64          `json:"bearishSuccessRate"`
	AvgOutcome24b      float64          `json:"avgOutcome24b"`
	Prediction         PatternDirection `json:"prediction"`
	Confidence         float64          `json:"confidence"`
}

// SentimentReport is the cross-market correlation and risk-posture read.
type SentimentReport struct {
	Timestamp           time.Time          `json:"timestamp"`
	Label               Sentiment          `json:"label"`
	Confidence          float64            `json:"confidence"`
	Correlations        map[string]float64 `json:"correlations"`
	RollingCorrelations map[string]float64 `json:"rollingCorrelations"`
	CorrelationChanges  map[string]float64 `json:"correlationChanges"`
	Diverging           map[string]bool    `json:"diverging"`
	GoldChange5         float64            `json:"goldChange5"`
	EquityChange5       float64            `json:"equityChange5"`
	USDChange5          float64            `json:"usdChange5"`
	YieldChange5        float64            `json:"yieldChange5"`
}

// Signal is an emitted long/short decision with strength, stop, and target.
type Signal struct {
	ID                 string          `json:"id"`
	Timestamp          time.Time       `json:"timestamp"`
	Type               Direction       `json:"type"`
	Strength           Strength        `json:"strength"`
	EntryPrice         decimal.Decimal `json:"entryPrice"`
	RegimeLabel        Trend           `json:"regimeLabel"`
	PatternSuccessRate float64         `json:"patternSuccessRate"`
	SentimentLabel     Sentiment       `json:"sentimentLabel"`
	CriteriaMet        float64         `json:"criteriaMet"`
	CriteriaTotal      float64         `json:"criteriaTotal"`
	Reasons            []string        `json:"reasons"`
	StopLoss           decimal.Decimal `json:"stopLoss"`
	TakeProfit         decimal.Decimal `json:"takeProfit"`
	RRRatio            decimal.Decimal `json:"rrRatio"`
}

// MarketConditions snapshots the regime/session/correlation context at the
// moment a signal was logged.
type MarketConditions struct {
	Regime            Trend      `json:"regime"`
	Volatility         Volatility `json:"volatility"`
	Liquidity          Liquidity  `json:"liquidity"`
	Session            Session    `json:"session"`
	CorrelationStatus  Sentiment  `json:"correlationStatus"`
}

// IndicatorSnapshot freezes the indicator values at signal time.
type IndicatorSnapshot struct {
	StochK   decimal.Decimal `json:"stochK"`
	StochD   decimal.Decimal `json:"stochD"`
	RSI      decimal.Decimal `json:"rsi"`
	ATR      decimal.Decimal `json:"atr"`
	EMA9     decimal.Decimal `json:"ema9"`
	EMA21    decimal.Decimal `json:"ema21"`
	EMA50    decimal.Decimal `json:"ema50"`
	EMA200   decimal.Decimal `json:"ema200"`
	MACD     decimal.Decimal `json:"macd"`
	MACDSig  decimal.Decimal `json:"macdSignal"`
	MACDHist decimal.Decimal `json:"macdHist"`
	BBUpper  decimal.Decimal `json:"bbUpper"`
	BBLower  decimal.Decimal `json:"bbLower"`
	ADX      decimal.Decimal `json:"adx"`
}

// BollingerPosition locates EMA9 between the Bollinger bands, in [0,1],
// defaulting to 0.5 when the bands have collapsed to a single price.
func (i IndicatorSnapshot) BollingerPosition() decimal.Decimal {
	width := i.BBUpper.Sub(i.BBLower)
	if width.IsZero() {
		return decimal.NewFromFloat(0.5)
	}
	return i.EMA9.Sub(i.BBLower).Div(width)
}

// PatternMatchInfo summarizes the pattern-matcher result at signal time.
type PatternMatchInfo struct {
	SimilarSetupsFound int     `json:"similarSetupsFound"`
	SuccessRate        float64 `json:"successRate"`
	AvgGainSimilar     float64 `json:"avgGainSimilar"`
	AvgLossSimilar     float64 `json:"avgLossSimilar"`
}

// RiskFactors is a minimal placeholder for the out-of-scope risk/calendar
// subsystem; fields default to their zero value and are never populated by
// this repository's own logic.
type RiskFactors struct {
	CalendarStatus  string `json:"calendarStatus"`
	NewsActive      bool   `json:"newsActive"`
	AnomalyDetected bool   `json:"anomalyDetected"`
	OverallRisk     string `json:"overallRisk"`
}

// ScoreBreakdown records the criterion-level contributions to a signal's
// total score.
type ScoreBreakdown struct {
	Total       float64 `json:"total"`
	Base        float64 `json:"base"`
	TrendMult   float64 `json:"trendMult"`
	StochMult   float64 `json:"stochMult"`
	SessionMult float64 `json:"sessionMult"`
	RiskMult    float64 `json:"riskMult"`
	PatternMult float64 `json:"patternMult"`
}

// ConfigurationUsed snapshots the TuningConfig thresholds in effect when a
// signal was scored, so historical records remain self-describing even
// after the live configuration changes.
type ConfigurationUsed struct {
	StochOversold   decimal.Decimal `json:"stochOversold"`
	StochOverbought decimal.Decimal `json:"stochOverbought"`
	RSIOversold     decimal.Decimal `json:"rsiOversold"`
	RSIOverbought   decimal.Decimal `json:"rsiOverbought"`
	MinScoreLong    decimal.Decimal `json:"minScoreLong"`
	MinScoreShort   decimal.Decimal `json:"minScoreShort"`
}

// PriceSnapshot is one tracked price observation at a fixed forward-minute
// offset from signal entry.
type PriceSnapshot struct {
	MinutesElapsed int             `json:"minutesElapsed"`
	Price          decimal.Decimal `json:"price"`
	PnL            decimal.Decimal `json:"pnl"`
	PnLPct         decimal.Decimal `json:"pnlPct"`
	Timestamp      time.Time       `json:"timestamp"`
}

// SignalOutcome accrues tracking data for a logged signal until completion.
type SignalOutcome struct {
	TrackedUntil   *time.Time      `json:"trackedUntil,omitempty"`
	Snapshots      []PriceSnapshot `json:"snapshots"`
	MaxProfit      decimal.Decimal `json:"maxProfit"`
	MaxProfitPct   decimal.Decimal `json:"maxProfitPct"`
	MaxDrawdown    decimal.Decimal `json:"maxDrawdown"`
	MaxDrawdownPct decimal.Decimal `json:"maxDrawdownPct"`
	PeakTime       *time.Time      `json:"peakTime,omitempty"`
	Result         OutcomeResult   `json:"result"`
	TargetHit      bool            `json:"targetHit"`
	TargetPrice    decimal.Decimal `json:"targetPrice"`
	TargetTime     *time.Time      `json:"targetTime,omitempty"`
	StopHit        bool            `json:"stopHit"`
	FinalPnL       decimal.Decimal `json:"finalPnl"`
	FinalPnLPct    decimal.Decimal `json:"finalPnlPct"`
}

// SignalRecord is a persisted Signal enriched with the full context that
// produced it and the outcome tracked afterward.
type SignalRecord struct {
	ID               string            `json:"id"`
	Timestamp        time.Time         `json:"timestamp"`
	SignalType       Direction         `json:"signalType"`
	EntryPrice       decimal.Decimal   `json:"entryPrice"`
	Session          Session           `json:"session"`
	MarketConditions MarketConditions  `json:"marketConditions"`
	Indicators       IndicatorSnapshot `json:"indicators"`
	PatternMatch     PatternMatchInfo  `json:"patternMatch"`
	RiskFactors      RiskFactors       `json:"riskFactors"`
	Score            ScoreBreakdown    `json:"score"`
	Configuration    ConfigurationUsed `json:"configuration"`
	SuggestedStop    decimal.Decimal   `json:"suggestedStop"`
	SuggestedTarget  decimal.Decimal   `json:"suggestedTarget"`
	Outcome          SignalOutcome     `json:"outcome"`
	Status           SignalStatus      `json:"status"`
	Notes            string            `json:"notes"`
}

// PaperTrade is a simulated position opened by the auto-logger and closed
// by stop-loss, take-profit, or expiry.
type PaperTrade struct {
	SignalID        string           `json:"signalId"`
	Direction       Direction        `json:"direction"`
	Entry           decimal.Decimal  `json:"entry"`
	StopLoss        decimal.Decimal  `json:"stopLoss"`
	TakeProfit      decimal.Decimal  `json:"takeProfit"`
	OpenTimestamp   time.Time        `json:"openTimestamp"`
	Status          TradeStatus      `json:"status"`
	ExitPrice       *decimal.Decimal `json:"exitPrice,omitempty"`
	ExitTimestamp   *time.Time       `json:"exitTimestamp,omitempty"`
	PnL             *decimal.Decimal `json:"pnl,omitempty"`
	MaxProfitDuring decimal.Decimal  `json:"maxProfitDuring"`
	MaxLossDuring   decimal.Decimal  `json:"maxLossDuring"`

	Regime     Trend           `json:"regime"`
	Session    Session         `json:"session"`
	ScoreLong  float64         `json:"scoreLong"`
	ScoreShort float64         `json:"scoreShort"`
	RSI        decimal.Decimal `json:"rsi"`
	StochK     decimal.Decimal `json:"stochK"`
	ATR        decimal.Decimal `json:"atr"`
}

// Condition is an (operator, threshold) pair on a named indicator feature.
type Condition struct {
	Op        string          `json:"op"` // "<" or ">"
	Threshold decimal.Decimal `json:"threshold"`
}

// DiscoveredPattern is a mined condition-set hypothesis with measured
// historical performance.
type DiscoveredPattern struct {
	ID           string               `json:"id"`
	Family       string               `json:"family"` // single, combo, regime, session
	Conditions   map[string]Condition `json:"conditions"`
	Direction    Direction            `json:"direction"`
	Regime       *Trend               `json:"regime,omitempty"`
	Session      *Session             `json:"session,omitempty"`
	WinRate      float64              `json:"winRate"`
	ProfitFactor float64              `json:"profitFactor"`
	SampleSize   int                  `json:"sampleSize"`
	Confidence   float64              `json:"confidence"`
}

// TradingRule is an evolvable, weighted voting unit in the live scorer.
type TradingRule struct {
	RuleID        string               `json:"ruleId"`
	Generation    int                  `json:"generation"`
	Conditions    map[string]Condition `json:"conditions"`
	RegimeFilter  *Trend               `json:"regimeFilter,omitempty"`
	SessionFilter *Session             `json:"sessionFilter,omitempty"`
	Direction     Direction            `json:"direction"`
	Weight        int                  `json:"weight"`
	Fitness       float64              `json:"fitness"`
	WinRate       float64              `json:"winRate"`
	ProfitFactor  float64              `json:"profitFactor"`
	TotalTrades   int                  `json:"totalTrades"`
	ParentIDs     []string             `json:"parentIds,omitempty"`
	Mutations     []string             `json:"mutations,omitempty"`
}

// TuningOverride narrows a subset of TuningConfig fields for a specific
// regime or session.
type TuningOverride struct {
	MinScoreLong  *decimal.Decimal `json:"minScoreLong,omitempty"`
	MinScoreShort *decimal.Decimal `json:"minScoreShort,omitempty"`
}

// TuningConfig holds the flat scalar thresholds the auto-tuner optimizes.
type TuningConfig struct {
	StochOversold   decimal.Decimal `json:"stochOversold"`
	StochOverbought decimal.Decimal `json:"stochOverbought"`
	RSIOversold     decimal.Decimal `json:"rsiOversold"`
	RSIOverbought   decimal.Decimal `json:"rsiOverbought"`
	MinScoreLong    decimal.Decimal `json:"minScoreLong"`
	MinScoreShort   decimal.Decimal `json:"minScoreShort"`
	ATRStopMult     decimal.Decimal `json:"atrStopMult"`
	ATRTPMult       decimal.Decimal `json:"atrTpMult"`
	ADXMinTrend     decimal.Decimal `json:"adxMinTrend"`

	PerRegime  map[Trend]TuningOverride   `json:"perRegime,omitempty"`
	PerSession map[Session]TuningOverride `json:"perSession,omitempty"`
}

// StrategyVersion is a frozen, gateable snapshot of the learning pipeline's
// output.
type StrategyVersion struct {
	VersionID    string    `json:"versionId"`
	CreatedAt    time.Time `json:"createdAt"`
	RulesCount   int       `json:"rulesCount"`
	WinRate      float64   `json:"winRate"`
	ProfitFactor float64   `json:"profitFactor"`
	IsActive     bool      `json:"isActive"`
	Notes        string    `json:"notes"`
	Seed         int64     `json:"seed"`
}

// FeedbackSignal is the denormalized record the feedback loop persists for
// fast rolling-window queries, distinct from the richer SignalRecord kept by
// the signal log (see SPEC_FULL section 3.1).
type FeedbackSignal struct {
	SignalID       string             `json:"signalId"`
	Timestamp      time.Time          `json:"timestamp"`
	Direction      Direction          `json:"direction"`
	EntryPrice     decimal.Decimal    `json:"entryPrice"`
	StopLoss       decimal.Decimal    `json:"stopLoss"`
	TakeProfit     decimal.Decimal    `json:"takeProfit"`
	Score          float64            `json:"score"`
	Regime         Trend              `json:"regime"`
	Session        Session            `json:"session"`
	Indicators     map[string]float64 `json:"indicators"`
	RulesTriggered []string           `json:"rulesTriggered"`
	ExitPrice      *decimal.Decimal   `json:"exitPrice,omitempty"`
	ExitTime       *time.Time         `json:"exitTime,omitempty"`
	Outcome        OutcomeResult      `json:"outcome"`
	PnL            *decimal.Decimal   `json:"pnl,omitempty"`
	HoldMinutes    *float64           `json:"holdMinutes,omitempty"`
}
