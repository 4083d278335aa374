package domain

import "time"

// ShortInterestReading is one exchange-reported short interest figure
// for an issuer.
type ShortInterestReading struct {
	Issuer      string
	SettleDate  time.Time
	ShortShares float64
}

// DailyReturn is one row of an issuer's daily return series alongside
// its benchmark return for the same day.
type DailyReturn struct {
	Issuer          string
	Date            time.Time
	Return          float64
	BenchmarkReturn float64
}

// OffExchangeRatio is the fraction of a symbol's daily volume executed
// off-exchange. Event-study covariate only.
type OffExchangeRatio struct {
	Symbol string
	Date   time.Time
	Ratio  float64
}

// MicrostructureReading is one raw order-flow observation for a symbol.
// Readings are aggregated over a window into MicrostructureSignals.
type MicrostructureReading struct {
	Symbol          string
	ObservedAt      time.Time
	Vpin            float64
	Lambda          float64
	OrderImbalance  float64
	BlockRatio      float64
	FlowAttribution float64
	Confidence      float64
}

// MicrostructureSignals aggregates order-flow microstructure reads for
// one symbol over one window. Confidence below 0.5 means the reads must
// not move the primary rotation score.
type MicrostructureSignals struct {
	VpinAvg              float64 // average order-flow toxicity
	VpinSpike            float64 // peak toxicity over the window
	LambdaAvg            float64 // average price impact (Kyle's lambda)
	OrderImbalanceAvg    float64
	BlockRatioAvg        float64 // block trade share of volume
	FlowAttributionScore float64
	Confidence           float64 // overall attribution confidence in [0,1]
}
