// Package scoring combines the dump anomaly score and the absorption
// signals into the single rotation severity score. Pure functions, no
// I/O.
package scoring

import (
	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
)

// Inputs is the flat record the scorer consumes. Recomputed on demand;
// no persistent identity.
type Inputs struct {
	DumpZ float64

	USame       float64
	UNext       float64
	UHFSame     float64
	UHFNext     float64
	OptSame     float64
	OptNext     float64
	ShortRelief float64

	// IndexPenalty discounts issuers whose mechanical index rebalances
	// mimic rotation.
	IndexPenalty float64

	// EOW marks anchors falling inside the final trading days of the
	// quarter; "next" signals are attenuated because window-edge
	// positions are noisy.
	EOW bool

	// Micro carries the optional microstructure extension. Ignored when
	// nil or when its confidence is at or below the configured floor.
	Micro *domain.MicrostructureSignals
}

// Result is the scorer output.
type Result struct {
	RScore float64
	Gated  bool
}

// Weights holds the gate, the weighted-sum coefficients, the
// end-of-window multipliers and the microstructure sub-score weights.
type Weights struct {
	ZGate float64

	DumpZ       float64
	USame       float64
	UNext       float64
	UHFSame     float64
	UHFNext     float64
	OptSame     float64
	OptNext     float64
	ShortRelief float64

	EOWMultUNext   float64
	EOWMultUHFNext float64
	EOWMultOptNext float64

	MicroConfidenceFloor float64
	MicroVpinSpike       float64
	MicroVpinAvg         float64
	MicroLambda          float64
	MicroImbalance       float64
	MicroBlockRatio      float64
	MicroFlowAttr        float64
}

// DefaultWeights returns the standard scorer constants.
func DefaultWeights() Weights {
	return Weights{
		ZGate: 1.5,

		DumpZ:       2.0,
		USame:       1.0,
		UNext:       0.85,
		UHFSame:     0.7,
		UHFNext:     0.6,
		OptSame:     0.5,
		OptNext:     0.4,
		ShortRelief: 0.4,

		EOWMultUNext:   0.95,
		EOWMultUHFNext: 0.90,
		EOWMultOptNext: 0.50,

		MicroConfidenceFloor: 0.5,
		MicroVpinSpike:       0.5,
		MicroVpinAvg:         0.3,
		MicroLambda:          0.3,
		MicroImbalance:       0.2,
		MicroBlockRatio:      0.2,
		MicroFlowAttr:        0.3,
	}
}

// WeightsFromConfig maps the scoring section of the configuration onto
// Weights.
func WeightsFromConfig(c config.ScoringConfig) Weights {
	return Weights{
		ZGate: c.ZGate,

		DumpZ:       c.WeightDumpZ,
		USame:       c.WeightUSame,
		UNext:       c.WeightUNext,
		UHFSame:     c.WeightUHFSame,
		UHFNext:     c.WeightUHFNext,
		OptSame:     c.WeightOptSame,
		OptNext:     c.WeightOptNext,
		ShortRelief: c.WeightShortRelief,

		EOWMultUNext:   c.EOWMultUNext,
		EOWMultUHFNext: c.EOWMultUHFNext,
		EOWMultOptNext: c.EOWMultOptNext,

		MicroConfidenceFloor: c.MicroConfidenceFloor,
		MicroVpinSpike:       c.MicroWeightVpinSpike,
		MicroVpinAvg:         c.MicroWeightVpinAvg,
		MicroLambda:          c.MicroWeightLambda,
		MicroImbalance:       c.MicroWeightImbalance,
		MicroBlockRatio:      c.MicroWeightBlockRatio,
		MicroFlowAttr:        c.MicroWeightFlowAttr,
	}
}

// Score combines the inputs into the rotation score. The gate forces
// {0, false} unless the anomaly score clears ZGate AND at least one
// uptake-style signal is positive: a dump nobody absorbed is not
// rotation.
func Score(in Inputs, w Weights) Result {
	if in.DumpZ < w.ZGate {
		return Result{}
	}
	if in.USame <= 0 && in.UNext <= 0 && in.UHFSame <= 0 && in.UHFNext <= 0 {
		return Result{}
	}

	uNext := in.UNext
	uhfNext := in.UHFNext
	optNext := in.OptNext
	if in.EOW {
		uNext *= w.EOWMultUNext
		uhfNext *= w.EOWMultUHFNext
		optNext *= w.EOWMultOptNext
	}

	score := w.DumpZ*in.DumpZ +
		w.USame*in.USame +
		w.UNext*uNext +
		w.UHFSame*in.UHFSame +
		w.UHFNext*uhfNext +
		w.OptSame*in.OptSame +
		w.OptNext*optNext +
		w.ShortRelief*in.ShortRelief -
		in.IndexPenalty

	score += microScore(in.Micro, w)

	return Result{RScore: score, Gated: true}
}

// microScore is the optional confidence-weighted microstructure term.
// Low-confidence reads must not move the primary score.
func microScore(m *domain.MicrostructureSignals, w Weights) float64 {
	if m == nil || m.Confidence <= w.MicroConfidenceFloor {
		return 0
	}
	sub := w.MicroVpinSpike*m.VpinSpike +
		w.MicroVpinAvg*m.VpinAvg +
		w.MicroLambda*m.LambdaAvg +
		w.MicroImbalance*m.OrderImbalanceAvg +
		w.MicroBlockRatio*m.BlockRatioAvg +
		w.MicroFlowAttr*m.FlowAttributionScore
	return sub * m.Confidence
}
