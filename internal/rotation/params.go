// Package rotation implements dump context assembly, dump event
// detection, holder anomaly scoring and the four absorption signal
// derivers.
package rotation

import "rotation-lab/internal/config"

// Params holds the detection constants. The statistical basis for
// MinHistoryObservations is undocumented upstream; it is kept
// configurable rather than second-guessed.
type Params struct {
	// MinDumpPct is the minimum fractional reduction that qualifies as a
	// dump. A pctDelta exactly at -MinDumpPct qualifies.
	MinDumpPct float64

	// MinHistoryObservations is the number of historical quarterly
	// reduction observations required to trust the robust z-score.
	MinHistoryObservations int

	// FallbackZ is assigned to large reductions when history is sparse.
	FallbackZ float64

	// HistoryDays is the trailing holder-history window for anomaly
	// scoring.
	HistoryDays int

	// OwnershipLookbackDays extends the beneficial-ownership scan before
	// quarter start so a prior snapshot exists to delta against.
	OwnershipLookbackDays int

	// UHFBaselineDays is the pre-quarter baseline window anchoring the
	// first high-frequency delta.
	UHFBaselineDays int
}

// DefaultParams returns the standard detection constants.
func DefaultParams() Params {
	return Params{
		MinDumpPct:             0.30,
		MinHistoryObservations: 12,
		FallbackZ:              2.0,
		HistoryDays:            1095,
		OwnershipLookbackDays:  190,
		UHFBaselineDays:        31,
	}
}

// ParamsFromConfig maps the detection section of the configuration onto
// Params.
func ParamsFromConfig(c config.DetectionConfig) Params {
	return Params{
		MinDumpPct:             c.MinDumpPct,
		MinHistoryObservations: c.MinHistoryObservations,
		FallbackZ:              c.FallbackZ,
		HistoryDays:            c.HistoryDays,
		OwnershipLookbackDays:  c.OwnershipLookbackDays,
		UHFBaselineDays:        c.UHFBaselineDays,
	}
}
