package reporting

import "time"

// Report represents the scan report structure.
type Report struct {
	// Metadata
	GeneratedAt  time.Time
	IssuerCount  int
	QuarterCount int

	// Data Summary
	Summary ScanSummary

	// Top rotation events (sorted by r_score DESC, capped)
	TopEvents []EventRow

	// Per-quarter rollup (sorted by quarter_end ASC)
	QuarterSummaries []QuarterRow

	// Event study outcomes for gated events (sorted by anchor_date ASC)
	Studies []StudyRow
}

// ScanSummary contains data description.
type ScanSummary struct {
	TotalEvents     int
	GatedEvents     int
	DistinctHolders int
	DateRangeStart  time.Time // earliest anchor date, zero when no events
	DateRangeEnd    time.Time // latest anchor date, zero when no events
}

// EventRow represents one row in the rotation event table.
type EventRow struct {
	Issuer       string
	Holder       string
	AnchorDate   time.Time
	PctDelta     float64
	SharesDumped float64
	DumpZ        float64
	USame        float64
	UNext        float64
	ShortRelief  float64
	RScore       float64
	Gated        bool
}

// QuarterRow rolls events up per quarter.
type QuarterRow struct {
	QuarterEnd  time.Time
	TotalEvents int
	GatedEvents int
	MeanRScore  float64 // over gated events, 0 when none
	MaxRScore   float64 // over gated events, 0 when none
}

// StudyRow represents one event study outcome.
type StudyRow struct {
	Symbol      string
	Issuer      string
	AnchorDate  time.Time
	CAR         float64
	CAR20       float64
	CAR65       float64
	MaxDrawdown float64
}
