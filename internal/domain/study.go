package domain

import "time"

// EventTypeRotation tags event-study results produced by the rotation
// scan pipeline.
const EventTypeRotation = "ROTATION"

// EventStudyResult holds the post-hoc abnormal-return study for one
// anchor date. Derived entirely from a read-only daily return series.
// Natural key when persisted: (symbol, event_type, anchor_date, issuer).
type EventStudyResult struct {
	Symbol     string // empty when no traded symbol was supplied
	EventType  string
	AnchorDate time.Time
	Issuer     string

	CAR      float64 // cumulative abnormal return over [anchor-5, anchor+20] rows
	TTPlus20 int     // calendar days from anchor to the +20 observation, 0 if absent

	// Running cumulative abnormal return over the 65 rows from the
	// anchor forward.
	MaxRet      float64 // peak
	MaxDrawdown float64 // worst peak-to-trough

	// Horizon aggregates: cumulative abnormal return from the anchor to
	// the +N observation (or the last row, whichever comes first).
	CAR5  float64
	CAR10 float64
	CAR20 float64
	CAR40 float64
	CAR65 float64

	// Covariates, present only when a traded symbol was supplied and the
	// underlying source had data. Absence is not an error.
	OffExchangeAvg      *float64 // mean off-exchange ratio around the anchor
	ShortInterestChange *float64 // short interest change across the study window
}
