package domain

import "time"

// Dump event sources.
const (
	DumpSourceHolderDelta = "HOLDER_DELTA" // quarterly position snapshot reduction
	DumpSourceOwnership   = "OWNERSHIP"    // beneficial-ownership disclosure reduction
)

// DumpEvent is one qualifying large reduction in a holder's reported
// position within a quarter window. Created during detection, never
// mutated afterward.
type DumpEvent struct {
	ClusterID  string    // freshly generated opaque identifier
	Issuer     string
	Holder     string
	AnchorDate time.Time
	PctDelta   float64 // signed; at or below the negative dump threshold
	Shares     float64 // absolute share magnitude of the reduction
	DumpZ      float64 // robust anomaly score against the holder's own history
	Source     string  // DumpSourceHolderDelta or DumpSourceOwnership
}

// RotationEvent is the persisted record of a scored dump event.
// Natural key: (issuer, holder, anchor_date). Upserts are idempotent on
// that key.
type RotationEvent struct {
	ClusterID    string
	Issuer       string
	Holder       string
	AnchorDate   time.Time
	QuarterStart time.Time
	QuarterEnd   time.Time

	PctDelta     float64
	SharesDumped float64
	DumpZ        float64

	// Absorption signals, all in [0,1].
	USame       float64
	UNext       float64
	UHFSame     float64
	UHFNext     float64
	OptSame     float64
	OptNext     float64
	ShortRelief float64

	RScore float64
	Gated  bool
}
