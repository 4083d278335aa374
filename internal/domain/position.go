package domain

import "time"

// PositionSnapshot is one holder's reported position in one security
// identifier as of one disclosure date. Corresponds to the
// position_snapshots table. Multiple raw rows for the same
// holder+asof+identifier are summed by consumers, never overwritten.
type PositionSnapshot struct {
	Holder     string    // reporting entity identifier
	Identifier string    // security identifier (CUSIP-scoped)
	AsOf       time.Time // disclosure date
	Shares     float64   // reported share count
	PutShares  float64   // put option share equivalent, 0 when not reported
	CallShares float64   // call option share equivalent, 0 when not reported
}

// EntityDelta is one holder's change versus its immediately preceding
// snapshot date across an issuer's identifiers. The first snapshot for
// a holder has no delta.
type EntityDelta struct {
	Holder      string
	AsOf        time.Time
	DeltaShares float64 // shares now minus shares at previous snapshot
	PctDelta    float64 // DeltaShares / PrevShares, 0 when PrevShares == 0
	OptDelta    float64 // (calls-puts) now minus (calls-puts) at previous snapshot
	PrevShares  float64
}

// OwnershipSnapshot is one beneficial-ownership disclosure row (5%+
// holder filings). SharesEstimate is the preferred magnitude; when it
// is absent PctOfClass is used instead.
type OwnershipSnapshot struct {
	Holder         string
	Issuer         string
	EventDate      time.Time
	SharesEstimate float64 // 0 when the filing reports no share estimate
	PctOfClass     float64 // percent of class, fallback magnitude
}

// HighFrequencyPosition is one row from the ultra-high-frequency holder
// position source, used as a faster-moving absorption proxy.
type HighFrequencyPosition struct {
	Holder     string
	Identifier string
	AsOf       time.Time
	Shares     float64
}
