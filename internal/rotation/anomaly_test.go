package rotation

import (
	"context"
	"testing"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage/memory"
)

// seedQuarterlyHistory writes one end-of-quarter snapshot per share
// count, walking backwards from the quarter ending just before anchor.
func seedQuarterlyHistory(t *testing.T, positions *memory.PositionSnapshotStore, holder, identifier string, anchor time.Time, shares []float64) {
	t.Helper()
	snaps := make([]*domain.PositionSnapshot, 0, len(shares))
	quarterEnd := domain.ShiftQuarterEnd(domain.QuarterEndOf(anchor), -1)
	for i := len(shares) - 1; i >= 0; i-- {
		snaps = append(snaps, &domain.PositionSnapshot{
			Holder:     holder,
			Identifier: identifier,
			AsOf:       quarterEnd,
			Shares:     shares[i],
		})
		quarterEnd = domain.ShiftQuarterEnd(quarterEnd, -1)
	}
	seedPositions(t, positions, snaps)
}

func TestDumpZSparseHistoryFallback(t *testing.T) {
	positions := memory.NewPositionSnapshotStore()
	a := NewAnomalyScorer(positions, DefaultParams())
	anchor := date("2024-02-15")

	z, err := a.DumpZ(context.Background(), "FUND-ALPHA", []string{"CUSIP-1"}, -0.40, anchor)
	if err != nil {
		t.Fatalf("DumpZ: %v", err)
	}
	if z != DefaultParams().FallbackZ {
		t.Errorf("z = %v, want fallback %v for a large reduction with no history", z, DefaultParams().FallbackZ)
	}

	z, err = a.DumpZ(context.Background(), "FUND-ALPHA", []string{"CUSIP-1"}, -0.10, anchor)
	if err != nil {
		t.Fatalf("DumpZ: %v", err)
	}
	if z != 0 {
		t.Errorf("z = %v, want 0 for a small reduction with no history", z)
	}
}

func TestDumpZFallbackBoundary(t *testing.T) {
	a := NewAnomalyScorer(memory.NewPositionSnapshotStore(), DefaultParams())
	anchor := date("2024-02-15")

	// Exactly at the threshold: the fallback applies.
	z, err := a.DumpZ(context.Background(), "FUND-ALPHA", []string{"CUSIP-1"}, -DefaultParams().MinDumpPct, anchor)
	if err != nil {
		t.Fatalf("DumpZ: %v", err)
	}
	if z != DefaultParams().FallbackZ {
		t.Errorf("z = %v, want %v at exact threshold", z, DefaultParams().FallbackZ)
	}
}

func TestDumpZRichHistory(t *testing.T) {
	positions := memory.NewPositionSnapshotStore()
	anchor := date("2024-02-15")

	// 14 quarterly snapshots shrinking 4-6% each quarter: 13 reduction
	// observations clustered around 0.05 with a little dispersion,
	// clearing the minimum of 12.
	cuts := []float64{0.04, 0.05, 0.06}
	shares := make([]float64, 14)
	shares[0] = 1000000
	for i := 1; i < len(shares); i++ {
		shares[i] = shares[i-1] * (1 - cuts[i%len(cuts)])
	}
	// 1095 trailing days only reach back ~12 quarters; stretch the
	// window so all 13 observations land inside it.
	params := DefaultParams()
	params.HistoryDays = 365 * 4
	seedQuarterlyHistory(t, positions, "FUND-ALPHA", "CUSIP-1", anchor, shares)

	a := NewAnomalyScorer(positions, params)
	z, err := a.DumpZ(context.Background(), "FUND-ALPHA", []string{"CUSIP-1"}, -0.40, anchor)
	if err != nil {
		t.Fatalf("DumpZ: %v", err)
	}
	// A 40% reduction against a steady 5% habit is far out of family.
	if z <= params.FallbackZ {
		t.Errorf("z = %v, want well above the fallback for an out-of-family reduction", z)
	}

	z, err = a.DumpZ(context.Background(), "FUND-ALPHA", []string{"CUSIP-1"}, -0.05, anchor)
	if err != nil {
		t.Fatalf("DumpZ: %v", err)
	}
	if z > 1.0 {
		t.Errorf("z = %v, want small for an in-family reduction", z)
	}
}

func TestDumpZIgnoresOtherHolders(t *testing.T) {
	positions := memory.NewPositionSnapshotStore()
	anchor := date("2024-02-15")
	// A different holder's rich history must not feed this holder's
	// score.
	shares := make([]float64, 16)
	shares[0] = 1000000
	for i := 1; i < len(shares); i++ {
		shares[i] = shares[i-1] * 0.9
	}
	seedQuarterlyHistory(t, positions, "FUND-OTHER", "CUSIP-1", anchor, shares)

	a := NewAnomalyScorer(positions, DefaultParams())
	z, err := a.DumpZ(context.Background(), "FUND-ALPHA", []string{"CUSIP-1"}, -0.40, anchor)
	if err != nil {
		t.Fatalf("DumpZ: %v", err)
	}
	if z != DefaultParams().FallbackZ {
		t.Errorf("z = %v, want fallback; foreign history leaked in", z)
	}
}

func TestDumpZNonAdjacentQuartersSkipped(t *testing.T) {
	positions := memory.NewPositionSnapshotStore()
	anchor := date("2024-02-15")
	// Two snapshots two quarters apart never pair, so no observation
	// forms and the fallback applies.
	seedPositions(t, positions, []*domain.PositionSnapshot{
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2023-03-31"), Shares: 1000000},
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2023-09-30"), Shares: 500000},
	})

	a := NewAnomalyScorer(positions, DefaultParams())
	z, err := a.DumpZ(context.Background(), "FUND-ALPHA", []string{"CUSIP-1"}, -0.40, anchor)
	if err != nil {
		t.Fatalf("DumpZ: %v", err)
	}
	if z != DefaultParams().FallbackZ {
		t.Errorf("z = %v, want fallback when quarters are not adjacent", z)
	}
}
