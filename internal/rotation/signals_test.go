package rotation

import (
	"context"
	"testing"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage/memory"
)

// buildContext assembles a dump context from seeded stores for signal
// tests.
func buildContext(t *testing.T, master *memory.SecurityMasterStore, positions *memory.PositionSnapshotStore, issuer string) *DumpContext {
	t.Helper()
	b := NewContextBuilder(master, positions, NewCache())
	dc, err := b.Build(context.Background(), issuer, q1_2024(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return dc
}

func TestUptakeFromFilings(t *testing.T) {
	master := memory.NewSecurityMasterStore()
	seedMaster(t, master, "ISS-1", "CUSIP-1")
	positions := memory.NewPositionSnapshotStore()
	seedPositions(t, positions, []*domain.PositionSnapshot{
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2023-12-31"), Shares: 1000000},
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2024-02-15"), Shares: 600000},
		{Holder: "FUND-BETA", Identifier: "CUSIP-1", AsOf: date("2023-12-31"), Shares: 200000},
		{Holder: "FUND-BETA", Identifier: "CUSIP-1", AsOf: date("2024-03-15"), Shares: 350000},
	})

	dc := buildContext(t, master, positions, "ISS-1")
	uSame, uNext := UptakeFromFilings(dc)
	// 150,000 absorbed of 400,000 dumped.
	if !approx(uSame, 0.375) {
		t.Errorf("uSame = %v, want 0.375", uSame)
	}
	if uNext != 0 {
		t.Errorf("uNext = %v, want 0", uNext)
	}
}

func TestUptakeNoDump(t *testing.T) {
	dc := &DumpContext{SameQtrIncrease: 500000}
	uSame, uNext := UptakeFromFilings(dc)
	if uSame != 0 || uNext != 0 {
		t.Errorf("uptake = (%v, %v), want zeros with no dump", uSame, uNext)
	}
}

func TestUptakeClampedToOne(t *testing.T) {
	dc := &DumpContext{DumpShares: 100000, SameQtrIncrease: 500000, NextQtrIncrease: 250000}
	uSame, uNext := UptakeFromFilings(dc)
	if uSame != 1 || uNext != 1 {
		t.Errorf("uptake = (%v, %v), want clamped to 1", uSame, uNext)
	}
}

func TestOptionsOverlay(t *testing.T) {
	dc := &DumpContext{
		Identifiers:     []string{"CUSIP-1"},
		DumpShares:      400000,
		SameQtrOptDelta: 100000,
		NextQtrOptDelta: 800000,
	}
	optSame, optNext := OptionsOverlay(dc)
	if !approx(optSame, 0.25) {
		t.Errorf("optSame = %v, want 0.25", optSame)
	}
	if optNext != 1 {
		t.Errorf("optNext = %v, want clamped to 1", optNext)
	}

	// No identifiers means the options source never resolved.
	dc.Identifiers = nil
	optSame, optNext = OptionsOverlay(dc)
	if optSame != 0 || optNext != 0 {
		t.Errorf("overlay = (%v, %v), want zeros without identifiers", optSame, optNext)
	}
}

func TestUHFProxy(t *testing.T) {
	master := memory.NewSecurityMasterStore()
	seedMaster(t, master, "ISS-1", "CUSIP-1")
	positions := memory.NewPositionSnapshotStore()
	seedPositions(t, positions, []*domain.PositionSnapshot{
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2023-12-31"), Shares: 1000000},
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2024-02-15"), Shares: 600000},
	})
	dc := buildContext(t, master, positions, "ISS-1")

	hf := memory.NewHighFrequencyPositionStore()
	err := hf.InsertBulk(context.Background(), []*domain.HighFrequencyPosition{
		// Baseline inside the pre-quarter window, then a same-quarter
		// build of 100,000 and a next-quarter build of 60,000.
		{Holder: "DESK-1", Identifier: "CUSIP-1", AsOf: date("2023-12-15"), Shares: 50000},
		{Holder: "DESK-1", Identifier: "CUSIP-1", AsOf: date("2024-02-01"), Shares: 150000},
		{Holder: "DESK-1", Identifier: "CUSIP-1", AsOf: date("2024-04-20"), Shares: 210000},
		// A shrinking desk contributes nothing.
		{Holder: "DESK-2", Identifier: "CUSIP-1", AsOf: date("2023-12-15"), Shares: 80000},
		{Holder: "DESK-2", Identifier: "CUSIP-1", AsOf: date("2024-02-01"), Shares: 30000},
	})
	if err != nil {
		t.Fatalf("InsertBulk hf: %v", err)
	}

	deriver := NewSignalDeriver(hf, memory.NewShortInterestStore(), DefaultParams())
	uhfSame, uhfNext, err := deriver.UHFProxy(context.Background(), dc)
	if err != nil {
		t.Fatalf("UHFProxy: %v", err)
	}
	if !approx(uhfSame, 0.25) {
		t.Errorf("uhfSame = %v, want 0.25", uhfSame)
	}
	if !approx(uhfNext, 0.15) {
		t.Errorf("uhfNext = %v, want 0.15", uhfNext)
	}
}

func TestUHFProxyNoDump(t *testing.T) {
	deriver := NewSignalDeriver(memory.NewHighFrequencyPositionStore(), memory.NewShortInterestStore(), DefaultParams())
	uhfSame, uhfNext, err := deriver.UHFProxy(context.Background(), &DumpContext{Identifiers: []string{"CUSIP-1"}})
	if err != nil {
		t.Fatalf("UHFProxy: %v", err)
	}
	if uhfSame != 0 || uhfNext != 0 {
		t.Errorf("proxy = (%v, %v), want zeros with no dump", uhfSame, uhfNext)
	}
}

func TestShortInterestRelief(t *testing.T) {
	master := memory.NewSecurityMasterStore()
	seedMaster(t, master, "ISS-1", "CUSIP-1")
	positions := memory.NewPositionSnapshotStore()
	seedPositions(t, positions, []*domain.PositionSnapshot{
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2023-12-31"), Shares: 1000000},
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2024-02-15"), Shares: 600000},
	})
	dc := buildContext(t, master, positions, "ISS-1")

	shortInterest := memory.NewShortInterestStore()
	err := shortInterest.InsertBulk(context.Background(), []*domain.ShortInterestReading{
		{Issuer: "ISS-1", SettleDate: date("2024-03-15"), ShortShares: 500000},
		{Issuer: "ISS-1", SettleDate: date("2024-04-15"), ShortShares: 300000},
	})
	if err != nil {
		t.Fatalf("InsertBulk short interest: %v", err)
	}

	deriver := NewSignalDeriver(memory.NewHighFrequencyPositionStore(), shortInterest, DefaultParams())
	relief, err := deriver.ShortInterestRelief(context.Background(), dc)
	if err != nil {
		t.Fatalf("ShortInterestRelief: %v", err)
	}
	if !approx(relief, 0.4) {
		t.Errorf("relief = %v, want 0.4", relief)
	}
}

func TestShortInterestReliefRisingIsZero(t *testing.T) {
	master := memory.NewSecurityMasterStore()
	seedMaster(t, master, "ISS-1", "CUSIP-1")
	positions := memory.NewPositionSnapshotStore()
	seedPositions(t, positions, []*domain.PositionSnapshot{
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2023-12-31"), Shares: 1000000},
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2024-02-15"), Shares: 600000},
	})
	dc := buildContext(t, master, positions, "ISS-1")

	shortInterest := memory.NewShortInterestStore()
	err := shortInterest.InsertBulk(context.Background(), []*domain.ShortInterestReading{
		{Issuer: "ISS-1", SettleDate: date("2024-03-15"), ShortShares: 300000},
		{Issuer: "ISS-1", SettleDate: date("2024-04-15"), ShortShares: 500000},
	})
	if err != nil {
		t.Fatalf("InsertBulk short interest: %v", err)
	}

	deriver := NewSignalDeriver(memory.NewHighFrequencyPositionStore(), shortInterest, DefaultParams())
	relief, err := deriver.ShortInterestRelief(context.Background(), dc)
	if err != nil {
		t.Fatalf("ShortInterestRelief: %v", err)
	}
	if relief != 0 {
		t.Errorf("relief = %v, want 0 when short interest rises", relief)
	}
}

func TestShortInterestReliefMissingReading(t *testing.T) {
	master := memory.NewSecurityMasterStore()
	seedMaster(t, master, "ISS-1", "CUSIP-1")
	positions := memory.NewPositionSnapshotStore()
	seedPositions(t, positions, []*domain.PositionSnapshot{
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2023-12-31"), Shares: 1000000},
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2024-02-15"), Shares: 600000},
	})
	dc := buildContext(t, master, positions, "ISS-1")

	// Only a pre-quarter-end reading: no at-or-after counterpart.
	shortInterest := memory.NewShortInterestStore()
	err := shortInterest.InsertBulk(context.Background(), []*domain.ShortInterestReading{
		{Issuer: "ISS-1", SettleDate: date("2024-03-15"), ShortShares: 500000},
	})
	if err != nil {
		t.Fatalf("InsertBulk short interest: %v", err)
	}

	deriver := NewSignalDeriver(memory.NewHighFrequencyPositionStore(), shortInterest, DefaultParams())
	relief, err := deriver.ShortInterestRelief(context.Background(), dc)
	if err != nil {
		t.Fatalf("ShortInterestRelief: %v", err)
	}
	if relief != 0 {
		t.Errorf("relief = %v, want 0 with a missing reading", relief)
	}
}

func TestDeriveBounded(t *testing.T) {
	master := memory.NewSecurityMasterStore()
	seedMaster(t, master, "ISS-1", "CUSIP-1")
	positions := memory.NewPositionSnapshotStore()
	// A tiny dump against huge absorption drives every ratio past 1
	// before clamping.
	seedPositions(t, positions, []*domain.PositionSnapshot{
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2023-12-31"), Shares: 100000},
		{Holder: "FUND-ALPHA", Identifier: "CUSIP-1", AsOf: date("2024-02-15"), Shares: 60000},
		{Holder: "FUND-BETA", Identifier: "CUSIP-1", AsOf: date("2023-12-31"), Shares: 200000, CallShares: 10000},
		{Holder: "FUND-BETA", Identifier: "CUSIP-1", AsOf: date("2024-03-15"), Shares: 900000, CallShares: 500000},
		{Holder: "FUND-BETA", Identifier: "CUSIP-1", AsOf: date("2024-05-15"), Shares: 1500000, CallShares: 900000},
	})
	dc := buildContext(t, master, positions, "ISS-1")

	hf := memory.NewHighFrequencyPositionStore()
	err := hf.InsertBulk(context.Background(), []*domain.HighFrequencyPosition{
		{Holder: "DESK-1", Identifier: "CUSIP-1", AsOf: date("2023-12-15"), Shares: 0},
		{Holder: "DESK-1", Identifier: "CUSIP-1", AsOf: date("2024-02-01"), Shares: 900000},
		{Holder: "DESK-1", Identifier: "CUSIP-1", AsOf: date("2024-04-20"), Shares: 2000000},
	})
	if err != nil {
		t.Fatalf("InsertBulk hf: %v", err)
	}
	shortInterest := memory.NewShortInterestStore()
	err = shortInterest.InsertBulk(context.Background(), []*domain.ShortInterestReading{
		{Issuer: "ISS-1", SettleDate: date("2024-03-15"), ShortShares: 500000},
		{Issuer: "ISS-1", SettleDate: date("2024-04-15"), ShortShares: 0},
	})
	if err != nil {
		t.Fatalf("InsertBulk short interest: %v", err)
	}

	deriver := NewSignalDeriver(hf, shortInterest, DefaultParams())
	set, err := deriver.Derive(context.Background(), dc)
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	for name, v := range map[string]float64{
		"uSame":       set.USame,
		"uNext":       set.UNext,
		"uhfSame":     set.UHFSame,
		"uhfNext":     set.UHFNext,
		"optSame":     set.OptSame,
		"optNext":     set.OptNext,
		"shortRelief": set.ShortRelief,
	} {
		if v < 0 || v > 1 {
			t.Errorf("%s = %v, want within [0, 1]", name, v)
		}
	}
	if set.USame != 1 || set.UHFSame != 1 || set.ShortRelief != 1 {
		t.Errorf("expected saturated signals, got %+v", set)
	}
}
