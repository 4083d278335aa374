// Package fixtures seeds in-memory stores with a small deterministic
// dataset for demo runs and smoke tests.
package fixtures

import (
	"context"
	"fmt"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage/memory"
)

// Issuer and symbol used throughout the fixture dataset.
const (
	Issuer     = "ISS-ACME"
	Symbol     = "ACME"
	Identifier = "CUSIP-ACME-1"
)

// Quarter bounds of the fixture scan.
var (
	QuarterStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	QuarterEnd   = time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	AnchorDate   = time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)
)

// Stores bundles every in-memory store the demo pipeline needs.
type Stores struct {
	Master    *memory.SecurityMasterStore
	Positions *memory.PositionSnapshotStore
	Ownership *memory.OwnershipStore
	HF        *memory.HighFrequencyPositionStore
	ShortInt  *memory.ShortInterestStore
	Returns   *memory.DailyReturnStore
	OffExch   *memory.OffExchangeStore
	Micro     *memory.MicrostructureStore
	Events    *memory.RotationEventStore
	Studies   *memory.EventStudyStore
}

// NewStores creates an empty store bundle.
func NewStores() *Stores {
	return &Stores{
		Master:    memory.NewSecurityMasterStore(),
		Positions: memory.NewPositionSnapshotStore(),
		Ownership: memory.NewOwnershipStore(),
		HF:        memory.NewHighFrequencyPositionStore(),
		ShortInt:  memory.NewShortInterestStore(),
		Returns:   memory.NewDailyReturnStore(),
		OffExch:   memory.NewOffExchangeStore(),
		Micro:     memory.NewMicrostructureStore(),
		Events:    memory.NewRotationEventStore(),
		Studies:   memory.NewEventStudyStore(),
	}
}

// Seed populates the stores with one issuer-quarter of data: a 40%
// reduction by FUND-ALPHA mid-quarter, partial absorption by FUND-BETA,
// a short-interest unwind across the quarter end, a high-frequency desk
// building through the dump, 140 days of returns for the event study
// and a high-confidence microstructure read.
func Seed(ctx context.Context, s *Stores) error {
	if err := s.Master.Insert(ctx, Issuer, Identifier); err != nil {
		return fmt.Errorf("seed security master: %w", err)
	}

	positions := []*domain.PositionSnapshot{
		{Holder: "FUND-ALPHA", Identifier: Identifier, AsOf: date(2023, 12, 31), Shares: 1000000},
		{Holder: "FUND-ALPHA", Identifier: Identifier, AsOf: AnchorDate, Shares: 600000},
		{Holder: "FUND-BETA", Identifier: Identifier, AsOf: date(2023, 12, 31), Shares: 200000, CallShares: 5000},
		{Holder: "FUND-BETA", Identifier: Identifier, AsOf: date(2024, 3, 15), Shares: 350000, CallShares: 45000},
		{Holder: "FUND-BETA", Identifier: Identifier, AsOf: date(2024, 5, 15), Shares: 380000, CallShares: 45000},
	}
	if err := s.Positions.InsertBulk(ctx, positions); err != nil {
		return fmt.Errorf("seed positions: %w", err)
	}

	ownership := []*domain.OwnershipSnapshot{
		{Holder: "FUND-GAMMA", Issuer: Issuer, EventDate: date(2023, 11, 10), SharesEstimate: 800000, PctOfClass: 8.0},
		{Holder: "FUND-GAMMA", Issuer: Issuer, EventDate: date(2024, 3, 5), SharesEstimate: 400000, PctOfClass: 4.0},
	}
	if err := s.Ownership.InsertBulk(ctx, ownership); err != nil {
		return fmt.Errorf("seed ownership: %w", err)
	}

	hf := []*domain.HighFrequencyPosition{
		{Holder: "DESK-1", Identifier: Identifier, AsOf: date(2023, 12, 20), Shares: 20000},
		{Holder: "DESK-1", Identifier: Identifier, AsOf: date(2024, 2, 20), Shares: 120000},
		{Holder: "DESK-1", Identifier: Identifier, AsOf: date(2024, 4, 10), Shares: 160000},
	}
	if err := s.HF.InsertBulk(ctx, hf); err != nil {
		return fmt.Errorf("seed high-frequency positions: %w", err)
	}

	shortInterest := []*domain.ShortInterestReading{
		{Issuer: Issuer, SettleDate: date(2024, 3, 15), ShortShares: 500000},
		{Issuer: Issuer, SettleDate: date(2024, 4, 15), ShortShares: 300000},
	}
	if err := s.ShortInt.InsertBulk(ctx, shortInterest); err != nil {
		return fmt.Errorf("seed short interest: %w", err)
	}

	returns := make([]*domain.DailyReturn, 0, 140)
	start := date(2024, 2, 1)
	for i := 0; i < 140; i++ {
		// A drifting series with a mild post-dump slide.
		ret := 0.001
		if i > 14 && i < 45 {
			ret = -0.004
		}
		returns = append(returns, &domain.DailyReturn{
			Issuer:          Issuer,
			Date:            start.AddDate(0, 0, i),
			Return:          ret,
			BenchmarkReturn: 0.0005,
		})
	}
	if err := s.Returns.InsertBulk(ctx, returns); err != nil {
		return fmt.Errorf("seed daily returns: %w", err)
	}

	offExchange := []*domain.OffExchangeRatio{
		{Symbol: Symbol, Date: AnchorDate.AddDate(0, 0, -2), Ratio: 0.42},
		{Symbol: Symbol, Date: AnchorDate.AddDate(0, 0, 1), Ratio: 0.51},
		{Symbol: Symbol, Date: AnchorDate.AddDate(0, 0, 3), Ratio: 0.47},
	}
	if err := s.OffExch.InsertBulk(ctx, offExchange); err != nil {
		return fmt.Errorf("seed off-exchange ratios: %w", err)
	}

	s.Micro.Put(Symbol, &domain.MicrostructureSignals{
		VpinAvg:              0.55,
		VpinSpike:            0.82,
		LambdaAvg:            0.31,
		OrderImbalanceAvg:    -0.18,
		BlockRatioAvg:        0.22,
		FlowAttributionScore: 0.64,
		Confidence:           0.8,
	})

	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
