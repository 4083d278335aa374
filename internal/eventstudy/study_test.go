package eventstudy

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage/memory"
)

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// seedReturns writes n consecutive daily rows starting at start, each
// with the given constant abnormal return (benchmark fixed at zero).
func seedReturns(t *testing.T, store *memory.DailyReturnStore, issuer string, start time.Time, n int, abnormal float64) {
	t.Helper()
	rows := make([]*domain.DailyReturn, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, &domain.DailyReturn{
			Issuer: issuer,
			Date:   start.AddDate(0, 0, i),
			Return: abnormal,
		})
	}
	if err := store.InsertBulk(context.Background(), rows); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}
}

func newTestRunner(returns *memory.DailyReturnStore, studies *memory.EventStudyStore) *Runner {
	return NewRunner(returns, nil, nil, studies, DefaultWindows(), zerolog.Nop())
}

func TestRunEmptyIssuer(t *testing.T) {
	r := newTestRunner(memory.NewDailyReturnStore(), nil)
	if _, err := r.Run(context.Background(), "", "", date("2024-02-10")); err == nil {
		t.Error("expected error for empty issuer")
	}
}

func TestRunNoAnchorRow(t *testing.T) {
	returns := memory.NewDailyReturnStore()
	seedReturns(t, returns, "ISS-1", date("2024-01-01"), 10, 0.01)

	r := newTestRunner(returns, nil)
	// Anchor is past the last return row: every statistic stays zero.
	res, err := r.Run(context.Background(), "ISS-1", "", date("2024-06-01"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.CAR != 0 || res.MaxRet != 0 || res.MaxDrawdown != 0 || res.CAR65 != 0 {
		t.Errorf("expected zero result, got %+v", res)
	}
	if res.Issuer != "ISS-1" || res.EventType != domain.EventTypeRotation {
		t.Errorf("identity fields not set: %+v", res)
	}
}

func TestRunEmptySeries(t *testing.T) {
	r := newTestRunner(memory.NewDailyReturnStore(), nil)
	res, err := r.Run(context.Background(), "ISS-1", "", date("2024-02-10"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.CAR != 0 || res.TTPlus20 != 0 {
		t.Errorf("expected zero result on empty series, got %+v", res)
	}
}

func TestComputeConstantSeries(t *testing.T) {
	returns := memory.NewDailyReturnStore()
	// 10 rows before the anchor, the anchor row, 120 after. Constant
	// abnormal return of 1% per row.
	seedReturns(t, returns, "ISS-1", date("2024-01-31"), 131, 0.01)
	anchor := date("2024-02-10")

	r := newTestRunner(returns, nil)
	res, err := r.Run(context.Background(), "ISS-1", "", anchor)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// CAR spans 5 rows back through 20 rows forward of the anchor row
	// inclusive: 26 rows at 0.01 each.
	if got, want := res.CAR, 0.26; math.Abs(got-want) > 1e-12 {
		t.Errorf("CAR = %v, want %v", got, want)
	}
	// Consecutive calendar rows: the +20 observation is 20 days out.
	if res.TTPlus20 != 20 {
		t.Errorf("TTPlus20 = %d, want 20", res.TTPlus20)
	}
	// Monotonically rising cumulative run: peak is the 65-row sum,
	// drawdown never opens.
	if got, want := res.MaxRet, 0.65; math.Abs(got-want) > 1e-12 {
		t.Errorf("MaxRet = %v, want %v", got, want)
	}
	if res.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0", res.MaxDrawdown)
	}
	for _, tc := range []struct {
		name string
		got  float64
		want float64
	}{
		{"CAR5", res.CAR5, 0.06},
		{"CAR10", res.CAR10, 0.11},
		{"CAR20", res.CAR20, 0.21},
		{"CAR40", res.CAR40, 0.41},
		{"CAR65", res.CAR65, 0.66},
	} {
		if math.Abs(tc.got-tc.want) > 1e-12 {
			t.Errorf("%s = %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}

func TestComputeDrawdown(t *testing.T) {
	returns := memory.NewDailyReturnStore()
	anchor := date("2024-03-01")
	// Rise for 5 rows then fall for 10: peak 0.10, trough 0.10-0.20.
	rows := make([]*domain.DailyReturn, 0, 15)
	for i := 0; i < 15; i++ {
		ret := 0.02
		if i >= 5 {
			ret = -0.02
		}
		rows = append(rows, &domain.DailyReturn{
			Issuer: "ISS-1",
			Date:   anchor.AddDate(0, 0, i),
			Return: ret,
		})
	}
	if err := returns.InsertBulk(context.Background(), rows); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	r := newTestRunner(returns, nil)
	res, err := r.Run(context.Background(), "ISS-1", "", anchor)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := res.MaxRet, 0.10; math.Abs(got-want) > 1e-12 {
		t.Errorf("MaxRet = %v, want %v", got, want)
	}
	if got, want := res.MaxDrawdown, 0.20; math.Abs(got-want) > 1e-12 {
		t.Errorf("MaxDrawdown = %v, want %v", got, want)
	}
}

func TestComputeBenchmarkSubtraction(t *testing.T) {
	returns := memory.NewDailyReturnStore()
	anchor := date("2024-03-01")
	rows := []*domain.DailyReturn{
		{Issuer: "ISS-1", Date: anchor, Return: 0.05, BenchmarkReturn: 0.03},
	}
	if err := returns.InsertBulk(context.Background(), rows); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	r := newTestRunner(returns, nil)
	res, err := r.Run(context.Background(), "ISS-1", "", anchor)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got, want := res.CAR, 0.02; math.Abs(got-want) > 1e-12 {
		t.Errorf("CAR = %v, want %v (abnormal, not raw)", got, want)
	}
}

func TestRunDeterministic(t *testing.T) {
	returns := memory.NewDailyReturnStore()
	seedReturns(t, returns, "ISS-1", date("2024-01-31"), 131, 0.013)
	anchor := date("2024-02-10")

	r := newTestRunner(returns, nil)
	first, err := r.Run(context.Background(), "ISS-1", "", anchor)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := r.Run(context.Background(), "ISS-1", "", anchor)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if *first != *second {
		t.Errorf("results differ across identical runs: %+v vs %+v", first, second)
	}
}

func TestRunPersistsWithSymbol(t *testing.T) {
	returns := memory.NewDailyReturnStore()
	seedReturns(t, returns, "ISS-1", date("2024-01-31"), 40, 0.01)
	anchor := date("2024-02-10")
	studies := memory.NewEventStudyStore()

	r := newTestRunner(returns, studies)
	if _, err := r.Run(context.Background(), "ISS-1", "ACME", anchor); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stored, err := studies.GetByKey(context.Background(), "ACME", domain.EventTypeRotation, anchor, "ISS-1")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if stored.CAR == 0 {
		t.Error("persisted result has zero CAR")
	}
}

func TestRunSkipsPersistenceWithoutSymbol(t *testing.T) {
	returns := memory.NewDailyReturnStore()
	seedReturns(t, returns, "ISS-1", date("2024-01-31"), 40, 0.01)
	studies := memory.NewEventStudyStore()

	r := newTestRunner(returns, studies)
	if _, err := r.Run(context.Background(), "ISS-1", "", date("2024-02-10")); err != nil {
		t.Fatalf("Run: %v", err)
	}
	all, err := studies.GetAll(context.Background())
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no persisted studies, got %d", len(all))
	}
}

func TestEnrichCovariates(t *testing.T) {
	returns := memory.NewDailyReturnStore()
	seedReturns(t, returns, "ISS-1", date("2024-01-31"), 40, 0.01)
	anchor := date("2024-02-10")

	offExchange := memory.NewOffExchangeStore()
	err := offExchange.InsertBulk(context.Background(), []*domain.OffExchangeRatio{
		{Symbol: "ACME", Date: anchor.AddDate(0, 0, -1), Ratio: 0.40},
		{Symbol: "ACME", Date: anchor.AddDate(0, 0, 1), Ratio: 0.50},
	})
	if err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	shortInterest := memory.NewShortInterestStore()
	err = shortInterest.InsertBulk(context.Background(), []*domain.ShortInterestReading{
		{Issuer: "ISS-1", SettleDate: anchor.AddDate(0, 0, -10), ShortShares: 500000},
		{Issuer: "ISS-1", SettleDate: anchor.AddDate(0, 0, 50), ShortShares: 400000},
	})
	if err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	r := NewRunner(returns, shortInterest, offExchange, memory.NewEventStudyStore(), DefaultWindows(), zerolog.Nop())
	res, err := r.Run(context.Background(), "ISS-1", "ACME", anchor)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OffExchangeAvg == nil {
		t.Fatal("OffExchangeAvg nil")
	}
	if got, want := *res.OffExchangeAvg, 0.45; math.Abs(got-want) > 1e-12 {
		t.Errorf("OffExchangeAvg = %v, want %v", got, want)
	}
	if res.ShortInterestChange == nil {
		t.Fatal("ShortInterestChange nil")
	}
	if got, want := *res.ShortInterestChange, -0.2; math.Abs(got-want) > 1e-12 {
		t.Errorf("ShortInterestChange = %v, want %v", got, want)
	}
}

func TestEnrichAbsentCovariates(t *testing.T) {
	returns := memory.NewDailyReturnStore()
	seedReturns(t, returns, "ISS-1", date("2024-01-31"), 40, 0.01)

	r := NewRunner(returns, memory.NewShortInterestStore(), memory.NewOffExchangeStore(), memory.NewEventStudyStore(), DefaultWindows(), zerolog.Nop())
	res, err := r.Run(context.Background(), "ISS-1", "ACME", date("2024-02-10"))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.OffExchangeAvg != nil || res.ShortInterestChange != nil {
		t.Errorf("expected nil covariates on empty sources, got %+v", res)
	}
}
