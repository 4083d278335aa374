// Package eventstudy computes the post-hoc abnormal-return study for a
// rotation anchor date.
package eventstudy

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"rotation-lab/internal/config"
	"rotation-lab/internal/domain"
	"rotation-lab/internal/lookup"
	"rotation-lab/internal/storage"
)

// Study window row offsets. The 65-row lookahead also bounds the
// running peak/drawdown scan.
var horizonOffsets = [...]int{5, 10, 20, 40, 65}

const (
	carBackRows    = 5
	carForwardRows = 20
	lookaheadRows  = 65
)

// Windows holds the calendar-day bounds for the return series pull and
// the covariate reads.
type Windows struct {
	PreDays                  int
	PostDays                 int
	CovariateWindowDays      int
	ShortInterestHorizonDays int
}

// DefaultWindows returns the standard study windows.
func DefaultWindows() Windows {
	return Windows{
		PreDays:                  10,
		PostDays:                 120,
		CovariateWindowDays:      5,
		ShortInterestHorizonDays: 45,
	}
}

// WindowsFromConfig maps the study section of the configuration onto
// Windows.
func WindowsFromConfig(c config.StudyConfig) Windows {
	return Windows{
		PreDays:                  c.PreDays,
		PostDays:                 c.PostDays,
		CovariateWindowDays:      c.CovariateWindowDays,
		ShortInterestHorizonDays: c.ShortInterestHorizonDays,
	}
}

// Runner computes event studies and optionally persists them.
type Runner struct {
	returns       storage.DailyReturnStore
	shortInterest storage.ShortInterestStore
	offExchange   storage.OffExchangeStore
	studies       storage.EventStudyStore
	windows       Windows
	log           zerolog.Logger
}

// NewRunner creates an event study runner. shortInterest, offExchange
// and studies may be nil when covariate enrichment and persistence are
// not wanted.
func NewRunner(returns storage.DailyReturnStore, shortInterest storage.ShortInterestStore, offExchange storage.OffExchangeStore, studies storage.EventStudyStore, windows Windows, log zerolog.Logger) *Runner {
	return &Runner{
		returns:       returns,
		shortInterest: shortInterest,
		offExchange:   offExchange,
		studies:       studies,
		windows:       windows,
		log:           log,
	}
}

// Run computes the study for (issuer, anchor). When symbol is non-empty
// the result is enriched with covariates and persisted under
// (symbol, event_type, anchor_date, issuer); persistence failure is
// fatal, covariate absence is not. An anchor past the end of the return
// series yields an all-zero result, never an error.
func (r *Runner) Run(ctx context.Context, issuer, symbol string, anchor time.Time) (*domain.EventStudyResult, error) {
	if issuer == "" {
		return nil, fmt.Errorf("event study: empty issuer")
	}
	if anchor.IsZero() {
		return nil, fmt.Errorf("event study: zero anchor date")
	}
	anchor = domain.DateOnly(anchor)

	from := anchor.AddDate(0, 0, -r.windows.PreDays)
	to := anchor.AddDate(0, 0, r.windows.PostDays)
	rows, err := r.returns.ListByIssuer(ctx, issuer, from, to)
	if err != nil {
		return nil, fmt.Errorf("list daily returns for %s: %w", issuer, err)
	}

	result := compute(rows, anchor)
	result.Issuer = issuer
	result.Symbol = symbol
	result.EventType = domain.EventTypeRotation
	result.AnchorDate = anchor

	if symbol != "" {
		if err := r.enrich(ctx, issuer, symbol, anchor, result); err != nil {
			return nil, err
		}
		if r.studies != nil {
			if err := r.studies.Upsert(ctx, result); err != nil {
				return nil, fmt.Errorf("persist event study for %s/%s: %w", symbol, issuer, err)
			}
		}
		r.log.Debug().
			Str("issuer", issuer).
			Str("symbol", symbol).
			Str("anchor", anchor.Format(domain.DateLayout)).
			Float64("car", result.CAR).
			Msg("event study persisted")
	}

	return result, nil
}

// compute derives all study statistics from the return series. Pure and
// deterministic: identical inputs yield bit-identical outputs.
func compute(rows []*domain.DailyReturn, anchor time.Time) *domain.EventStudyResult {
	result := &domain.EventStudyResult{}

	anchorIdx := lookup.ReturnIndexAtOrAfter(anchor, rows)
	if anchorIdx < 0 {
		return result
	}
	last := len(rows) - 1

	abnormal := make([]float64, len(rows))
	for i, row := range rows {
		abnormal[i] = row.Return - row.BenchmarkReturn
	}

	carFrom := anchorIdx - carBackRows
	if carFrom < 0 {
		carFrom = 0
	}
	carTo := anchorIdx + carForwardRows
	if carTo > last {
		carTo = last
	}
	for i := carFrom; i <= carTo; i++ {
		result.CAR += abnormal[i]
	}

	if anchorIdx+carForwardRows <= last {
		d := rows[anchorIdx+carForwardRows].Date.Sub(anchor)
		result.TTPlus20 = int(d.Hours() / 24)
	}

	// Running cumulative abnormal return over the lookahead rows from
	// the anchor forward.
	cum := 0.0
	peak := 0.0
	for i := anchorIdx; i <= last && i < anchorIdx+lookaheadRows; i++ {
		cum += abnormal[i]
		if cum > peak {
			peak = cum
		}
		if cum > result.MaxRet {
			result.MaxRet = cum
		}
		if dd := peak - cum; dd > result.MaxDrawdown {
			result.MaxDrawdown = dd
		}
	}

	horizons := [len(horizonOffsets)]*float64{
		&result.CAR5, &result.CAR10, &result.CAR20, &result.CAR40, &result.CAR65,
	}
	for h, offset := range horizonOffsets {
		end := anchorIdx + offset
		if end > last {
			end = last
		}
		sum := 0.0
		for i := anchorIdx; i <= end; i++ {
			sum += abnormal[i]
		}
		*horizons[h] = sum
	}

	return result
}

// enrich attaches the off-exchange and short-interest covariates.
// Absence of either source or either reading leaves the corresponding
// field nil.
func (r *Runner) enrich(ctx context.Context, issuer, symbol string, anchor time.Time, result *domain.EventStudyResult) error {
	if r.offExchange != nil {
		from := anchor.AddDate(0, 0, -r.windows.CovariateWindowDays)
		to := anchor.AddDate(0, 0, r.windows.CovariateWindowDays)
		ratios, err := r.offExchange.ListBySymbol(ctx, symbol, from, to)
		if err != nil {
			return fmt.Errorf("list off-exchange ratios for %s: %w", symbol, err)
		}
		if len(ratios) > 0 {
			sum := 0.0
			for _, row := range ratios {
				sum += row.Ratio
			}
			avg := sum / float64(len(ratios))
			result.OffExchangeAvg = &avg
		}
	}

	if r.shortInterest != nil {
		horizon := r.windows.ShortInterestHorizonDays
		from := anchor.AddDate(0, 0, -horizon)
		to := anchor.AddDate(0, 0, 2*horizon)
		readings, err := r.shortInterest.ListByIssuer(ctx, issuer, from, to)
		if err != nil {
			return fmt.Errorf("list short interest for %s: %w", issuer, err)
		}
		before := lookup.ShortInterestAtOrBefore(anchor, readings)
		after := lookup.ShortInterestAtOrAfter(anchor.AddDate(0, 0, horizon), readings)
		if before != nil && after != nil && before.ShortShares > 0 {
			change := (after.ShortShares - before.ShortShares) / before.ShortShares
			result.ShortInterestChange = &change
		}
	}

	return nil
}
