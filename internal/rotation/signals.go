package rotation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/lookup"
	"rotation-lab/internal/stats"
	"rotation-lab/internal/storage"
)

// SignalSet bundles the four absorption signals derived from one dump
// context. All values are in [0,1].
type SignalSet struct {
	USame       float64
	UNext       float64
	UHFSame     float64
	UHFNext     float64
	OptSame     float64
	OptNext     float64
	ShortRelief float64
}

// UptakeFromFilings returns the fraction of dumped shares absorbed by
// other holders' filing increases, same quarter and next quarter.
// Zeros when the context saw no dump.
func UptakeFromFilings(dc *DumpContext) (uSame, uNext float64) {
	if dc.DumpShares == 0 {
		return 0, 0
	}
	uSame = stats.Clamp(dc.SameQtrIncrease/dc.DumpShares, 0, 1)
	uNext = stats.Clamp(dc.NextQtrIncrease/dc.DumpShares, 0, 1)
	return uSame, uNext
}

// OptionsOverlay returns the positive options-delta accumulators as a
// fraction of dumped shares. Zeros when the context saw no dump or has
// no identifiers.
func OptionsOverlay(dc *DumpContext) (optSame, optNext float64) {
	if dc.DumpShares == 0 || len(dc.Identifiers) == 0 {
		return 0, 0
	}
	optSame = stats.Clamp(dc.SameQtrOptDelta/dc.DumpShares, 0, 1)
	optNext = stats.Clamp(dc.NextQtrOptDelta/dc.DumpShares, 0, 1)
	return optSame, optNext
}

// SignalDeriver derives the signals that need additional store reads:
// the ultra-high-frequency proxy and short-interest relief.
type SignalDeriver struct {
	hf            storage.HighFrequencyPositionStore
	shortInterest storage.ShortInterestStore
	params        Params
}

// NewSignalDeriver creates a signal deriver.
func NewSignalDeriver(hf storage.HighFrequencyPositionStore, shortInterest storage.ShortInterestStore, params Params) *SignalDeriver {
	return &SignalDeriver{hf: hf, shortInterest: shortInterest, params: params}
}

// Derive computes the full signal set for a dump context.
func (s *SignalDeriver) Derive(ctx context.Context, dc *DumpContext) (*SignalSet, error) {
	set := &SignalSet{}
	set.USame, set.UNext = UptakeFromFilings(dc)
	set.OptSame, set.OptNext = OptionsOverlay(dc)

	var err error
	set.UHFSame, set.UHFNext, err = s.UHFProxy(ctx, dc)
	if err != nil {
		return nil, err
	}
	set.ShortRelief, err = s.ShortInterestRelief(ctx, dc)
	if err != nil {
		return nil, err
	}
	return set, nil
}

// UHFProxy returns absorption measured by the ultra-high-frequency
// position source, same and next quarter, as fractions of dumped
// shares. A pre-quarter baseline window anchors the first delta. Zeros
// when the context saw no dump or has no identifiers.
func (s *SignalDeriver) UHFProxy(ctx context.Context, dc *DumpContext) (uhfSame, uhfNext float64, err error) {
	if dc.DumpShares == 0 || len(dc.Identifiers) == 0 {
		return 0, 0, nil
	}

	from := dc.Bounds.Start.AddDate(0, 0, -s.params.UHFBaselineDays)
	rows, err := s.hf.ListByIdentifiers(ctx, dc.Identifiers, from, dc.Bounds.NextQuarterEnd())
	if err != nil {
		return 0, 0, fmt.Errorf("list high-frequency positions for %s: %w", dc.Issuer, err)
	}

	sameInc, nextInc := hfPositiveDeltas(rows, dc.Bounds)
	uhfSame = stats.Clamp(sameInc/dc.DumpShares, 0, 1)
	uhfNext = stats.Clamp(nextInc/dc.DumpShares, 0, 1)
	return uhfSame, uhfNext, nil
}

// hfPositiveDeltas sums positive per-holder deltas bucketed into
// same-quarter and next-quarter windows.
func hfPositiveDeltas(rows []*domain.HighFrequencyPosition, bounds domain.QuarterBounds) (sameInc, nextInc float64) {
	type agg struct {
		asof   time.Time
		shares float64
	}
	byHolder := make(map[string][]agg)
	for _, r := range rows {
		asof := domain.DateOnly(r.AsOf)
		series := byHolder[r.Holder]
		// Rows for a holder arrive date-ordered; same-date rows across
		// identifiers collapse into one aggregate.
		if n := len(series); n > 0 && series[n-1].asof.Equal(asof) {
			series[n-1].shares += r.Shares
		} else {
			series = append(series, agg{asof: asof, shares: r.Shares})
		}
		byHolder[r.Holder] = series
	}

	for _, series := range byHolder {
		sort.Slice(series, func(i, j int) bool {
			return series[i].asof.Before(series[j].asof)
		})
		for i := 1; i < len(series); i++ {
			delta := series[i].shares - series[i-1].shares
			if delta <= 0 {
				continue
			}
			switch {
			case bounds.Contains(series[i].asof):
				sameInc += delta
			case bounds.ContainsNext(series[i].asof):
				nextInc += delta
			}
		}
	}
	return sameInc, nextInc
}

// ShortInterestRelief returns the fraction of short interest that
// unwound around the quarter end: the readings nearest at-or-before and
// nearest at-or-after the quarter end are compared within
// [prevQuarterEnd, nextQuarterEnd]. Zero when either reading is
// missing, the before reading is non-positive, or the context saw no
// dump.
func (s *SignalDeriver) ShortInterestRelief(ctx context.Context, dc *DumpContext) (float64, error) {
	if dc.DumpShares == 0 {
		return 0, nil
	}

	readings, err := s.shortInterest.ListByIssuer(ctx, dc.Issuer, dc.Bounds.PrevQuarterEnd(), dc.Bounds.NextQuarterEnd())
	if err != nil {
		return 0, fmt.Errorf("list short interest for %s: %w", dc.Issuer, err)
	}

	before := lookup.ShortInterestAtOrBefore(dc.Bounds.End, readings)
	after := lookup.ShortInterestAtOrAfter(dc.Bounds.End, readings)
	if before == nil || after == nil || before.ShortShares <= 0 {
		return 0, nil
	}

	relief := before.ShortShares - after.ShortShares
	if relief < 0 {
		relief = 0
	}
	return stats.Clamp(relief/before.ShortShares, 0, 1), nil
}
