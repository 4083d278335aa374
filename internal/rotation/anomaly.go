package rotation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/stats"
	"rotation-lab/internal/storage"
)

// AnomalyScorer computes the robust anomaly score of a current
// reduction against the holder's own trailing history.
type AnomalyScorer struct {
	positions storage.PositionSnapshotStore
	params    Params
}

// NewAnomalyScorer creates an anomaly scorer over the position store.
func NewAnomalyScorer(positions storage.PositionSnapshotStore, params Params) *AnomalyScorer {
	return &AnomalyScorer{positions: positions, params: params}
}

// DumpZ scores the holder's current fractional reduction against its
// quarterly reduction history over the issuer's identifiers. With fewer
// than MinHistoryObservations historical reductions the coarse fallback
// applies: FallbackZ for reductions at or beyond MinDumpPct, 0
// otherwise, so sparse history never manufactures statistical
// confidence.
func (a *AnomalyScorer) DumpZ(ctx context.Context, holder string, identifiers []string, currentDelta float64, anchor time.Time) (float64, error) {
	history, err := a.historicalReductions(ctx, holder, identifiers, anchor)
	if err != nil {
		return 0, err
	}

	absDelta := abs(currentDelta)
	if len(history) < a.params.MinHistoryObservations {
		if absDelta >= a.params.MinDumpPct {
			return a.params.FallbackZ, nil
		}
		return 0, nil
	}

	return abs(stats.RobustZ(absDelta, history)), nil
}

// historicalReductions builds one observation per historical quarter:
// the absolute value of the holder's summed negative per-identifier
// fractional deltas for that quarter. Quarters with no net reduction
// are discarded.
func (a *AnomalyScorer) historicalReductions(ctx context.Context, holder string, identifiers []string, anchor time.Time) ([]float64, error) {
	from := anchor.AddDate(0, 0, -a.params.HistoryDays)
	snaps, err := a.positions.ListByIdentifiers(ctx, identifiers, from, anchor)
	if err != nil {
		return nil, fmt.Errorf("list holder history for %s: %w", holder, err)
	}

	// Per-identifier quarterly share totals: duplicates on the same date
	// sum, a later date within the quarter supersedes an earlier one.
	type idQuarter struct {
		identifier string
		quarterEnd time.Time
	}
	type quarterTotal struct {
		asof   time.Time
		shares float64
	}
	totals := make(map[idQuarter]quarterTotal)
	quarterSet := make(map[time.Time]struct{})
	for _, s := range snaps {
		if s.Holder != holder {
			continue
		}
		asof := domain.DateOnly(s.AsOf)
		k := idQuarter{identifier: s.Identifier, quarterEnd: domain.QuarterEndOf(asof)}
		quarterSet[k.quarterEnd] = struct{}{}

		cur, ok := totals[k]
		switch {
		case !ok || asof.After(cur.asof):
			totals[k] = quarterTotal{asof: asof, shares: s.Shares}
		case asof.Equal(cur.asof):
			cur.shares += s.Shares
			totals[k] = cur
		}
	}
	if len(quarterSet) < 2 {
		return nil, nil
	}

	quarters := make([]time.Time, 0, len(quarterSet))
	for q := range quarterSet {
		quarters = append(quarters, q)
	}
	sort.Slice(quarters, func(i, j int) bool { return quarters[i].Before(quarters[j]) })

	var observations []float64
	for i := 1; i < len(quarters); i++ {
		prevQ, currQ := quarters[i-1], quarters[i]
		// Only strictly adjacent quarters form a quarter-over-quarter pair.
		if !domain.ShiftQuarterEnd(prevQ, 1).Equal(currQ) {
			continue
		}

		reduction := 0.0
		for _, id := range identifiers {
			prev, okPrev := totals[idQuarter{identifier: id, quarterEnd: prevQ}]
			curr, okCurr := totals[idQuarter{identifier: id, quarterEnd: currQ}]
			if !okPrev || !okCurr || prev.shares <= 0 {
				continue
			}
			pct := (curr.shares - prev.shares) / prev.shares
			if pct < 0 {
				reduction += pct
			}
		}
		if reduction < 0 {
			observations = append(observations, -reduction)
		}
	}
	return observations, nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
