package rotation

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// DumpContext is the shared computation base for one (issuer, quarter)
// pair: per-holder delta sequences plus the scalar accumulators every
// signal deriver divides by. Cached contexts are shared between
// callers; treat them as read-only.
type DumpContext struct {
	Issuer      string
	Bounds      domain.QuarterBounds
	Identifiers []string

	// Deltas maps holder → chronologically ordered deltas. The sequence
	// may include pre-quarter deltas (the fetch window starts at the
	// previous quarter end); consumers filter by date.
	Deltas map[string][]domain.EntityDelta

	// Accumulators. All non-negative: reductions feed only DumpShares,
	// increases feed only the increase totals.
	DumpShares      float64 // same-quarter reductions, absolute
	SameQtrIncrease float64 // same-quarter positive share deltas
	NextQtrIncrease float64 // next-quarter positive share deltas
	SameQtrOptDelta float64 // same-quarter positive options deltas
	NextQtrOptDelta float64 // next-quarter positive options deltas
}

// IdentifierSource resolves an issuer to its security identifiers.
// Satisfied by storage.SecurityMasterStore and by the resolver chain.
type IdentifierSource interface {
	ListIdentifiers(ctx context.Context, issuer string) ([]string, error)
}

// ContextBuilder builds and memoizes dump contexts.
type ContextBuilder struct {
	identifiers IdentifierSource
	positions   storage.PositionSnapshotStore
	cache       *Cache
}

// NewContextBuilder creates a context builder backed by the given
// identifier source, position store and cache.
func NewContextBuilder(ids IdentifierSource, positions storage.PositionSnapshotStore, cache *Cache) *ContextBuilder {
	return &ContextBuilder{
		identifiers: ids,
		positions:   positions,
		cache:       cache,
	}
}

// Cache exposes the builder's cache for invalidation and observability.
func (b *ContextBuilder) Cache() *Cache {
	return b.cache
}

// Build returns the dump context for (issuer, bounds), reusing the
// cached object on repeated calls with the same key. An issuer with no
// mapped identifiers yields a zero-valued context with correctly
// computed adjacent quarter bounds, never an error.
func (b *ContextBuilder) Build(ctx context.Context, issuer string, bounds domain.QuarterBounds) (*DumpContext, error) {
	if issuer == "" {
		return nil, fmt.Errorf("build dump context: empty issuer")
	}

	key := contextKey{issuer: issuer, start: bounds.Start, end: bounds.End}
	if dc, ok := b.cache.get(key); ok {
		return dc, nil
	}

	dc, err := b.build(ctx, issuer, bounds)
	if err != nil {
		return nil, err
	}
	b.cache.put(key, dc)
	return dc, nil
}

func (b *ContextBuilder) build(ctx context.Context, issuer string, bounds domain.QuarterBounds) (*DumpContext, error) {
	dc := &DumpContext{
		Issuer: issuer,
		Bounds: bounds,
		Deltas: make(map[string][]domain.EntityDelta),
	}

	ids, err := b.identifiers.ListIdentifiers(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("list identifiers for %s: %w", issuer, err)
	}
	if len(ids) == 0 {
		return dc, nil
	}
	dc.Identifiers = ids

	// Fetch one quarter of lead-in so the first in-quarter delta has a
	// predecessor, and one quarter of lookahead for the next-quarter
	// accumulators.
	snaps, err := b.positions.ListByIdentifiers(ctx, ids, bounds.PrevQuarterEnd(), bounds.NextQuarterEnd())
	if err != nil {
		return nil, fmt.Errorf("list position snapshots for %s: %w", issuer, err)
	}

	for holder, series := range aggregateByHolderDate(snaps) {
		deltas := computeDeltas(holder, series)
		dc.Deltas[holder] = deltas
		dc.accumulate(deltas)
	}

	return dc, nil
}

// positionAgg is one holder's aggregate across identifiers for one date.
type positionAgg struct {
	asof   time.Time
	shares float64
	puts   float64
	calls  float64
}

// aggregateByHolderDate sums snapshots per holder+date. Duplicate rows
// for the same holder+date+identifier are summed, not overwritten, and
// multiple identifiers collapse into a single issuer-level position.
func aggregateByHolderDate(snaps []*domain.PositionSnapshot) map[string][]positionAgg {
	type holderDate struct {
		holder string
		asof   time.Time
	}
	byKey := make(map[holderDate]*positionAgg)
	for _, s := range snaps {
		k := holderDate{holder: s.Holder, asof: domain.DateOnly(s.AsOf)}
		agg, ok := byKey[k]
		if !ok {
			agg = &positionAgg{asof: k.asof}
			byKey[k] = agg
		}
		agg.shares += s.Shares
		agg.puts += s.PutShares
		agg.calls += s.CallShares
	}

	byHolder := make(map[string][]positionAgg)
	for k, agg := range byKey {
		byHolder[k.holder] = append(byHolder[k.holder], *agg)
	}
	for holder := range byHolder {
		series := byHolder[holder]
		sort.Slice(series, func(i, j int) bool {
			return series[i].asof.Before(series[j].asof)
		})
		byHolder[holder] = series
	}
	return byHolder
}

// computeDeltas converts a holder's dated aggregates into its delta
// sequence. The first aggregate has no predecessor and produces no
// delta.
func computeDeltas(holder string, series []positionAgg) []domain.EntityDelta {
	if len(series) < 2 {
		return nil
	}

	deltas := make([]domain.EntityDelta, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev, curr := series[i-1], series[i]
		d := domain.EntityDelta{
			Holder:      holder,
			AsOf:        curr.asof,
			DeltaShares: curr.shares - prev.shares,
			OptDelta:    (curr.calls - curr.puts) - (prev.calls - prev.puts),
			PrevShares:  prev.shares,
		}
		if prev.shares != 0 {
			d.PctDelta = d.DeltaShares / prev.shares
		}
		deltas = append(deltas, d)
	}
	return deltas
}

// accumulate folds a holder's deltas into the context's scalar totals,
// bucketing strictly by date-range membership. A date exactly on the
// quarter end is same-quarter; exactly on the next quarter end is
// next-quarter.
func (dc *DumpContext) accumulate(deltas []domain.EntityDelta) {
	for _, d := range deltas {
		switch {
		case dc.Bounds.Contains(d.AsOf):
			if d.DeltaShares < 0 {
				dc.DumpShares += -d.DeltaShares
			} else {
				dc.SameQtrIncrease += d.DeltaShares
			}
			if d.OptDelta > 0 {
				dc.SameQtrOptDelta += d.OptDelta
			}
		case dc.Bounds.ContainsNext(d.AsOf):
			if d.DeltaShares > 0 {
				dc.NextQtrIncrease += d.DeltaShares
			}
			if d.OptDelta > 0 {
				dc.NextQtrOptDelta += d.OptDelta
			}
		}
	}
}
