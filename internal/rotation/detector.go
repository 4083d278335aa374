package rotation

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// Detector finds qualifying large reductions in holder positions via
// two independent passes: quarterly position snapshot deltas and
// beneficial-ownership disclosures.
type Detector struct {
	contexts  *ContextBuilder
	ownership storage.OwnershipStore
	anomaly   *AnomalyScorer
	params    Params
	newID     func() string
}

// NewDetector creates a dump event detector.
func NewDetector(contexts *ContextBuilder, ownership storage.OwnershipStore, anomaly *AnomalyScorer, params Params) *Detector {
	return &Detector{
		contexts:  contexts,
		ownership: ownership,
		anomaly:   anomaly,
		params:    params,
		newID:     uuid.NewString,
	}
}

// WithIDGenerator overrides cluster ID generation. Test hook.
func (d *Detector) WithIDGenerator(newID func() string) *Detector {
	d.newID = newID
	return d
}

// Detect returns all dump events for (issuer, bounds), ordered by
// anchor date ASC, holder ASC. A holder may appear via either or both
// passes with distinct anchor dates.
func (d *Detector) Detect(ctx context.Context, issuer string, bounds domain.QuarterBounds) ([]*domain.DumpEvent, error) {
	dc, err := d.contexts.Build(ctx, issuer, bounds)
	if err != nil {
		return nil, err
	}

	events, err := d.detectFromDeltas(ctx, dc)
	if err != nil {
		return nil, err
	}

	ownershipEvents, err := d.detectFromOwnership(ctx, issuer, bounds, dc.Identifiers)
	if err != nil {
		return nil, err
	}
	events = append(events, ownershipEvents...)

	sort.Slice(events, func(i, j int) bool {
		if !events[i].AnchorDate.Equal(events[j].AnchorDate) {
			return events[i].AnchorDate.Before(events[j].AnchorDate)
		}
		return events[i].Holder < events[j].Holder
	})
	return events, nil
}

// detectFromDeltas scans holder delta sequences for in-quarter
// reductions at or beyond the threshold.
func (d *Detector) detectFromDeltas(ctx context.Context, dc *DumpContext) ([]*domain.DumpEvent, error) {
	holders := make([]string, 0, len(dc.Deltas))
	for h := range dc.Deltas {
		holders = append(holders, h)
	}
	sort.Strings(holders)

	var events []*domain.DumpEvent
	for _, holder := range holders {
		for _, delta := range dc.Deltas[holder] {
			if !dc.Bounds.Contains(delta.AsOf) {
				continue
			}
			if delta.PrevShares <= 0 || delta.PctDelta > -d.params.MinDumpPct {
				continue
			}

			z, err := d.anomaly.DumpZ(ctx, holder, dc.Identifiers, delta.PctDelta, delta.AsOf)
			if err != nil {
				return nil, err
			}
			events = append(events, &domain.DumpEvent{
				ClusterID:  d.newID(),
				Issuer:     dc.Issuer,
				Holder:     holder,
				AnchorDate: delta.AsOf,
				PctDelta:   delta.PctDelta,
				Shares:     -delta.DeltaShares,
				DumpZ:      z,
				Source:     domain.DumpSourceHolderDelta,
			})
		}
	}
	return events, nil
}

// detectFromOwnership scans beneficial-ownership snapshots pairwise per
// holder. The scan window reaches back before quarter start so the
// first in-quarter disclosure has a predecessor to delta against.
func (d *Detector) detectFromOwnership(ctx context.Context, issuer string, bounds domain.QuarterBounds, identifiers []string) ([]*domain.DumpEvent, error) {
	from := bounds.Start.AddDate(0, 0, -d.params.OwnershipLookbackDays)
	rows, err := d.ownership.ListByIssuer(ctx, issuer, from, bounds.End)
	if err != nil {
		return nil, fmt.Errorf("list ownership snapshots for %s: %w", issuer, err)
	}

	byHolder := make(map[string][]*domain.OwnershipSnapshot)
	for _, r := range rows {
		byHolder[r.Holder] = append(byHolder[r.Holder], r)
	}
	holders := make([]string, 0, len(byHolder))
	for h := range byHolder {
		holders = append(holders, h)
	}
	sort.Strings(holders)

	var events []*domain.DumpEvent
	for _, holder := range holders {
		series := byHolder[holder]
		sort.Slice(series, func(i, j int) bool {
			return series[i].EventDate.Before(series[j].EventDate)
		})

		for i := 1; i < len(series); i++ {
			prev, curr := series[i-1], series[i]
			anchor := domain.DateOnly(curr.EventDate)
			if !bounds.Contains(anchor) {
				continue
			}

			prevMag, currMag, shares := ownershipMagnitudes(prev, curr)
			if prevMag <= 0 {
				continue
			}
			pctDelta := (currMag - prevMag) / prevMag
			if pctDelta > -d.params.MinDumpPct {
				continue
			}

			z, err := d.anomaly.DumpZ(ctx, holder, identifiers, pctDelta, anchor)
			if err != nil {
				return nil, err
			}
			events = append(events, &domain.DumpEvent{
				ClusterID:  d.newID(),
				Issuer:     issuer,
				Holder:     holder,
				AnchorDate: anchor,
				PctDelta:   pctDelta,
				Shares:     shares,
				DumpZ:      z,
				Source:     domain.DumpSourceOwnership,
			})
		}
	}
	return events, nil
}

// ownershipMagnitudes picks the best available magnitude field for a
// snapshot pair: share estimates when both filings carry one, otherwise
// percent of class. The share magnitude is only known on the shares
// path.
func ownershipMagnitudes(prev, curr *domain.OwnershipSnapshot) (prevMag, currMag, shares float64) {
	if prev.SharesEstimate > 0 && curr.SharesEstimate > 0 {
		diff := curr.SharesEstimate - prev.SharesEstimate
		if diff < 0 {
			diff = -diff
		}
		return prev.SharesEstimate, curr.SharesEstimate, diff
	}
	return prev.PctOfClass, curr.PctOfClass, 0
}
