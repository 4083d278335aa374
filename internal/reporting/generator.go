// Package reporting produces Markdown and CSV reports from stored
// rotation events and event study results.
package reporting

import (
	"context"
	"sort"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// DefaultTopEvents caps the top-events table.
const DefaultTopEvents = 25

// Generator produces reports from stored data.
type Generator struct {
	eventStore storage.RotationEventStore
	studyStore storage.EventStudyStore
	topN       int
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. studyStore may be nil
// when no event studies were run.
func NewGenerator(eventStore storage.RotationEventStore, studyStore storage.EventStudyStore) *Generator {
	return &Generator{
		eventStore: eventStore,
		studyStore: studyStore,
		topN:       DefaultTopEvents,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithTopN caps the top-events table at n rows.
func (g *Generator) WithTopN(n int) *Generator {
	g.topN = n
	return g
}

// Generate produces a complete scan report.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	events, err := g.eventStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt:      g.now(),
		Summary:          summarize(events),
		TopEvents:        topEvents(events, g.topN),
		QuarterSummaries: quarterSummaries(events),
	}

	issuerSet := make(map[string]struct{})
	quarterSet := make(map[time.Time]struct{})
	for _, e := range events {
		issuerSet[e.Issuer] = struct{}{}
		quarterSet[e.QuarterEnd] = struct{}{}
	}
	report.IssuerCount = len(issuerSet)
	report.QuarterCount = len(quarterSet)

	if g.studyStore != nil {
		studies, err := g.studyStore.GetAll(ctx)
		if err != nil {
			return nil, err
		}
		report.Studies = studyRows(studies)
	}

	return report, nil
}

func summarize(events []*domain.RotationEvent) ScanSummary {
	s := ScanSummary{TotalEvents: len(events)}
	holders := make(map[string]struct{})
	for _, e := range events {
		holders[e.Holder] = struct{}{}
		if e.Gated {
			s.GatedEvents++
		}
		if s.DateRangeStart.IsZero() || e.AnchorDate.Before(s.DateRangeStart) {
			s.DateRangeStart = e.AnchorDate
		}
		if e.AnchorDate.After(s.DateRangeEnd) {
			s.DateRangeEnd = e.AnchorDate
		}
	}
	s.DistinctHolders = len(holders)
	return s
}

// topEvents builds the highest-scoring rows. Ties break on issuer then
// holder so output is stable.
func topEvents(events []*domain.RotationEvent, n int) []EventRow {
	sorted := append([]*domain.RotationEvent(nil), events...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].RScore != sorted[j].RScore {
			return sorted[i].RScore > sorted[j].RScore
		}
		if sorted[i].Issuer != sorted[j].Issuer {
			return sorted[i].Issuer < sorted[j].Issuer
		}
		return sorted[i].Holder < sorted[j].Holder
	})
	if n > 0 && len(sorted) > n {
		sorted = sorted[:n]
	}

	rows := make([]EventRow, len(sorted))
	for i, e := range sorted {
		rows[i] = EventRow{
			Issuer:       e.Issuer,
			Holder:       e.Holder,
			AnchorDate:   e.AnchorDate,
			PctDelta:     e.PctDelta,
			SharesDumped: e.SharesDumped,
			DumpZ:        e.DumpZ,
			USame:        e.USame,
			UNext:        e.UNext,
			ShortRelief:  e.ShortRelief,
			RScore:       e.RScore,
			Gated:        e.Gated,
		}
	}
	return rows
}

func quarterSummaries(events []*domain.RotationEvent) []QuarterRow {
	byQuarter := make(map[time.Time]*QuarterRow)
	for _, e := range events {
		row, ok := byQuarter[e.QuarterEnd]
		if !ok {
			row = &QuarterRow{QuarterEnd: e.QuarterEnd}
			byQuarter[e.QuarterEnd] = row
		}
		row.TotalEvents++
		if !e.Gated {
			continue
		}
		row.GatedEvents++
		row.MeanRScore += e.RScore
		if e.RScore > row.MaxRScore {
			row.MaxRScore = e.RScore
		}
	}

	rows := make([]QuarterRow, 0, len(byQuarter))
	for _, row := range byQuarter {
		if row.GatedEvents > 0 {
			row.MeanRScore /= float64(row.GatedEvents)
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].QuarterEnd.Before(rows[j].QuarterEnd)
	})
	return rows
}

func studyRows(studies []*domain.EventStudyResult) []StudyRow {
	rows := make([]StudyRow, len(studies))
	for i, s := range studies {
		rows[i] = StudyRow{
			Symbol:      s.Symbol,
			Issuer:      s.Issuer,
			AnchorDate:  s.AnchorDate,
			CAR:         s.CAR,
			CAR20:       s.CAR20,
			CAR65:       s.CAR65,
			MaxDrawdown: s.MaxDrawdown,
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].AnchorDate.Equal(rows[j].AnchorDate) {
			return rows[i].AnchorDate.Before(rows[j].AnchorDate)
		}
		return rows[i].Issuer < rows[j].Issuer
	})
	return rows
}
