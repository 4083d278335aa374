package reporting

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage/memory"
)

func date(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedEvents(t *testing.T, store *memory.RotationEventStore) {
	t.Helper()
	events := []*domain.RotationEvent{
		{
			ClusterID: "c1", Issuer: "ISS-ACME", Holder: "FUND-ALPHA",
			AnchorDate: date("2024-02-15"),
			QuarterStart: date("2024-01-01"), QuarterEnd: date("2024-03-31"),
			PctDelta: -0.4, SharesDumped: 400000, DumpZ: 2.0,
			USame: 0.375, RScore: 4.375, Gated: true,
		},
		{
			ClusterID: "c2", Issuer: "ISS-ACME", Holder: "FUND-GAMMA",
			AnchorDate: date("2024-03-01"),
			QuarterStart: date("2024-01-01"), QuarterEnd: date("2024-03-31"),
			PctDelta: -0.5, SharesDumped: 100000, DumpZ: 1.0,
			RScore: 0, Gated: false,
		},
		{
			ClusterID: "c3", Issuer: "ISS-OTHER", Holder: "FUND-DELTA",
			AnchorDate: date("2024-05-20"),
			QuarterStart: date("2024-04-01"), QuarterEnd: date("2024-06-30"),
			PctDelta: -0.35, SharesDumped: 250000, DumpZ: 2.0,
			USame: 0.6, RScore: 4.6, Gated: true,
		},
	}
	for _, e := range events {
		if err := store.Upsert(context.Background(), e); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
}

func TestGenerate(t *testing.T) {
	events := memory.NewRotationEventStore()
	seedEvents(t, events)
	studies := memory.NewEventStudyStore()
	err := studies.Upsert(context.Background(), &domain.EventStudyResult{
		Symbol: "ACME", EventType: domain.EventTypeRotation,
		AnchorDate: date("2024-02-15"), Issuer: "ISS-ACME",
		CAR: -0.05, CAR20: -0.04, CAR65: -0.09, MaxDrawdown: 0.11,
	})
	if err != nil {
		t.Fatalf("Upsert study: %v", err)
	}

	fixed := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(events, studies).WithClock(func() time.Time { return fixed })

	report, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if !report.GeneratedAt.Equal(fixed) {
		t.Errorf("GeneratedAt = %s, want fixed clock", report.GeneratedAt)
	}
	if report.IssuerCount != 2 || report.QuarterCount != 2 {
		t.Errorf("IssuerCount = %d, QuarterCount = %d, want 2 and 2", report.IssuerCount, report.QuarterCount)
	}
	if report.Summary.TotalEvents != 3 || report.Summary.GatedEvents != 2 {
		t.Errorf("summary = %+v, want 3 total, 2 gated", report.Summary)
	}
	if report.Summary.DistinctHolders != 3 {
		t.Errorf("DistinctHolders = %d, want 3", report.Summary.DistinctHolders)
	}
	if !report.Summary.DateRangeStart.Equal(date("2024-02-15")) || !report.Summary.DateRangeEnd.Equal(date("2024-05-20")) {
		t.Errorf("date range = %s..%s", report.Summary.DateRangeStart, report.Summary.DateRangeEnd)
	}

	// Top events sorted by score descending.
	if len(report.TopEvents) != 3 {
		t.Fatalf("len(TopEvents) = %d, want 3", len(report.TopEvents))
	}
	if report.TopEvents[0].Holder != "FUND-DELTA" || report.TopEvents[1].Holder != "FUND-ALPHA" {
		t.Errorf("top events out of order: %s, %s", report.TopEvents[0].Holder, report.TopEvents[1].Holder)
	}

	// Quarter rollup sorted ascending, mean over gated only.
	if len(report.QuarterSummaries) != 2 {
		t.Fatalf("len(QuarterSummaries) = %d, want 2", len(report.QuarterSummaries))
	}
	q1 := report.QuarterSummaries[0]
	if !q1.QuarterEnd.Equal(date("2024-03-31")) || q1.TotalEvents != 2 || q1.GatedEvents != 1 {
		t.Errorf("q1 rollup = %+v", q1)
	}
	if math.Abs(q1.MeanRScore-4.375) > 1e-9 || math.Abs(q1.MaxRScore-4.375) > 1e-9 {
		t.Errorf("q1 scores = mean %v max %v, want 4.375", q1.MeanRScore, q1.MaxRScore)
	}

	if len(report.Studies) != 1 || report.Studies[0].Symbol != "ACME" {
		t.Errorf("studies = %+v", report.Studies)
	}
}

func TestGenerateTopNCap(t *testing.T) {
	events := memory.NewRotationEventStore()
	seedEvents(t, events)
	g := NewGenerator(events, nil).WithTopN(1)

	report, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(report.TopEvents) != 1 {
		t.Fatalf("len(TopEvents) = %d, want 1", len(report.TopEvents))
	}
	if report.TopEvents[0].Holder != "FUND-DELTA" {
		t.Errorf("TopEvents[0].Holder = %s, want FUND-DELTA", report.TopEvents[0].Holder)
	}
}

func TestGenerateEmpty(t *testing.T) {
	g := NewGenerator(memory.NewRotationEventStore(), nil)
	report, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if report.Summary.TotalEvents != 0 || len(report.TopEvents) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
	if !report.Summary.DateRangeStart.IsZero() {
		t.Errorf("DateRangeStart = %s, want zero", report.Summary.DateRangeStart)
	}
}

func TestRenderMarkdown(t *testing.T) {
	events := memory.NewRotationEventStore()
	seedEvents(t, events)
	g := NewGenerator(events, nil).WithClock(func() time.Time {
		return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	})
	report, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	md := RenderMarkdown(report)
	for _, want := range []string{
		"# Rotation Scan Report",
		"| Total Events | 3 |",
		"| Gated Events | 2 |",
		"FUND-DELTA",
		"## Per-Quarter Rollup",
		"| 2024-03-31 | 2 | 1 |",
		"No event studies available.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderMarkdownDeterministic(t *testing.T) {
	events := memory.NewRotationEventStore()
	seedEvents(t, events)
	fixed := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	g := NewGenerator(events, nil).WithClock(func() time.Time { return fixed })

	first, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	second, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if RenderMarkdown(first) != RenderMarkdown(second) {
		t.Error("identical inputs rendered different markdown")
	}
}

func TestRenderCSV(t *testing.T) {
	rows := []EventRow{
		{
			Issuer: "ISS-ACME", Holder: "FUND-ALPHA", AnchorDate: date("2024-02-15"),
			PctDelta: -0.4, SharesDumped: 400000, DumpZ: 2.0,
			USame: 0.375, RScore: 4.375, Gated: true,
		},
	}
	out := RenderCSV(rows)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("len(lines) = %d, want 2", len(lines))
	}
	if !strings.HasPrefix(lines[0], "issuer,holder,anchor_date") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "ISS-ACME,FUND-ALPHA,2024-02-15,-0.400000,400000,") {
		t.Errorf("row = %q", lines[1])
	}
	if !strings.HasSuffix(lines[1], ",true") {
		t.Errorf("row = %q, want gated true suffix", lines[1])
	}
}
