package reporting

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Rotation Scan Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Issuers: %d | Quarters: %d\n\n", r.IssuerCount, r.QuarterCount))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Events | %d |\n", r.Summary.TotalEvents))
	sb.WriteString(fmt.Sprintf("| Gated Events | %d |\n", r.Summary.GatedEvents))
	sb.WriteString(fmt.Sprintf("| Distinct Holders | %d |\n", r.Summary.DistinctHolders))
	if !r.Summary.DateRangeStart.IsZero() {
		sb.WriteString(fmt.Sprintf("| First Anchor | %s |\n", r.Summary.DateRangeStart.Format(dateLayout)))
		sb.WriteString(fmt.Sprintf("| Last Anchor | %s |\n", r.Summary.DateRangeEnd.Format(dateLayout)))
	}
	sb.WriteString("\n")

	// Top Events
	sb.WriteString("## Top Rotation Events\n\n")
	if len(r.TopEvents) > 0 {
		sb.WriteString("| Issuer | Holder | Anchor | PctDelta | Shares | DumpZ | USame | UNext | ShortRelief | RScore | Gated |\n")
		sb.WriteString("|--------|--------|--------|----------|--------|-------|-------|-------|-------------|--------|-------|\n")
		for _, e := range r.TopEvents {
			gated := "no"
			if e.Gated {
				gated = "yes"
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f | %.0f | %.2f | %.4f | %.4f | %.4f | %.4f | %s |\n",
				e.Issuer, e.Holder, e.AnchorDate.Format(dateLayout),
				e.PctDelta, e.SharesDumped, e.DumpZ,
				e.USame, e.UNext, e.ShortRelief, e.RScore, gated))
		}
	} else {
		sb.WriteString("No rotation events detected.\n")
	}
	sb.WriteString("\n")

	// Per-Quarter Rollup
	sb.WriteString("## Per-Quarter Rollup\n\n")
	if len(r.QuarterSummaries) > 0 {
		sb.WriteString("| Quarter End | Events | Gated | Mean RScore | Max RScore |\n")
		sb.WriteString("|-------------|--------|-------|-------------|------------|\n")
		for _, q := range r.QuarterSummaries {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4f | %.4f |\n",
				q.QuarterEnd.Format(dateLayout), q.TotalEvents, q.GatedEvents,
				q.MeanRScore, q.MaxRScore))
		}
	} else {
		sb.WriteString("No quarters scanned.\n")
	}
	sb.WriteString("\n")

	// Event Studies
	sb.WriteString("## Event Studies\n\n")
	if len(r.Studies) > 0 {
		sb.WriteString("| Symbol | Issuer | Anchor | CAR | CAR20 | CAR65 | MaxDD |\n")
		sb.WriteString("|--------|--------|--------|-----|-------|-------|-------|\n")
		for _, s := range r.Studies {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.4f | %.4f | %.4f | %.4f |\n",
				s.Symbol, s.Issuer, s.AnchorDate.Format(dateLayout),
				s.CAR, s.CAR20, s.CAR65, s.MaxDrawdown))
		}
	} else {
		sb.WriteString("No event studies available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
