package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders rotation event rows as CSV string.
func RenderCSV(events []EventRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("issuer,holder,anchor_date,pct_delta,shares_dumped,dump_z,")
	sb.WriteString("u_same,u_next,short_relief,r_score,gated\n")

	// Rows
	for _, e := range events {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%.6f,%.0f,%.6f,%.6f,%.6f,%.6f,%.6f,%t\n",
			e.Issuer,
			e.Holder,
			e.AnchorDate.Format(dateLayout),
			e.PctDelta,
			e.SharesDumped,
			e.DumpZ,
			e.USame,
			e.UNext,
			e.ShortRelief,
			e.RScore,
			e.Gated,
		))
	}

	return sb.String()
}
