// Package lookup provides nearest-neighbor lookups over date-ordered
// series. Inputs must be sorted by date ASC.
package lookup

import (
	"time"

	"rotation-lab/internal/domain"
)

// ShortInterestAtOrBefore returns the reading with the latest
// SettleDate at or before target. Returns nil when no such reading
// exists; absence is a valid outcome, not an error.
func ShortInterestAtOrBefore(target time.Time, readings []*domain.ShortInterestReading) *domain.ShortInterestReading {
	for i := len(readings) - 1; i >= 0; i-- {
		if !readings[i].SettleDate.After(target) {
			return readings[i]
		}
	}
	return nil
}

// ShortInterestAtOrAfter returns the reading with the earliest
// SettleDate at or after target. Returns nil when no such reading
// exists.
func ShortInterestAtOrAfter(target time.Time, readings []*domain.ShortInterestReading) *domain.ShortInterestReading {
	for _, r := range readings {
		if !r.SettleDate.Before(target) {
			return r
		}
	}
	return nil
}

// ReturnIndexAtOrAfter returns the index of the first row with Date at
// or after target, or -1 when no row qualifies.
func ReturnIndexAtOrAfter(target time.Time, rows []*domain.DailyReturn) int {
	for i, r := range rows {
		if !r.Date.Before(target) {
			return i
		}
	}
	return -1
}
