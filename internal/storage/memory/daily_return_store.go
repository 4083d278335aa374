package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// DailyReturnStore is an in-memory implementation of
// storage.DailyReturnStore.
type DailyReturnStore struct {
	mu   sync.RWMutex
	rows []*domain.DailyReturn
}

// NewDailyReturnStore creates a new in-memory daily return store.
func NewDailyReturnStore() *DailyReturnStore {
	return &DailyReturnStore{}
}

var _ storage.DailyReturnStore = (*DailyReturnStore)(nil)

// ListByIssuer returns rows for the issuer with Date in [from, to],
// ordered by Date ASC.
func (s *DailyReturnStore) ListByIssuer(_ context.Context, issuer string, from, to time.Time) ([]*domain.DailyReturn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailyReturn
	for _, r := range s.rows {
		if r.Issuer != issuer {
			continue
		}
		if r.Date.Before(from) || r.Date.After(to) {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result, nil
}

// InsertBulk adds rows.
func (s *DailyReturnStore) InsertBulk(_ context.Context, rows []*domain.DailyReturn) error {
	for _, r := range rows {
		if r == nil || r.Issuer == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		cp := *r
		s.rows = append(s.rows, &cp)
	}
	return nil
}
