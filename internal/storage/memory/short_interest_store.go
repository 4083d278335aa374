package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// ShortInterestStore is an in-memory implementation of
// storage.ShortInterestStore.
type ShortInterestStore struct {
	mu   sync.RWMutex
	rows []*domain.ShortInterestReading
}

// NewShortInterestStore creates a new in-memory short interest store.
func NewShortInterestStore() *ShortInterestStore {
	return &ShortInterestStore{}
}

var _ storage.ShortInterestStore = (*ShortInterestStore)(nil)

// ListByIssuer returns readings for the issuer with SettleDate in
// [from, to], ordered by SettleDate ASC.
func (s *ShortInterestStore) ListByIssuer(_ context.Context, issuer string, from, to time.Time) ([]*domain.ShortInterestReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ShortInterestReading
	for _, r := range s.rows {
		if r.Issuer != issuer {
			continue
		}
		if r.SettleDate.Before(from) || r.SettleDate.After(to) {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SettleDate.Before(result[j].SettleDate)
	})
	return result, nil
}

// InsertBulk adds readings.
func (s *ShortInterestStore) InsertBulk(_ context.Context, readings []*domain.ShortInterestReading) error {
	for _, r := range readings {
		if r == nil || r.Issuer == "" || r.SettleDate.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range readings {
		cp := *r
		s.rows = append(s.rows, &cp)
	}
	return nil
}
