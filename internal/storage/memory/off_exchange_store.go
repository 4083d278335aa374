package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// OffExchangeStore is an in-memory implementation of
// storage.OffExchangeStore.
type OffExchangeStore struct {
	mu   sync.RWMutex
	rows []*domain.OffExchangeRatio
}

// NewOffExchangeStore creates a new in-memory off-exchange ratio store.
func NewOffExchangeStore() *OffExchangeStore {
	return &OffExchangeStore{}
}

var _ storage.OffExchangeStore = (*OffExchangeStore)(nil)

// ListBySymbol returns ratios for the symbol with Date in [from, to],
// ordered by Date ASC.
func (s *OffExchangeStore) ListBySymbol(_ context.Context, symbol string, from, to time.Time) ([]*domain.OffExchangeRatio, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OffExchangeRatio
	for _, r := range s.rows {
		if r.Symbol != symbol {
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
func (s *OffExchangeStore) InsertBulk(_ context.Context, rows []*domain.OffExchangeRatio) error {
	for _, r := range rows {
		if r == nil || r.Symbol == "" || r.Date.IsZero() {
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
