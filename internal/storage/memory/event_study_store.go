package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

type eventStudyKey struct {
	symbol     string
	eventType  string
	anchorDate time.Time
	issuer     string
}

// EventStudyStore is an in-memory implementation of
// storage.EventStudyStore.
type EventStudyStore struct {
	mu   sync.RWMutex
	data map[eventStudyKey]*domain.EventStudyResult
}

// NewEventStudyStore creates a new in-memory event study store.
func NewEventStudyStore() *EventStudyStore {
	return &EventStudyStore{
		data: make(map[eventStudyKey]*domain.EventStudyResult),
	}
}

var _ storage.EventStudyStore = (*EventStudyStore)(nil)

// Upsert writes a result, replacing any existing row with the same
// (symbol, event_type, anchor_date, issuer) key.
func (s *EventStudyStore) Upsert(_ context.Context, r *domain.EventStudyResult) error {
	if r == nil || r.Issuer == "" || r.EventType == "" || r.AnchorDate.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := copyStudyResult(r)
	s.data[eventStudyKey{r.Symbol, r.EventType, r.AnchorDate, r.Issuer}] = cp
	return nil
}

// GetByKey retrieves a result by its natural key.
func (s *EventStudyStore) GetByKey(_ context.Context, symbol, eventType string, anchorDate time.Time, issuer string) (*domain.EventStudyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[eventStudyKey{symbol, eventType, anchorDate, issuer}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyStudyResult(r), nil
}

// GetAll returns all results ordered by anchor date ASC, issuer ASC.
func (s *EventStudyStore) GetAll(_ context.Context) ([]*domain.EventStudyResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.EventStudyResult, 0, len(s.data))
	for _, r := range s.data {
		result = append(result, copyStudyResult(r))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].AnchorDate.Equal(result[j].AnchorDate) {
			return result[i].AnchorDate.Before(result[j].AnchorDate)
		}
		return result[i].Issuer < result[j].Issuer
	})
	return result, nil
}

// copyStudyResult deep-copies a result including its nullable covariates.
func copyStudyResult(r *domain.EventStudyResult) *domain.EventStudyResult {
	cp := *r
	if r.OffExchangeAvg != nil {
		v := *r.OffExchangeAvg
		cp.OffExchangeAvg = &v
	}
	if r.ShortInterestChange != nil {
		v := *r.ShortInterestChange
		cp.ShortInterestChange = &v
	}
	return &cp
}
