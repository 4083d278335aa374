package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

type rotationEventKey struct {
	issuer     string
	holder     string
	anchorDate time.Time
}

// RotationEventStore is an in-memory implementation of
// storage.RotationEventStore.
type RotationEventStore struct {
	mu   sync.RWMutex
	data map[rotationEventKey]*domain.RotationEvent
}

// NewRotationEventStore creates a new in-memory rotation event store.
func NewRotationEventStore() *RotationEventStore {
	return &RotationEventStore{
		data: make(map[rotationEventKey]*domain.RotationEvent),
	}
}

var _ storage.RotationEventStore = (*RotationEventStore)(nil)

// Upsert writes an event, replacing any existing row with the same
// (issuer, holder, anchor_date) key.
func (s *RotationEventStore) Upsert(_ context.Context, e *domain.RotationEvent) error {
	if e == nil || e.Issuer == "" || e.Holder == "" || e.AnchorDate.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.data[rotationEventKey{e.Issuer, e.Holder, e.AnchorDate}] = &cp
	return nil
}

// GetByKey retrieves an event by its natural key.
func (s *RotationEventStore) GetByKey(_ context.Context, issuer, holder string, anchorDate time.Time) (*domain.RotationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[rotationEventKey{issuer, holder, anchorDate}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// ListByIssuer returns all events for an issuer ordered by anchor date
// ASC, holder ASC.
func (s *RotationEventStore) ListByIssuer(_ context.Context, issuer string) ([]*domain.RotationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RotationEvent
	for _, e := range s.data {
		if e.Issuer == issuer {
			cp := *e
			result = append(result, &cp)
		}
	}
	sortRotationEvents(result)
	return result, nil
}

// GetAll returns all events ordered by anchor date ASC, issuer ASC,
// holder ASC.
func (s *RotationEventStore) GetAll(_ context.Context) ([]*domain.RotationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RotationEvent, 0, len(s.data))
	for _, e := range s.data {
		cp := *e
		result = append(result, &cp)
	}
	sortRotationEvents(result)
	return result, nil
}

func sortRotationEvents(events []*domain.RotationEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].AnchorDate.Equal(events[j].AnchorDate) {
			return events[i].AnchorDate.Before(events[j].AnchorDate)
		}
		if events[i].Issuer != events[j].Issuer {
			return events[i].Issuer < events[j].Issuer
		}
		return events[i].Holder < events[j].Holder
	})
}
