package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// HighFrequencyPositionStore is an in-memory implementation of
// storage.HighFrequencyPositionStore.
type HighFrequencyPositionStore struct {
	mu   sync.RWMutex
	rows []*domain.HighFrequencyPosition
}

// NewHighFrequencyPositionStore creates a new in-memory
// high-frequency position store.
func NewHighFrequencyPositionStore() *HighFrequencyPositionStore {
	return &HighFrequencyPositionStore{}
}

var _ storage.HighFrequencyPositionStore = (*HighFrequencyPositionStore)(nil)

// ListByIdentifiers returns positions for any of the identifiers with
// AsOf in [from, to], ordered by AsOf ASC.
func (s *HighFrequencyPositionStore) ListByIdentifiers(_ context.Context, identifiers []string, from, to time.Time) ([]*domain.HighFrequencyPosition, error) {
	wanted := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.HighFrequencyPosition
	for _, r := range s.rows {
		if _, ok := wanted[r.Identifier]; !ok {
			continue
		}
		if r.AsOf.Before(from) || r.AsOf.After(to) {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].AsOf.Equal(result[j].AsOf) {
			return result[i].AsOf.Before(result[j].AsOf)
		}
		return result[i].Holder < result[j].Holder
	})
	return result, nil
}

// InsertBulk adds position rows.
func (s *HighFrequencyPositionStore) InsertBulk(_ context.Context, positions []*domain.HighFrequencyPosition) error {
	for _, r := range positions {
		if r == nil || r.Holder == "" || r.Identifier == "" || r.AsOf.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range positions {
		cp := *r
		s.rows = append(s.rows, &cp)
	}
	return nil
}
