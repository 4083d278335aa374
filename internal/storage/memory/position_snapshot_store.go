package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// PositionSnapshotStore is an in-memory implementation of
// storage.PositionSnapshotStore.
type PositionSnapshotStore struct {
	mu   sync.RWMutex
	rows []*domain.PositionSnapshot
}

// NewPositionSnapshotStore creates a new in-memory position snapshot store.
func NewPositionSnapshotStore() *PositionSnapshotStore {
	return &PositionSnapshotStore{}
}

var _ storage.PositionSnapshotStore = (*PositionSnapshotStore)(nil)

// ListByIdentifiers returns snapshots for any of the identifiers with
// AsOf in [from, to], ordered by AsOf ASC.
func (s *PositionSnapshotStore) ListByIdentifiers(_ context.Context, identifiers []string, from, to time.Time) ([]*domain.PositionSnapshot, error) {
	wanted := make(map[string]struct{}, len(identifiers))
	for _, id := range identifiers {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PositionSnapshot
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

// InsertBulk adds snapshot rows. Duplicates are allowed; readers
// aggregate them.
func (s *PositionSnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.PositionSnapshot) error {
	for _, r := range snapshots {
		if r == nil || r.Holder == "" || r.Identifier == "" || r.AsOf.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range snapshots {
		cp := *r
		s.rows = append(s.rows, &cp)
	}
	return nil
}
