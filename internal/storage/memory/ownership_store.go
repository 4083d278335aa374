package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// OwnershipStore is an in-memory implementation of storage.OwnershipStore.
type OwnershipStore struct {
	mu   sync.RWMutex
	rows []*domain.OwnershipSnapshot
}

// NewOwnershipStore creates a new in-memory ownership store.
func NewOwnershipStore() *OwnershipStore {
	return &OwnershipStore{}
}

var _ storage.OwnershipStore = (*OwnershipStore)(nil)

// ListByIssuer returns ownership snapshots for the issuer with
// EventDate in [from, to], ordered by EventDate ASC.
func (s *OwnershipStore) ListByIssuer(_ context.Context, issuer string, from, to time.Time) ([]*domain.OwnershipSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.OwnershipSnapshot
	for _, r := range s.rows {
		if r.Issuer != issuer {
			continue
		}
		if r.EventDate.Before(from) || r.EventDate.After(to) {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].EventDate.Equal(result[j].EventDate) {
			return result[i].EventDate.Before(result[j].EventDate)
		}
		return result[i].Holder < result[j].Holder
	})
	return result, nil
}

// InsertBulk adds ownership snapshot rows.
func (s *OwnershipStore) InsertBulk(_ context.Context, snapshots []*domain.OwnershipSnapshot) error {
	for _, r := range snapshots {
		if r == nil || r.Holder == "" || r.Issuer == "" || r.EventDate.IsZero() {
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
