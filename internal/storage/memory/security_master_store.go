// Package memory provides in-memory store implementations used by
// tests, fixtures and demo runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"rotation-lab/internal/storage"
)

// SecurityMasterStore is an in-memory implementation of
// storage.SecurityMasterStore.
type SecurityMasterStore struct {
	mu   sync.RWMutex
	data map[string][]string // issuer → identifiers
}

// NewSecurityMasterStore creates a new in-memory security master store.
func NewSecurityMasterStore() *SecurityMasterStore {
	return &SecurityMasterStore{
		data: make(map[string][]string),
	}
}

var _ storage.SecurityMasterStore = (*SecurityMasterStore)(nil)

// ListIdentifiers returns all security identifiers mapped to the issuer.
func (s *SecurityMasterStore) ListIdentifiers(_ context.Context, issuer string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.data[issuer]
	result := make([]string, len(ids))
	copy(result, ids)
	sort.Strings(result)
	return result, nil
}

// Insert adds an issuer→identifier mapping. Returns ErrDuplicateKey if
// the pair already exists.
func (s *SecurityMasterStore) Insert(_ context.Context, issuer, identifier string) error {
	if issuer == "" || identifier == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.data[issuer] {
		if id == identifier {
			return storage.ErrDuplicateKey
		}
	}
	s.data[issuer] = append(s.data[issuer], identifier)
	return nil
}
