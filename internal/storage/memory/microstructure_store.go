package memory

import (
	"context"
	"sync"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// MicrostructureStore is an in-memory implementation of
// storage.MicrostructureStore. Signals are keyed by symbol; window
// bounds are ignored, which is sufficient for tests and fixtures.
type MicrostructureStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MicrostructureSignals
}

// NewMicrostructureStore creates a new in-memory microstructure store.
func NewMicrostructureStore() *MicrostructureStore {
	return &MicrostructureStore{
		data: make(map[string]*domain.MicrostructureSignals),
	}
}

var _ storage.MicrostructureStore = (*MicrostructureStore)(nil)

// GetSignals returns aggregated signals for the symbol. Returns
// ErrNotFound when the symbol has no signals.
func (s *MicrostructureStore) GetSignals(_ context.Context, symbol string, _, _ time.Time) (*domain.MicrostructureSignals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.data[symbol]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *sig
	return &cp, nil
}

// Put stores signals for a symbol, replacing any existing entry.
func (s *MicrostructureStore) Put(symbol string, sig *domain.MicrostructureSignals) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sig
	s.data[symbol] = &cp
}
