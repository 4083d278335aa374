// Package resolve maps issuer names to security identifiers through an
// ordered chain of strategies.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"rotation-lab/internal/storage"
)

// ErrUnresolved signals that a strategy has no mapping for the issuer.
// The chain treats it as "try the next strategy", never as a failure.
var ErrUnresolved = errors.New("issuer unresolved")

// Resolution is one strategy's answer for an issuer.
type Resolution struct {
	Identifiers []string
	Source      string  // strategy name that produced the mapping
	Confidence  float64 // in [0, 1]
}

// Strategy resolves an issuer to its security identifiers. Returns
// ErrUnresolved when it has no mapping; any other error is a real
// failure and stops the chain.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, issuer string) (*Resolution, error)
}

// Chain tries strategies in order and returns the first resolution.
type Chain struct {
	strategies []Strategy
}

// NewChain creates a resolver chain. Order is significant: earlier
// strategies win.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Resolve returns the first strategy's resolution for the issuer.
// Returns ErrUnresolved when every strategy declines.
func (c *Chain) Resolve(ctx context.Context, issuer string) (*Resolution, error) {
	if issuer == "" {
		return nil, fmt.Errorf("resolve: empty issuer")
	}
	for _, s := range c.strategies {
		res, err := s.Resolve(ctx, issuer)
		if errors.Is(err, ErrUnresolved) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve %s via %s: %w", issuer, s.Name(), err)
		}
		return res, nil
	}
	return nil, ErrUnresolved
}

// ListIdentifiers adapts the chain to the detection pipeline's
// identifier source. An unresolved issuer yields an empty list rather
// than an error: missing mappings are a data condition, not a failure.
func (c *Chain) ListIdentifiers(ctx context.Context, issuer string) ([]string, error) {
	res, err := c.Resolve(ctx, issuer)
	if errors.Is(err, ErrUnresolved) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return res.Identifiers, nil
}

// MasterStoreStrategy resolves issuers through the security master.
type MasterStoreStrategy struct {
	master storage.SecurityMasterStore
}

// NewMasterStoreStrategy creates a security-master-backed strategy.
func NewMasterStoreStrategy(master storage.SecurityMasterStore) *MasterStoreStrategy {
	return &MasterStoreStrategy{master: master}
}

func (s *MasterStoreStrategy) Name() string { return "security_master" }

func (s *MasterStoreStrategy) Resolve(ctx context.Context, issuer string) (*Resolution, error) {
	ids, err := s.master.ListIdentifiers(ctx, issuer)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrUnresolved
	}
	return &Resolution{
		Identifiers: ids,
		Source:      s.Name(),
		Confidence:  1.0,
	}, nil
}

// StaticStrategy resolves issuers from a fixed in-process table.
// Used for overrides and for demo runs without a security master.
type StaticStrategy struct {
	table      map[string][]string
	confidence float64
}

// NewStaticStrategy creates a table-backed strategy. The table is
// copied; identifier lists are returned sorted.
func NewStaticStrategy(table map[string][]string, confidence float64) *StaticStrategy {
	copied := make(map[string][]string, len(table))
	for issuer, ids := range table {
		dup := append([]string(nil), ids...)
		sort.Strings(dup)
		copied[issuer] = dup
	}
	return &StaticStrategy{table: copied, confidence: confidence}
}

func (s *StaticStrategy) Name() string { return "static_table" }

func (s *StaticStrategy) Resolve(_ context.Context, issuer string) (*Resolution, error) {
	ids, ok := s.table[issuer]
	if !ok || len(ids) == 0 {
		return nil, ErrUnresolved
	}
	return &Resolution{
		Identifiers: append([]string(nil), ids...),
		Source:      s.Name(),
		Confidence:  s.confidence,
	}, nil
}
