package clickhouse

import (
	"context"
	"fmt"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// HighFrequencyPositionStore implements storage.HighFrequencyPositionStore
// using ClickHouse. The source is append-heavy and read over narrow
// windows, which suits a MergeTree keyed by (identifier, as_of).
type HighFrequencyPositionStore struct {
	conn *Conn
}

// NewHighFrequencyPositionStore creates a new HighFrequencyPositionStore.
func NewHighFrequencyPositionStore(conn *Conn) *HighFrequencyPositionStore {
	return &HighFrequencyPositionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.HighFrequencyPositionStore = (*HighFrequencyPositionStore)(nil)

// ListByIdentifiers returns positions for any of the identifiers with
// as_of in [from, to], ordered by as_of ASC, holder ASC.
func (s *HighFrequencyPositionStore) ListByIdentifiers(ctx context.Context, identifiers []string, from, to time.Time) ([]*domain.HighFrequencyPosition, error) {
	if len(identifiers) == 0 {
		return nil, nil
	}

	query := `
		SELECT holder, identifier, as_of, shares
		FROM hf_positions
		WHERE identifier IN (?) AND as_of >= ? AND as_of <= ?
		ORDER BY as_of ASC, holder ASC
	`

	rows, err := s.conn.Query(ctx, query, identifiers, from, to)
	if err != nil {
		return nil, fmt.Errorf("query hf positions: %w", err)
	}
	defer rows.Close()

	var out []*domain.HighFrequencyPosition
	for rows.Next() {
		var p domain.HighFrequencyPosition
		if err := rows.Scan(&p.Holder, &p.Identifier, &p.AsOf, &p.Shares); err != nil {
			return nil, fmt.Errorf("scan hf position row: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hf position rows: %w", err)
	}
	return out, nil
}

// InsertBulk adds position rows in a single batch.
func (s *HighFrequencyPositionStore) InsertBulk(ctx context.Context, positions []*domain.HighFrequencyPosition) error {
	if len(positions) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO hf_positions (holder, identifier, as_of, shares)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range positions {
		if err := batch.Append(p.Holder, p.Identifier, p.AsOf, p.Shares); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
