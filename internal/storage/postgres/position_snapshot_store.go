package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// PositionSnapshotStore implements storage.PositionSnapshotStore using PostgreSQL.
type PositionSnapshotStore struct {
	pool *Pool
}

// NewPositionSnapshotStore creates a new PositionSnapshotStore.
func NewPositionSnapshotStore(pool *Pool) *PositionSnapshotStore {
	return &PositionSnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PositionSnapshotStore = (*PositionSnapshotStore)(nil)

// ListByIdentifiers returns snapshots for the identifiers with AsOf in
// [from, to], ordered by as_of ASC, holder ASC, identifier ASC.
func (s *PositionSnapshotStore) ListByIdentifiers(ctx context.Context, identifiers []string, from, to time.Time) ([]*domain.PositionSnapshot, error) {
	if len(identifiers) == 0 {
		return nil, nil
	}

	query := `
		SELECT holder, identifier, as_of, shares, put_shares, call_shares
		FROM position_snapshots
		WHERE identifier = ANY($1) AND as_of >= $2 AND as_of <= $3
		ORDER BY as_of ASC, holder ASC, identifier ASC
	`

	rows, err := s.pool.Query(ctx, query, identifiers, from, to)
	if err != nil {
		return nil, fmt.Errorf("list position snapshots: %w", err)
	}
	defer rows.Close()

	return scanPositionSnapshots(rows)
}

// InsertBulk adds snapshots. Duplicate holder+identifier+asof rows are
// allowed; readers aggregate them.
func (s *PositionSnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.PositionSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	query := `
		INSERT INTO position_snapshots (holder, identifier, as_of, shares, put_shares, call_shares)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		if snap.Holder == "" || snap.Identifier == "" || snap.AsOf.IsZero() {
			return storage.ErrInvalidInput
		}
		batch.Queue(query, snap.Holder, snap.Identifier, snap.AsOf, snap.Shares, snap.PutShares, snap.CallShares)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range snapshots {
		if _, err := results.Exec(); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert position snapshot: %w", err)
		}
	}
	return nil
}

func scanPositionSnapshots(rows pgx.Rows) ([]*domain.PositionSnapshot, error) {
	var snapshots []*domain.PositionSnapshot
	for rows.Next() {
		var snap domain.PositionSnapshot
		err := rows.Scan(
			&snap.Holder,
			&snap.Identifier,
			&snap.AsOf,
			&snap.Shares,
			&snap.PutShares,
			&snap.CallShares,
		)
		if err != nil {
			return nil, fmt.Errorf("scan position snapshot row: %w", err)
		}
		snapshots = append(snapshots, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate position snapshot rows: %w", err)
	}
	return snapshots, nil
}
