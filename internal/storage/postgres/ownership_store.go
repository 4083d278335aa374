package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// OwnershipStore implements storage.OwnershipStore using PostgreSQL.
type OwnershipStore struct {
	pool *Pool
}

// NewOwnershipStore creates a new OwnershipStore.
func NewOwnershipStore(pool *Pool) *OwnershipStore {
	return &OwnershipStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OwnershipStore = (*OwnershipStore)(nil)

// ListByIssuer returns snapshots for the issuer with EventDate in
// [from, to], ordered by event_date ASC, holder ASC.
func (s *OwnershipStore) ListByIssuer(ctx context.Context, issuer string, from, to time.Time) ([]*domain.OwnershipSnapshot, error) {
	query := `
		SELECT holder, issuer, event_date, shares_estimate, pct_of_class
		FROM ownership_snapshots
		WHERE issuer = $1 AND event_date >= $2 AND event_date <= $3
		ORDER BY event_date ASC, holder ASC
	`

	rows, err := s.pool.Query(ctx, query, issuer, from, to)
	if err != nil {
		return nil, fmt.Errorf("list ownership snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.OwnershipSnapshot
	for rows.Next() {
		var snap domain.OwnershipSnapshot
		err := rows.Scan(
			&snap.Holder,
			&snap.Issuer,
			&snap.EventDate,
			&snap.SharesEstimate,
			&snap.PctOfClass,
		)
		if err != nil {
			return nil, fmt.Errorf("scan ownership snapshot row: %w", err)
		}
		snapshots = append(snapshots, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ownership snapshot rows: %w", err)
	}
	return snapshots, nil
}

// InsertBulk adds snapshots. Returns ErrDuplicateKey if any
// (holder, issuer, event_date) row already exists.
func (s *OwnershipStore) InsertBulk(ctx context.Context, snapshots []*domain.OwnershipSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	query := `
		INSERT INTO ownership_snapshots (holder, issuer, event_date, shares_estimate, pct_of_class)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		if snap.Holder == "" || snap.Issuer == "" || snap.EventDate.IsZero() {
			return storage.ErrInvalidInput
		}
		batch.Queue(query, snap.Holder, snap.Issuer, snap.EventDate, snap.SharesEstimate, snap.PctOfClass)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range snapshots {
		if _, err := results.Exec(); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert ownership snapshot: %w", err)
		}
	}
	return nil
}
