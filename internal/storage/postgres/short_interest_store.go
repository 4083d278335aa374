package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// ShortInterestStore implements storage.ShortInterestStore using PostgreSQL.
type ShortInterestStore struct {
	pool *Pool
}

// NewShortInterestStore creates a new ShortInterestStore.
func NewShortInterestStore(pool *Pool) *ShortInterestStore {
	return &ShortInterestStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ShortInterestStore = (*ShortInterestStore)(nil)

// ListByIssuer returns readings for the issuer with SettleDate in
// [from, to], ordered by settle_date ASC.
func (s *ShortInterestStore) ListByIssuer(ctx context.Context, issuer string, from, to time.Time) ([]*domain.ShortInterestReading, error) {
	query := `
		SELECT issuer, settle_date, short_shares
		FROM short_interest
		WHERE issuer = $1 AND settle_date >= $2 AND settle_date <= $3
		ORDER BY settle_date ASC
	`

	rows, err := s.pool.Query(ctx, query, issuer, from, to)
	if err != nil {
		return nil, fmt.Errorf("list short interest: %w", err)
	}
	defer rows.Close()

	var readings []*domain.ShortInterestReading
	for rows.Next() {
		var r domain.ShortInterestReading
		if err := rows.Scan(&r.Issuer, &r.SettleDate, &r.ShortShares); err != nil {
			return nil, fmt.Errorf("scan short interest row: %w", err)
		}
		readings = append(readings, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate short interest rows: %w", err)
	}
	return readings, nil
}

// InsertBulk adds readings. Returns ErrDuplicateKey if any
// (issuer, settle_date) row already exists.
func (s *ShortInterestStore) InsertBulk(ctx context.Context, readings []*domain.ShortInterestReading) error {
	if len(readings) == 0 {
		return nil
	}

	query := `
		INSERT INTO short_interest (issuer, settle_date, short_shares)
		VALUES ($1, $2, $3)
	`

	batch := &pgx.Batch{}
	for _, r := range readings {
		if r.Issuer == "" || r.SettleDate.IsZero() {
			return storage.ErrInvalidInput
		}
		batch.Queue(query, r.Issuer, r.SettleDate, r.ShortShares)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range readings {
		if _, err := results.Exec(); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert short interest reading: %w", err)
		}
	}
	return nil
}
