package postgres

import (
	"context"
	"fmt"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// EventStudyStore implements storage.EventStudyStore using PostgreSQL.
type EventStudyStore struct {
	pool *Pool
}

// NewEventStudyStore creates a new EventStudyStore.
func NewEventStudyStore(pool *Pool) *EventStudyStore {
	return &EventStudyStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStudyStore = (*EventStudyStore)(nil)

const eventStudyColumns = `
	symbol, event_type, anchor_date, issuer,
	car, tt_plus_20, max_ret, max_drawdown,
	car_5, car_10, car_20, car_40, car_65,
	off_exchange_avg, short_interest_change
`

// Upsert writes a result, replacing any existing row with the same
// (symbol, event_type, anchor_date, issuer) key.
func (s *EventStudyStore) Upsert(ctx context.Context, r *domain.EventStudyResult) error {
	if r.EventType == "" || r.AnchorDate.IsZero() || r.Issuer == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO event_studies (` + eventStudyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (symbol, event_type, anchor_date, issuer) DO UPDATE SET
			car = EXCLUDED.car,
			tt_plus_20 = EXCLUDED.tt_plus_20,
			max_ret = EXCLUDED.max_ret,
			max_drawdown = EXCLUDED.max_drawdown,
			car_5 = EXCLUDED.car_5,
			car_10 = EXCLUDED.car_10,
			car_20 = EXCLUDED.car_20,
			car_40 = EXCLUDED.car_40,
			car_65 = EXCLUDED.car_65,
			off_exchange_avg = EXCLUDED.off_exchange_avg,
			short_interest_change = EXCLUDED.short_interest_change
	`

	_, err := s.pool.Exec(ctx, query,
		r.Symbol, r.EventType, r.AnchorDate, r.Issuer,
		r.CAR, r.TTPlus20, r.MaxRet, r.MaxDrawdown,
		r.CAR5, r.CAR10, r.CAR20, r.CAR40, r.CAR65,
		r.OffExchangeAvg, r.ShortInterestChange,
	)
	if err != nil {
		return fmt.Errorf("upsert event study: %w", err)
	}
	return nil
}

// GetByKey retrieves a result by its natural key. Returns ErrNotFound
// if not exists.
func (s *EventStudyStore) GetByKey(ctx context.Context, symbol, eventType string, anchorDate time.Time, issuer string) (*domain.EventStudyResult, error) {
	query := `
		SELECT ` + eventStudyColumns + `
		FROM event_studies
		WHERE symbol = $1 AND event_type = $2 AND anchor_date = $3 AND issuer = $4
	`

	var r domain.EventStudyResult
	err := s.pool.QueryRow(ctx, query, symbol, eventType, anchorDate, issuer).Scan(
		&r.Symbol, &r.EventType, &r.AnchorDate, &r.Issuer,
		&r.CAR, &r.TTPlus20, &r.MaxRet, &r.MaxDrawdown,
		&r.CAR5, &r.CAR10, &r.CAR20, &r.CAR40, &r.CAR65,
		&r.OffExchangeAvg, &r.ShortInterestChange,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get event study by key: %w", err)
	}
	return &r, nil
}

// GetAll returns all results ordered by anchor_date ASC, issuer ASC.
func (s *EventStudyStore) GetAll(ctx context.Context) ([]*domain.EventStudyResult, error) {
	query := `
		SELECT ` + eventStudyColumns + `
		FROM event_studies
		ORDER BY anchor_date ASC, issuer ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all event studies: %w", err)
	}
	defer rows.Close()

	var results []*domain.EventStudyResult
	for rows.Next() {
		var r domain.EventStudyResult
		err := rows.Scan(
			&r.Symbol, &r.EventType, &r.AnchorDate, &r.Issuer,
			&r.CAR, &r.TTPlus20, &r.MaxRet, &r.MaxDrawdown,
			&r.CAR5, &r.CAR10, &r.CAR20, &r.CAR40, &r.CAR65,
			&r.OffExchangeAvg, &r.ShortInterestChange,
		)
		if err != nil {
			return nil, fmt.Errorf("scan event study row: %w", err)
		}
		results = append(results, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event study rows: %w", err)
	}
	return results, nil
}
