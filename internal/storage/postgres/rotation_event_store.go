package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// RotationEventStore implements storage.RotationEventStore using PostgreSQL.
type RotationEventStore struct {
	pool *Pool
}

// NewRotationEventStore creates a new RotationEventStore.
func NewRotationEventStore(pool *Pool) *RotationEventStore {
	return &RotationEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RotationEventStore = (*RotationEventStore)(nil)

const rotationEventColumns = `
	cluster_id, issuer, holder, anchor_date, quarter_start, quarter_end,
	pct_delta, shares_dumped, dump_z,
	u_same, u_next, uhf_same, uhf_next, opt_same, opt_next, short_relief,
	r_score, gated
`

// Upsert writes an event, replacing any existing row with the same
// (issuer, holder, anchor_date) key.
func (s *RotationEventStore) Upsert(ctx context.Context, e *domain.RotationEvent) error {
	if e.Issuer == "" || e.Holder == "" || e.AnchorDate.IsZero() {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO rotation_events (` + rotationEventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (issuer, holder, anchor_date) DO UPDATE SET
			cluster_id = EXCLUDED.cluster_id,
			quarter_start = EXCLUDED.quarter_start,
			quarter_end = EXCLUDED.quarter_end,
			pct_delta = EXCLUDED.pct_delta,
			shares_dumped = EXCLUDED.shares_dumped,
			dump_z = EXCLUDED.dump_z,
			u_same = EXCLUDED.u_same,
			u_next = EXCLUDED.u_next,
			uhf_same = EXCLUDED.uhf_same,
			uhf_next = EXCLUDED.uhf_next,
			opt_same = EXCLUDED.opt_same,
			opt_next = EXCLUDED.opt_next,
			short_relief = EXCLUDED.short_relief,
			r_score = EXCLUDED.r_score,
			gated = EXCLUDED.gated
	`

	_, err := s.pool.Exec(ctx, query,
		e.ClusterID, e.Issuer, e.Holder, e.AnchorDate, e.QuarterStart, e.QuarterEnd,
		e.PctDelta, e.SharesDumped, e.DumpZ,
		e.USame, e.UNext, e.UHFSame, e.UHFNext, e.OptSame, e.OptNext, e.ShortRelief,
		e.RScore, e.Gated,
	)
	if err != nil {
		return fmt.Errorf("upsert rotation event: %w", err)
	}
	return nil
}

// GetByKey retrieves an event by its natural key. Returns ErrNotFound
// if not exists.
func (s *RotationEventStore) GetByKey(ctx context.Context, issuer, holder string, anchorDate time.Time) (*domain.RotationEvent, error) {
	query := `
		SELECT ` + rotationEventColumns + `
		FROM rotation_events
		WHERE issuer = $1 AND holder = $2 AND anchor_date = $3
	`

	row := s.pool.QueryRow(ctx, query, issuer, holder, anchorDate)
	e, err := scanRotationEvent(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get rotation event by key: %w", err)
	}
	return e, nil
}

// ListByIssuer returns all events for the issuer ordered by anchor_date
// ASC, holder ASC.
func (s *RotationEventStore) ListByIssuer(ctx context.Context, issuer string) ([]*domain.RotationEvent, error) {
	query := `
		SELECT ` + rotationEventColumns + `
		FROM rotation_events
		WHERE issuer = $1
		ORDER BY anchor_date ASC, holder ASC
	`

	rows, err := s.pool.Query(ctx, query, issuer)
	if err != nil {
		return nil, fmt.Errorf("list rotation events by issuer: %w", err)
	}
	defer rows.Close()

	return scanRotationEvents(rows)
}

// GetAll returns all events ordered by anchor_date ASC, issuer ASC,
// holder ASC.
func (s *RotationEventStore) GetAll(ctx context.Context) ([]*domain.RotationEvent, error) {
	query := `
		SELECT ` + rotationEventColumns + `
		FROM rotation_events
		ORDER BY anchor_date ASC, issuer ASC, holder ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all rotation events: %w", err)
	}
	defer rows.Close()

	return scanRotationEvents(rows)
}

func scanRotationEvent(row pgx.Row) (*domain.RotationEvent, error) {
	var e domain.RotationEvent
	err := row.Scan(
		&e.ClusterID, &e.Issuer, &e.Holder, &e.AnchorDate, &e.QuarterStart, &e.QuarterEnd,
		&e.PctDelta, &e.SharesDumped, &e.DumpZ,
		&e.USame, &e.UNext, &e.UHFSame, &e.UHFNext, &e.OptSame, &e.OptNext, &e.ShortRelief,
		&e.RScore, &e.Gated,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func scanRotationEvents(rows pgx.Rows) ([]*domain.RotationEvent, error) {
	var events []*domain.RotationEvent
	for rows.Next() {
		e, err := scanRotationEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rotation event row: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rotation event rows: %w", err)
	}
	return events, nil
}
