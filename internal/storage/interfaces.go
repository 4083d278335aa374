package storage

import (
	"context"
	"time"

	"rotation-lab/internal/domain"
)

// All range reads are inclusive on both bounds and return rows ordered
// by date ASC. Rows are expected to be deduplicated upstream (one row
// per holder+date+identifier); consumers sum duplicates rather than
// overwriting if that expectation is violated.

// SecurityMasterStore maps issuers to their security identifiers.
type SecurityMasterStore interface {
	// ListIdentifiers returns all security identifiers mapped to the
	// issuer. An empty result means no mapping exists; it is not an error.
	ListIdentifiers(ctx context.Context, issuer string) ([]string, error)

	// Insert adds an issuer→identifier mapping. Returns ErrDuplicateKey
	// if the pair already exists.
	Insert(ctx context.Context, issuer, identifier string) error
}

// PositionSnapshotStore provides access to periodic holder position
// disclosures.
type PositionSnapshotStore interface {
	// ListByIdentifiers returns snapshots for any of the identifiers
	// with AsOf in [from, to].
	ListByIdentifiers(ctx context.Context, identifiers []string, from, to time.Time) ([]*domain.PositionSnapshot, error)

	// InsertBulk adds snapshot rows. Duplicate holder+identifier+asof
	// rows are allowed; readers aggregate them.
	InsertBulk(ctx context.Context, snapshots []*domain.PositionSnapshot) error
}

// OwnershipStore provides access to beneficial-ownership (5%+ holder)
// disclosures.
type OwnershipStore interface {
	// ListByIssuer returns ownership snapshots for the issuer with
	// EventDate in [from, to].
	ListByIssuer(ctx context.Context, issuer string, from, to time.Time) ([]*domain.OwnershipSnapshot, error)

	// InsertBulk adds ownership snapshot rows.
	InsertBulk(ctx context.Context, snapshots []*domain.OwnershipSnapshot) error
}

// HighFrequencyPositionStore provides access to the ultra-high-frequency
// holder position source.
type HighFrequencyPositionStore interface {
	// ListByIdentifiers returns positions for any of the identifiers
	// with AsOf in [from, to].
	ListByIdentifiers(ctx context.Context, identifiers []string, from, to time.Time) ([]*domain.HighFrequencyPosition, error)

	// InsertBulk adds position rows.
	InsertBulk(ctx context.Context, positions []*domain.HighFrequencyPosition) error
}

// ShortInterestStore provides access to exchange short interest readings.
type ShortInterestStore interface {
	// ListByIssuer returns readings for the issuer with SettleDate in
	// [from, to].
	ListByIssuer(ctx context.Context, issuer string, from, to time.Time) ([]*domain.ShortInterestReading, error)

	// InsertBulk adds readings.
	InsertBulk(ctx context.Context, readings []*domain.ShortInterestReading) error
}

// DailyReturnStore provides access to issuer daily return series with
// benchmark returns.
type DailyReturnStore interface {
	// ListByIssuer returns rows for the issuer with Date in [from, to].
	ListByIssuer(ctx context.Context, issuer string, from, to time.Time) ([]*domain.DailyReturn, error)

	// InsertBulk adds rows.
	InsertBulk(ctx context.Context, rows []*domain.DailyReturn) error
}

// OffExchangeStore provides the off-exchange volume ratio covariate.
type OffExchangeStore interface {
	// ListBySymbol returns ratios for the symbol with Date in [from, to].
	ListBySymbol(ctx context.Context, symbol string, from, to time.Time) ([]*domain.OffExchangeRatio, error)

	// InsertBulk adds rows.
	InsertBulk(ctx context.Context, rows []*domain.OffExchangeRatio) error
}

// MicrostructureStore provides aggregated order-flow microstructure
// signals for the optional confidence-weighted score extension.
type MicrostructureStore interface {
	// GetSignals returns aggregated signals for the symbol over
	// [from, to]. Returns ErrNotFound when no signals exist for the
	// window; callers treat that as absence.
	GetSignals(ctx context.Context, symbol string, from, to time.Time) (*domain.MicrostructureSignals, error)
}

// RotationEventStore persists scored rotation events.
type RotationEventStore interface {
	// Upsert writes an event, replacing any existing row with the same
	// (issuer, holder, anchor_date) key.
	Upsert(ctx context.Context, e *domain.RotationEvent) error

	// GetByKey retrieves an event by its natural key. Returns
	// ErrNotFound if not exists.
	GetByKey(ctx context.Context, issuer, holder string, anchorDate time.Time) (*domain.RotationEvent, error)

	// ListByIssuer returns all events for an issuer ordered by
	// anchor date ASC, holder ASC.
	ListByIssuer(ctx context.Context, issuer string) ([]*domain.RotationEvent, error)

	// GetAll returns all events ordered by anchor date ASC, issuer ASC,
	// holder ASC.
	GetAll(ctx context.Context) ([]*domain.RotationEvent, error)
}

// EventStudyStore persists event-study results.
type EventStudyStore interface {
	// Upsert writes a result, replacing any existing row with the same
	// (symbol, event_type, anchor_date, issuer) key.
	Upsert(ctx context.Context, r *domain.EventStudyResult) error

	// GetByKey retrieves a result by its natural key. Returns
	// ErrNotFound if not exists.
	GetByKey(ctx context.Context, symbol, eventType string, anchorDate time.Time, issuer string) (*domain.EventStudyResult, error)

	// GetAll returns all results ordered by anchor date ASC, issuer ASC.
	GetAll(ctx context.Context) ([]*domain.EventStudyResult, error)
}
