package postgres

import (
	"context"
	"fmt"

	"rotation-lab/internal/storage"
)

// SecurityMasterStore implements storage.SecurityMasterStore using PostgreSQL.
type SecurityMasterStore struct {
	pool *Pool
}

// NewSecurityMasterStore creates a new SecurityMasterStore.
func NewSecurityMasterStore(pool *Pool) *SecurityMasterStore {
	return &SecurityMasterStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SecurityMasterStore = (*SecurityMasterStore)(nil)

// ListIdentifiers returns all security identifiers mapped to the issuer.
func (s *SecurityMasterStore) ListIdentifiers(ctx context.Context, issuer string) ([]string, error) {
	query := `
		SELECT identifier
		FROM security_master
		WHERE issuer = $1
		ORDER BY identifier ASC
	`

	rows, err := s.pool.Query(ctx, query, issuer)
	if err != nil {
		return nil, fmt.Errorf("list identifiers: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan identifier row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identifier rows: %w", err)
	}
	return ids, nil
}

// Insert adds an issuer→identifier mapping. Returns ErrDuplicateKey if
// the pair already exists.
func (s *SecurityMasterStore) Insert(ctx context.Context, issuer, identifier string) error {
	if issuer == "" || identifier == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO security_master (issuer, identifier)
		VALUES ($1, $2)
	`

	_, err := s.pool.Exec(ctx, query, issuer, identifier)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert security master row: %w", err)
	}
	return nil
}
