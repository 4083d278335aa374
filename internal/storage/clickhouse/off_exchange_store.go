package clickhouse

import (
	"context"
	"fmt"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// OffExchangeStore implements storage.OffExchangeStore using ClickHouse.
type OffExchangeStore struct {
	conn *Conn
}

// NewOffExchangeStore creates a new OffExchangeStore.
func NewOffExchangeStore(conn *Conn) *OffExchangeStore {
	return &OffExchangeStore{conn: conn}
}

// Compile-time interface check.
var _ storage.OffExchangeStore = (*OffExchangeStore)(nil)

// ListBySymbol returns ratios for the symbol with trade_date in
// [from, to], ordered by trade_date ASC.
func (s *OffExchangeStore) ListBySymbol(ctx context.Context, symbol string, from, to time.Time) ([]*domain.OffExchangeRatio, error) {
	query := `
		SELECT symbol, trade_date, ratio
		FROM off_exchange_ratios
		WHERE symbol = ? AND trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("query off-exchange ratios: %w", err)
	}
	defer rows.Close()

	var out []*domain.OffExchangeRatio
	for rows.Next() {
		var r domain.OffExchangeRatio
		if err := rows.Scan(&r.Symbol, &r.Date, &r.Ratio); err != nil {
			return nil, fmt.Errorf("scan off-exchange row: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate off-exchange rows: %w", err)
	}
	return out, nil
}

// InsertBulk adds rows in a single batch.
func (s *OffExchangeStore) InsertBulk(ctx context.Context, ratios []*domain.OffExchangeRatio) error {
	if len(ratios) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO off_exchange_ratios (symbol, trade_date, ratio)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range ratios {
		if err := batch.Append(r.Symbol, r.Date, r.Ratio); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
