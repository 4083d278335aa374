package clickhouse

import (
	"context"
	"fmt"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// DailyReturnStore implements storage.DailyReturnStore using ClickHouse.
type DailyReturnStore struct {
	conn *Conn
}

// NewDailyReturnStore creates a new DailyReturnStore.
func NewDailyReturnStore(conn *Conn) *DailyReturnStore {
	return &DailyReturnStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyReturnStore = (*DailyReturnStore)(nil)

// ListByIssuer returns rows for the issuer with trade_date in [from, to],
// ordered by trade_date ASC.
func (s *DailyReturnStore) ListByIssuer(ctx context.Context, issuer string, from, to time.Time) ([]*domain.DailyReturn, error) {
	query := `
		SELECT issuer, trade_date, ret, benchmark_ret
		FROM daily_returns
		WHERE issuer = ? AND trade_date >= ? AND trade_date <= ?
		ORDER BY trade_date ASC
	`

	rows, err := s.conn.Query(ctx, query, issuer, from, to)
	if err != nil {
		return nil, fmt.Errorf("query daily returns: %w", err)
	}
	defer rows.Close()

	var out []*domain.DailyReturn
	for rows.Next() {
		var r domain.DailyReturn
		if err := rows.Scan(&r.Issuer, &r.Date, &r.Return, &r.BenchmarkReturn); err != nil {
			return nil, fmt.Errorf("scan daily return row: %w", err)
		}
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily return rows: %w", err)
	}
	return out, nil
}

// InsertBulk adds rows in a single batch.
func (s *DailyReturnStore) InsertBulk(ctx context.Context, returns []*domain.DailyReturn) error {
	if len(returns) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_returns (issuer, trade_date, ret, benchmark_ret)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range returns {
		if err := batch.Append(r.Issuer, r.Date, r.Return, r.BenchmarkReturn); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
