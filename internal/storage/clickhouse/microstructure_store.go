package clickhouse

import (
	"context"
	"fmt"
	"time"

	"rotation-lab/internal/domain"
	"rotation-lab/internal/storage"
)

// MicrostructureStore implements storage.MicrostructureStore using
// ClickHouse. Raw readings are stored per observation; GetSignals
// aggregates them server-side over the requested window.
type MicrostructureStore struct {
	conn *Conn
}

// NewMicrostructureStore creates a new MicrostructureStore.
func NewMicrostructureStore(conn *Conn) *MicrostructureStore {
	return &MicrostructureStore{conn: conn}
}

// Compile-time interface check.
var _ storage.MicrostructureStore = (*MicrostructureStore)(nil)

// GetSignals returns aggregated signals for the symbol over [from, to].
// Returns ErrNotFound when no readings exist in the window.
func (s *MicrostructureStore) GetSignals(ctx context.Context, symbol string, from, to time.Time) (*domain.MicrostructureSignals, error) {
	query := `
		SELECT
			count(),
			avg(vpin),
			max(vpin),
			avg(lambda),
			avg(order_imbalance),
			avg(block_ratio),
			avg(flow_attribution),
			avg(confidence)
		FROM microstructure_readings
		WHERE symbol = ? AND observed_at >= ? AND observed_at <= ?
	`

	var (
		count uint64
		sig   domain.MicrostructureSignals
	)
	err := s.conn.QueryRow(ctx, query, symbol, from, to).Scan(
		&count,
		&sig.VpinAvg, &sig.VpinSpike, &sig.LambdaAvg,
		&sig.OrderImbalanceAvg, &sig.BlockRatioAvg,
		&sig.FlowAttributionScore, &sig.Confidence,
	)
	if err != nil {
		return nil, fmt.Errorf("query microstructure signals: %w", err)
	}
	if count == 0 {
		return nil, storage.ErrNotFound
	}
	return &sig, nil
}

// InsertBulk adds raw readings in a single batch.
func (s *MicrostructureStore) InsertBulk(ctx context.Context, readings []*domain.MicrostructureReading) error {
	if len(readings) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO microstructure_readings (
			symbol, observed_at, vpin, lambda,
			order_imbalance, block_ratio, flow_attribution, confidence
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range readings {
		err := batch.Append(
			r.Symbol, r.ObservedAt, r.Vpin, r.Lambda,
			r.OrderImbalance, r.BlockRatio, r.FlowAttribution, r.Confidence,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}
