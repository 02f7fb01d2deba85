package clickhouse

import (
	"context"
	"fmt"
	"time"

	"holo-reversal-lab/internal/domain"
	"holo-reversal-lab/internal/storage"
)

// TickStore implements storage.TickStore using ClickHouse.
// Missing bid/ask prices are stored as NULL.
type TickStore struct {
	conn *Conn
}

// NewTickStore creates a new TickStore.
func NewTickStore(conn *Conn) *TickStore {
	return &TickStore{conn: conn}
}

var _ storage.TickStore = (*TickStore)(nil)

// InsertBulk adds multiple ticks. Fails entire batch on duplicate (symbol, timestamp_ms).
func (s *TickStore) InsertBulk(ctx context.Context, ticks []*domain.PriceTick) (err error) {
	if len(ticks) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("price_ticks.insert_bulk", start, err) }(time.Now())

	keys := make([]seriesKey, 0, len(ticks))
	seen := make(map[seriesKey]struct{}, len(ticks))
	for _, t := range ticks {
		k := seriesKey{t.Symbol, t.TimestampMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	existing, err := s.conn.existingKeys(ctx, "price_ticks", keys)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_ticks (symbol, timestamp_ms, bid_price, ask_price, last_price)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, t := range ticks {
		if err = batch.Append(t.Symbol, t.TimestampMs, t.BidPrice, t.AskPrice, t.LastPrice); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err = batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves all ticks for a symbol, ordered by timestamp ASC.
func (s *TickStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.PriceTick, error) {
	query := `
		SELECT symbol, timestamp_ms, bid_price, ask_price, last_price
		FROM price_ticks
		WHERE symbol = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("query ticks by symbol: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

// GetByTimeRange retrieves ticks for a symbol within [start, end] (inclusive).
func (s *TickStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.PriceTick, error) {
	query := `
		SELECT symbol, timestamp_ms, bid_price, ask_price, last_price
		FROM price_ticks
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	began := time.Now()
	rows, err := s.conn.Query(ctx, query, symbol, start, end)
	observe("price_ticks.get_by_time_range", began, err)
	if err != nil {
		return nil, fmt.Errorf("query ticks by time range: %w", err)
	}
	defer rows.Close()

	return scanTicks(rows)
}

func scanTicks(rows chRows) ([]*domain.PriceTick, error) {
	var ticks []*domain.PriceTick

	for rows.Next() {
		var t domain.PriceTick
		if err := rows.Scan(&t.Symbol, &t.TimestampMs, &t.BidPrice, &t.AskPrice, &t.LastPrice); err != nil {
			return nil, fmt.Errorf("scan price tick row: %w", err)
		}
		ticks = append(ticks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price tick rows: %w", err)
	}

	return ticks, nil
}
