package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `t.id, t.market_id, t.side, t.size, t.price, t.fee, t.executed_at,
	COALESCE(m.question, ''), COALESCE(m.category, 'General')`

// Insert records an executed fill. Duplicate IDs are silently skipped so
// retried executions stay idempotent.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (id, market_id, side, size, price, fee, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		t.ID, t.MarketID, string(t.Side), t.Size, t.Price, t.Fee, t.ExecutedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", t.ID, err)
	}
	return nil
}

// ListRecent returns the most recent trades, newest first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+`
		 FROM trades t LEFT JOIN markets m ON m.id = t.market_id
		 ORDER BY t.executed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

// ListBefore returns every trade executed before the cutoff, oldest first.
// Used by the cold-storage archiver.
func (s *TradeStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.Trade, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+`
		 FROM trades t LEFT JOIN markets m ON m.id = t.market_id
		 WHERE t.executed_at < $1
		 ORDER BY t.executed_at`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return collectTrades(rows)
}

func collectTrades(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var side string
		if err := rows.Scan(
			&t.ID, &t.MarketID, &side, &t.Size, &t.Price, &t.Fee, &t.ExecutedAt,
			&t.Question, &t.Category,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Side = domain.TradeSide(side)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: trade rows: %w", err)
	}
	return trades, nil
}
