package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// SignalStore implements domain.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *pgxpool.Pool
}

// NewSignalStore creates a new SignalStore backed by the given connection pool.
func NewSignalStore(pool *pgxpool.Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

const signalCols = `id, market_id, side, confidence, recommended_size,
	entry_price, stop_loss, take_profit, reasoning, risk_score, created_at`

// Insert records an emitted trading signal.
func (s *SignalStore) Insert(ctx context.Context, sig domain.TradingSignal) error {
	const query = `
		INSERT INTO signals (` + signalCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		sig.ID, sig.MarketID, string(sig.Side), sig.Confidence, sig.RecommendedSize,
		sig.EntryPrice, sig.StopLoss, sig.TakeProfit, sig.Reasoning, sig.RiskScore, sig.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert signal %s: %w", sig.ID, err)
	}
	return nil
}

// ListRecent returns the most recent signals, newest first.
func (s *SignalStore) ListRecent(ctx context.Context, limit int) ([]domain.TradingSignal, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+signalCols+` FROM signals ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent signals: %w", err)
	}
	defer rows.Close()

	return collectSignals(rows)
}

// ListBefore returns every signal created before the cutoff, oldest first.
// Used by the cold-storage archiver.
func (s *SignalStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.TradingSignal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+signalCols+` FROM signals WHERE created_at < $1 ORDER BY created_at`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("postgres: list signals before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	defer rows.Close()

	return collectSignals(rows)
}

func collectSignals(rows pgx.Rows) ([]domain.TradingSignal, error) {
	var signals []domain.TradingSignal
	for rows.Next() {
		var sig domain.TradingSignal
		var side string
		if err := rows.Scan(
			&sig.ID, &sig.MarketID, &side, &sig.Confidence, &sig.RecommendedSize,
			&sig.EntryPrice, &sig.StopLoss, &sig.TakeProfit, &sig.Reasoning, &sig.RiskScore, &sig.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan signal: %w", err)
		}
		sig.Side = domain.TradeSide(side)
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: signal rows: %w", err)
	}
	return signals, nil
}
