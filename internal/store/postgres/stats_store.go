package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// StatsStore implements domain.StatsStore by aggregating over the positions
// and trades tables.
type StatsStore struct {
	pool *pgxpool.Pool
}

// NewStatsStore creates a new StatsStore backed by the given connection pool.
func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

// PortfolioStats returns aggregate realized performance. Win rate is the
// fraction of closed positions with positive PnL; zero closed positions
// yields a zero win rate rather than NaN.
func (s *StatsStore) PortfolioStats(ctx context.Context) (domain.PortfolioStats, error) {
	const query = `
		SELECT
			COALESCE(SUM(pnl), 0),
			COUNT(*) FILTER (WHERE status = 'open'),
			COUNT(*) FILTER (WHERE status = 'closed'),
			COUNT(*) FILTER (WHERE status = 'closed' AND pnl > 0)
		FROM positions`

	var stats domain.PortfolioStats
	var wins int64
	err := s.pool.QueryRow(ctx, query).Scan(
		&stats.TotalPnL, &stats.OpenPositions, &stats.ClosedPositions, &wins,
	)
	if err != nil {
		return domain.PortfolioStats{}, fmt.Errorf("postgres: portfolio stats: %w", err)
	}

	if stats.ClosedPositions > 0 {
		stats.WinRate = float64(wins) / float64(stats.ClosedPositions)
	}

	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM trades").Scan(&stats.TotalTrades); err != nil {
		return domain.PortfolioStats{}, fmt.Errorf("postgres: count trades: %w", err)
	}

	return stats, nil
}
