package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

const marketUpsertQuery = `
	INSERT INTO markets (
		id, question, category, yes_price, no_price,
		volume, liquidity, end_date, created_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, NOW(), NOW()
	)
	ON CONFLICT (id) DO UPDATE SET
		question   = EXCLUDED.question,
		category   = EXCLUDED.category,
		yes_price  = EXCLUDED.yes_price,
		no_price   = EXCLUDED.no_price,
		volume     = EXCLUDED.volume,
		liquidity  = EXCLUDED.liquidity,
		end_date   = EXCLUDED.end_date,
		updated_at = NOW()`

// Upsert inserts or updates a single market snapshot.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	_, err := s.pool.Exec(ctx, marketUpsertQuery,
		m.ID, m.Question, m.Category, m.YesPrice, m.NoPrice,
		m.Volume, m.Liquidity, m.EndDate,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %s: %w", m.ID, err)
	}
	return nil
}

// UpsertBatch inserts or updates multiple markets in a single batch operation.
func (s *MarketStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, m := range markets {
		batch.Queue(marketUpsertQuery,
			m.ID, m.Question, m.Category, m.YesPrice, m.NoPrice,
			m.Volume, m.Liquidity, m.EndDate,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range markets {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert market batch item %d: %w", i, err)
		}
	}
	return nil
}

// UpdatePrices updates only the price columns of an existing market.
func (s *MarketStore) UpdatePrices(ctx context.Context, id string, yesPrice, noPrice float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE markets SET yes_price = $2, no_price = $3, updated_at = NOW() WHERE id = $1`,
		id, yesPrice, noPrice,
	)
	if err != nil {
		return fmt.Errorf("postgres: update market prices %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update market prices %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

const marketCols = `id, question, category, yes_price, no_price,
	volume, liquidity, end_date, created_at, updated_at`

func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	err := row.Scan(
		&m.ID, &m.Question, &m.Category, &m.YesPrice, &m.NoPrice,
		&m.Volume, &m.Liquidity, &m.EndDate, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// ListActive returns unresolved markets with pagination and optional time
// filtering. A market is active while its end date is null or in the future.
func (s *MarketStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE (end_date IS NULL OR end_date > NOW())`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND updated_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND updated_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY volume DESC, id"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list active markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan active market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list active markets rows: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets in the database.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}
