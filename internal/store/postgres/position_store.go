package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// PositionStore implements domain.PositionStore using PostgreSQL. Reads join
// the markets table so risk checks see category, liquidity, and end date
// without a second query.
type PositionStore struct {
	pool *pgxpool.Pool
}

// NewPositionStore creates a new PositionStore backed by the given connection pool.
func NewPositionStore(pool *pgxpool.Pool) *PositionStore {
	return &PositionStore{pool: pool}
}

const positionSelectCols = `p.id, p.market_id, p.side, p.size,
	p.entry_price, p.current_price, p.pnl, p.status,
	p.opened_at, p.closed_at, p.updated_at,
	COALESCE(m.question, ''), COALESCE(m.category, 'General'),
	COALESCE(m.liquidity, 0), m.end_date`

func scanPosition(row pgx.Row) (domain.Position, error) {
	var p domain.Position
	var side, status string

	err := row.Scan(
		&p.ID, &p.MarketID, &side, &p.Size,
		&p.EntryPrice, &p.CurrentPrice, &p.PnL, &status,
		&p.OpenedAt, &p.ClosedAt, &p.UpdatedAt,
		&p.Question, &p.Category, &p.Liquidity, &p.EndDate,
	)
	if err != nil {
		return domain.Position{}, err
	}
	p.Side = domain.TradeSide(side)
	p.Status = domain.PositionStatus(status)
	return p, nil
}

// Create inserts a new position.
func (s *PositionStore) Create(ctx context.Context, p domain.Position) error {
	const query = `
		INSERT INTO positions (
			id, market_id, side, size, entry_price, current_price,
			pnl, status, opened_at, closed_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, NOW()
		)`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.MarketID, string(p.Side), p.Size,
		p.EntryPrice, p.CurrentPrice,
		p.PnL, string(p.Status), p.OpenedAt, p.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create position %s: %w", p.ID, err)
	}
	return nil
}

// UpdatePnL marks an open position to the given price.
func (s *PositionStore) UpdatePnL(ctx context.Context, id string, currentPrice, pnl float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE positions SET current_price = $2, pnl = $3, updated_at = NOW()
		 WHERE id = $1 AND status = 'open'`,
		id, currentPrice, pnl,
	)
	if err != nil {
		return fmt.Errorf("postgres: update position pnl %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: update position pnl %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Close settles an open position at the given exit price.
func (s *PositionStore) Close(ctx context.Context, id string, exitPrice, realizedPnL float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE positions SET
			status = 'closed', current_price = $2, pnl = $3,
			closed_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND status = 'open'`,
		id, exitPrice, realizedPnL,
	)
	if err != nil {
		return fmt.Errorf("postgres: close position %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: close position %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// GetByID retrieves a position by its primary key.
func (s *PositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+positionSelectCols+`
		 FROM positions p LEFT JOIN markets m ON m.id = p.market_id
		 WHERE p.id = $1`, id)
	p, err := scanPosition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Position{}, domain.ErrNotFound
		}
		return domain.Position{}, fmt.Errorf("postgres: get position %s: %w", id, err)
	}
	return p, nil
}

// ListOpen returns every open position, newest first.
func (s *PositionStore) ListOpen(ctx context.Context) ([]domain.Position, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+positionSelectCols+`
		 FROM positions p LEFT JOIN markets m ON m.id = p.market_id
		 WHERE p.status = 'open'
		 ORDER BY p.opened_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open positions: %w", err)
	}
	defer rows.Close()

	return collectPositions(rows)
}

// ListHistory returns closed positions with pagination and optional time
// filtering on the close timestamp.
func (s *PositionStore) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	query := `SELECT ` + positionSelectCols + `
		FROM positions p LEFT JOIN markets m ON m.id = p.market_id
		WHERE p.status = 'closed'`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND p.closed_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND p.closed_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY p.closed_at DESC"

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
		return nil, fmt.Errorf("postgres: list position history: %w", err)
	}
	defer rows.Close()

	return collectPositions(rows)
}

func collectPositions(rows pgx.Rows) ([]domain.Position, error) {
	var positions []domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: position rows: %w", err)
	}
	return positions, nil
}
