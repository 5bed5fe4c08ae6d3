package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore persists market snapshots.
type MarketStore interface {
	Upsert(ctx context.Context, market Market) error
	UpsertBatch(ctx context.Context, markets []Market) error
	UpdatePrices(ctx context.Context, id string, yesPrice, noPrice float64) error
	GetByID(ctx context.Context, id string) (Market, error)
	ListActive(ctx context.Context, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// PositionStore persists positions.
type PositionStore interface {
	Create(ctx context.Context, pos Position) error
	UpdatePnL(ctx context.Context, id string, currentPrice, pnl float64) error
	Close(ctx context.Context, id string, exitPrice, realizedPnL float64) error
	GetByID(ctx context.Context, id string) (Position, error)
	ListOpen(ctx context.Context) ([]Position, error)
	ListHistory(ctx context.Context, opts ListOpts) ([]Position, error)
}

// TradeStore persists executed fills.
type TradeStore interface {
	Insert(ctx context.Context, trade Trade) error
	ListRecent(ctx context.Context, limit int) ([]Trade, error)
	ListBefore(ctx context.Context, cutoff time.Time) ([]Trade, error)
}

// SignalStore persists emitted trading signals.
type SignalStore interface {
	Insert(ctx context.Context, sig TradingSignal) error
	ListRecent(ctx context.Context, limit int) ([]TradingSignal, error)
	ListBefore(ctx context.Context, cutoff time.Time) ([]TradingSignal, error)
}

// StatsStore aggregates realized performance across positions and trades.
type StatsStore interface {
	PortfolioStats(ctx context.Context) (PortfolioStats, error)
}

// MarketCache is a short-lived cache of market snapshots.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id string) (Market, error)
	Invalidate(ctx context.Context, id string) error
}

// SignalBus is a lightweight pub/sub channel used to fan events out to the
// WebSocket hub and any other listeners.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// BlobWriter writes archive objects to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// RateLimiter bounds request rates per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed mutual exclusion, used to keep scans
// single-flight across replicas. Acquire returns ErrLockHeld when another
// holder owns the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
