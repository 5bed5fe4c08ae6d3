// Package service contains the orchestration layer: it coordinates the
// platform client, stores, caches, the decision engine, and the risk core
// into the market refresh, position lifecycle, and signal scan flows.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/edgebot/internal/domain"
	"github.com/alanyoungcy/edgebot/internal/platform/polymarket"
)

// refreshPageSize is the page size used when pulling markets from the
// platform client.
const refreshPageSize = 100

// MarketService handles market discovery and metadata sync.
type MarketService struct {
	client  polymarket.MarketClient
	markets domain.MarketStore
	cache   domain.MarketCache
	bus     domain.SignalBus
	logger  *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	client polymarket.MarketClient,
	markets domain.MarketStore,
	cache domain.MarketCache,
	bus domain.SignalBus,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		client:  client,
		markets: markets,
		cache:   cache,
		bus:     bus,
		logger:  logger.With(slog.String("component", "market_service")),
	}
}

// Refresh pulls the current set of active markets from the platform,
// upserts them into the persistent store, warms the cache, and publishes a
// price event per market. It returns the number of markets refreshed.
func (s *MarketService) Refresh(ctx context.Context) (int, error) {
	total := 0
	for offset := 0; ; offset += refreshPageSize {
		page, err := s.client.ListMarkets(ctx, refreshPageSize, offset)
		if err != nil {
			return total, fmt.Errorf("market_service: list markets: %w", err)
		}
		if len(page) == 0 {
			break
		}

		if err := s.SyncMarkets(ctx, page); err != nil {
			return total, err
		}
		total += len(page)

		if len(page) < refreshPageSize {
			break
		}
	}

	s.logger.InfoContext(ctx, "market refresh complete",
		slog.Int("count", total),
	)
	return total, nil
}

// Run refreshes markets on the given interval until the context is
// cancelled. A failed refresh is logged and retried on the next tick.
func (s *MarketService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.ErrorContext(ctx, "market refresh failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// SyncMarkets upserts a batch of markets into the persistent store, warms
// the cache, and publishes a price event per market.
func (s *MarketService) SyncMarkets(ctx context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		return nil
	}

	if err := s.markets.UpsertBatch(ctx, markets); err != nil {
		return fmt.Errorf("market_service: upsert batch: %w", err)
	}

	for _, m := range markets {
		// Warm the cache with the fresh snapshot; failures are non-fatal,
		// entries expire on their own.
		if err := s.cache.Set(ctx, m); err != nil {
			s.logger.WarnContext(ctx, "cache set failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
		}

		evt, _ := json.Marshal(map[string]any{
			"event":     "price_update",
			"market_id": m.ID,
			"yes_price": m.YesPrice,
			"no_price":  m.NoPrice,
			"timestamp": m.UpdatedAt.Format(time.RFC3339),
		})
		if pubErr := s.bus.Publish(ctx, "prices", evt); pubErr != nil {
			s.logger.WarnContext(ctx, "publish price event failed",
				slog.String("market_id", m.ID),
				slog.String("error", pubErr.Error()),
			)
		}
	}

	return nil
}

// GetMarket retrieves a market by ID, checking the cache first and falling
// back to the persistent store on a cache miss.
func (s *MarketService) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.cache.Get(ctx, id)
	if err == nil {
		return m, nil
	}

	m, err = s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get by id %q: %w", id, err)
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "cache set failed",
			slog.String("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}

	return m, nil
}

// ListActive returns active markets directly from the persistent store.
func (s *MarketService) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.ListActive(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: list active: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets in the persistent store.
func (s *MarketService) Count(ctx context.Context) (int64, error) {
	count, err := s.markets.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: count: %w", err)
	}
	return count, nil
}
