package service

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/edgebot/internal/domain"
	"github.com/alanyoungcy/edgebot/internal/engine"
	"github.com/alanyoungcy/edgebot/internal/notify"
	"github.com/alanyoungcy/edgebot/internal/platform/polymarket"
	"github.com/alanyoungcy/edgebot/internal/risk"
)

var svcNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return svcNow }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func discardNotifier() *notify.Notifier {
	return notify.NewNotifier(nil, nil, testLogger())
}

// --- fakes ---

type fakeMarketStore struct {
	mu      sync.Mutex
	markets map[string]domain.Market
	upserts int
}

func newFakeMarketStore() *fakeMarketStore {
	return &fakeMarketStore{markets: make(map[string]domain.Market)}
}

func (s *fakeMarketStore) Upsert(ctx context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[m.ID] = m
	s.upserts++
	return nil
}

func (s *fakeMarketStore) UpsertBatch(ctx context.Context, ms []domain.Market) error {
	for _, m := range ms {
		if err := s.Upsert(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (s *fakeMarketStore) UpdatePrices(ctx context.Context, id string, yes, no float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.YesPrice, m.NoPrice = yes, no
	s.markets[id] = m
	return nil
}

func (s *fakeMarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *fakeMarketStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	return out, nil
}

func (s *fakeMarketStore) Count(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.markets)), nil
}

type fakeMarketCache struct {
	mu   sync.Mutex
	sets map[string]domain.Market
}

func newFakeMarketCache() *fakeMarketCache {
	return &fakeMarketCache{sets: make(map[string]domain.Market)}
}

func (c *fakeMarketCache) Set(ctx context.Context, m domain.Market) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets[m.ID] = m
	return nil
}

func (c *fakeMarketCache) Get(ctx context.Context, id string) (domain.Market, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.sets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (c *fakeMarketCache) Invalidate(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sets, id)
	return nil
}

type fakeBus struct {
	mu        sync.Mutex
	published map[string][][]byte
}

func newFakeBus() *fakeBus {
	return &fakeBus{published: make(map[string][][]byte)}
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeBus) count(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published[channel])
}

type fakePositionStore struct {
	mu        sync.Mutex
	positions map[string]domain.Position
}

func newFakePositionStore() *fakePositionStore {
	return &fakePositionStore{positions: make(map[string]domain.Position)}
}

func (s *fakePositionStore) Create(ctx context.Context, pos domain.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[pos.ID] = pos
	return nil
}

func (s *fakePositionStore) UpdatePnL(ctx context.Context, id string, currentPrice, pnl float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[id]
	if !ok {
		return domain.ErrNotFound
	}
	pos.CurrentPrice = currentPrice
	pos.PnL = pnl
	s.positions[id] = pos
	return nil
}

func (s *fakePositionStore) Close(ctx context.Context, id string, exitPrice, realizedPnL float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[id]
	if !ok {
		return domain.ErrNotFound
	}
	closed := svcNow
	pos.Status = domain.PositionStatusClosed
	pos.CurrentPrice = exitPrice
	pos.PnL = realizedPnL
	pos.ClosedAt = &closed
	s.positions[id] = pos
	return nil
}

func (s *fakePositionStore) GetByID(ctx context.Context, id string) (domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos, ok := s.positions[id]
	if !ok {
		return domain.Position{}, domain.ErrNotFound
	}
	return pos, nil
}

func (s *fakePositionStore) ListOpen(ctx context.Context) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Position
	for _, pos := range s.positions {
		if pos.Status == domain.PositionStatusOpen {
			out = append(out, pos)
		}
	}
	return out, nil
}

func (s *fakePositionStore) ListHistory(ctx context.Context, opts domain.ListOpts) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Position
	for _, pos := range s.positions {
		if pos.Status == domain.PositionStatusClosed {
			out = append(out, pos)
		}
	}
	return out, nil
}

type fakeTradeStore struct {
	mu     sync.Mutex
	trades []domain.Trade
}

func (s *fakeTradeStore) Insert(ctx context.Context, t domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
	return nil
}

func (s *fakeTradeStore) ListRecent(ctx context.Context, limit int) ([]domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Trade(nil), s.trades...), nil
}

func (s *fakeTradeStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.Trade, error) {
	return nil, nil
}

type fakeSignalStore struct {
	mu      sync.Mutex
	signals []domain.TradingSignal
}

func (s *fakeSignalStore) Insert(ctx context.Context, sig domain.TradingSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, sig)
	return nil
}

func (s *fakeSignalStore) ListRecent(ctx context.Context, limit int) ([]domain.TradingSignal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TradingSignal(nil), s.signals...), nil
}

func (s *fakeSignalStore) ListBefore(ctx context.Context, cutoff time.Time) ([]domain.TradingSignal, error) {
	return nil, nil
}

type fakeStatsStore struct{}

func (fakeStatsStore) PortfolioStats(ctx context.Context) (domain.PortfolioStats, error) {
	return domain.PortfolioStats{}, nil
}

type fakeLock struct {
	held bool
}

func (l *fakeLock) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	return func() {}, nil
}

// fakeClient is a scripted platform client.
type fakeClient struct {
	markets   []domain.Market
	balance   float64
	reject    bool
	credited  float64
	fillPrice float64
}

func (c *fakeClient) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	if offset >= len(c.markets) {
		return nil, nil
	}
	return c.markets[offset:], nil
}

func (c *fakeClient) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	for _, m := range c.markets {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Market{}, domain.ErrNotFound
}

func (c *fakeClient) Execute(ctx context.Context, req polymarket.OrderRequest) (polymarket.ExecutionResult, error) {
	if c.reject {
		return polymarket.ExecutionResult{RejectedBy: "balance"}, nil
	}
	price := c.fillPrice
	if price == 0 {
		price = req.Price
	}
	return polymarket.ExecutionResult{
		Filled:    true,
		FillPrice: price,
		FillSize:  req.Size,
		Fee:       req.Size * 0.001,
	}, nil
}

func (c *fakeClient) Balance(ctx context.Context) (float64, error) {
	return c.balance, nil
}

func (c *fakeClient) Credit(amount float64) {
	c.credited += amount
}

// --- market service ---

func svcMarket(id string, yes float64) domain.Market {
	end := svcNow.Add(90 * 24 * time.Hour)
	return domain.Market{
		ID:        id,
		Question:  "Will it resolve yes?",
		Category:  "Crypto",
		YesPrice:  yes,
		NoPrice:   1 - yes,
		Volume:    500_000,
		Liquidity: 50_000,
		EndDate:   &end,
		UpdatedAt: svcNow,
	}
}

func TestMarketServiceSyncWarmsCacheAndPublishes(t *testing.T) {
	store := newFakeMarketStore()
	cache := newFakeMarketCache()
	bus := newFakeBus()
	client := &fakeClient{}
	svc := NewMarketService(client, store, cache, bus, testLogger())

	err := svc.SyncMarkets(context.Background(), []domain.Market{
		svcMarket("m1", 0.6),
		svcMarket("m2", 0.4),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, store.upserts)
	assert.Len(t, cache.sets, 2)
	assert.Equal(t, 2, bus.count("prices"))
}

func TestMarketServiceRefreshPullsFromClient(t *testing.T) {
	store := newFakeMarketStore()
	client := &fakeClient{markets: []domain.Market{svcMarket("m1", 0.6)}}
	svc := NewMarketService(client, store, newFakeMarketCache(), newFakeBus(), testLogger())

	n, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, 0.6, got.YesPrice)
}

func TestMarketServiceGetMarketFallsBackToStore(t *testing.T) {
	store := newFakeMarketStore()
	cache := newFakeMarketCache()
	require.NoError(t, store.Upsert(context.Background(), svcMarket("m1", 0.6)))
	svc := NewMarketService(&fakeClient{}, store, cache, newFakeBus(), testLogger())

	m, err := svc.GetMarket(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)

	// Cache is back-filled after the miss.
	_, err = cache.Get(context.Background(), "m1")
	assert.NoError(t, err)
}

// --- position service ---

func newPositionFixture(client *fakeClient) (*PositionService, *fakeMarketStore, *fakePositionStore, *fakeTradeStore, *fakeBus, *risk.Monitor) {
	markets := newFakeMarketStore()
	positions := newFakePositionStore()
	trades := &fakeTradeStore{}
	bus := newFakeBus()
	monitor := risk.NewMonitor(risk.DefaultBreakerLimits(), fixedClock, testLogger())
	svc := NewPositionService(client, markets, positions, trades, fakeStatsStore{}, monitor, bus, discardNotifier(), testLogger(), fixedClock)
	return svc, markets, positions, trades, bus, monitor
}

func TestOpenRecordsTradeAndPosition(t *testing.T) {
	client := &fakeClient{balance: 10_000}
	svc, _, positions, trades, bus, _ := newPositionFixture(client)

	pos, err := svc.Open(context.Background(), domain.TradingSignal{
		MarketID:        "m1",
		Side:            domain.TradeSideYes,
		RecommendedSize: 500,
		EntryPrice:      0.55,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.PositionStatusOpen, pos.Status)
	assert.Equal(t, 0.55, pos.EntryPrice)
	assert.Equal(t, 500.0, pos.Size)
	assert.NotEmpty(t, pos.ID)

	require.Len(t, trades.trades, 1)
	assert.Equal(t, 500.0, trades.trades[0].Size)
	assert.InDelta(t, 0.5, trades.trades[0].Fee, 0.001)

	stored, err := positions.GetByID(context.Background(), pos.ID)
	require.NoError(t, err)
	assert.Equal(t, pos.ID, stored.ID)

	assert.Equal(t, 1, bus.count("positions"))
}

func TestOpenPropagatesRejection(t *testing.T) {
	client := &fakeClient{reject: true}
	svc, _, _, trades, _, _ := newPositionFixture(client)

	_, err := svc.Open(context.Background(), domain.TradingSignal{
		MarketID:        "m1",
		Side:            domain.TradeSideYes,
		RecommendedSize: 500,
		EntryPrice:      0.55,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrOrderRejected)
	assert.Empty(t, trades.trades)
}

func TestRefreshPnLMarksToStorePrice(t *testing.T) {
	client := &fakeClient{balance: 10_000}
	svc, markets, positions, _, _, _ := newPositionFixture(client)

	require.NoError(t, markets.Upsert(context.Background(), svcMarket("m1", 0.70)))
	require.NoError(t, positions.Create(context.Background(), domain.Position{
		ID:         "p1",
		MarketID:   "m1",
		Side:       domain.TradeSideYes,
		Size:       1000,
		EntryPrice: 0.60,
		Status:     domain.PositionStatusOpen,
	}))

	require.NoError(t, svc.RefreshPnL(context.Background()))

	pos, err := positions.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.InDelta(t, 0.70, pos.CurrentPrice, 1e-9)
	assert.InDelta(t, 100.0, pos.PnL, 1e-9) // (0.70-0.60)*1000
}

func TestCloseRealizesPnLAndCreditsDemoBalance(t *testing.T) {
	client := &fakeClient{balance: 10_000}
	svc, markets, positions, trades, bus, _ := newPositionFixture(client)

	require.NoError(t, markets.Upsert(context.Background(), svcMarket("m1", 0.70)))
	require.NoError(t, positions.Create(context.Background(), domain.Position{
		ID:         "p1",
		MarketID:   "m1",
		Side:       domain.TradeSideYes,
		Size:       1000,
		EntryPrice: 0.60,
		Status:     domain.PositionStatusOpen,
	}))

	closed, err := svc.Close(context.Background(), "p1")
	require.NoError(t, err)

	assert.Equal(t, domain.PositionStatusClosed, closed.Status)
	assert.InDelta(t, 100.0, closed.PnL, 1e-9)
	assert.InDelta(t, 1100.0, client.credited, 1e-9) // size + realized pnl

	// Closing fill recorded with negative size.
	require.Len(t, trades.trades, 1)
	assert.InDelta(t, -1000.0, trades.trades[0].Size, 1e-9)

	assert.Equal(t, 1, bus.count("positions"))

	// Closing an already-closed position is an error.
	_, err = svc.Close(context.Background(), "p1")
	assert.Error(t, err)
}

func TestCloseLossFeedsBreakerMonitor(t *testing.T) {
	client := &fakeClient{balance: 10_000}
	svc, markets, positions, _, _, monitor := newPositionFixture(client)

	require.NoError(t, markets.Upsert(context.Background(), svcMarket("m1", 0.40)))
	require.NoError(t, positions.Create(context.Background(), domain.Position{
		ID:         "p1",
		MarketID:   "m1",
		Side:       domain.TradeSideYes,
		Size:       10_000,
		EntryPrice: 0.61,
		Status:     domain.PositionStatusOpen,
	}))

	closed, err := svc.Close(context.Background(), "p1")
	require.NoError(t, err)
	assert.InDelta(t, -2100.0, closed.PnL, 1e-9)

	// A 2100 cumulative daily loss exceeds the 20% drawdown limit on a
	// 10k book, so the breaker must be tripped for subsequent scans.
	assert.True(t, monitor.CheckBreakers(10_000).DrawdownLimit)
}

func TestPortfolioValueSumsBalanceAndOpenMarks(t *testing.T) {
	client := &fakeClient{balance: 5000}
	svc, _, positions, _, _, _ := newPositionFixture(client)

	require.NoError(t, positions.Create(context.Background(), domain.Position{
		ID:     "p1",
		Side:   domain.TradeSideYes,
		Size:   1000,
		PnL:    150,
		Status: domain.PositionStatusOpen,
	}))
	require.NoError(t, positions.Create(context.Background(), domain.Position{
		ID:     "p2",
		Side:   domain.TradeSideNo,
		Size:   500,
		PnL:    -50,
		Status: domain.PositionStatusClosed, // ignored
	}))

	pv, err := svc.PortfolioValue(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 6150.0, pv, 1e-9) // 5000 + 1000 + 150
}

// --- signal service ---

func newSignalFixture(client *fakeClient, lock *fakeLock) (*SignalService, *fakeMarketStore, *fakeSignalStore, *fakeBus, *risk.Monitor) {
	markets := newFakeMarketStore()
	signals := &fakeSignalStore{}
	bus := newFakeBus()
	monitor := risk.NewMonitor(risk.DefaultBreakerLimits(), fixedClock, testLogger())

	positionSvc := NewPositionService(client, markets, newFakePositionStore(), &fakeTradeStore{}, fakeStatsStore{}, monitor, bus, discardNotifier(), testLogger(), fixedClock)

	generator := engine.NewSignalGenerator(
		engine.NewPricingModel(),
		engine.NewPositionSizer(),
		risk.NewAssessor(risk.DefaultLimits(), fixedClock),
		engine.GeneratorConfig{
			Bankroll:    10_000,
			Confidence:  1.0,
			MaxFraction: 0.25,
			Volatility:  1.0,
		},
		testLogger(),
		fixedClock,
	)

	svc := NewSignalService(generator, markets, signals, positionSvc, monitor, lock, bus, discardNotifier(), testLogger())
	return svc, markets, signals, bus, monitor
}

func TestScanGeneratesPersistsAndPublishes(t *testing.T) {
	client := &fakeClient{balance: 10_000}
	svc, markets, signals, bus, _ := newSignalFixture(client, &fakeLock{})

	// A strongly priced market with high volatility decays hard toward 0.5,
	// which creates a sizable edge on the no side.
	require.NoError(t, markets.Upsert(context.Background(), svcMarket("m1", 0.90)))

	got, err := svc.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "m1", got[0].MarketID)
	assert.Equal(t, domain.TradeSideNo, got[0].Side)
	assert.Greater(t, got[0].RecommendedSize, 0.0)

	assert.Len(t, signals.signals, 1)
	assert.Equal(t, 1, bus.count("signals"))
}

func TestScanSkipsWhenLockHeld(t *testing.T) {
	client := &fakeClient{balance: 10_000}
	svc, markets, signals, _, _ := newSignalFixture(client, &fakeLock{held: true})
	require.NoError(t, markets.Upsert(context.Background(), svcMarket("m1", 0.90)))

	got, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, signals.signals)
}

func TestScanSuppressedByTrippedBreaker(t *testing.T) {
	client := &fakeClient{balance: 10_000}
	svc, markets, signals, _, monitor := newSignalFixture(client, &fakeLock{})
	require.NoError(t, markets.Upsert(context.Background(), svcMarket("m1", 0.90)))

	// Trip the daily loss breaker: lose more than 5% of portfolio value.
	monitor.RecordOutcome(-600)

	got, err := svc.Scan(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Empty(t, signals.signals)
}
