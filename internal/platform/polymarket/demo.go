package polymarket

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

const (
	demoStartBalance = 10_000.0
	demoFeeRate      = 0.001 // 0.1% taker fee
	demoMaxSlippage  = 0.02  // fill price moves at most 2% against the order
	demoMinFillRatio = 0.8   // partial fills land between 80% and 100%
)

// DemoClient is an offline MarketClient backed by a fixed set of markets.
// Prices jitter deterministically per refresh so scans produce varied but
// reproducible snapshots, and execution is simulated with slippage, partial
// fills, and a taker fee against a paper balance.
type DemoClient struct {
	now func() time.Time

	mu      sync.Mutex
	rng     *rand.Rand
	balance float64
	markets []domain.Market
}

// NewDemoClient creates a demo client seeded for reproducible runs.
func NewDemoClient(seed int64, now func() time.Time) *DemoClient {
	if now == nil {
		now = time.Now
	}
	c := &DemoClient{
		now:     now,
		rng:     rand.New(rand.NewSource(seed)),
		balance: demoStartBalance,
	}
	c.markets = demoMarkets(now())
	return c
}

// ListMarkets returns the demo market set with fresh price jitter applied.
func (c *DemoClient) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.jitterLocked()

	if offset >= len(c.markets) {
		return nil, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(c.markets) {
		end = len(c.markets)
	}

	out := make([]domain.Market, end-offset)
	copy(out, c.markets[offset:end])
	return out, nil
}

// GetMarket returns one demo market by ID.
func (c *DemoClient) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	if err := ctx.Err(); err != nil {
		return domain.Market{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, m := range c.markets {
		if m.ID == id {
			return m, nil
		}
	}
	return domain.Market{}, fmt.Errorf("polymarket: demo market %s: %w", id, domain.ErrNotFound)
}

// Execute simulates a fill: the price slips against the order by up to 2%,
// between 80% and 100% of the requested size fills, and a 0.1% fee is
// charged. The notional plus fee is deducted from the paper balance.
func (c *DemoClient) Execute(ctx context.Context, req OrderRequest) (ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return ExecutionResult{}, err
	}
	if req.Size <= 0 {
		return ExecutionResult{RejectedBy: "size"}, fmt.Errorf("polymarket: execute: %w: non-positive size", domain.ErrOrderRejected)
	}
	if req.Price <= 0 || req.Price >= 1 {
		return ExecutionResult{RejectedBy: "price"}, fmt.Errorf("polymarket: execute: %w: price outside (0,1)", domain.ErrOrderRejected)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	slippage := c.rng.Float64() * demoMaxSlippage
	fillPrice := math.Min(0.999, req.Price*(1+slippage))

	fillRatio := demoMinFillRatio + c.rng.Float64()*(1-demoMinFillRatio)
	fillSize := req.Size * fillRatio
	fee := fillSize * demoFeeRate

	if cost := fillSize + fee; cost > c.balance {
		return ExecutionResult{RejectedBy: "balance"}, fmt.Errorf("polymarket: execute: %w: insufficient balance", domain.ErrOrderRejected)
	}
	c.balance -= fillSize + fee

	return ExecutionResult{
		Filled:    true,
		FillPrice: fillPrice,
		FillSize:  fillSize,
		Fee:       fee,
	}, nil
}

// Balance returns the remaining paper balance.
func (c *DemoClient) Balance(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balance, nil
}

// Credit adds realized proceeds back to the paper balance. Used when demo
// positions close.
func (c *DemoClient) Credit(amount float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balance += amount
}

// jitterLocked nudges every market's yes price by up to ±1% and refreshes
// timestamps. Caller must hold mu.
func (c *DemoClient) jitterLocked() {
	now := c.now()
	for i := range c.markets {
		m := &c.markets[i]
		drifted := m.YesPrice + (c.rng.Float64()-0.5)*0.02
		m.YesPrice = math.Max(0.01, math.Min(0.99, drifted))
		m.NoPrice = 1 - m.YesPrice
		m.UpdatedAt = now
	}
}

// demoMarkets builds the canned market set. End dates are relative to the
// start time so every run has live markets across the horizon spectrum.
func demoMarkets(start time.Time) []domain.Market {
	days := func(n int) *time.Time {
		t := start.Add(time.Duration(n) * 24 * time.Hour)
		return &t
	}

	return []domain.Market{
		{
			ID: "demo-fed-rate-cut", Category: "Economics",
			Question:  "Will the Fed cut rates at the next FOMC meeting?",
			YesPrice:  0.62, NoPrice: 0.38,
			Volume:    450_000, Liquidity: 85_000,
			EndDate:   days(45), CreatedAt: start, UpdatedAt: start,
		},
		{
			ID: "demo-btc-100k", Category: "Crypto",
			Question:  "Will Bitcoin close above $100k this quarter?",
			YesPrice:  0.34, NoPrice: 0.66,
			Volume:    1_200_000, Liquidity: 150_000,
			EndDate:   days(80), CreatedAt: start, UpdatedAt: start,
		},
		{
			ID: "demo-election-turnout", Category: "Politics",
			Question:  "Will national election turnout exceed 60%?",
			YesPrice:  0.48, NoPrice: 0.52,
			Volume:    300_000, Liquidity: 40_000,
			EndDate:   days(120), CreatedAt: start, UpdatedAt: start,
		},
		{
			ID: "demo-superbowl-favorite", Category: "Sports",
			Question:  "Will the favorite win the championship game?",
			YesPrice:  0.55, NoPrice: 0.45,
			Volume:    900_000, Liquidity: 110_000,
			EndDate:   days(14), CreatedAt: start, UpdatedAt: start,
		},
		{
			ID: "demo-eth-etf-approval", Category: "Crypto",
			Question:  "Will a new spot ETH ETF be approved this year?",
			YesPrice:  0.71, NoPrice: 0.29,
			Volume:    600_000, Liquidity: 70_000,
			EndDate:   days(200), CreatedAt: start, UpdatedAt: start,
		},
		{
			ID: "demo-hurricane-landfall", Category: "Weather",
			Question:  "Will a major hurricane make US landfall this season?",
			YesPrice:  0.82, NoPrice: 0.18,
			Volume:    120_000, Liquidity: 15_000,
			EndDate:   days(90), CreatedAt: start, UpdatedAt: start,
		},
		{
			ID: "demo-oscars-bestpicture", Category: "Entertainment",
			Question:  "Will the front-runner win Best Picture?",
			YesPrice:  0.66, NoPrice: 0.34,
			Volume:    80_000, Liquidity: 9_000,
			EndDate:   days(30), CreatedAt: start, UpdatedAt: start,
		},
		{
			ID: "demo-ai-benchmark", Category: "Technology",
			Question:  "Will a frontier model top the benchmark leaderboard by Q3?",
			YesPrice:  0.44, NoPrice: 0.56,
			Volume:    200_000, Liquidity: 25_000,
			EndDate:   days(60), CreatedAt: start, UpdatedAt: start,
		},
	}
}
