package polymarket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

var demoNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newDemo() *DemoClient {
	return NewDemoClient(42, func() time.Time { return demoNow })
}

func TestDemoListMarkets(t *testing.T) {
	c := newDemo()
	ctx := context.Background()

	markets, err := c.ListMarkets(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, markets, 8)

	for _, m := range markets {
		assert.NotEmpty(t, m.ID)
		assert.NotEmpty(t, m.Category)
		assert.Greater(t, m.YesPrice, 0.0)
		assert.Less(t, m.YesPrice, 1.0)
		assert.InDelta(t, 1.0, m.YesPrice+m.NoPrice, 1e-9)
		require.NotNil(t, m.EndDate)
		assert.True(t, m.EndDate.After(demoNow))
	}

	// Pagination.
	page, err := c.ListMarkets(ctx, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page, 3)

	empty, err := c.ListMarkets(ctx, 10, 100)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDemoPricesJitterDeterministically(t *testing.T) {
	ctx := context.Background()

	a1, err := newDemo().ListMarkets(ctx, 0, 0)
	require.NoError(t, err)
	a2, err := newDemo().ListMarkets(ctx, 0, 0)
	require.NoError(t, err)

	// Same seed, same jitter.
	for i := range a1 {
		assert.Equal(t, a1[i].YesPrice, a2[i].YesPrice)
	}

	// Successive refreshes move prices.
	c := newDemo()
	first, err := c.ListMarkets(ctx, 0, 0)
	require.NoError(t, err)
	second, err := c.ListMarkets(ctx, 0, 0)
	require.NoError(t, err)

	moved := false
	for i := range first {
		if first[i].YesPrice != second[i].YesPrice {
			moved = true
		}
	}
	assert.True(t, moved)
}

func TestDemoGetMarket(t *testing.T) {
	c := newDemo()
	ctx := context.Background()

	m, err := c.GetMarket(ctx, "demo-btc-100k")
	require.NoError(t, err)
	assert.Equal(t, "Crypto", m.Category)

	_, err = c.GetMarket(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDemoExecute(t *testing.T) {
	c := newDemo()
	ctx := context.Background()

	res, err := c.Execute(ctx, OrderRequest{
		MarketID: "demo-btc-100k",
		Side:     domain.TradeSideYes,
		Size:     1000,
		Price:    0.34,
	})
	require.NoError(t, err)
	require.True(t, res.Filled)

	// Slippage only moves against the order, capped at 2%.
	assert.GreaterOrEqual(t, res.FillPrice, 0.34)
	assert.LessOrEqual(t, res.FillPrice, 0.34*1.02)
	// Partial fill between 80% and 100%.
	assert.GreaterOrEqual(t, res.FillSize, 800.0)
	assert.LessOrEqual(t, res.FillSize, 1000.0)
	assert.InDelta(t, res.FillSize*0.001, res.Fee, 1e-9)

	balance, err := c.Balance(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 10_000-res.FillSize-res.Fee, balance, 1e-9)
}

func TestDemoExecuteRejections(t *testing.T) {
	c := newDemo()
	ctx := context.Background()

	_, err := c.Execute(ctx, OrderRequest{Size: 0, Price: 0.5})
	assert.ErrorIs(t, err, domain.ErrOrderRejected)

	_, err = c.Execute(ctx, OrderRequest{Size: 100, Price: 1.5})
	assert.ErrorIs(t, err, domain.ErrOrderRejected)

	// Orders beyond the paper balance bounce.
	res, err := c.Execute(ctx, OrderRequest{Size: 50_000, Price: 0.5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrOrderRejected))
	assert.Equal(t, "balance", res.RejectedBy)
}

func TestDemoCredit(t *testing.T) {
	c := newDemo()
	ctx := context.Background()

	c.Credit(500)
	balance, err := c.Balance(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10_500.0, balance)
}
