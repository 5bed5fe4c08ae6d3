package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

var riskNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestAssessor() *Assessor {
	return NewAssessor(DefaultLimits(), func() time.Time { return riskNow })
}

// healthyMarket is liquid, far from resolution, and priced near the middle.
func healthyMarket() domain.Market {
	end := riskNow.Add(60 * 24 * time.Hour)
	return domain.Market{
		ID:        "mkt-1",
		Category:  "Politics",
		YesPrice:  0.55,
		NoPrice:   0.45,
		Volume:    800_000,
		Liquidity: 50_000,
		EndDate:   &end,
	}
}

func TestAssessApprovesCleanTrade(t *testing.T) {
	a := newTestAssessor()

	res := a.Assess(healthyMarket(), 500, nil, 10_000)
	require.True(t, res.Approved)
	assert.Empty(t, res.Violations)
	assert.Zero(t, res.RiskScore)
	assert.Equal(t, 500.0, res.RecommendedSize)
	assert.InDelta(t, 0.05, res.Metrics.PositionPct, 1e-12)
}

func TestAssessSinglePositionLimit(t *testing.T) {
	a := newTestAssessor()

	res := a.Assess(healthyMarket(), 1500, nil, 10_000)
	require.False(t, res.Approved)
	require.Len(t, res.Violations, 1)
	assert.Contains(t, res.Violations[0], "position size")
	// Clamped to the limit, not shrunk to fit.
	assert.InDelta(t, 1000, res.RecommendedSize, 1e-9)
}

func TestAssessCategoryConcentration(t *testing.T) {
	a := newTestAssessor()

	open := []domain.Position{
		{MarketID: "a", Category: "Politics", Size: 1500},
		{MarketID: "b", Category: "Politics", Size: 1300},
		{MarketID: "c", Category: "Sports", Size: 400},
	}

	// (2800 + 500) / 10000 = 33% against a 30% limit. The recommendation
	// drops to the remaining category headroom.
	res := a.Assess(healthyMarket(), 500, open, 10_000)
	require.False(t, res.Approved)
	assert.Contains(t, res.Violations[0], "category concentration")
	assert.InDelta(t, 200, res.RecommendedSize, 1e-9)
	assert.InDelta(t, 0.33, res.Metrics.CategoryPct, 1e-12)
}

func TestAssessRiskScoreGate(t *testing.T) {
	a := newTestAssessor()

	// Illiquid, near resolution, extreme price, no volume: the stacked
	// warning penalties exceed the overall gate even though no single
	// limit is violated.
	end := riskNow.Add(3 * 24 * time.Hour)
	m := domain.Market{
		ID:        "mkt-2",
		Category:  "Crypto",
		YesPrice:  0.95,
		NoPrice:   0.05,
		Volume:    0,
		Liquidity: 500,
		EndDate:   &end,
	}
	open := []domain.Position{
		{MarketID: "a", Category: "Crypto", Size: 100},
		{MarketID: "b", Category: "Crypto", Size: 100},
	}

	res := a.Assess(m, 100, open, 10_000)
	require.False(t, res.Approved)
	assert.Contains(t, res.Violations, "overall risk score too high")
	// liquidity 0.2 + time decay 0.3 + impact 0.1 + correlation 0.2 +
	// volatility 0.1
	assert.InDelta(t, 0.9, res.RiskScore, 1e-12)
	assert.Len(t, res.Warnings, 5)
}

func TestAssessRecommendedNeverExceedsProposed(t *testing.T) {
	a := newTestAssessor()

	for _, size := range []float64{10, 500, 1500, 5000} {
		res := a.Assess(healthyMarket(), size, nil, 10_000)
		assert.LessOrEqual(t, res.RecommendedSize, size)
		assert.LessOrEqual(t, res.RecommendedSize, 1000.0)
	}
}

func TestAssessZeroPortfolio(t *testing.T) {
	a := newTestAssessor()

	// A zero portfolio value cannot produce a division blowup; the
	// percentage metrics degrade to zero.
	res := a.Assess(healthyMarket(), 500, nil, 0)
	assert.Zero(t, res.Metrics.PositionPct)
	assert.Zero(t, res.Metrics.CategoryPct)
	assert.Zero(t, res.RecommendedSize)
}

func TestPriceImpact(t *testing.T) {
	assert.InDelta(t, 0.005, PriceImpact(100, 20_000), 1e-12)
	assert.Equal(t, 0.1, PriceImpact(5000, 10_000)) // capped
	assert.Equal(t, 0.1, PriceImpact(100, 0))       // no liquidity, worst case
}

func TestCategoryCorrelation(t *testing.T) {
	assert.Zero(t, CategoryCorrelation("Politics", nil))

	open := []domain.Position{
		{Category: "Politics"},
		{Category: "Politics"},
		{Category: "Sports"},
		{Category: "Crypto"},
	}
	assert.InDelta(t, 0.5, CategoryCorrelation("Politics", open), 1e-12)
	assert.InDelta(t, 0.25, CategoryCorrelation("Sports", open), 1e-12)
	assert.Zero(t, CategoryCorrelation("Weather", open))
}

func TestHeuristicVolatility(t *testing.T) {
	// Mid price, huge volume: floored at 0.1.
	calm := domain.Market{YesPrice: 0.5, Volume: 2_000_000}
	assert.Equal(t, 0.1, HeuristicVolatility(calm))

	// Extreme price, no volume: 0.9*0.3 + 1.0*0.7 = 0.97.
	wild := domain.Market{YesPrice: 0.95, Volume: 0}
	assert.InDelta(t, 0.97, HeuristicVolatility(wild), 1e-12)
}
