package risk

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// clock is a settable test clock.
type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestMonitor() (*Monitor, *clock) {
	c := &clock{t: riskNow}
	return NewMonitor(DefaultBreakerLimits(), c.now, slog.Default()), c
}

func TestDailyLossBreaker(t *testing.T) {
	m, _ := newTestMonitor()

	m.RecordOutcome(-400)
	assert.False(t, m.CheckBreakers(10_000).DailyLossLimit)

	m.RecordOutcome(-200)
	b := m.CheckBreakers(10_000)
	assert.True(t, b.DailyLossLimit)
	assert.True(t, b.AnyTripped)
}

func TestConsecutiveLossBreaker(t *testing.T) {
	m, _ := newTestMonitor()

	for i := 0; i < 4; i++ {
		m.RecordOutcome(-10)
	}
	assert.False(t, m.CheckBreakers(10_000).ConsecutiveLosses)

	m.RecordOutcome(-10)
	assert.True(t, m.CheckBreakers(10_000).ConsecutiveLosses)

	// A single win resets the streak.
	m.RecordOutcome(5)
	assert.False(t, m.CheckBreakers(10_000).ConsecutiveLosses)
}

func TestDrawdownBreaker(t *testing.T) {
	m, _ := newTestMonitor()

	m.RecordOutcome(-1_900)
	assert.False(t, m.CheckBreakers(10_000).DrawdownLimit)

	// Cumulative daily loss 2100 against a limit of 0.2 * 10000 = 2000.
	m.RecordOutcome(-200)
	b := m.CheckBreakers(10_000)
	assert.True(t, b.DrawdownLimit)
	assert.True(t, b.AnyTripped)
}

func TestDrawdownSingleLossTrips(t *testing.T) {
	m, _ := newTestMonitor()

	m.RecordOutcome(-2_100)
	assert.True(t, m.CheckBreakers(10_000).DrawdownLimit)
}

func TestDrawdownIgnoresProfitableDays(t *testing.T) {
	m, _ := newTestMonitor()

	// Winning outcomes never grow the drawdown, even when checked against
	// a smaller portfolio value later.
	m.RecordOutcome(100)
	m.RecordOutcome(100)
	assert.False(t, m.CheckBreakers(10_000).DrawdownLimit)
	assert.False(t, m.CheckBreakers(7_000).DrawdownLimit)
}

func TestDrawdownStopsGrowingOnceRecovered(t *testing.T) {
	m, _ := newTestMonitor()

	m.RecordOutcome(-1_500)
	m.RecordOutcome(2_000) // day is net positive again
	m.RecordOutcome(-100)  // net +400, no new drawdown
	b := m.CheckBreakers(5_000)
	// Worst cumulative loss stays at 1500, above 0.2 * 5000.
	assert.True(t, b.DrawdownLimit)

	// Against a larger book the same 1500 is within the limit.
	assert.False(t, m.CheckBreakers(10_000).DrawdownLimit)
}

func TestDailyReset(t *testing.T) {
	m, c := newTestMonitor()

	for i := 0; i < 5; i++ {
		m.RecordOutcome(-200)
	}
	b := m.CheckBreakers(10_000)
	require.True(t, b.DailyLossLimit)
	require.True(t, b.ConsecutiveLosses)

	// Next calendar day: daily PnL and the loss streak reset.
	c.t = c.t.Add(24 * time.Hour)
	b = m.CheckBreakers(10_000)
	assert.False(t, b.DailyLossLimit)
	assert.False(t, b.ConsecutiveLosses)
}

func TestDrawdownSurvivesDailyReset(t *testing.T) {
	m, c := newTestMonitor()

	m.RecordOutcome(-2_100)
	require.True(t, m.CheckBreakers(10_000).DrawdownLimit)

	// The daily loss breaker clears at rollover, drawdown does not.
	c.t = c.t.Add(24 * time.Hour)
	b := m.CheckBreakers(10_000)
	assert.False(t, b.DailyLossLimit)
	assert.True(t, b.DrawdownLimit)
}

func TestReportEmptyPortfolio(t *testing.T) {
	m, _ := newTestMonitor()

	r := m.Report(nil, 10_000)
	assert.Zero(t, r.TotalExposure)
	assert.Zero(t, r.PositionCount)
	assert.Zero(t, r.PortfolioHeat)
	assert.Empty(t, r.Recommendations)
}

func TestReportConcentratedPortfolio(t *testing.T) {
	m, _ := newTestMonitor()

	end := riskNow.Add(60 * 24 * time.Hour)
	open := []domain.Position{
		{MarketID: "a", Category: "Politics", Size: 600, Liquidity: 20_000, EndDate: &end},
		{MarketID: "b", Category: "Politics", Size: 400, Liquidity: 20_000, EndDate: &end},
	}

	r := m.Report(open, 10_000)
	assert.Equal(t, 1000.0, r.TotalExposure)
	assert.Equal(t, 2, r.PositionCount)
	assert.Equal(t, 1000.0, r.CategoryBreakdown["Politics"])
	assert.InDelta(t, 0.1, r.PortfolioHeat, 1e-12)
	// Single category: Herfindahl index 1.
	assert.InDelta(t, 1.0, r.CorrelationRisk, 1e-12)
	assert.Zero(t, r.LiquidityRisk)
	assert.Zero(t, r.TimeDecayRisk)

	require.Len(t, r.Recommendations, 1)
	assert.Contains(t, r.Recommendations[0], "diversify")
}

func TestReportWeightedRisks(t *testing.T) {
	m, _ := newTestMonitor()

	soon := riskNow.Add(3 * 24 * time.Hour)
	far := riskNow.Add(60 * 24 * time.Hour)
	open := []domain.Position{
		{MarketID: "a", Category: "Politics", Size: 500, Liquidity: 0, EndDate: &soon},
		{MarketID: "b", Category: "Sports", Size: 500, Liquidity: 20_000, EndDate: &far},
	}

	r := m.Report(open, 10_000)
	// Half the exposure is fully illiquid, half is fully liquid.
	assert.InDelta(t, 0.5, r.LiquidityRisk, 1e-12)
	// Time decay: 0.5*(1-3/30) + 0.5*0 = 0.45.
	assert.InDelta(t, 0.45, r.TimeDecayRisk, 1e-12)
	// Two equal categories: HHI 0.5.
	assert.InDelta(t, 0.5, r.CorrelationRisk, 1e-12)
}

func TestReportBreakerRecommendation(t *testing.T) {
	m, _ := newTestMonitor()

	m.RecordOutcome(-600)
	r := m.Report(nil, 10_000)
	require.NotEmpty(t, r.Recommendations)
	assert.Contains(t, r.Recommendations[0], "circuit breaker")
}

func TestAssessPosition(t *testing.T) {
	end := riskNow.Add(365 * 24 * time.Hour)
	pos := domain.Position{Size: 1000, EndDate: &end}

	r := AssessPosition(pos, 0.3, riskNow)
	assert.InDelta(t, 1000*1.96*0.3, r.VaR95, 1e-6)
	assert.InDelta(t, 100.0/365, r.TimeDecayCost, 1e-9)
	assert.InDelta(t, 50, r.LiquidityCost, 1e-12)
	assert.InDelta(t, r.VaR95+r.TimeDecayCost+r.LiquidityCost, r.Total, 1e-12)
}

func TestTopCategories(t *testing.T) {
	breakdown := map[string]float64{
		"Politics": 500,
		"Crypto":   1200,
		"Sports":   500,
	}
	assert.Equal(t, []string{"Crypto", "Politics", "Sports"}, TopCategories(breakdown))
}
