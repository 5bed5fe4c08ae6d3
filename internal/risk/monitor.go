package risk

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// BreakerLimits configures the portfolio circuit breakers.
type BreakerLimits struct {
	DailyLoss         float64 // trip when dailyPnL/portfolioValue drops below -DailyLoss
	ConsecutiveLosses int     // trip at this many losing closes in a row
	Drawdown          float64 // trip when the worst cumulative daily loss exceeds this fraction of portfolio value
}

// DefaultBreakerLimits returns the standard breaker thresholds.
func DefaultBreakerLimits() BreakerLimits {
	return BreakerLimits{
		DailyLoss:         0.05,
		ConsecutiveLosses: 5,
		Drawdown:          0.20,
	}
}

// Monitor tracks realized trading outcomes and evaluates portfolio-level
// risk: three circuit breakers plus an aggregate exposure report. It is
// safe for concurrent use.
type Monitor struct {
	limits BreakerLimits
	now    func() time.Time
	logger *slog.Logger

	mu               sync.Mutex
	dailyPnL         float64
	dailyDate        time.Time // midnight of the day dailyPnL covers
	consecutiveCount int
	maxDrawdown      float64 // worst cumulative daily loss in currency units, monotone within a run
}

// NewMonitor creates a Monitor. The clock is injectable for tests; pass
// time.Now in production.
func NewMonitor(limits BreakerLimits, now func() time.Time, logger *slog.Logger) *Monitor {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		limits: limits,
		now:    now,
		logger: logger.With("component", "risk_monitor"),
	}
}

// RecordOutcome folds one realized trade result into the monitor's state:
// daily PnL, the consecutive-loss streak, and the drawdown track.
func (m *Monitor) RecordOutcome(pnl float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollDayLocked()

	m.dailyPnL += pnl
	if pnl < 0 {
		m.consecutiveCount++
	} else {
		m.consecutiveCount = 0
	}

	// Drawdown is the worst cumulative daily loss seen so far. It only
	// grows while the day is net negative and never shrinks.
	if m.dailyPnL < 0 && -m.dailyPnL > m.maxDrawdown {
		m.maxDrawdown = -m.dailyPnL
	}

	m.logger.Debug("recorded trade outcome",
		"pnl", pnl,
		"daily_pnl", m.dailyPnL,
		"consecutive_losses", m.consecutiveCount,
		"max_drawdown", m.maxDrawdown)
}

// CheckBreakers evaluates the three circuit breakers against the given
// portfolio value. Checking is read-only apart from the daily rollover; a
// tripped breaker stays tripped until its underlying condition clears.
func (m *Monitor) CheckBreakers(portfolioValue float64) domain.CircuitBreakers {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollDayLocked()

	var b domain.CircuitBreakers
	if portfolioValue > 0 && m.dailyPnL/portfolioValue < -m.limits.DailyLoss {
		b.DailyLossLimit = true
	}
	if m.consecutiveCount >= m.limits.ConsecutiveLosses {
		b.ConsecutiveLosses = true
	}
	if portfolioValue > 0 && m.maxDrawdown > m.limits.Drawdown*portfolioValue {
		b.DrawdownLimit = true
	}
	b.AnyTripped = b.DailyLossLimit || b.ConsecutiveLosses || b.DrawdownLimit

	if b.AnyTripped {
		m.logger.Warn("circuit breaker tripped",
			"daily_loss", b.DailyLossLimit,
			"consecutive_losses", b.ConsecutiveLosses,
			"drawdown", b.DrawdownLimit)
	}
	return b
}

// rollDayLocked resets the daily PnL and loss streak when the calendar day
// has changed. The drawdown track deliberately survives the rollover.
// Caller must hold mu.
func (m *Monitor) rollDayLocked() {
	today := midnight(m.now())
	if !today.Equal(m.dailyDate) {
		m.dailyPnL = 0
		m.consecutiveCount = 0
		m.dailyDate = today
	}
}

// Report builds a portfolio-level risk summary over the open positions:
// total exposure, category breakdown, a Herfindahl concentration index,
// exposure-weighted liquidity and time-decay risks, breaker state, and
// plain-language recommendations for anything elevated.
func (m *Monitor) Report(open []domain.Position, portfolioValue float64) domain.PortfolioReport {
	now := m.now()

	report := domain.PortfolioReport{
		PositionCount:     len(open),
		CategoryBreakdown: make(map[string]float64),
		Breakers:          m.CheckBreakers(portfolioValue),
	}

	for _, pos := range open {
		report.TotalExposure += pos.Size
		report.CategoryBreakdown[pos.Category] += pos.Size
	}
	if portfolioValue > 0 {
		report.PortfolioHeat = report.TotalExposure / portfolioValue
	}

	if report.TotalExposure > 0 {
		// Herfindahl index over category shares: 1/n for even spread,
		// approaching 1 as everything concentrates in one category.
		var hhi float64
		for _, exposure := range report.CategoryBreakdown {
			share := exposure / report.TotalExposure
			hhi += share * share
		}
		report.CorrelationRisk = hhi

		var liqRisk, tdRisk float64
		for _, pos := range open {
			weight := pos.Size / report.TotalExposure
			liqRisk += weight * (1 - math.Min(1.0, pos.Liquidity/10_000))
			days := pos.TimeToExpiryDays(now)
			tdRisk += weight * math.Max(0, 1-days/30)
		}
		report.LiquidityRisk = liqRisk
		report.TimeDecayRisk = tdRisk
	}

	report.Recommendations = recommendations(report)
	return report
}

// recommendations translates elevated report figures into operator-facing
// advice. Ordering is stable.
func recommendations(r domain.PortfolioReport) []string {
	var recs []string
	if r.Breakers.AnyTripped {
		recs = append(recs, "circuit breaker tripped: halt new positions until conditions clear")
	}
	if r.PortfolioHeat > 0.8 {
		recs = append(recs, fmt.Sprintf("portfolio heat %.0f%%: reduce overall exposure", r.PortfolioHeat*100))
	}
	if r.CorrelationRisk > 0.7 {
		recs = append(recs, "positions concentrated in few categories: diversify")
	}
	if r.TimeDecayRisk > 0.6 {
		recs = append(recs, "many positions near resolution: review expiring markets")
	}
	if r.LiquidityRisk > 0.5 {
		recs = append(recs, "significant exposure in illiquid markets: plan exits early")
	}
	return recs
}

// PositionRisk itemizes the standalone risk of one open position.
type PositionRisk struct {
	VaR95         float64
	TimeDecayCost float64
	LiquidityCost float64
	Total         float64
}

// AssessPosition computes a standalone risk figure for an open position:
// a 95% one-sided value-at-risk over the remaining horizon, a linear
// time-decay cost, and a flat liquidity haircut.
func AssessPosition(pos domain.Position, volatility float64, now time.Time) PositionRisk {
	days := pos.TimeToExpiryDays(now)
	years := math.Max(days, 1) / 365

	r := PositionRisk{
		VaR95:         pos.Size * 1.96 * volatility * math.Sqrt(years),
		TimeDecayCost: pos.Size * 0.1 / math.Max(days, 1),
		LiquidityCost: pos.Size * 0.05,
	}
	r.Total = r.VaR95 + r.TimeDecayCost + r.LiquidityCost
	return r
}

// TopCategories returns the categories in the breakdown ordered by
// exposure, largest first. Useful for report rendering.
func TopCategories(breakdown map[string]float64) []string {
	cats := make([]string, 0, len(breakdown))
	for c := range breakdown {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if breakdown[cats[i]] != breakdown[cats[j]] {
			return breakdown[cats[i]] > breakdown[cats[j]]
		}
		return cats[i] < cats[j]
	})
	return cats
}

func midnight(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
