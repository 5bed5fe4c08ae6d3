// Package risk implements pre-trade position risk assessment and the
// stateful portfolio risk monitor with its circuit breakers.
package risk

import (
	"fmt"
	"math"
	"time"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// Limits holds the per-position risk limits enforced by the Assessor.
type Limits struct {
	SinglePosition        float64 // max fraction of portfolio in one position
	CategoryConcentration float64 // max fraction of portfolio in one category
	LiquidityThreshold    float64 // minimum market liquidity in currency units
	TimeDecayDays         float64 // warn below this many days to resolution
	PriceImpactLimit      float64 // warn above this estimated impact
	CorrelationLimit      float64 // warn above this category overlap
	VolatilityLimit       float64 // warn above this heuristic volatility
	MaxRiskScore          float64 // disapprove above this accumulated score
}

// DefaultLimits returns the standard limit set.
func DefaultLimits() Limits {
	return Limits{
		SinglePosition:        0.10,
		CategoryConcentration: 0.30,
		LiquidityThreshold:    1000,
		TimeDecayDays:         7,
		PriceImpactLimit:      0.02,
		CorrelationLimit:      0.7,
		VolatilityLimit:       0.5,
		MaxRiskScore:          0.7,
	}
}

// Penalty increments added to the risk score per triggered warning.
const (
	penaltyLiquidity   = 0.2
	penaltyTimeDecay   = 0.3
	penaltyPriceImpact = 0.1
	penaltyCorrelation = 0.2
	penaltyVolatility  = 0.1
)

// Assessor evaluates a single proposed position against concentration,
// liquidity, time-decay, correlation, and volatility limits. It is
// stateless; every call is a pure function of its inputs and the clock.
type Assessor struct {
	limits Limits
	now    func() time.Time
}

// NewAssessor creates an Assessor with the given limits. The clock is
// injectable for tests; pass time.Now in production.
func NewAssessor(limits Limits, now func() time.Time) *Assessor {
	if now == nil {
		now = time.Now
	}
	return &Assessor{limits: limits, now: now}
}

// Assess evaluates the proposed position size for the market against all
// limits, accumulating warnings, violations, and a penalty-based risk
// score. The itemized metrics are always populated, approved or not, so
// callers can explain the decision. The recommended size never exceeds the
// proposed size nor the single-position limit.
func (a *Assessor) Assess(market domain.Market, proposedSize float64, open []domain.Position, portfolioValue float64) domain.RiskAssessment {
	out := domain.RiskAssessment{
		Approved:        true,
		RecommendedSize: proposedSize,
	}
	now := a.now()

	// 1. Single-position limit. A violation disapproves outright; the
	// recommendation is clamped to the limit rather than auto-shrunk to fit.
	positionPct := safeDiv(proposedSize, portfolioValue)
	if positionPct > a.limits.SinglePosition {
		out.Violations = append(out.Violations, fmt.Sprintf(
			"position size (%.1f%%) exceeds limit (%.1f%%)",
			positionPct*100, a.limits.SinglePosition*100))
		out.Approved = false
	}

	// 2. Category concentration.
	category := market.Category
	var categoryExposure float64
	for _, pos := range open {
		if pos.Category == category {
			categoryExposure += pos.Size
		}
	}
	categoryPct := safeDiv(categoryExposure+proposedSize, portfolioValue)
	if categoryPct > a.limits.CategoryConcentration {
		out.Violations = append(out.Violations, fmt.Sprintf(
			"category concentration (%.1f%%) exceeds limit (%.1f%%)",
			categoryPct*100, a.limits.CategoryConcentration*100))
		out.Approved = false
		headroom := a.limits.CategoryConcentration*portfolioValue - categoryExposure
		out.RecommendedSize = math.Max(0, headroom)
	}

	// 3. Liquidity.
	if market.Liquidity < a.limits.LiquidityThreshold {
		out.Warnings = append(out.Warnings, fmt.Sprintf("low liquidity ($%.0f)", market.Liquidity))
		out.RiskScore += penaltyLiquidity
	}

	// 4. Time decay.
	days := market.TimeToExpiryDays(now)
	if days < a.limits.TimeDecayDays {
		out.Warnings = append(out.Warnings, fmt.Sprintf("high time decay risk (%.1f days)", days))
		out.RiskScore += penaltyTimeDecay
	}

	// 5. Price impact.
	impact := PriceImpact(proposedSize, market.Liquidity)
	if impact > a.limits.PriceImpactLimit {
		out.Warnings = append(out.Warnings, fmt.Sprintf("high price impact (%.1f%%)", impact*100))
		out.RiskScore += penaltyPriceImpact
	}

	// 6. Correlation with existing positions.
	correlation := CategoryCorrelation(category, open)
	if correlation > a.limits.CorrelationLimit {
		out.Warnings = append(out.Warnings, "high correlation with existing positions")
		out.RiskScore += penaltyCorrelation
	}

	// 7. Volatility.
	volatility := HeuristicVolatility(market)
	if volatility > a.limits.VolatilityLimit {
		out.Warnings = append(out.Warnings, fmt.Sprintf("high volatility (%.1f%%)", volatility*100))
		out.RiskScore += penaltyVolatility
	}

	out.Metrics = domain.RiskMetrics{
		PositionPct:     positionPct,
		CategoryPct:     categoryPct,
		LiquidityScore:  math.Min(1.0, market.Liquidity/10_000),
		TimeDecayScore:  math.Max(0.0, 1.0-days/30),
		PriceImpact:     impact,
		CorrelationRisk: correlation,
		Volatility:      volatility,
	}

	// Final gate: too many stacked warnings disapprove regardless of the
	// individual checks.
	if out.RiskScore > a.limits.MaxRiskScore {
		out.Approved = false
		out.Violations = append(out.Violations, "overall risk score too high")
	}

	// Recommended size invariants: never above the proposal, never above
	// the single-position limit.
	out.RecommendedSize = math.Min(out.RecommendedSize, proposedSize)
	out.RecommendedSize = math.Min(out.RecommendedSize, a.limits.SinglePosition*portfolioValue)

	return out
}

// PriceImpact estimates the price impact of executing size against the
// market's available liquidity as min(0.1, size/liquidity). Zero liquidity
// is treated as maximal impact.
func PriceImpact(size, liquidity float64) float64 {
	if liquidity <= 0 {
		return 0.1
	}
	return math.Min(0.1, size/liquidity)
}

// CategoryCorrelation returns the fraction of open positions that share
// the given category, a crude proxy for outcome correlation.
func CategoryCorrelation(category string, open []domain.Position) float64 {
	if len(open) == 0 {
		return 0
	}
	same := 0
	for _, pos := range open {
		if pos.Category == category {
			same++
		}
	}
	return math.Min(1.0, float64(same)/float64(len(open)))
}

// HeuristicVolatility estimates market volatility from price extremity
// (|p-0.5|*2, weight 0.3) and inverse volume normalized against $1M
// (weight 0.7), clamped to [0.1, 1.0].
func HeuristicVolatility(market domain.Market) float64 {
	priceExtremity := math.Abs(market.YesPrice-0.5) * 2
	volumeFactor := 1.0 - math.Min(1.0, market.Volume/1_000_000)

	v := priceExtremity*0.3 + volumeFactor*0.7
	return math.Max(0.1, math.Min(1.0, v))
}

// safeDiv divides a by b, returning zero for a non-positive denominator.
func safeDiv(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return a / b
}
