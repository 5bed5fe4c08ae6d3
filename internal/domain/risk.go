package domain

// RiskMetrics itemizes the per-check measurements taken during a position
// risk assessment. Reported even when the assessment is rejected so callers
// can explain the decision.
type RiskMetrics struct {
	PositionPct       float64 // proposed size / portfolio value
	CategoryPct       float64 // (existing category exposure + proposed) / portfolio value
	LiquidityScore    float64 // market liquidity normalized against $10k
	TimeDecayScore    float64 // 1 - days/30, floored at 0
	PriceImpact       float64 // estimated impact of the proposed size
	CorrelationRisk   float64 // fraction of open positions in the same category
	Volatility        float64 // heuristic volatility estimate
}

// RiskAssessment is the structured result of evaluating one proposed
// position. Limit violations are data, not errors: callers react by
// shrinking, rejecting, or logging.
type RiskAssessment struct {
	Approved        bool
	Warnings        []string
	Violations      []string
	RiskScore       float64
	RecommendedSize float64
	Metrics         RiskMetrics
}

// CircuitBreakers reports the state of the three independent portfolio
// circuit breakers after a check. The core never halts trading itself;
// honoring a tripped breaker is the orchestrating caller's job.
type CircuitBreakers struct {
	DailyLossLimit    bool
	ConsecutiveLosses bool
	DrawdownLimit     bool
	AnyTripped        bool
}

// PortfolioReport is a portfolio-level risk summary.
type PortfolioReport struct {
	TotalExposure     float64
	PositionCount     int
	CategoryBreakdown map[string]float64
	PortfolioHeat     float64
	CorrelationRisk   float64 // Herfindahl index of category concentration
	LiquidityRisk     float64 // exposure-weighted inverse liquidity
	TimeDecayRisk     float64 // exposure-weighted nearness to resolution
	Breakers          CircuitBreakers
	Recommendations   []string
}
