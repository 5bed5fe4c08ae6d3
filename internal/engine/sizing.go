package engine

import (
	"math"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// minEdge is the minimum absolute divergence between fair value and quoted
// price before a trade is worth sizing at all.
const minEdge = 0.005

// PositionSizer converts the edge between model fair value and quoted price
// into a bankroll-fraction-bounded position via the Kelly criterion. Sizing
// is single-shot per independent market; cross-market concentration is the
// risk assessor's job.
type PositionSizer struct{}

// NewPositionSizer returns a PositionSizer.
func NewPositionSizer() *PositionSizer {
	return &PositionSizer{}
}

// Size computes the recommended position for a market quoted at
// currentPrice given the model fairValue. The Kelly fraction is scaled by
// bankroll and capped at maxFraction; confidence discounts the implied win
// probability. A zero Size with side "none" means no actionable edge.
func (s *PositionSizer) Size(currentPrice, fairValue, bankroll, confidence, maxFraction float64) domain.SizingResult {
	edge := fairValue - currentPrice
	if math.Abs(edge) < minEdge {
		return domain.SizingResult{Side: domain.TradeSideNone, Edge: edge}
	}

	var (
		side    domain.TradeSide
		winProb float64
		payout  float64
	)
	if edge > 0 {
		side = domain.TradeSideYes
		winProb = fairValue * confidence
		payout = (1 - currentPrice) / currentPrice
	} else {
		side = domain.TradeSideNo
		winProb = (1 - fairValue) * confidence
		payout = currentPrice / (1 - currentPrice)
	}

	size := kellySize(winProb, payout, bankroll, maxFraction)

	return domain.SizingResult{
		Side:           side,
		Size:           size,
		Edge:           edge,
		WinProbability: winProb,
		PayoutRatio:    payout,
	}
}

// kellySize applies the Kelly criterion f = (b*p - q) / b, where b is the
// payout ratio, p the win probability, and q = 1-p. The fraction is floored
// at zero (no negative positions) and capped at maxFraction before being
// scaled by bankroll. Degenerate odds or probabilities yield zero.
func kellySize(winProb, payout, bankroll, maxFraction float64) float64 {
	if winProb <= 0 || winProb >= 1 {
		return 0
	}
	if payout <= 0 {
		return 0
	}

	fraction := (payout*winProb - (1 - winProb)) / payout
	fraction = math.Max(0, fraction)
	fraction = math.Min(maxFraction, fraction)

	return bankroll * fraction
}
