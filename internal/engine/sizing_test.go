package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

func TestSizeNoEdge(t *testing.T) {
	s := NewPositionSizer()

	res := s.Size(0.50, 0.503, 10_000, 1.0, 0.25)
	assert.Equal(t, domain.TradeSideNone, res.Side)
	assert.Zero(t, res.Size)
}

func TestSizeYesSide(t *testing.T) {
	s := NewPositionSizer()

	// price 0.50, fair 0.65, full confidence: winProb 0.65, payout 1,
	// kelly fraction 0.30 capped at 0.25 of bankroll.
	res := s.Size(0.50, 0.65, 10_000, 1.0, 0.25)
	require.Equal(t, domain.TradeSideYes, res.Side)
	assert.InDelta(t, 0.15, res.Edge, 1e-12)
	assert.InDelta(t, 0.65, res.WinProbability, 1e-12)
	assert.InDelta(t, 1.0, res.PayoutRatio, 1e-12)
	assert.InDelta(t, 2500, res.Size, 1e-9)
}

func TestSizeNoSide(t *testing.T) {
	s := NewPositionSizer()

	// Overpriced market: back the no side. winProb (1-0.55)*1 = 0.45,
	// payout 0.70/0.30.
	res := s.Size(0.70, 0.55, 10_000, 1.0, 0.25)
	require.Equal(t, domain.TradeSideNo, res.Side)
	assert.Less(t, res.Edge, 0.0)
	assert.InDelta(t, 0.45, res.WinProbability, 1e-12)
	assert.InDelta(t, 0.70/0.30, res.PayoutRatio, 1e-12)
	assert.Greater(t, res.Size, 0.0)
}

func TestSizeConfidenceDiscount(t *testing.T) {
	s := NewPositionSizer()

	// Discounted win probability can turn a nominal edge into a pass:
	// winProb 0.65*0.7 = 0.455 yields a negative kelly fraction.
	res := s.Size(0.50, 0.65, 10_000, 0.7, 0.25)
	assert.Equal(t, domain.TradeSideYes, res.Side)
	assert.Zero(t, res.Size)
}

func TestSizeNeverNegative(t *testing.T) {
	s := NewPositionSizer()

	for _, price := range []float64{0.05, 0.30, 0.50, 0.70, 0.95} {
		for _, fair := range []float64{0.05, 0.30, 0.50, 0.70, 0.95} {
			res := s.Size(price, fair, 10_000, 0.7, 0.25)
			assert.GreaterOrEqual(t, res.Size, 0.0, "price %v fair %v", price, fair)
			assert.LessOrEqual(t, res.Size, 2500.0, "price %v fair %v", price, fair)
		}
	}
}

func TestKellySizeDegenerate(t *testing.T) {
	assert.Zero(t, kellySize(0, 1, 10_000, 0.25))
	assert.Zero(t, kellySize(1, 1, 10_000, 0.25))
	assert.Zero(t, kellySize(0.6, 0, 10_000, 0.25))
	assert.Zero(t, kellySize(0.6, -1, 10_000, 0.25))
}

func TestKellySizeCap(t *testing.T) {
	// Near-certain win with generous payout pins the fraction at the cap.
	size := kellySize(0.99, 5, 10_000, 0.25)
	assert.InDelta(t, 2500, size, 1e-9)
}
