// Package engine implements the quantitative decision core: fair-value
// pricing for binary markets, Kelly position sizing, and the signal
// generator that orchestrates them against the risk layer.
package engine

import (
	"math"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

const (
	// priceFloor and priceCeil bound every probability before it enters a
	// log-odds transform, keeping ln(p/(1-p)) finite.
	priceFloor = 0.001
	priceCeil  = 0.999

	// defaultImpliedVol is returned for degenerate implied-volatility inputs.
	defaultImpliedVol = 0.2

	minImpliedVol = 0.1
	maxImpliedVol = 1.0
)

// PricingModel adapts a Black-Scholes-style framework to probability-valued
// instruments. The market price is treated as a probability whose
// uncertainty shrinks geometrically toward resolution; working in log-odds
// space keeps the decay well-behaved near the 0/1 boundaries.
type PricingModel struct {
	// RiskFreeRate is accepted for contract parity with standard option
	// pricing but does not enter the binary fair-value formula.
	RiskFreeRate float64
	// Drift is the expected drift in the underlying probability, applied
	// in log-odds space scaled by time to expiry.
	Drift float64
}

// NewPricingModel returns a PricingModel with the standard parameters
// (5% risk-free rate, zero drift).
func NewPricingModel() *PricingModel {
	return &PricingModel{RiskFreeRate: 0.05, Drift: 0.0}
}

// Price computes the model fair value and sensitivities for a binary market
// quoted at currentPrice with timeToExpiry in years and the given
// volatility. A non-positive timeToExpiry is terminal: the fair value is the
// current price and all Greeks are zero.
func (m *PricingModel) Price(currentPrice, timeToExpiry, volatility float64) domain.PricingResult {
	if timeToExpiry <= 0 {
		return domain.PricingResult{FairValue: currentPrice}
	}

	p := clampProbability(currentPrice)
	logOdds := math.Log(p / (1 - p))

	// Drift shifts the log-odds; time decay then compresses them toward
	// zero (price 0.5) as uncertainty accumulates over the horizon.
	adjusted := logOdds + m.Drift*timeToExpiry
	decayFactor := math.Exp(-0.5 * volatility * volatility * timeToExpiry)
	fairLogOdds := adjusted * decayFactor
	fairValue := clampProbability(1 / (1 + math.Exp(-fairLogOdds)))

	sqrtT := math.Sqrt(timeToExpiry)
	d1 := (logOdds + 0.5*volatility*volatility*timeToExpiry) / (volatility * sqrtT)

	vega := p * (1 - p) * sqrtT * normPDF(d1)
	theta := -p * (1 - p) * volatility * normPDF(d1) / (2 * sqrtT)

	return domain.PricingResult{
		FairValue:       fairValue,
		TimeDecayPerDay: math.Abs(theta) / 365,
		Vega:            vega,
		Theta:           theta,
	}
}

// ImplyVolatility backs a volatility estimate out of the deviation between
// the market price and a theoretical fair value, scaled by 1/sqrt(T) and
// clamped to [0.1, 1.0]. Degenerate inputs (expired horizon or a price at
// the boundary) return the fixed default of 0.2.
func (m *PricingModel) ImplyVolatility(marketPrice, fairValue, timeToExpiry float64) float64 {
	if timeToExpiry <= 0 || marketPrice <= priceFloor || marketPrice >= priceCeil {
		return defaultImpliedVol
	}

	deviation := math.Abs(marketPrice - fairValue)
	vol := deviation / math.Sqrt(timeToExpiry)

	return math.Max(minImpliedVol, math.Min(maxImpliedVol, vol))
}

// clampProbability bounds p to the open interval used by the log-odds
// transforms.
func clampProbability(p float64) float64 {
	if p < priceFloor {
		return priceFloor
	}
	if p > priceCeil {
		return priceCeil
	}
	return p
}

// normPDF is the standard normal density.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}
