package engine

import (
	"fmt"
	"hash/fnv"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/edgebot/internal/domain"
	"github.com/alanyoungcy/edgebot/internal/risk"
)

// GeneratorConfig tunes the signal generation pipeline.
type GeneratorConfig struct {
	Bankroll    float64 // sizing bankroll in currency units
	Confidence  float64 // model confidence discount in (0,1]
	MaxFraction float64 // Kelly cap as a fraction of bankroll
	Volatility  float64 // fixed volatility; <= 0 means imply per market
}

// DefaultGeneratorConfig returns the standard generation parameters.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		Bankroll:    10_000,
		Confidence:  0.7,
		MaxFraction: 0.25,
		Volatility:  0.3,
	}
}

// SignalGenerator runs the full decision pipeline for one market: price the
// market, perturb fair value by an inefficiency estimate, size the edge,
// risk-check the size, and package the result as a trading signal.
type SignalGenerator struct {
	pricing  *PricingModel
	sizer    *PositionSizer
	assessor *risk.Assessor
	cfg      GeneratorConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewSignalGenerator wires the generator. The clock is injectable for
// tests; pass time.Now in production.
func NewSignalGenerator(pricing *PricingModel, sizer *PositionSizer, assessor *risk.Assessor, cfg GeneratorConfig, logger *slog.Logger, now func() time.Time) *SignalGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &SignalGenerator{
		pricing:  pricing,
		sizer:    sizer,
		assessor: assessor,
		cfg:      cfg,
		logger:   logger.With("component", "signal_generator"),
		now:      now,
	}
}

// Generate evaluates one market against the current portfolio and returns a
// trading signal, or nil when there is nothing actionable (expired market,
// no edge, or zero size). Generation is deterministic for fixed inputs and
// a fixed clock.
func (g *SignalGenerator) Generate(market domain.Market, open []domain.Position, portfolioValue float64) *domain.TradingSignal {
	now := g.now()
	if market.Expired(now) {
		return nil
	}

	timeToExpiry := market.TimeToExpiry(now)

	vol := g.cfg.Volatility
	if vol <= 0 {
		vol = g.pricing.ImplyVolatility(market.YesPrice, 0.5, timeToExpiry)
	}

	pricing := g.pricing.Price(market.YesPrice, timeToExpiry, vol)

	// Fair value gets a deterministic perturbation proportional to how
	// inefficient the market looks (thin volume and liquidity leave more
	// room for mispricing). Hashing the market ID keeps repeated scans of
	// the same market stable.
	fairValue := perturbFairValue(pricing.FairValue, market)

	sizing := g.sizer.Size(market.YesPrice, fairValue, g.cfg.Bankroll, g.cfg.Confidence, g.cfg.MaxFraction)
	if sizing.Side == domain.TradeSideNone || sizing.Size <= 0 {
		return nil
	}

	size := sizing.Size
	assessment := g.assessor.Assess(market, size, open, portfolioValue)
	if !assessment.Approved {
		// Soft rejection: halve rather than drop, so marginal markets
		// still surface at reduced size.
		size /= 2
		g.logger.Debug("risk assessment disapproved, halving size",
			"market_id", market.ID,
			"violations", assessment.Violations)
	}

	quote := market.YesPrice
	if sizing.Side == domain.TradeSideNo {
		quote = market.NoPrice
	}
	entry := math.Max(0.01, quote-0.01)

	posRisk := risk.AssessPosition(domain.Position{
		Size:    size,
		EndDate: market.EndDate,
	}, vol, now)
	riskScore := 0.0
	if size > 0 {
		riskScore = math.Max(0, math.Min(1, posRisk.Total/size))
	}

	signal := &domain.TradingSignal{
		ID:              uuid.New().String(),
		MarketID:        market.ID,
		Side:            sizing.Side,
		Confidence:      sizing.WinProbability,
		RecommendedSize: size,
		EntryPrice:      entry,
		StopLoss:        entry * 0.8,
		TakeProfit:      math.Min(0.99, entry*1.3),
		Reasoning: fmt.Sprintf("fair value %.3f vs price %.3f, edge %.3f, kelly size $%.2f, time decay %.4f/day, VaR $%.2f",
			fairValue, market.YesPrice, sizing.Edge, sizing.Size, pricing.TimeDecayPerDay, posRisk.VaR95),
		RiskScore: riskScore,
		CreatedAt: now,
	}

	g.logger.Info("generated trading signal",
		"market_id", market.ID,
		"side", signal.Side,
		"size", signal.RecommendedSize,
		"edge", sizing.Edge,
		"risk_score", signal.RiskScore)

	return signal
}

// Perturbation weights. Volume is normalized against $500k, liquidity
// against $50k; a dead market moves fair value by up to 3%.
const (
	volumeInefficiencyWeight    = 0.02
	liquidityInefficiencyWeight = 0.01
)

// perturbFairValue shifts the model fair value by a deterministic,
// market-keyed offset scaled by an inefficiency estimate. Thin markets get
// larger offsets. The result stays inside the valid probability band.
func perturbFairValue(fairValue float64, market domain.Market) float64 {
	inefficiency := (1-math.Min(1.0, market.Volume/500_000))*volumeInefficiencyWeight +
		(1-math.Min(1.0, market.Liquidity/50_000))*liquidityInefficiencyWeight

	u := hashToUnit(market.ID)
	perturbed := fairValue + (u-0.5)*inefficiency*2

	return clampProbability(perturbed)
}

// hashToUnit maps a string to [0,1) via FNV-1a, using the top 53 bits so
// the full float64 mantissa is exercised.
func hashToUnit(s string) float64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return float64(h.Sum64()>>11) / (1 << 53)
}
