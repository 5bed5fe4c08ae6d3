package domain

import "time"

// TradeSide identifies which outcome of a binary market a trade backs.
type TradeSide string

const (
	TradeSideYes  TradeSide = "yes"
	TradeSideNo   TradeSide = "no"
	TradeSideNone TradeSide = "none"
)

// TradingSignal is a sized trading recommendation for a single market.
// It is produced fresh per analysis call and never mutated afterwards.
type TradingSignal struct {
	ID              string
	MarketID        string
	Side            TradeSide
	Confidence      float64 // implied win probability, in [0,1]
	RecommendedSize float64 // currency units
	EntryPrice      float64
	StopLoss        float64
	TakeProfit      float64
	Reasoning       string
	RiskScore       float64 // in [0,1], higher = riskier
	CreatedAt       time.Time
}

// PricingResult holds the model fair value and sensitivities for a market.
// FairValue is clamped to [0.001, 0.999]. Ephemeral; recomputed per call.
type PricingResult struct {
	FairValue       float64
	TimeDecayPerDay float64
	Vega            float64
	Theta           float64
}

// SizingResult is the output of Kelly position sizing. A zero Size with
// side "none" means no actionable edge.
type SizingResult struct {
	Side           TradeSide
	Size           float64
	Edge           float64 // fair value minus quoted price
	WinProbability float64
	PayoutRatio    float64
}
