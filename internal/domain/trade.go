package domain

import "time"

// Trade is a single executed fill, real or simulated.
type Trade struct {
	ID         string
	MarketID   string
	Side       TradeSide
	Size       float64
	Price      float64
	Fee        float64
	ExecutedAt time.Time

	// Market info populated from joins.
	Question string
	Category string
}

// PortfolioStats summarizes realized trading performance across the
// whole portfolio.
type PortfolioStats struct {
	TotalPnL        float64
	OpenPositions   int
	ClosedPositions int
	TotalTrades     int
	WinRate         float64
}
