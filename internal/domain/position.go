package domain

import "time"

// PositionStatus tracks whether a position is open or closed.
type PositionStatus string

const (
	PositionStatusOpen   PositionStatus = "open"
	PositionStatusClosed PositionStatus = "closed"
)

// Position represents an open or historical trading position in a binary
// market. Size is in currency units (USD notional at entry).
type Position struct {
	ID           string
	MarketID     string
	Side         TradeSide
	Size         float64
	EntryPrice   float64
	CurrentPrice float64
	PnL          float64
	Status       PositionStatus
	OpenedAt     time.Time
	ClosedAt     *time.Time
	UpdatedAt    time.Time

	// Market info populated from joins; read-only for risk checks.
	Question  string
	Category  string
	Liquidity float64
	EndDate   *time.Time
}

// PnLAt computes the profit or loss of the position if it were marked at
// the given price.
func (p Position) PnLAt(price float64) float64 {
	if p.Side == TradeSideNo {
		return (p.EntryPrice - price) * p.Size
	}
	return (price - p.EntryPrice) * p.Size
}

// TimeToExpiryDays returns days until the underlying market resolves,
// defaulting to the standard horizon when no end date is known.
func (p Position) TimeToExpiryDays(now time.Time) float64 {
	if p.EndDate == nil {
		return DefaultHorizonDays
	}
	days := p.EndDate.Sub(now).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}
