package domain

import "time"

// Default horizons used when a market carries no (or an unparseable)
// resolution date. Pricing works in years, risk assessment in days.
const (
	DefaultHorizonYears = 0.25
	DefaultHorizonDays  = 30.0
)

const hoursPerYear = 365.25 * 24

// Market is a point-in-time snapshot of a binary prediction market.
// Prices are probabilities in (0,1); YesPrice and NoPrice sum to 1 by
// convention but that is not enforced at this layer.
type Market struct {
	ID        string
	Question  string
	Category  string
	YesPrice  float64
	NoPrice   float64
	Volume    float64
	Liquidity float64
	EndDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TimeToExpiry returns the time until resolution in years, measured from now.
// Markets without a resolution date get the default horizon. A past end date
// yields zero, never a negative value.
func (m Market) TimeToExpiry(now time.Time) float64 {
	if m.EndDate == nil {
		return DefaultHorizonYears
	}
	years := m.EndDate.Sub(now).Hours() / hoursPerYear
	if years < 0 {
		return 0
	}
	return years
}

// TimeToExpiryDays returns the time until resolution in days, with a
// 30-day default for markets that have no resolution date.
func (m Market) TimeToExpiryDays(now time.Time) float64 {
	if m.EndDate == nil {
		return DefaultHorizonDays
	}
	days := m.EndDate.Sub(now).Hours() / 24
	if days < 0 {
		return 0
	}
	return days
}

// Expired reports whether the market has passed its resolution date.
func (m Market) Expired(now time.Time) bool {
	return m.EndDate != nil && !m.EndDate.After(now)
}
