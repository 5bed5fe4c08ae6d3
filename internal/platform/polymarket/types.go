package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexFloat unmarshals from JSON number or numeric string; Gamma sends
// volume and liquidity both ways depending on the endpoint.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

// APIMarket represents a market as returned by the Polymarket Gamma API.
type APIMarket struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Category      string    `json:"category"`
	Slug          string    `json:"slug"`
	Active        flexBool  `json:"active"`
	Closed        bool      `json:"closed"`
	Outcomes      string    `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices string    `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	Volume        flexFloat `json:"volume"`
	Liquidity     flexFloat `json:"liquidity"`
	EndDateISO    string    `json:"end_date_iso"`
	EndDate       string    `json:"endDate"`
	CreatedAt     string    `json:"created_at"`
	UpdatedAt     string    `json:"updated_at"`
	Description   string    `json:"description"`
}

// ToDomainMarket converts a Gamma APIMarket to a domain.Market, applying
// boundary defaults: a missing category becomes "General", malformed prices
// fall back to 0.5/0.5, and an unparseable end date is left nil so the
// pricing layer applies its default horizon.
func (m *APIMarket) ToDomainMarket() domain.Market {
	dm := domain.Market{
		ID:        m.ID,
		Question:  m.Question,
		Category:  m.Category,
		Volume:    float64(m.Volume),
		Liquidity: float64(m.Liquidity),
	}
	if dm.Category == "" {
		dm.Category = "General"
	}

	dm.YesPrice, dm.NoPrice = parseOutcomePrices(m.OutcomePrices)

	end := m.EndDateISO
	if end == "" {
		end = m.EndDate
	}
	if end != "" {
		if t, err := time.Parse(time.RFC3339, end); err == nil {
			dm.EndDate = &t
		}
	}

	if t, err := time.Parse(time.RFC3339, m.CreatedAt); err == nil {
		dm.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339, m.UpdatedAt); err == nil {
		dm.UpdatedAt = t
	}

	return dm
}

// parseOutcomePrices decodes Gamma's JSON-encoded price array. The first
// entry is the yes price. Anything malformed degrades to an uninformative
// 0.5/0.5 quote rather than an error; upstream snapshots are best-effort.
func parseOutcomePrices(encoded string) (yes, no float64) {
	yes, no = 0.5, 0.5
	if encoded == "" {
		return yes, no
	}

	var prices []string
	if err := json.Unmarshal([]byte(encoded), &prices); err != nil || len(prices) == 0 {
		return yes, no
	}

	y, err := strconv.ParseFloat(prices[0], 64)
	if err != nil || y <= 0 || y >= 1 {
		return yes, no
	}
	yes = y
	no = 1 - y
	if len(prices) > 1 {
		if n, err := strconv.ParseFloat(prices[1], 64); err == nil && n > 0 && n < 1 {
			no = n
		}
	}
	return yes, no
}
