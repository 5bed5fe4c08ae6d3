package polymarket

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainMarketDefaults(t *testing.T) {
	api := APIMarket{
		ID:            "123",
		Question:      "Will it rain?",
		OutcomePrices: `["0.7","0.3"]`,
		Volume:        12345,
		Liquidity:     678,
	}

	m := api.ToDomainMarket()
	assert.Equal(t, "123", m.ID)
	assert.Equal(t, "General", m.Category) // missing category defaults
	assert.Equal(t, 0.7, m.YesPrice)
	assert.Equal(t, 0.3, m.NoPrice)
	assert.Equal(t, 12345.0, m.Volume)
	assert.Equal(t, 678.0, m.Liquidity)
	assert.Nil(t, m.EndDate) // no end date: pricing applies its default horizon
}

func TestToDomainMarketEndDate(t *testing.T) {
	api := APIMarket{ID: "1", EndDateISO: "2026-06-01T00:00:00Z"}
	m := api.ToDomainMarket()
	require.NotNil(t, m.EndDate)
	assert.Equal(t, 2026, m.EndDate.Year())

	// Garbage dates stay nil instead of erroring.
	api = APIMarket{ID: "2", EndDateISO: "soon"}
	assert.Nil(t, api.ToDomainMarket().EndDate)
}

func TestParseOutcomePrices(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
		yes     float64
		no      float64
	}{
		{"valid pair", `["0.65","0.35"]`, 0.65, 0.35},
		{"single entry", `["0.4"]`, 0.4, 0.6},
		{"empty", "", 0.5, 0.5},
		{"malformed json", `[0.65`, 0.5, 0.5},
		{"out of range", `["1.5","0.2"]`, 0.5, 0.5},
		{"non-numeric", `["high","low"]`, 0.5, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			yes, no := parseOutcomePrices(tt.encoded)
			assert.Equal(t, tt.yes, yes)
			assert.Equal(t, tt.no, no)
		})
	}
}

func TestFlexTypes(t *testing.T) {
	var b flexBool
	require.NoError(t, b.UnmarshalJSON([]byte(`true`)))
	assert.True(t, bool(b))
	require.NoError(t, b.UnmarshalJSON([]byte(`"false"`)))
	assert.False(t, bool(b))

	var f flexFloat
	require.NoError(t, f.UnmarshalJSON([]byte(`42.5`)))
	assert.Equal(t, 42.5, float64(f))
	require.NoError(t, f.UnmarshalJSON([]byte(`"17"`)))
	assert.Equal(t, 17.0, float64(f))
	require.NoError(t, f.UnmarshalJSON([]byte(`""`)))
	assert.Zero(t, float64(f))
}
