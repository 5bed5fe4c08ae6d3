package polymarket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

func TestClientListMarkets(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/markets", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("active"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		w.Write([]byte(`[
			{"id":"1","question":"A?","category":"Politics","outcomePrices":"[\"0.6\",\"0.4\"]","volume":"1000","liquidity":"500"},
			{"id":"2","question":"B?","outcomePrices":"[\"0.3\",\"0.7\"]","volume":2000,"liquidity":800}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	markets, err := c.ListMarkets(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, markets, 2)

	assert.Equal(t, "Politics", markets[0].Category)
	assert.Equal(t, 0.6, markets[0].YesPrice)
	assert.Equal(t, "General", markets[1].Category)
	assert.Equal(t, 2000.0, markets[1].Volume)
}

func TestClientGetMarketNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.GetMarket(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.ListMarkets(context.Background(), 10, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 500")
}

func TestClientExecuteUnsupported(t *testing.T) {
	c := NewClient("http://unused", time.Second)
	_, err := c.Execute(context.Background(), OrderRequest{Size: 10, Price: 0.5})
	assert.ErrorIs(t, err, domain.ErrOrderRejected)
}
