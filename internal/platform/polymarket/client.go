// Package polymarket implements the Polymarket Gamma REST client used for
// market discovery, plus a deterministic demo client for offline runs.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/edgebot/internal/domain"
)

// OrderRequest describes one fill request against a market.
type OrderRequest struct {
	MarketID string
	Side     domain.TradeSide
	Size     float64 // currency units
	Price    float64 // limit price as probability
}

// ExecutionResult is the outcome of submitting an order.
type ExecutionResult struct {
	Filled     bool
	FillPrice  float64
	FillSize   float64
	Fee        float64
	RejectedBy string // non-empty when Filled is false
}

// MarketClient is the platform surface the services depend on. The Gamma
// client serves reads; execution comes from the demo client until real
// order signing exists.
type MarketClient interface {
	ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error)
	GetMarket(ctx context.Context, id string) (domain.Market, error)
	Execute(ctx context.Context, req OrderRequest) (ExecutionResult, error)
	Balance(ctx context.Context) (float64, error)
}

// Client is the REST client for the Polymarket Gamma API, which provides
// market discovery and metadata. It is read-only; Execute and Balance are
// unsupported until order signing is implemented.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListMarkets returns a paginated list of active markets.
func (c *Client) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("active", "true")
	params.Set("closed", "false")

	body, err := c.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket: list markets: %w", err)
	}

	var apiMarkets []APIMarket
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket: decode markets: %w", err)
	}

	markets := make([]domain.Market, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].ToDomainMarket())
	}
	return markets, nil
}

// GetMarket returns a single market by its ID.
func (c *Client) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	body, err := c.doGet(ctx, "/markets/"+url.PathEscape(id))
	if err != nil {
		return domain.Market{}, fmt.Errorf("polymarket: get market %s: %w", id, err)
	}

	var apiMarket APIMarket
	if err := json.Unmarshal(body, &apiMarket); err != nil {
		return domain.Market{}, fmt.Errorf("polymarket: decode market: %w", err)
	}
	return apiMarket.ToDomainMarket(), nil
}

// Execute always rejects: the Gamma client has no order-signing support.
func (c *Client) Execute(ctx context.Context, req OrderRequest) (ExecutionResult, error) {
	return ExecutionResult{}, fmt.Errorf("polymarket: execute: %w: live execution not supported", domain.ErrOrderRejected)
}

// Balance is unsupported on the read-only Gamma client.
func (c *Client) Balance(ctx context.Context) (float64, error) {
	return 0, fmt.Errorf("polymarket: balance: live account access not supported")
}

// doGet sends an unauthenticated GET request to the Gamma API.
func (c *Client) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx responses to errors, keeping a short body
// excerpt for diagnostics.
func checkHTTPStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if status == http.StatusNotFound {
		return domain.ErrNotFound
	}
	excerpt := string(body)
	if len(excerpt) > 256 {
		excerpt = excerpt[:256]
	}
	return fmt.Errorf("http %d: %s", status, excerpt)
}
