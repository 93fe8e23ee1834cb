package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shoshosho1210/coinrader/pkg/observability"
)

// CoinGecko API defaults. The markets query matches the published site:
// top 250 by market cap, quoted in JPY, with 24h change attached.
const (
	DefaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"
	VsCurrency              = "jpy"
	MarketsTop              = 250
)

// Market is one row of the CoinGecko /coins/markets response, reduced to
// the fields the pickers and snapshots consume.
type Market struct {
	ID                      string   `json:"id"`
	Symbol                  string   `json:"symbol"`
	Name                    string   `json:"name"`
	CurrentPrice            float64  `json:"current_price"`
	MarketCap               float64  `json:"market_cap"`
	TotalVolume             float64  `json:"total_volume"`
	PriceChangePct24h       *float64 `json:"price_change_percentage_24h"`
	PriceChangePct24hInCurr *float64 `json:"price_change_percentage_24h_in_currency"`
}

// Change24h returns the 24h percentage change, preferring the in-currency
// figure, and whether any figure was present.
func (m Market) Change24h() (float64, bool) {
	if m.PriceChangePct24hInCurr != nil {
		return *m.PriceChangePct24hInCurr, true
	}
	if m.PriceChangePct24h != nil {
		return *m.PriceChangePct24h, true
	}
	return 0, false
}

// TrendingCoin is one entry of the trending search response.
type TrendingCoin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Client talks to the CoinGecko API. A demo API key is attached when
// configured; without one the public rate limits apply.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL, mainly for tests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithMetrics attaches fetch instrumentation.
func WithMetrics(m *observability.Metrics) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a CoinGecko client. apiKey may be empty.
func NewClient(apiKey string, logger *observability.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	c := &Client{
		baseURL:    DefaultCoinGeckoBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.WithField("component", "coingecko"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Trending returns the current trending search coins, most searched first.
func (c *Client) Trending(ctx context.Context) ([]TrendingCoin, error) {
	var resp struct {
		Coins []struct {
			Item TrendingCoin `json:"item"`
		} `json:"coins"`
	}
	if err := c.getJSON(ctx, "trending", "/search/trending", nil, &resp); err != nil {
		return nil, err
	}
	coins := make([]TrendingCoin, 0, len(resp.Coins))
	for _, entry := range resp.Coins {
		if entry.Item.Symbol != "" {
			coins = append(coins, entry.Item)
		}
	}
	return coins, nil
}

// Markets returns the top rows by market cap with 24h change attached.
func (c *Client) Markets(ctx context.Context) ([]Market, error) {
	params := url.Values{
		"vs_currency":             {VsCurrency},
		"order":                   {"market_cap_desc"},
		"per_page":                {strconv.Itoa(MarketsTop)},
		"page":                    {"1"},
		"sparkline":               {"false"},
		"price_change_percentage": {"24h"},
	}
	var markets []Market
	if err := c.getJSON(ctx, "markets", "/coins/markets", params, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// BTCDominance returns bitcoin's share of total market cap in percent.
func (c *Client) BTCDominance(ctx context.Context) (float64, error) {
	var resp struct {
		Data struct {
			MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
		} `json:"data"`
	}
	if err := c.getJSON(ctx, "global", "/global", nil, &resp); err != nil {
		return 0, err
	}
	dom, ok := resp.Data.MarketCapPercentage["btc"]
	if !ok {
		return 0, fmt.Errorf("global response missing btc market cap percentage")
	}
	return dom, nil
}

// BTCDailyCloses returns the last days of daily BTC closing prices, oldest
// first, for the RSI computation.
func (c *Client) BTCDailyCloses(ctx context.Context, days int) ([]float64, error) {
	params := url.Values{
		"vs_currency": {VsCurrency},
		"days":        {strconv.Itoa(days)},
		"interval":    {"daily"},
	}
	var resp struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := c.getJSON(ctx, "btc_chart", "/coins/bitcoin/market_chart", params, &resp); err != nil {
		return nil, err
	}
	closes := make([]float64, 0, len(resp.Prices))
	for _, point := range resp.Prices {
		if len(point) >= 2 {
			closes = append(closes, point[1])
		}
	}
	return closes, nil
}

// getJSON performs one GET and decodes the JSON body. endpoint labels the
// fetch for metrics; path is relative to the base URL.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, dest interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFetch(endpoint, "error", start)
		return fmt.Errorf("%s fetch failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordFetch(endpoint, strconv.Itoa(resp.StatusCode), start)
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s fetch returned status %d: %s", endpoint, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		c.recordFetch(endpoint, "decode_error", start)
		return fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}
	c.recordFetch(endpoint, "ok", start)
	return nil
}

func (c *Client) recordFetch(endpoint, status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.MarketFetchesTotal.WithLabelValues(endpoint, status).Inc()
	c.metrics.MarketFetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}
