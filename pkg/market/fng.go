package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shoshosho1210/coinrader/pkg/observability"
)

// DefaultFearGreedURL is the alternative.me Fear & Greed index endpoint.
const DefaultFearGreedURL = "https://api.alternative.me/fng/?limit=1"

// FearGreed is one index reading: a 0-100 value plus its classification
// label as supplied by the API ("Fear", "Greed", ...).
type FearGreed struct {
	Value          int
	Classification string
}

// FearGreedClient fetches the crypto Fear & Greed index.
type FearGreedClient struct {
	url        string
	httpClient *http.Client
	metrics    *observability.Metrics
}

// NewFearGreedClient creates a Fear & Greed client. url may be empty to
// use the default endpoint.
func NewFearGreedClient(url string, metrics *observability.Metrics) *FearGreedClient {
	if url == "" {
		url = DefaultFearGreedURL
	}
	return &FearGreedClient{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		metrics:    metrics,
	}
}

// Latest returns the most recent index reading.
func (c *FearGreedClient) Latest(ctx context.Context) (FearGreed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return FearGreed{}, fmt.Errorf("failed to build fgi request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFetch("error", start)
		return FearGreed{}, fmt.Errorf("fgi fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordFetch(strconv.Itoa(resp.StatusCode), start)
		return FearGreed{}, fmt.Errorf("fgi fetch returned status %d", resp.StatusCode)
	}

	var payload struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.recordFetch("decode_error", start)
		return FearGreed{}, fmt.Errorf("failed to decode fgi response: %w", err)
	}
	if len(payload.Data) == 0 {
		c.recordFetch("empty", start)
		return FearGreed{}, fmt.Errorf("fgi response contained no readings")
	}

	value, err := strconv.Atoi(payload.Data[0].Value)
	if err != nil {
		c.recordFetch("decode_error", start)
		return FearGreed{}, fmt.Errorf("fgi value %q is not a number: %w", payload.Data[0].Value, err)
	}

	c.recordFetch("ok", start)
	return FearGreed{Value: value, Classification: payload.Data[0].Classification}, nil
}

func (c *FearGreedClient) recordFetch(status string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.MarketFetchesTotal.WithLabelValues("fgi", status).Inc()
	c.metrics.MarketFetchDuration.WithLabelValues("fgi").Observe(time.Since(start).Seconds())
}
