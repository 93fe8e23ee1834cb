package ga

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/shoshosho1210/coinrader/pkg/observability"
	"github.com/shoshosho1210/coinrader/pkg/track"
)

// DefaultEndpoint is the GA4 Measurement Protocol collection endpoint.
const DefaultEndpoint = "https://www.google-analytics.com/mp/collect"

// Config configures the GA4 client.
type Config struct {
	// MeasurementID is the GA4 stream id (G-XXXXXXX). Empty disables the
	// client entirely.
	MeasurementID string

	// APISecret is the Measurement Protocol API secret for the stream.
	APISecret string

	// Endpoint overrides DefaultEndpoint, mainly for tests.
	Endpoint string

	// Timeout bounds one HTTP round-trip to the endpoint.
	Timeout time.Duration

	// QueueSize is the beacon queue buffer; zero means the queue default.
	QueueSize int

	// Retry configures beacon delivery retries.
	Retry RetryConfig
}

// Enabled reports whether the config identifies a GA4 stream.
func (c Config) Enabled() bool {
	return c.MeasurementID != "" && c.APISecret != ""
}

// Client forwards analytics events to GA4 over the Measurement Protocol.
// It implements track.Reporter.
//
// Default delivery POSTs the event and signals completion when the
// round-trip settles, success or not. Beacon delivery hands the payload to
// a background queue and signals completion on enqueue; the queue retries
// transient failures so the event survives the originating request the way
// a browser beacon survives page unload.
type Client struct {
	config     Config
	httpClient *http.Client
	queue      *Queue
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewClient creates a GA4 client, or nil when the config is disabled.
// Use DialReporter to hand the result to track.NewClassifier; a plain
// interface conversion of a nil *Client would produce a non-nil Reporter.
func NewClient(config Config, logger *observability.Logger, metrics *observability.Metrics) *Client {
	if !config.Enabled() {
		return nil
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultEndpoint
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	c := &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.WithField("component", "ga"),
		metrics:    metrics,
	}
	c.queue = NewQueue(config.QueueSize, NewRetryPolicy(config.Retry), c.send, func(err error) {
		c.logger.WithError(err).Warn("Beacon delivery failed")
	})
	return c
}

// DialReporter returns the client as a track.Reporter, or nil when the
// client is nil. The indirection avoids the classic non-nil interface
// wrapping a nil pointer.
func DialReporter(c *Client) track.Reporter {
	if c == nil {
		return nil
	}
	return c
}

// Start launches the beacon delivery worker.
func (c *Client) Start(ctx context.Context) {
	c.queue.Start(ctx, 5*time.Second)
}

// Stop drains the beacon queue, waiting up to timeout.
func (c *Client) Stop(timeout time.Duration) {
	c.queue.Stop(timeout)
}

// QueueStats exposes beacon queue counters.
func (c *Client) QueueStats() QueueStats {
	return c.queue.Stats()
}

// Report implements track.Reporter.
func (c *Client) Report(ctx context.Context, event *track.Event, opts track.ReportOptions) {
	body, err := c.marshalPayload(event, opts.ClientID)
	if err != nil {
		c.logger.WithError(err).Error("Failed to encode payload")
		c.recordReport("encode", "error")
		c.signal(opts.Done)
		return
	}

	if opts.Beacon {
		if c.queue.Enqueue(body) {
			c.recordReport("beacon", "queued")
		} else {
			c.logger.WithField("event", event.Name).Warn("Beacon queue full, payload dropped")
			c.recordReport("beacon", "dropped")
		}
		c.recordQueueDepth()
		// Handoff is the completion signal for beacon mode.
		c.signal(opts.Done)
		return
	}

	done := opts.Done
	go func() {
		// Delivery may outlive the originating request, so it runs on a
		// detached context with the client's own timeout.
		status, err := c.send(context.Background(), body)
		switch {
		case err != nil:
			c.logger.WithError(err).WithField("event", event.Name).Warn("Delivery failed")
			c.recordReport("sync", "error")
		case status >= 400:
			c.logger.WithFields(map[string]interface{}{
				"event":  event.Name,
				"status": status,
			}).Warn("Delivery rejected")
			c.recordReport("sync", "rejected")
		default:
			c.recordReport("sync", "ok")
		}
		c.signal(done)
	}()
}

// send POSTs one payload body. It returns the HTTP status code; transport
// failures return an error with status 0.
func (c *Client) send(ctx context.Context, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	query := url.Values{
		"measurement_id": {c.config.MeasurementID},
		"api_secret":     {c.config.APISecret},
	}
	endpoint := c.config.Endpoint + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

// payload is the Measurement Protocol request body.
type payload struct {
	ClientID string         `json:"client_id"`
	Events   []payloadEvent `json:"events"`
}

type payloadEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

func (c *Client) marshalPayload(event *track.Event, clientID string) ([]byte, error) {
	if clientID == "" {
		// GA4 requires a client id; an anonymous one still lets the event
		// count even though it won't stitch into a session.
		clientID = uuid.NewString()
	}
	return json.Marshal(payload{
		ClientID: clientID,
		Events:   []payloadEvent{{Name: event.Name, Params: event.Params}},
	})
}

func (c *Client) signal(done func()) {
	if done != nil {
		done()
	}
}

func (c *Client) recordReport(mode, status string) {
	if c.metrics != nil {
		c.metrics.GAReportsTotal.WithLabelValues(mode, status).Inc()
	}
}

func (c *Client) recordQueueDepth() {
	if c.metrics != nil {
		c.metrics.GAQueueDepth.Set(float64(len(c.queue.ch)))
	}
}
