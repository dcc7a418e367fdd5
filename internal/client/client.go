package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/muurk/homesensor/internal/logging"
	"github.com/muurk/homesensor/internal/version"
)

const (
	// PairHeader carries the pair id on every request after pairing.
	PairHeader = "X-Pair-Id"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries applies to reads only; writes are never retried.
	DefaultMaxRetries = 2

	// DefaultRetryDelay is the delay before the first retry; it doubles each time.
	DefaultRetryDelay = 500 * time.Millisecond

	// maxResponseSize bounds what we read from a sensor.
	maxResponseSize = 64 << 10
)

// Client talks to one sensor.
type Client struct {
	// Addr is host:port of the sensor
	Addr string

	// PairID is sent as X-Pair-Id when non-empty
	PairID string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	MaxRetries int
	RetryDelay time.Duration
}

// New creates a client for the sensor at host:port.
func New(host string, port int, pairID string) *Client {
	return &Client{
		Addr:       net.JoinHostPort(host, strconv.Itoa(port)),
		PairID:     pairID,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// GetSensor reads the public settings document.
func (c *Client) GetSensor(ctx context.Context) (*SensorInfo, error) {
	var info SensorInfo
	if err := c.read(ctx, http.MethodGet, "/sensor", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetSensorFull reads settings plus diagnostics. Requires pairing.
func (c *Client) GetSensorFull(ctx context.Context) (*SensorFull, error) {
	var full SensorFull
	if err := c.read(ctx, http.MethodGet, "/sensor/full", nil, &full); err != nil {
		return nil, err
	}
	return &full, nil
}

// UpdateSensor merges update into the sensor settings. Requires pairing.
func (c *Client) UpdateSensor(ctx context.Context, update *SettingsUpdate) error {
	body, err := json.Marshal(update)
	if err != nil {
		return NewParseError("failed to encode settings", err)
	}
	var res resultResponse
	return c.do(ctx, http.MethodPost, "/sensor", body, &res)
}

// Pair requests a candidate id and confirms it. The sensor's pairing
// window must be open. On success the client keeps the id in PairID.
func (c *Client) Pair(ctx context.Context) (string, error) {
	var pr pairResponse
	if err := c.do(ctx, http.MethodPost, "/pair", nil, &pr); err != nil {
		return "", err
	}
	if pr.ID == "" {
		return "", NewParseError("sensor returned an empty pair id", nil)
	}

	prev := c.PairID
	c.PairID = pr.ID
	var res resultResponse
	if err := c.do(ctx, http.MethodPost, "/pair/confirm", nil, &res); err != nil {
		c.PairID = prev
		return "", err
	}
	logging.Info("Paired with sensor", zap.String("addr", c.Addr))
	return pr.ID, nil
}

// History returns up to count measurements at or before asOf, newest
// first. A zero asOf means "now" on the sensor's clock.
func (c *Client) History(ctx context.Context, asOf time.Time, count int) ([]Measurement, error) {
	q := historyQuery{Count: count}
	if !asOf.IsZero() {
		ts := asOf.Unix()
		q.Timestamp = &ts
	}
	body, err := json.Marshal(q)
	if err != nil {
		return nil, NewParseError("failed to encode history query", err)
	}
	var hr historyResponse
	if err := c.read(ctx, http.MethodPost, "/dht", body, &hr); err != nil {
		return nil, err
	}
	return hr.Measurements, nil
}

// SetLED turns the sensor LED on or off. Requires pairing.
func (c *Client) SetLED(ctx context.Context, on bool) error {
	path := "/led/off"
	if on {
		path = "/led/on"
	}
	var res resultResponse
	return c.do(ctx, http.MethodPost, path, nil, &res)
}

// read is do with retries for idempotent requests.
func (c *Client) read(ctx context.Context, method, path string, body []byte, out any) error {
	var lastErr error
	delay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return NewNetworkError("request cancelled", c.Addr, ctx.Err())
			case <-time.After(delay):
			}
			delay *= 2
		}

		lastErr = c.do(ctx, method, path, body, out)
		if lastErr == nil || !IsNetworkError(lastErr) {
			return lastErr
		}
		logging.Debug("Retrying sensor request",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))
	}
	return lastErr
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, "http://"+c.Addr+path, rd)
	if err != nil {
		return NewNetworkError("failed to create request", c.Addr, err)
	}
	// The sensor serves one request per connection.
	req.Close = true
	req.Header.Set("User-Agent", version.UserAgent("sensor-cfg"))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.PairID != "" {
		req.Header.Set(PairHeader, c.PairID)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return NewNetworkError(method+" "+path+" failed", c.Addr, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return NewNetworkError("failed to read response body", c.Addr, err)
	}

	if resp.StatusCode != http.StatusOK {
		var er errorResponse
		_ = json.Unmarshal(data, &er)
		return NewStatusError(path, resp.StatusCode, er.Error, c.Addr)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return NewParseError(fmt.Sprintf("failed to parse %s response", path), err)
	}
	return nil
}
