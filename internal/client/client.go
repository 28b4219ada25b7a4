package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/monitorminer/internal/version"
)

const (
	// DefaultPort is the controller's HTTP port
	DefaultPort = 8080

	// SetupAddress is the controller's address on its own setup network
	SetupAddress = "192.168.4.1"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay caps exponential backoff
	DefaultMaxRetryDelay = 30 * time.Second

	maxResponseBytes = 1 << 20
)

// Client talks to a Monitor Miner controller over its HTTP API.
//
// Reads are retried with exponential backoff. Writes are sent once: the
// controller may already have acted on a request whose response was lost.
type Client struct {
	// BaseURL is the base URL for the controller (e.g., "http://192.168.4.1:8080")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed reads
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff doubles the delay after each failed attempt
	UseExponentialBackoff bool
}

// NewClient creates a client for the controller at ip:port.
func NewClient(ip string, port int) *Client {
	return NewClientWithURL("http://" + net.JoinHostPort(ip, strconv.Itoa(port)))
}

// NewClientWithURL creates a client with a full base URL.
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// Ping checks that the controller answers. It returns the controller's clock.
func (c *Client) Ping(ctx context.Context) (time.Time, error) {
	var out struct {
		Pong      bool  `json:"pong"`
		Timestamp int64 `json:"timestamp"`
	}
	if err := c.get(ctx, "/api/system/ping", &out); err != nil {
		return time.Time{}, err
	}
	if !out.Pong {
		return time.Time{}, NewParseError("ping response missing pong", nil)
	}
	return time.Unix(out.Timestamp, 0), nil
}

// Status fetches the controller's system status.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.get(ctx, "/api/system/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logs fetches up to limit recent log entries.
func (c *Client) Logs(ctx context.Context, limit int) ([]LogEntry, error) {
	var out []LogEntry
	path := "/api/system/logs"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Sensors fetches a snapshot of every sensor.
func (c *Client) Sensors(ctx context.Context) (*Snapshot, error) {
	var out Snapshot
	if err := c.get(ctx, "/api/sensors", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Relays fetches every relay's state, ordered by id. The controller keys
// them "relay1", "relay2", ... for ids 0, 1, ...
func (c *Client) Relays(ctx context.Context) ([]RelayStatus, error) {
	states := map[string]bool{}
	if err := c.get(ctx, "/api/relays", &states); err != nil {
		return nil, err
	}
	out := make([]RelayStatus, 0, len(states))
	for name, on := range states {
		n, err := strconv.Atoi(strings.TrimPrefix(name, "relay"))
		if err != nil || n < 1 {
			return nil, NewParseError(fmt.Sprintf("unexpected relay key %q", name), err)
		}
		out = append(out, RelayStatus{RelayID: n - 1, State: on})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelayID < out[j].RelayID })
	return out, nil
}

// Relay fetches one relay including how long it has been on.
func (c *Client) Relay(ctx context.Context, id int) (*RelayStatus, error) {
	var out RelayStatus
	if err := c.get(ctx, "/api/relays/"+strconv.Itoa(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetRelay applies action ("on", "off" or "toggle") to a relay.
func (c *Client) SetRelay(ctx context.Context, id int, action string) (*RelayAction, error) {
	switch action {
	case "on", "off", "toggle":
	default:
		return nil, NewValidationError(fmt.Sprintf("invalid action %q", action))
	}
	if id < 0 {
		return nil, NewValidationError("relay id must not be negative")
	}
	var out RelayAction
	body := map[string]string{"action": action}
	if err := c.post(ctx, "/api/relays/"+strconv.Itoa(id), body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Scan asks the controller to scan for Wi-Fi networks.
func (c *Client) Scan(ctx context.Context) ([]Network, error) {
	var out []Network
	if err := c.get(ctx, "/api/wifi/scan", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WiFiConfig fetches the stored station settings (without the password).
func (c *Client) WiFiConfig(ctx context.Context) (*WiFiConfig, error) {
	var out WiFiConfig
	if err := c.get(ctx, "/api/config/wifi", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProvisionWiFi stores station credentials. The controller restarts into
// them shortly after answering.
func (c *Client) ProvisionWiFi(ctx context.Context, ssid, password string) (string, error) {
	if ssid == "" {
		return "", NewValidationError("SSID is required")
	}
	if len(ssid) > 32 {
		return "", NewValidationError("SSID must be at most 32 characters")
	}
	var out result
	body := map[string]string{"ssid": ssid, "password": password}
	if err := c.post(ctx, "/api/wifi/config", body, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Restart asks the controller to restart.
func (c *Client) Restart(ctx context.Context) (string, error) {
	var out result
	if err := c.post(ctx, "/api/system/restart", nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return NewNetworkError("request cancelled", ctx.Err())
			case <-time.After(currentDelay):
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		err := c.do(ctx, http.MethodGet, path, nil, out)
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
	}

	return lastErr
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return NewValidationError(fmt.Sprintf("failed to encode request: %v", err))
		}
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return NewValidationError(fmt.Sprintf("failed to create %s request: %v", method, err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent("minerctl"))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ClassifyNetworkError(err, req.URL.Host)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return NewNetworkError("failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return NewHTTPError(resp.StatusCode, errorMessage(resp.StatusCode, data))
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return NewParseError("failed to parse JSON response", err)
	}
	return nil
}

// errorMessage extracts the controller's {"error": "..."} text when present.
func errorMessage(status int, data []byte) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return fmt.Sprintf("unexpected status code: %d", status)
}
