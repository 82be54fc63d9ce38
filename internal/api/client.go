package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dashwatch/internal/model"
)

// DashboardKeyHeader carries the optional dashboard credential.
const DashboardKeyHeader = "X-DASHBOARD-KEY"

// DefaultStatusPath is the polled status endpoint.
const DefaultStatusPath = "/api/status"

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code   int
	Status string
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("request failed: %s: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("request failed: %s", e.Status)
}

// Client is a thin HTTP client for the dashboard status API.
type Client struct {
	baseURL    string
	statusPath string
	key        string
	variant    Variant
	http       *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithDashboardKey sets the X-DASHBOARD-KEY value. Empty means no header.
func WithDashboardKey(key string) Option {
	return func(c *Client) { c.key = key }
}

// WithStatusPath overrides DefaultStatusPath.
func WithStatusPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.statusPath = path
		}
	}
}

// WithVariant selects the payload shape served by the status endpoint.
func WithVariant(v Variant) Option {
	return func(c *Client) {
		if v != "" {
			c.variant = v
		}
	}
}

// WithHTTPClient replaces the default 10s-timeout client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// NewClient creates a client for the given base URL (e.g. http://host:port).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		statusPath: DefaultStatusPath,
		variant:    VariantFlat,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status performs one fetch cycle against the status endpoint.
func (c *Client) Status(ctx context.Context) (model.StatusSnapshot, error) {
	body, err := c.get(ctx, c.statusPath)
	if err != nil {
		return model.StatusSnapshot{}, err
	}
	return Decode(c.variant, body)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.key != "" {
		req.Header.Set(DashboardKeyHeader, c.key)
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return nil, &StatusError{
			Code:   res.StatusCode,
			Status: res.Status,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	return io.ReadAll(res.Body)
}
