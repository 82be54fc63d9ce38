package api

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultStreamPath is the server-push status endpoint.
const DefaultStreamPath = "/ws/stats"

// StreamURL derives the WebSocket endpoint from the dashboard URL: wss when
// the dashboard is served over https, ws otherwise, same host.
func StreamURL(dashboardURL, path string) (string, error) {
	u, err := parseDashboardURL(dashboardURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	if path == "" {
		path = DefaultStreamPath
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: path}).String(), nil
}

// BaseURL returns scheme://host of the dashboard URL, suitable for NewClient.
func BaseURL(dashboardURL string) (string, error) {
	u, err := parseDashboardURL(dashboardURL)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host}).String(), nil
}

func parseDashboardURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("dashboard url is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid dashboard url %q: %w", raw, err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return nil, fmt.Errorf("dashboard url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("dashboard url %q: host is required", raw)
	}
	return u, nil
}
