package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// DashboardKeyMeta is the <meta name=...> that carries the dashboard key on
// the dashboard page.
const DashboardKeyMeta = "dashboard-key"

// DiscoverDashboardKey fetches the dashboard page and returns the content of
// its dashboard-key meta tag. A page without the tag yields "" and no error.
func DiscoverDashboardKey(ctx context.Context, h *http.Client, pageURL string) (string, error) {
	if h == nil {
		h = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")

	res, err := h.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", &StatusError{Code: res.StatusCode, Status: res.Status}
	}

	key, err := MetaContent(res.Body, DashboardKeyMeta)
	if err != nil {
		return "", fmt.Errorf("read dashboard page: %w", err)
	}
	return key, nil
}

// MetaContent scans an HTML document for <meta name="name" content="...">
// and returns the content of the first match.
func MetaContent(r io.Reader, name string) (string, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return "", nil
			}
			return "", z.Err()
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if tok.Data != "meta" {
				continue
			}
			var metaName, content string
			for _, attr := range tok.Attr {
				switch strings.ToLower(attr.Key) {
				case "name":
					metaName = attr.Val
				case "content":
					content = attr.Val
				}
			}
			if strings.EqualFold(metaName, name) {
				return strings.TrimSpace(content), nil
			}
		}
	}
}
