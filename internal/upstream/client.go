package upstream

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tilemirror/tilemirror/internal/provider"
)

const defaultUserAgent = "tilemirror/1.0 (+https://github.com/tilemirror/tilemirror)"

// StatusError reports a non-success HTTP status from an upstream provider.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "upstream returned " + e.Status
}

// Client fetches tiles from upstream providers. A single attempt is made per
// fetch; retry policy belongs to the caller, and there is none.
type Client struct {
	http      *http.Client
	userAgent string
}

func NewClient(timeout time.Duration, userAgent string) *Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// TileURL substitutes the raw request tokens into the provider's template so
// any client formatting of the coordinates is preserved. When the provider
// declares subdomains, the pick is (x+y+z) mod n on the parsed integers: the
// same tile always lands on the same subdomain.
func TileURL(p *provider.Provider, z, x, y string, zi, xi, yi int) string {
	u := p.URLTemplate
	u = strings.ReplaceAll(u, "{z}", z)
	u = strings.ReplaceAll(u, "{x}", x)
	u = strings.ReplaceAll(u, "{y}", y)
	if n := len(p.Subdomains); n > 0 {
		idx := (xi + yi + zi) % n
		if idx < 0 {
			idx += n
		}
		u = strings.ReplaceAll(u, "{s}", p.Subdomains[idx])
	}
	return u
}

// Fetch issues a GET for the tile. Provider headers take precedence over the
// default User-Agent. A non-2xx response yields a StatusError; transport
// failures are returned as-is.
func (c *Client) Fetch(ctx context.Context, url string, headers map[string]string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, "", &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return body, resp.Header.Get("Content-Type"), nil
}
