package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// CartUpdater writes the attribution to the storefront cart
type CartUpdater interface {
	UpdateAttributes(ctx context.Context, a Attribution) error
}

type cartUpdateRequest struct {
	Attributes map[string]string `json:"attributes"`
}

// CartClient calls the storefront AJAX cart API. The cookie jar keeps the
// cart token between calls the way a browser would.
type CartClient struct {
	baseURL *url.URL
	http    *http.Client
}

// NewCartClient creates a client for the storefront at storeURL
func NewCartClient(storeURL string) (*CartClient, error) {
	u, err := url.Parse(strings.TrimRight(storeURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid storefront URL %q", storeURL)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed creating cookie jar: %w", err)
	}
	return &CartClient{
		baseURL: u,
		http:    &http.Client{Jar: jar, Timeout: 10 * time.Second},
	}, nil
}

// HTTPClient returns the client used for cart calls, sharing its cookies
func (c *CartClient) HTTPClient() *http.Client {
	return c.http
}

// UpdateAttributes posts the click and user ids to /cart/update.js
func (c *CartClient) UpdateAttributes(ctx context.Context, a Attribution) error {
	body, err := json.Marshal(cartUpdateRequest{Attributes: map[string]string{
		ParamClickID: a.ClickID,
		ParamUserID:  a.UserID,
	}})
	if err != nil {
		return fmt.Errorf("failed to encode cart update: %w", err)
	}

	endpoint := c.baseURL.JoinPath("cart", "update.js")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build cart update: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cart update failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("cart update failed: status %d", resp.StatusCode)
	}
	return nil
}
