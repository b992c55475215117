package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20 // 4 MB snapshot documents are already suspicious
)

// FetchError indicates the bot endpoint failed or returned an unusable body.
// Handlers map it to 502; no snapshot is written when it occurs.
type FetchError struct {
	Status int
	Body   string
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bot fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("bot fetch failed: status %d", e.Status)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Client pulls account snapshots from the bot dashboard endpoint.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a snapshot client for the given bot URL.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchSnapshot fetches and decodes the current bot snapshot. Non-2xx
// responses, non-JSON bodies, and payloads with ok=false all surface as
// *FetchError.
func (c *Client) FetchSnapshot(ctx context.Context) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &FetchError{Status: resp.StatusCode, Err: err}
	}

	payload, err := ParsePayload(body)
	if err != nil {
		return nil, &FetchError{Status: resp.StatusCode, Body: truncate(string(body), 512), Err: fmt.Errorf("non-json body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !payload.OK {
		return nil, &FetchError{Status: resp.StatusCode, Body: truncate(string(body), 512)}
	}

	return payload, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
