package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout is the per-request timeout applied when none is configured.
const DefaultTimeout = 30 * time.Second

const userAgent = "dockyard-tracker/1.0"

// AuthFunc supplies provider auth headers for each request.
// The returned map is merged with caller-supplied headers.
type AuthFunc func() (map[string]string, error)

// HTTPClient is the shared HTTP call wrapper all provider clients are built
// on. It joins a base URL with relative paths, merges provider auth headers
// with caller headers, applies a timeout, and classifies any non-2xx
// response as an *HTTPError carrying the status and endpoint.
type HTTPClient struct {
	BaseURL string
	Auth    AuthFunc
	Client  *http.Client
}

// NewHTTPClient creates a wrapper for the given base URL and auth hook.
// A zero timeout selects DefaultTimeout.
func NewHTTPClient(baseURL string, auth AuthFunc, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		Auth:    auth,
		Client:  &http.Client{Timeout: timeout},
	}
}

// Do executes a request against path (relative to the base URL) and returns
// the raw response body. body, when non-nil, is JSON-encoded.
func (c *HTTPClient) Do(ctx context.Context, method, path string, query url.Values, body interface{}, headers map[string]string) ([]byte, error) {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if c.Auth != nil {
		authHeaders, err := c.Auth()
		if err != nil {
			return nil, fmt.Errorf("build auth headers: %w", err)
		}
		for k, v := range authHeaders {
			req.Header.Set(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	// Caller headers win over provider defaults.
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Endpoint:   path,
			Body:       truncate(string(respBody), 512),
		}
	}

	return respBody, nil
}

// DoJSON executes a request and decodes the JSON response body into out.
// Pass nil to discard the body. Callers needing raw text use Do directly.
func (c *HTTPClient) DoJSON(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	respBody, err := c.Do(ctx, method, path, query, body, nil)
	if err != nil {
		return err
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response from %s: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
