package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Client talks to the Tasks API. Authentication is the transport's job: pass an
// *http.Client whose Transport is an auth.Gateway.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *RateLimiter
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit caps attachment download throughput. Zero or negative disables the cap.
func WithRateLimit(bytesPerSecond int64) Option {
	return func(c *Client) {
		c.limiter = NewRateLimiter(bytesPerSecond)
	}
}

// New creates a Client rooted at baseURL.
func New(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client { return c.http }

// APIError is returned for responses outside the 2xx range.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal([]byte(e.Body), &detail) == nil && detail.Detail != "" {
		return fmt.Sprintf("API returned %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), detail.Detail)
	}
	return fmt.Sprintf("API returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// endpoint joins path segments onto the base URL, escaping each one.
func (c *Client) endpoint(query url.Values, segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u := c.baseURL + "/" + strings.Join(escaped, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// newRequest builds a request with the headers every API call carries.
func newRequest(ctx context.Context, method, urlStr string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
	if err != nil {
		log.Error().Err(err).Str("method", method).Str("url", urlStr).Msg("Failed to create HTTP request object")
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// send executes req and turns non-2xx statuses into *APIError. The caller owns the
// returned body.
func (c *Client) send(req *http.Request) (*http.Response, error) {
	log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Str("request_id", req.Header.Get("X-Request-ID")).Msg("Sending HTTP request")
	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
		log.Error().Str("method", req.Method).Str("url", req.URL.String()).Int("status", resp.StatusCode).Msg("HTTP request returned non-OK status")
		return nil, apiErr
	}
	log.Debug().Str("method", req.Method).Str("url", req.URL.String()).Int("status", resp.StatusCode).Msg("HTTP request successful")
	return resp, nil
}

// do sends a JSON request and returns the raw response body.
func (c *Client) do(ctx context.Context, method, urlStr string, body any) ([]byte, error) {
	req, err := newRequest(ctx, method, urlStr, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.send(req)
	if err != nil {
		return nil, err
	}
	return readResponseBody(resp)
}

// getJSON fetches urlStr and decodes the body into out.
func (c *Client) getJSON(ctx context.Context, urlStr string, out any) ([]byte, error) {
	raw, err := c.do(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Error().Err(err).Str("body_preview", string(raw[:min(len(raw), 200)])).Msg("Failed to parse response JSON")
		return raw, fmt.Errorf("failed to parse response from %s: %w", urlStr, err)
	}
	return raw, nil
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Str("url", resp.Request.URL.String()).Msg("Failed to read response body")
		return nil, err
	}
	return body, nil
}
