// Package client is the authenticated HTTP accessor for the commerce
// backend's resource collections.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/erazemk/katalog/internal/logging"
	"github.com/erazemk/katalog/internal/metrics"
)

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 10 << 20

// TokenSource supplies the bearer credential. An empty token means the
// operator is not signed in.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Config holds client configuration.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
	Limiter    *rate.Limiter
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Client issues requests against the backend API rooted at BaseURL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// New creates a new client.
func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     cfg.Tokens,
		limiter:    cfg.Limiter,
		logger:     logger,
		metrics:    cfg.Metrics,
	}, nil
}

// BaseURL returns the configured API root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Send issues a form request. With a file attached the body is
// multipart/form-data, otherwise application/x-www-form-urlencoded; the
// fields are the same either way.
func (c *Client) Send(ctx context.Context, method, path string, fields url.Values, file *File) ([]byte, error) {
	body, contentType, err := encodeForm(fields, file)
	if err != nil {
		return nil, err
	}
	return c.do(ctx, method, path, body, contentType)
}

// SendJSON issues a request with a JSON body.
func (c *Client) SendJSON(ctx context.Context, method, path string, in any) ([]byte, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	return c.do(ctx, method, path, bytes.NewReader(data), "application/json")
}

// Fetch issues a bodyless request (GET, DELETE).
func (c *Client) Fetch(ctx context.Context, method, path string) ([]byte, error) {
	return c.do(ctx, method, path, nil, "")
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimPrefix(path, "/"), body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resource := resourceOf(path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(resource, method, 0, time.Since(start))
		c.logger.Warn("backend unreachable", "method", method, "path", path, "error", err)
		return nil, &Error{Status: 0, Message: MsgUnreachable, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	elapsed := time.Since(start)
	c.metrics.ObserveRequest(resource, method, resp.StatusCode, elapsed)
	c.logger.Debug("backend request", "method", method, "path", path, "status", resp.StatusCode, "duration", elapsed.Round(time.Millisecond))
	if err != nil {
		return nil, &Error{Status: 0, Message: MsgUnreachable, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := newError(resp.StatusCode, data)
		c.logger.Warn("backend request failed", "method", method, "path", path, "status", resp.StatusCode, "message", apiErr.Message)
		return nil, apiErr
	}
	return data, nil
}

// authorize attaches the bearer credential when one is stored. A missing
// credential is not an error here; the backend decides.
func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("reading credential: %w", err)
	}
	if token == "" {
		c.logger.Warn("no credential stored, sending unauthenticated request", "path", req.URL.Path)
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// resourceOf returns the collection name of a request path, for metrics.
func resourceOf(path string) string {
	path = strings.TrimPrefix(path, "/")
	if i := strings.IndexByte(path, '/'); i >= 0 {
		return path[:i]
	}
	return path
}
