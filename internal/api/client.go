// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/threadkit/internal/logging"
	"github.com/jeranaias/threadkit/internal/util"
)

const (
	// DefaultBaseURL is the base URL of the remote API.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultTimeout is the default timeout for a single request.
	DefaultTimeout = 60 * time.Second

	// DefaultBeta is the value sent in the OpenAI-Beta header.
	DefaultBeta = "assistants=v1"

	// MaxResponseSize is the maximum accepted response body size.
	MaxResponseSize = 10 * 1024 * 1024
)

// UserAgent is sent with every request. The cli package sets the version.
var UserAgent = "threadkit/dev"

// Client issues requests against the remote API.
//
// Configure a Client with the With* methods before sharing it; after that it
// is safe for concurrent use.
type Client struct {
	apiKey       string
	baseURL      string
	organization string
	beta         string
	httpClient   *http.Client
	logger       *slog.Logger
	metrics      *Metrics
}

// NewClient creates a client for the given API key.
//
// An empty key is allowed; every request will then fail with ErrNotConfigured
// before touching the network.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		beta:       DefaultBeta,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = strings.TrimSuffix(strings.TrimSpace(url), "/")
	return c
}

// WithTimeout sets the request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	hc := *c.httpClient
	hc.Timeout = timeout
	c.httpClient = &hc
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
// Connection reuse, TLS and proxies are its concern.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// WithOrganization sets the OpenAI-Organization header.
func (c *Client) WithOrganization(org string) *Client {
	c.organization = strings.TrimSpace(org)
	return c
}

// WithBeta sets the OpenAI-Beta header. An empty value omits the header.
func (c *Client) WithBeta(beta string) *Client {
	c.beta = strings.TrimSpace(beta)
	return c
}

// WithLogger sets the logger used for request logging.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	c.logger = l
	return c
}

// WithMetrics enables request metrics.
func (c *Client) WithMetrics(m *Metrics) *Client {
	c.metrics = m
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// IsConfigured returns true if the client has an API key configured.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// APIKeyMasked returns the key as length and fingerprint, never any fragment.
func (c *Client) APIKeyMasked() string {
	return logging.Mask(c.apiKey)
}

// KeyFingerprint returns a short fingerprint of the API key for logging.
func (c *Client) KeyFingerprint() string {
	return logging.Fingerprint(c.apiKey)
}

func (c *Client) clone() *Client {
	cp := *c
	return &cp
}

func (c *Client) log() *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logging.L()
}

func (c *Client) endpoint(path string) string {
	return c.baseURL + "/" + strings.TrimPrefix(path, "/")
}

// setHeaders sets the headers required by the service.
func (c *Client) setHeaders(req *http.Request, requestID string) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Request-ID", requestID)
	if req.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.beta != "" {
		req.Header.Set("OpenAI-Beta", c.beta)
	}
	if c.organization != "" {
		req.Header.Set("OpenAI-Organization", c.organization)
	}
}

// Do sends one request and decodes a success body into out.
//
// body is encoded as JSON when non-nil; out may be nil to discard the body.
// The returned error is an *APIError, *SchemaError, *TransportError or
// ErrNotConfigured.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return WrapSchema("encode "+path, err)
		}
		reader = bytes.NewReader(encoded)
	}

	requestURL := c.endpoint(path)
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	c.setHeaders(req, requestID)

	route := Route(path)
	c.log().Debug("api_request", "method", method, "route", route, "request_id", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.metrics.observe(method, route, "transport_error", duration)
		c.log().Debug("api_transport_error", "method", method, "route", route, "request_id", requestID, "error", err)
		return &TransportError{Method: method, URL: requestURL, Err: err}
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		c.metrics.observe(method, route, "transport_error", duration)
		return &TransportError{Method: method, URL: requestURL, Err: err}
	}

	c.metrics.observe(method, route, strconv.Itoa(resp.StatusCode), duration)
	c.log().Debug("api_response", "method", method, "route", route, "status", resp.StatusCode,
		"duration", duration, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := parseAPIError(resp.StatusCode, resp.Header, data)
		if apiErr.RequestID == "" {
			apiErr.RequestID = requestID
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		wrapped := WrapSchema("decode "+route, err)
		var se *SchemaError
		if errors.As(wrapped, &se) && se.Snippet == "" {
			se.Snippet = util.TruncateRunes(string(data), 200)
		}
		return wrapped
	}
	return nil
}

// readResponse reads the body, failing instead of truncating when it is larger
// than MaxResponseSize.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%w of %d bytes", ErrResponseTooLarge, MaxResponseSize)
	}
	return body, nil
}

// Get issues a GET request and decodes the response into a new T.
func Get[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var out T
	if err := c.Do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Post issues a POST request with a JSON body and decodes the response into a new T.
func Post[T any](ctx context.Context, c *Client, path string, body any) (*T, error) {
	var out T
	if err := c.Do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete issues a DELETE request and decodes the response into a new T.
func Delete[T any](ctx context.Context, c *Client, path string) (*T, error) {
	var out T
	if err := c.Do(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Route collapses the identifier segments of a resource path so it can be
// used as a low-cardinality label: "threads/abc/messages" becomes
// "threads/{id}/messages".
func Route(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i := range parts {
		if i%2 == 1 {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}
