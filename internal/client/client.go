// ABOUTME: HTTP client for the blackbox identity, status and play services
// ABOUTME: Wraps API calls with the shared error taxonomy for CLI and TUI usage

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an error response is read
const maxErrorBody = 64 << 10

// Endpoints holds the base URL of each backend service
type Endpoints struct {
	Identity string
	Status   string
	Play     string
}

// TokenSource returns the current session token, or an error when there is none
type TokenSource func() (string, error)

// Client is the API client for the blackbox services
type Client struct {
	endpoints  Endpoints
	httpClient *http.Client
	token      TokenSource
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTokenSource sets where bearer tokens come from
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.token = ts
	}
}

// New creates a new API client. Calls carry no client-side timeout;
// cancellation comes from the caller's context only.
func New(endpoints Endpoints, opts ...Option) *Client {
	c := &Client{
		endpoints: Endpoints{
			Identity: strings.TrimRight(endpoints.Identity, "/"),
			Status:   strings.TrimRight(endpoints.Status, "/"),
			Play:     strings.TrimRight(endpoints.Play, "/"),
		},
		httpClient: &http.Client{},
		token: func() (string, error) {
			return "", ErrUnauthorized
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoints returns the configured service URLs
func (c *Client) Endpoints() Endpoints {
	return c.endpoints
}

// ErrorResponse is the structured error body returned by the services.
// The identity service uses "error", the FastAPI services use "detail".
type ErrorResponse struct {
	Error   string          `json:"error"`
	Detail  json.RawMessage `json:"detail,omitempty"`
	Message string          `json:"message,omitempty"`
}

// text picks the first populated message field
func (e ErrorResponse) text() string {
	if e.Error != "" {
		return e.Error
	}
	if len(e.Detail) > 0 {
		var s string
		if err := json.Unmarshal(e.Detail, &s); err == nil {
			return s
		}
		return string(e.Detail)
	}
	return e.Message
}

// newRequest builds a request with an optional JSON body
func (c *Client) newRequest(ctx context.Context, method, url string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal input: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// authorize attaches the bearer token; a missing session fails before any network call
func (c *Client) authorize(req *http.Request) error {
	token, err := c.token()
	if err != nil || token == "" {
		if err == nil || !errors.Is(err, ErrUnauthorized) {
			return fmt.Errorf("%w: no active session", ErrUnauthorized)
		}
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// do sends the request and decodes a 2xx JSON body into out (when non-nil)
func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	slog.Debug("Sending request", "method", req.Method, "url", req.URL.Redacted())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.handleRequestError(ctx, req, err)
	}
	defer resp.Body.Close()

	slog.Debug("Received response", "method", req.Method, "url", req.URL.Redacted(), "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.handleErrorResponse(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from %s: %w", req.URL.Host, err)
	}
	return nil
}

// handleRequestError converts transport failures into ErrUnreachable
func (c *Client) handleRequestError(ctx context.Context, req *http.Request, err error) error {
	if ctx.Err() == context.Canceled {
		return fmt.Errorf("request canceled: %w", ctx.Err())
	}
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: request to %s timed out", ErrUnreachable, req.URL.Host)
	}
	return fmt.Errorf("%w: cannot connect to %s: %v", ErrUnreachable, req.URL.Host, err)
}

// handleErrorResponse parses API error responses into a RejectedError
func (c *Client) handleErrorResponse(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	rejected := &RejectedError{StatusCode: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.Unmarshal(data, &errResp); err == nil {
		rejected.Message = errResp.text()
	}
	return rejected
}

// Health probes the root of a service URL and reports whether it answered 2xx
func (c *Client) Health(ctx context.Context, baseURL string) error {
	req, err := c.newRequest(ctx, http.MethodGet, baseURL+"/", nil)
	if err != nil {
		return err
	}
	return c.do(ctx, req, nil)
}
