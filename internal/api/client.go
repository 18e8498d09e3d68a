package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/amirk1998/notedeck/internal/ratelimit"
	"github.com/amirk1998/notedeck/pkg/errors"
)

const defaultTimeout = 10 * time.Second

// TokenProvider supplies the current bearer token, or "" when the
// client is anonymous.
type TokenProvider func() string

// Client talks to the external notes REST API. It is transport only:
// no state beyond the token provider and the 401 hook lives here.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	limiter        *ratelimit.RateLimiter
	tokenProvider  TokenProvider
	onUnauthorized func()
}

type Option func(*Client)

// WithTimeout overrides the default 10 second request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimiter throttles outbound calls per endpoint group
func WithRateLimiter(rl *ratelimit.RateLimiter) Option {
	return func(c *Client) {
		c.limiter = rl
	}
}

// WithTokenProvider supplies the bearer token for authenticated calls
func WithTokenProvider(tp TokenProvider) Option {
	return func(c *Client) {
		c.tokenProvider = tp
	}
}

// WithUnauthorizedHook is invoked whenever the server answers 401
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// NewClient creates a new API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// errorBody is the error payload shape of the REST API
type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// do executes one request and decodes the response into out (if non-nil)
func (c *Client) do(ctx context.Context, method, path, group string, body, out any) error {
	if c.limiter != nil {
		if err := c.limiter.CheckLimit(group); err != nil {
			return err
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokenProvider != nil {
		if token := c.tokenProvider(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.KindNetwork, fmt.Sprintf("%s %s failed", method, path))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return c.classifyError(resp)
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, errors.KindUnknown, "failed to decode response")
	}

	return nil
}

// classifyError maps an error response to the typed error taxonomy
func (c *Client) classifyError(resp *http.Response) error {
	var payload errorBody
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	json.Unmarshal(data, &payload)

	if resp.StatusCode == http.StatusUnprocessableEntity && len(payload.Errors) > 0 {
		msg := payload.Message
		if msg == "" {
			msg = "request validation failed"
		}
		return errors.NewValidationError(msg, payload.Errors)
	}

	return errors.FromStatusCode(resp.StatusCode, payload.Message)
}
