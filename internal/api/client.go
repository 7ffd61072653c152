// Package api is a typed client for the fintrack REST data API.
//
// Every request carries the shared admin secret and a JSON content type.
// The API never infers identity: callers pass the owner's user_id explicitly.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/config"
	"fintrack/internal/log"
)

// DefaultTimeout bounds every request unless overridden with WithTimeout.
const DefaultTimeout = 30 * time.Second

// Client talks to the REST endpoints under a base URL such as
// https://example.hasura.app/api/rest.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	logger     *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l.WithComponent(log.ComponentAPI)
		}
	}
}

// New creates a client for baseURL authenticated with secret.
func New(baseURL, secret string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secret:     secret,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     log.Discard().WithComponent(log.ComponentAPI),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig builds a client from the loaded configuration.
func NewFromConfig(cfg *config.Config, logger *log.Logger) *Client {
	return New(cfg.APIURL, cfg.AdminSecret, WithTimeout(cfg.HTTPTimeout), WithLogger(logger))
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// doJSON sends body (if any) and decodes the response into out. A non-2xx
// status becomes an *Error whose message is taken from the payload, falling
// back to fallback. Transport failures are wrapped and returned as is.
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any, fallback string) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(config.AdminSecretHeader, c.secret)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Request failed",
			log.FieldMethod, method,
			log.FieldPath, path,
			log.FieldError, err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", path, err)
	}

	c.logger.DebugContext(ctx, "Request completed",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, payload, fallback)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return &Error{Status: resp.StatusCode, Message: fallback, Err: fmt.Errorf("decode %s response: %w", path, err)}
	}
	return nil
}

func ownerQuery(userID string) url.Values {
	return url.Values{"user_id": {userID}}
}

func recordQuery(id, userID string) url.Values {
	return url.Values{"id": {id}, "user_id": {userID}}
}

// Message returns the user-facing text of err: the server message for an
// *Error, otherwise fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
