// Package nextcloud talks to the integration_openproject app of a Nextcloud
// server: admin configuration, instance validation and work package file links.
package nextcloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tildaslashalef/oplink/internal/config"
	"github.com/tildaslashalef/oplink/internal/loggy"
)

const appPath = "/index.php/apps/integration_openproject"

// APIError is returned for any non-2xx response
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("nextcloud API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("nextcloud API error %d", e.StatusCode)
}

// TransportError is returned when no response could be obtained from the server
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("nextcloud unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsUnreachable reports whether err means the request never reached the server
func IsUnreachable(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// Client is an HTTP client for the integration_openproject endpoints
type Client struct {
	baseURL     string
	user        string
	appPassword string
	maxRetries  int
	httpClient  *http.Client
	newBackOff  func() backoff.BackOff
	logger      *loggy.Logger
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBackOff replaces the retry policy between attempts
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(c *Client) { c.newBackOff = fn }
}

// NewClient creates a client for the Nextcloud server described by cfg
func NewClient(cfg config.NextcloudConfig, logger *loggy.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(cfg.URL, "/"),
		user:        cfg.User,
		appPassword: cfg.AppPassword,
		maxRetries:  cfg.MaxRetries,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        32,
				MaxIdleConnsPerHost: 32,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxElapsedTime = time.Minute
			return b
		},
		logger: logger.With("component", "nextcloud"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server URL the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a JSON request to the app and decodes the JSON response into out.
// Transport failures, 429 and 5xx responses are retried.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
	}

	url := c.baseURL + appPath + path
	attempt := 0

	operation := func() error {
		attempt++
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("creating request: %w", err))
		}
		req.SetBasicAuth(c.user, c.appPassword)
		req.Header.Set("OCS-APIRequest", "true")
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if id := loggy.GetRequestID(ctx); id != "" {
			req.Header.Set("X-Request-ID", id)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Debug("Request failed", "method", method, "path", path, "attempt", attempt, "error", err)
			return &TransportError{Err: err}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return &TransportError{Err: fmt.Errorf("reading response body: %w", err)}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody), Body: string(respBody)}
			c.logger.Debug("Error response", "method", method, "path", path, "status", resp.StatusCode, "attempt", attempt)
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if out == nil || len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return backoff.Permanent(fmt.Errorf("decoding response: %w", err))
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)), ctx)
	return backoff.Retry(operation, policy)
}

// errorMessage pulls a readable message out of the usual error shapes the app returns
func errorMessage(body []byte) string {
	var shaped struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &shaped) == nil {
		if shaped.Error != "" {
			return shaped.Error
		}
		return shaped.Message
	}
	return ""
}
