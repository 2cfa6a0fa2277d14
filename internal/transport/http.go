// Package transport performs the single HTTP exchange behind every pipeline call.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"tradegate/pkg/core"
)

// Request is a fully built outbound call. Hooks may rewrite any field
// before it is dispatched.
type Request struct {
	// Method is the HTTP verb.
	Method string
	// URL is the absolute target including any query string.
	URL string
	// Header holds the headers sent with the call.
	Header http.Header
	// Body is the encoded request body; empty means no body.
	Body string
	// Payload is the ordered parameter set the body was encoded from.
	Payload *core.Payload
}

// Response is the status, headers and body captured from a completed call,
// whatever its status.
type Response struct {
	// Exchange names the client that issued the call.
	Exchange string
	// Method and URL echo the dispatched request.
	Method string
	URL    string

	// StatusCode is the HTTP status code returned by the server.
	StatusCode int
	// Status is the status line text, e.g. "404 Not Found".
	Status string
	// Header holds the response headers.
	Header http.Header
	// Body contains the raw response body bytes.
	Body []byte
	// Duration is the time spent on the network call.
	Duration time.Duration
}

// Client wraps a resty HTTP client with logging.
// It never retries; one Do is one network call.
type Client struct {
	client *resty.Client
	logger zerolog.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient creates a client with the given per-call timeout.
func NewClient(timeout time.Duration, logger zerolog.Logger) *Client {
	return newClient(resty.New(), timeout, logger)
}

// NewClientWithHTTP creates a client over an existing *http.Client.
func NewClientWithHTTP(hc *http.Client, timeout time.Duration, logger zerolog.Logger) *Client {
	return newClient(resty.NewWithClient(hc), timeout, logger)
}

func newClient(client *resty.Client, timeout time.Duration, logger zerolog.Logger) *Client {
	client.SetTimeout(timeout)
	client.SetRetryCount(0)

	return &Client{
		client: client,
		logger: logger,
	}
}

// Do executes req. A response is returned for every HTTP status; an error is
// returned only when no response could be obtained.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, fmt.Errorf("client is closed")
	}

	r := c.client.R().SetContext(ctx)
	for k, v := range req.Header {
		r.SetHeader(k, strings.Join(v, ", "))
	}
	if req.Body != "" {
		r.SetBody(req.Body)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Msg("http request")

	start := time.Now()
	resp, err := r.Execute(req.Method, req.URL)
	if err != nil {
		if resp == nil || resp.RawResponse == nil {
			c.logger.Error().Err(err).
				Str("method", req.Method).
				Str("url", req.URL).
				Msg("http request failed")
			return nil, fmt.Errorf("http request: %w", err)
		}
		c.logger.Warn().Err(err).
			Str("method", req.Method).
			Str("url", req.URL).
			Int("status", resp.StatusCode()).
			Msg("http request failed with response")
	}

	out := &Response{
		Method:     req.Method,
		URL:        req.URL,
		StatusCode: resp.StatusCode(),
		Status:     resp.Status(),
		Header:     resp.Header(),
		Body:       resp.Bytes(),
		Duration:   time.Since(start),
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL).
		Int("status", out.StatusCode).
		Int("size", len(out.Body)).
		Dur("duration", out.Duration).
		Msg("http response")

	return out, nil
}

// Close releases idle connections. Do fails after Close.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.client.Close()
}

// IsSuccess returns true if the response status code indicates success (2xx).
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// IsError returns true if the response status code indicates an error (4xx or 5xx).
func (r *Response) IsError() bool {
	return r.StatusCode >= http.StatusBadRequest
}

// String returns the body as text.
func (r *Response) String() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}
