// Package rest is the exchange-agnostic request pipeline shared by every
// venue: throttle, build the URL, let the venue mutate the call, dispatch,
// capture the response whatever its status, and hand the body back.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"tradegate/internal/circuitbreaker"
	"tradegate/internal/keyring"
	"tradegate/internal/ratelimit"
	"tradegate/internal/transport"
	"tradegate/pkg/core"
)

// Request and Response are the outbound call and the captured reply as seen by hooks.
type (
	Request  = transport.Request
	Response = transport.Response
)

// Client is one exchange's view of the pipeline. It owns its limiter and
// credentials; everything else is fixed at construction.
type Client struct {
	name        string
	baseURL     string
	method      string
	contentType string
	userAgent   string

	http    *transport.Client
	limiter ratelimit.Limiter
	breaker *circuitbreaker.Breaker
	keys    *keyring.KeyRing
	hooks   Hooks
	logger  zerolog.Logger
}

// Option configures a Client at construction.
type Option func(*options)

type options struct {
	limiter    ratelimit.Limiter
	breaker    *circuitbreaker.Breaker
	hooks      Hooks
	logger     zerolog.Logger
	httpClient *http.Client
}

// WithLimiter replaces the default sliding-window limiter. The limiter must
// not be shared with another client.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithBreaker refuses calls while b is open. Transport failures and 5xx
// responses count as failures. Off by default.
func WithBreaker(b *circuitbreaker.Breaker) Option {
	return func(o *options) {
		o.breaker = b
	}
}

// WithHooks installs the venue's URL, request and response hooks.
func WithHooks(h Hooks) Option {
	return func(o *options) {
		o.hooks = h
	}
}

// WithLogger returns an option that sets the logger for the client.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithHTTPClient dispatches through hc instead of a fresh http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// NewClient creates a pipeline client from a validated config. The config
// must carry a base URL.
func NewClient(config *core.Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if config.BaseURL == "" {
		return nil, fmt.Errorf("%s: base url is required", core.ErrCodeInvalidConfig)
	}

	o := &options{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	if o.limiter == nil {
		o.limiter = ratelimit.NewWindow(config.RateLimitRequests, config.RateLimitPeriod)
	}
	if o.hooks == nil {
		o.hooks = NopHooks{}
	}

	logger := o.logger.With().Str("exchange", config.Exchange).Logger()
	if lvl, err := zerolog.ParseLevel(config.LogLevel); err == nil && config.LogLevel != "" && lvl > logger.GetLevel() {
		logger = logger.Level(lvl)
	}

	var hc *transport.Client
	if o.httpClient != nil {
		hc = transport.NewClientWithHTTP(o.httpClient, config.Timeout, logger)
	} else {
		hc = transport.NewClient(config.Timeout, logger)
	}

	keys := keyring.FromCredentials(config.Credentials, config.BackupCredentials...)
	keys.SetLogger(logger)

	return &Client{
		name:        config.Exchange,
		baseURL:     config.BaseURL,
		method:      config.Method,
		contentType: config.ContentType,
		userAgent:   config.UserAgent,
		http:        hc,
		limiter:     o.limiter,
		breaker:     o.breaker,
		keys:        keys,
		hooks:       o.hooks,
		logger:      logger,
	}, nil
}

// Name returns the exchange this client talks to.
func (c *Client) Name() string {
	return c.name
}

// BaseURL returns the default base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Limiter returns the client's own limiter.
func (c *Client) Limiter() ratelimit.Limiter {
	return c.limiter
}

// Logger returns the client's logger, already tagged with the exchange name.
func (c *Client) Logger() zerolog.Logger {
	return c.logger
}

// SetCredentials installs or replaces the key pair used for signing.
func (c *Client) SetCredentials(creds core.Credentials) {
	c.keys.Set(creds)
}

// Credentials returns the active key pair. Without one it returns an
// *core.ExchangeError coded NO_CREDENTIALS that also matches
// core.ErrNoCredentials.
func (c *Client) Credentials() (core.Credentials, error) {
	creds, ok := c.keys.Current()
	if !ok {
		return core.Credentials{}, core.NewNoCredentials(c.name)
	}
	return creds, nil
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}

// Execute runs one call through the pipeline.
//
// A blank path is a no-op returning (nil, nil) without touching the limiter
// or the network. Otherwise a permit is acquired first, then the URL is built
// as base + path (a missing leading '/' is added) and passed through the
// hooks. Any HTTP status yields a Response. A nil Response comes with a
// core.ErrorKindTransport error, including refusal by an open breaker.
func (c *Client) Execute(ctx context.Context, path string, opts ...CallOption) (*Response, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}

	call := c.newCall(opts)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, core.NewTransportError(c.name, fmt.Errorf("rate limit: %w", err))
	}
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, core.NewTransportError(c.name, circuitbreaker.ErrOpen)
	}

	target, err := c.hooks.MutateURL(ctx, JoinURL(call.baseURL, path), call.payload)
	if err != nil {
		return nil, fmt.Errorf("mutate url: %w", err)
	}

	req := &Request{
		Method:  call.method,
		URL:     target,
		Header:  c.defaultHeader(),
		Payload: call.payload,
	}
	if call.payload.Len() > 0 {
		req.Body = call.payload.Encode()
	}
	for k, v := range call.headers {
		req.Header.Set(k, v)
	}

	if err := c.hooks.MutateRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("mutate request: %w", err)
	}

	resp, err := c.http.Do(ctx, req)
	if c.breaker != nil {
		c.breaker.Record(err == nil && resp.StatusCode < http.StatusInternalServerError)
	}
	if err != nil {
		return nil, core.NewTransportError(c.name, err)
	}
	resp.Exchange = c.name

	if err := c.hooks.MutateResponse(ctx, resp); err != nil {
		return resp, fmt.Errorf("mutate response: %w", err)
	}

	return resp, nil
}

func (c *Client) defaultHeader() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", c.contentType)
	h.Set("User-Agent", c.userAgent)
	h.Set("Cache-Control", "no-cache")
	return h
}

// JoinURL concatenates base and path, giving path a leading '/' when it lacks one.
func JoinURL(base, path string) string {
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimSuffix(base, "/") + path
}

// DecodeResponse decodes resp's body into T. A nil response is a transport
// failure; a bad body is a decode failure.
func DecodeResponse[T any](resp *Response) (T, error) {
	if resp == nil {
		var zero T
		return zero, core.NewTransportError("", fmt.Errorf("no response"))
	}
	return core.DecodeFor[T](resp.Exchange, resp.Body)
}
