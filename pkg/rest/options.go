package rest

import "tradegate/pkg/core"

// CallOption adjusts a single Execute call.
type CallOption func(*call)

type call struct {
	baseURL string
	method  string
	payload *core.Payload
	headers map[string]string
}

func (c *Client) newCall(opts []CallOption) *call {
	cl := &call{
		baseURL: c.baseURL,
		method:  c.method,
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl
}

// WithBaseURL replaces the client's base URL for this call only.
// An empty override is ignored.
func WithBaseURL(baseURL string) CallOption {
	return func(c *call) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithPayload sends p form-encoded as the request body.
func WithPayload(p *core.Payload) CallOption {
	return func(c *call) {
		c.payload = p
	}
}

// WithMethod overrides the client's default HTTP method.
func WithMethod(method string) CallOption {
	return func(c *call) {
		c.method = method
	}
}

// WithHeader adds a header to this call before the request hook runs.
func WithHeader(key, value string) CallOption {
	return func(c *call) {
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
	}
}
