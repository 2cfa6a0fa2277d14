package rest

import (
	"context"
	"errors"
	"net/http"

	"tradegate/pkg/core"
)

// ErrorParser turns a 4xx/5xx Response into the venue's error.
type ErrorParser func(*Response) error

// StatusError is the ErrorParser used when a venue has no error body format.
func StatusError(resp *Response) error {
	return core.NewErrorResponse(resp.Exchange, resp.StatusCode, resp.Status, resp.Body)
}

// Fetch executes path and decodes a successful body into T. Failure
// statuses go through parse; auth failures are reported to the key ring.
func Fetch[T any](ctx context.Context, c *Client, parse ErrorParser, path string, opts ...CallOption) (T, error) {
	var zero T

	resp, err := c.Execute(ctx, path, opts...)
	if err != nil {
		return zero, err
	}
	if resp == nil {
		return zero, core.NewTransportError(c.name, errors.New("no response"))
	}

	if resp.IsError() {
		if parse == nil {
			parse = StatusError
		}
		err := parse(resp)
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			c.keys.OnError(err)
		}
		return zero, err
	}

	return DecodeResponse[T](resp)
}
