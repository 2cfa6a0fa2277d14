package rest

import (
	"context"

	"tradegate/pkg/core"
)

// Hooks are the only places a venue customizes the pipeline. Query-string
// signing belongs in MutateURL, header or body signing in MutateRequest, and
// reading side-channel headers (rate-limit counters, pagination cursors) in
// MutateResponse.
type Hooks interface {
	MutateURL(ctx context.Context, rawURL string, payload *core.Payload) (string, error)
	MutateRequest(ctx context.Context, req *Request) error
	MutateResponse(ctx context.Context, resp *Response) error
}

// NopHooks passes everything through unchanged. Embed it to override only
// the hooks a venue needs.
type NopHooks struct{}

func (NopHooks) MutateURL(_ context.Context, rawURL string, _ *core.Payload) (string, error) {
	return rawURL, nil
}

func (NopHooks) MutateRequest(context.Context, *Request) error { return nil }

func (NopHooks) MutateResponse(context.Context, *Response) error { return nil }

// HookFuncs adapts plain functions to Hooks; nil fields pass through.
type HookFuncs struct {
	URL      func(ctx context.Context, rawURL string, payload *core.Payload) (string, error)
	Request  func(ctx context.Context, req *Request) error
	Response func(ctx context.Context, resp *Response) error
}

func (h HookFuncs) MutateURL(ctx context.Context, rawURL string, payload *core.Payload) (string, error) {
	if h.URL == nil {
		return rawURL, nil
	}
	return h.URL(ctx, rawURL, payload)
}

func (h HookFuncs) MutateRequest(ctx context.Context, req *Request) error {
	if h.Request == nil {
		return nil
	}
	return h.Request(ctx, req)
}

func (h HookFuncs) MutateResponse(ctx context.Context, resp *Response) error {
	if h.Response == nil {
		return nil
	}
	return h.Response(ctx, resp)
}
