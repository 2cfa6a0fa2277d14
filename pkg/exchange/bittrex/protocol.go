package bittrex

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"tradegate/pkg/core"
	"tradegate/pkg/rest"
)

// Protocol implements rest.Hooks for Bittrex. A call is private when it
// carries a payload; the payload itself is only a marker since parameters
// travel in the query string.
type Protocol struct {
	client *rest.Client
	nonce  core.Nonce
}

func (p *Protocol) MutateURL(_ context.Context, rawURL string, payload *core.Payload) (string, error) {
	if payload == nil {
		return rawURL, nil
	}

	creds, err := p.client.Credentials()
	if err != nil {
		return "", err
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "apikey=" + url.QueryEscape(creds.APIKey) +
		"&nonce=" + strconv.FormatInt(p.nonce.Next(), 10), nil
}

func (p *Protocol) MutateRequest(_ context.Context, req *rest.Request) error {
	if req.Payload == nil {
		return nil
	}

	creds, err := p.client.Credentials()
	if err != nil {
		return err
	}
	req.Header.Set("apisign", sign(creds.SecretKey, req.URL))
	return nil
}

func (p *Protocol) MutateResponse(context.Context, *rest.Response) error { return nil }

// sign is hex(HMAC-SHA512(secret, full request URI)).
func sign(secret, uri string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(uri))
	return hex.EncodeToString(mac.Sum(nil))
}

// envelope wraps every Bittrex response.
type envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

func parseError(resp *rest.Response) error {
	message := resp.Status
	if e, err := core.Decode[envelope[struct{}]](resp.Body); err == nil && e.Message != "" {
		message = e.Message
	}
	return core.NewErrorResponse(resp.Exchange, resp.StatusCode, message, resp.Body)
}

// call fetches path and unwraps the envelope; success=false is an error
// response carrying Bittrex's message.
func call[T any](ctx context.Context, c *rest.Client, path string, opts ...rest.CallOption) (T, error) {
	var zero T

	env, err := rest.Fetch[envelope[T]](ctx, c, parseError, path, opts...)
	if err != nil {
		return zero, err
	}
	if !env.Success {
		return zero, core.NewErrorResponse(Name, 200, env.Message, nil)
	}
	return env.Result, nil
}
