package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"tradegate/pkg/core"
	"tradegate/pkg/rest"
)

// Protocol implements rest.Hooks for Kraken. Calls with a payload are
// private: the hook prepends a nonce, form-encodes the body and signs it.
type Protocol struct {
	rest.NopHooks
	client *rest.Client
	nonce  core.Nonce
}

func (p *Protocol) MutateRequest(_ context.Context, req *rest.Request) error {
	if req.Payload == nil {
		return nil
	}

	creds, err := p.client.Credentials()
	if err != nil {
		return err
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	nonce := strconv.FormatInt(p.nonce.Next(), 10)
	form := core.NewPayload().Set("nonce", nonce)
	req.Payload.Each(func(k, v string) {
		form.Set(k, v)
	})
	req.Body = form.Encode()

	signature, err := sign(creds.SecretKey, u.Path, nonce, req.Body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", creds.APIKey)
	req.Header.Set("API-Sign", signature)
	return nil
}

// sign is base64(HMAC-SHA512(base64-decoded secret, path + SHA256(nonce + body))).
func sign(secret, path, nonce, body string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}

	digest := sha256.Sum256([]byte(nonce + body))

	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// envelope wraps every Kraken response.
type envelope[T any] struct {
	Error  []string `json:"error"`
	Result T        `json:"result"`
}

func parseError(resp *rest.Response) error {
	message := resp.Status
	if e, err := core.Decode[envelope[struct{}]](resp.Body); err == nil && len(e.Error) > 0 {
		message = strings.Join(e.Error, "; ")
	}
	return core.NewErrorResponse(resp.Exchange, resp.StatusCode, message, resp.Body)
}

// call fetches path and unwraps the envelope.
func call[T any](ctx context.Context, c *rest.Client, path string, opts ...rest.CallOption) (T, error) {
	var zero T

	env, err := rest.Fetch[envelope[T]](ctx, c, parseError, path, opts...)
	if err != nil {
		return zero, err
	}
	if len(env.Error) > 0 {
		return zero, core.NewErrorResponse(Name, 200, strings.Join(env.Error, "; "), nil)
	}
	return env.Result, nil
}
