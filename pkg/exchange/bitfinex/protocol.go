package bitfinex

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"

	"tradegate/pkg/core"
	"tradegate/pkg/rest"
)

// Protocol holds the Bitfinex hooks. Only calls that carry a payload are
// private; they get a request/nonce envelope, a JSON body and the signature
// headers. Public calls pass through untouched.
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

	envelope := core.NewPayload().
		Set("request", u.Path).
		Set("nonce", strconv.FormatInt(p.nonce.Next(), 10))
	for _, k := range req.Payload.Keys() {
		v, _ := req.Payload.Get(k)
		envelope.Set(k, v)
	}

	body, err := envelope.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	encoded := base64.StdEncoding.EncodeToString(body)
	req.Body = string(body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-BFX-APIKEY", creds.APIKey)
	req.Header.Set("X-BFX-PAYLOAD", encoded)
	req.Header.Set("X-BFX-SIGNATURE", sign(encoded, creds.SecretKey))
	return nil
}

func sign(payload, secret string) string {
	mac := hmac.New(sha512.New384, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// apiError is the body Bitfinex sends with 4xx/5xx responses.
type apiError struct {
	Message string `json:"message"`
}

// parseError turns a failure response into an ErrorResponse carrying the
// venue's message when the body has one.
func parseError(resp *rest.Response) error {
	message := resp.Status
	if e, err := core.Decode[apiError](resp.Body); err == nil && e.Message != "" {
		message = e.Message
	}
	return core.NewErrorResponse(resp.Exchange, resp.StatusCode, message, resp.Body)
}
