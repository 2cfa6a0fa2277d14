package gdax

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"tradegate/pkg/core"
	"tradegate/pkg/rest"
)

// Protocol implements rest.Hooks for GDAX.
type Protocol struct {
	rest.NopHooks
	client *rest.Client
	now    func() time.Time
}

// MutateRequest signs calls that carry a payload. A non-empty payload is
// sent as a JSON body.
func (p *Protocol) MutateRequest(_ context.Context, req *rest.Request) error {
	if req.Payload == nil {
		return nil
	}

	creds, err := p.client.Credentials()
	if err != nil {
		return err
	}

	req.Body = ""
	if req.Payload.Len() > 0 {
		body, err := req.Payload.MarshalJSON()
		if err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		req.Body = string(body)
	}

	u, err := url.Parse(req.URL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	timestamp := strconv.FormatInt(p.now().Unix(), 10)
	signature, err := sign(creds.SecretKey, timestamp+req.Method+u.RequestURI()+req.Body)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("CB-ACCESS-KEY", creds.APIKey)
	req.Header.Set("CB-ACCESS-SIGN", signature)
	req.Header.Set("CB-ACCESS-TIMESTAMP", timestamp)
	req.Header.Set("CB-ACCESS-PASSPHRASE", creds.Passphrase)
	return nil
}

// MutateResponse records the CB-After cursor for a pending page walk.
func (p *Protocol) MutateResponse(ctx context.Context, resp *rest.Response) error {
	if c, ok := ctx.Value(cursorKey{}).(*cursor); ok {
		c.after = resp.Header.Get("CB-After")
	}
	return nil
}

// sign is base64(HMAC-SHA256(base64-decoded secret, prehash)).
func sign(secret, prehash string) (string, error) {
	key, err := base64.StdEncoding.DecodeString(secret)
	if err != nil {
		return "", fmt.Errorf("decode secret: %w", err)
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(prehash))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

type cursorKey struct{}

type cursor struct {
	after string
}

func withCursor(ctx context.Context) (context.Context, *cursor) {
	c := &cursor{}
	return context.WithValue(ctx, cursorKey{}, c), c
}

type apiError struct {
	Message string `json:"message"`
}

func parseError(resp *rest.Response) error {
	message := resp.Status
	if e, err := core.Decode[apiError](resp.Body); err == nil && e.Message != "" {
		message = e.Message
	}
	return core.NewErrorResponse(resp.Exchange, resp.StatusCode, message, resp.Body)
}
