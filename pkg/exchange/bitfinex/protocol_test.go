package bitfinex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradegate/pkg/core"
	"tradegate/pkg/rest"
)

func TestSign(t *testing.T) {
	a := sign("payload", "secret")
	assert.Len(t, a, 96)
	assert.Equal(t, a, sign("payload", "secret"))
	assert.NotEqual(t, a, sign("payload", "other"))
}

func TestParseError(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"venue message", `{"message":"Nonce is too small."}`, "Nonce is too small."},
		{"no message", `<html>bad gateway</html>`, "502 Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseError(&rest.Response{
				Exchange:   Name,
				StatusCode: 502,
				Status:     "502 Bad Gateway",
				Body:       []byte(tt.body),
			})

			var exErr *core.ExchangeError
			require.ErrorAs(t, err, &exErr)
			assert.Equal(t, core.ErrorKindErrorResponse, exErr.Kind)
			assert.Equal(t, tt.want, exErr.Message)
			assert.Equal(t, tt.body, string(exErr.Body))
		})
	}
}
