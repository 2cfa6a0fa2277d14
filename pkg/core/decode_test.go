package core

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type symbolDetail struct {
	Pair      string   `json:"pair"`
	Precision int      `json:"price_precision"`
	Margin    bool     `json:"margin"`
	Tags      []string `json:"tags"`
}

func TestDecode_RoundTrip(t *testing.T) {
	raw := []byte(`{"pair":"btcusd","price_precision":5,"margin":true,"tags":["spot","major"]}`)

	got, err := Decode[symbolDetail](raw)
	require.NoError(t, err)
	assert.Equal(t, symbolDetail{Pair: "btcusd", Precision: 5, Margin: true, Tags: []string{"spot", "major"}}, got)

	encoded, err := sonic.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(encoded))
}

func TestDecode_Slice(t *testing.T) {
	got, err := Decode[[]string]([]byte(`["btcusd","ethusd"]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"btcusd", "ethusd"}, got)
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "  \n"},
		{"malformed", `{"pair":`},
		{"wrong_shape", `["btcusd"]`},
		{"html_error_page", `<html>502 Bad Gateway</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode[symbolDetail]([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, IsDecodeError(err))
			assert.False(t, IsTransportError(err))
		})
	}
}

func TestDecodeFor_TagsExchange(t *testing.T) {
	_, err := DecodeFor[symbolDetail]("Bittrex", []byte("nope"))

	var exErr *ExchangeError
	require.ErrorAs(t, err, &exErr)
	assert.Equal(t, "Bittrex", exErr.Exchange)
	assert.Equal(t, ErrorKindDecode, exErr.Kind)
}
