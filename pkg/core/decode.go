package core

import (
	"bytes"
	"errors"

	"github.com/bytedance/sonic"
)

var errEmptyBody = errors.New("empty body")

// Decode parses raw as JSON into a value of type T. A blank, malformed or
// mis-shaped body fails with an ErrorKindDecode error.
func Decode[T any](raw []byte) (T, error) {
	return DecodeFor[T]("", raw)
}

// DecodeFor is Decode with the exchange name attached to any error.
func DecodeFor[T any](exchange string, raw []byte) (T, error) {
	var out T
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, NewDecodeError(exchange, errEmptyBody)
	}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		var zero T
		return zero, NewDecodeError(exchange, err)
	}
	return out, nil
}
