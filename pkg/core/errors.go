package core

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind represents the category of a failure surfaced by an exchange client.
type ErrorKind int

// Error kinds separate "no data" from "bad data" from "cannot do that here".
const (
	// ErrorKindUnknown indicates an unclassified error.
	ErrorKindUnknown ErrorKind = iota
	// ErrorKindTransport indicates that no response was obtained at all.
	ErrorKindTransport
	// ErrorKindErrorResponse indicates a response with a non-success status.
	// Exchange-reported and HTTP-layer failures share this kind.
	ErrorKindErrorResponse
	// ErrorKindDecode indicates a body that could not be parsed into the requested shape.
	ErrorKindDecode
	// ErrorKindNotSupported indicates a capability the exchange does not implement.
	ErrorKindNotSupported
)

// String returns the string representation of the error kind.
func (k ErrorKind) String() string {
	return [...]string{
		"UNKNOWN",
		"TRANSPORT",
		"ERROR_RESPONSE",
		"DECODE",
		"NOT_SUPPORTED",
	}[k]
}

// Sentinel errors matched by errors.Is against any *ExchangeError of the same kind.
var (
	ErrTransport     = errors.New("no response from exchange")
	ErrErrorResponse = errors.New("exchange returned an error response")
	ErrDecode        = errors.New("response could not be decoded")
	ErrNotSupported  = errors.New("operation not supported")
	// ErrNoCredentials is returned when a private call is made without API keys.
	ErrNoCredentials = errors.New("no credentials configured")
)

// ExchangeError is a structured failure from the client layer.
type ExchangeError struct {
	// Kind categorizes the error for programmatic handling.
	Kind ErrorKind `json:"kind"`
	// Exchange identifies which client produced this error.
	Exchange string `json:"exchange"`
	// Op names the capability or pipeline step that failed.
	Op string `json:"op,omitempty"`
	// StatusCode is the HTTP status when a response was obtained.
	StatusCode int `json:"status_code,omitempty"`
	// Code is a stable machine-readable identifier.
	Code string `json:"code"`
	// Message is the human-readable description.
	Message string `json:"message"`
	// Body holds the raw response body for error responses.
	Body []byte `json:"body,omitempty"`
	// Timestamp is when the error occurred.
	Timestamp time.Time `json:"timestamp"`

	cause error
}

// Error implements the error interface.
func (e *ExchangeError) Error() string {
	prefix := e.Kind.String()
	if e.Exchange != "" {
		prefix = fmt.Sprintf("[%s] %s", e.Exchange, e.Kind)
	}
	if e.Op != "" {
		prefix += " " + e.Op
	}
	if e.StatusCode != 0 {
		prefix += fmt.Sprintf(" (%d)", e.StatusCode)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *ExchangeError) Unwrap() error {
	return e.cause
}

// Is reports whether target is the sentinel for this error's kind.
func (e *ExchangeError) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == ErrorKindTransport
	case ErrErrorResponse:
		return e.Kind == ErrorKindErrorResponse
	case ErrDecode:
		return e.Kind == ErrorKindDecode
	case ErrNotSupported:
		return e.Kind == ErrorKindNotSupported
	}
	return false
}

// WithCode sets the error code and returns the error for chaining.
func (e *ExchangeError) WithCode(code ErrorCode) *ExchangeError {
	e.Code = string(code)
	return e
}

// WithOp sets the failing operation and returns the error for chaining.
func (e *ExchangeError) WithOp(op string) *ExchangeError {
	e.Op = op
	return e
}

// NewExchangeError creates an ExchangeError of the given kind.
func NewExchangeError(exchange string, kind ErrorKind, message string) *ExchangeError {
	return &ExchangeError{
		Kind:      kind,
		Exchange:  exchange,
		Code:      string(kind.code()),
		Message:   message,
		Timestamp: time.Now(),
	}
}

// NewTransportError wraps a failure that produced no response.
func NewTransportError(exchange string, cause error) *ExchangeError {
	e := NewExchangeError(exchange, ErrorKindTransport, "request failed")
	e.cause = cause
	return e
}

// NewDecodeError wraps a parse failure.
func NewDecodeError(exchange string, cause error) *ExchangeError {
	e := NewExchangeError(exchange, ErrorKindDecode, "decode response")
	e.cause = cause
	return e
}

// NewErrorResponse records a non-success response along with its body.
func NewErrorResponse(exchange string, statusCode int, message string, body []byte) *ExchangeError {
	e := NewExchangeError(exchange, ErrorKindErrorResponse, message)
	e.StatusCode = statusCode
	e.Body = body
	return e
}

// NewNotSupported reports that exchange does not implement op.
func NewNotSupported(exchange, op string) *ExchangeError {
	return NewExchangeError(exchange, ErrorKindNotSupported, "not implemented by this exchange").WithOp(op)
}

// NewNoCredentials reports a private call on a client holding no key pair.
// It matches ErrNoCredentials through errors.Is.
func NewNoCredentials(exchange string) *ExchangeError {
	e := NewExchangeError(exchange, ErrorKindUnknown, "private call").WithCode(ErrCodeNoCredentials)
	e.cause = ErrNoCredentials
	return e
}

// IsTransportError returns true if no response was obtained.
func IsTransportError(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsErrorResponse returns true if the exchange answered with a failure status.
func IsErrorResponse(err error) bool {
	return errors.Is(err, ErrErrorResponse)
}

// IsDecodeError returns true if a response body did not match the requested shape.
func IsDecodeError(err error) bool {
	return errors.Is(err, ErrDecode)
}

// IsNotSupported returns true if the capability is not implemented.
// It signals a usage error and is never retryable.
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}
