package core

import "errors"

// ErrorCode represents a stable, machine-readable error identifier.
type ErrorCode string

// Error code constants shared across all exchanges.
const (
	ErrCodeTransport     ErrorCode = "TRANSPORT_ERROR"
	ErrCodeErrorResponse ErrorCode = "ERROR_RESPONSE"
	ErrCodeDecode        ErrorCode = "DECODE_ERROR"
	ErrCodeNotSupported  ErrorCode = "NOT_SUPPORTED"
	ErrCodeUnknown       ErrorCode = "UNKNOWN"

	// ErrCodeInvalidConfig indicates a configuration failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeNoCredentials indicates a private call without API keys.
	ErrCodeNoCredentials ErrorCode = "NO_CREDENTIALS"
	// ErrCodeInvalidSymbol indicates the trading pair is not recognized.
	ErrCodeInvalidSymbol ErrorCode = "INVALID_SYMBOL"
)

func (k ErrorKind) code() ErrorCode {
	switch k {
	case ErrorKindTransport:
		return ErrCodeTransport
	case ErrorKindErrorResponse:
		return ErrCodeErrorResponse
	case ErrorKindDecode:
		return ErrCodeDecode
	case ErrorKindNotSupported:
		return ErrCodeNotSupported
	default:
		return ErrCodeUnknown
	}
}

// IsErrorCode checks if the error matches the specified error code.
func IsErrorCode(err error, code ErrorCode) bool {
	var exErr *ExchangeError
	if errors.As(err, &exErr) {
		return ErrorCode(exErr.Code) == code
	}
	return false
}
