package errors

import (
	"errors"
)

// Errors created by this library. Transport, write and decode failures are
// never converted into these; they reach the caller exactly as the transport
// produced them.
var (
	ErrUnreachable = errors.New("unreachable code")

	ErrNilRequest          = errors.New("nil request")
	ErrRequestCreation     = errors.New("request creation error")
	ErrBodyMarshalConflict = errors.New("body and marshal body conflict")
	ErrBodyNotAllowed      = errors.New("method does not allow a request body")
	ErrUnmarshalResult     = errors.New("unmarshal result error")

	ErrUnsupportedScheme     = errors.New("unsupported URL scheme")
	ErrMissingHost           = errors.New("missing host in URL")
	ErrInvalidMethod         = errors.New("invalid method")
	ErrInvalidTransport      = errors.New("invalid transport")
	ErrConnStarted           = errors.New("connection already started")
	ErrConnNotConfigured     = errors.New("connection not configured")
	ErrInvalidHeader         = errors.New("invalid header field")
	ErrContentLengthExceeded = errors.New("write exceeds declared content length")

	ErrTimeout           = errors.New("timeout error")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrCircuitOpen       = errors.New("circuit breaker is open")
	ErrCircuitExhausted  = errors.New("circuit breaker is exhausted")
	ErrKeyGeneration     = errors.New("failed to generate request key")
)

// Is reports whether any error in err's chain is an instance of target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
