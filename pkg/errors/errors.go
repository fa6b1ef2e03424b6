package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType represents the different failure classes of the network layer
type ErrorType string

const (
	ErrorTypeNoConnection    ErrorType = "no_connection"
	ErrorTypeInvalidEndpoint ErrorType = "invalid_endpoint"
	ErrorTypeInvalidResponse ErrorType = "invalid_response"
	ErrorTypeHTTP            ErrorType = "http"
	ErrorTypeDecoding        ErrorType = "decoding"
	ErrorTypeTransport       ErrorType = "transport"
	ErrorTypeStorage         ErrorType = "storage"
)

// Error represents a network layer error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// NoConnection reports that no network call was attempted because the
// device is disconnected.
func NoConnection() *Error {
	return &Error{Type: ErrorTypeNoConnection, Message: "no network connection"}
}

// InvalidEndpoint reports that a descriptor could not be combined with
// the base address into a well-formed URL.
func InvalidEndpoint(msg string) *Error {
	return &Error{Type: ErrorTypeInvalidEndpoint, Message: msg}
}

// InvalidResponse reports a response that could not be interpreted at all.
func InvalidResponse(msg string) *Error {
	return &Error{Type: ErrorTypeInvalidResponse, Message: msg}
}

// HTTPError reports a status code outside the 200-299 range. The code is
// preserved verbatim; 4xx and 5xx are not differentiated at this layer.
func HTTPError(code int) *Error {
	return &Error{Type: ErrorTypeHTTP, Message: fmt.Sprintf("server returned status %d", code), Code: code}
}

// Decoding reports a successful response whose body could not be parsed
// into the expected shape.
func Decoding(err error, code int) *Error {
	return &Error{Type: ErrorTypeDecoding, Message: fmt.Sprintf("failed to decode payload: %v", err), Code: code}
}

// Transport reports a lower-level transport failure (DNS, TLS, socket).
func Transport(err error) *Error {
	return &Error{Type: ErrorTypeTransport, Message: fmt.Sprintf("request failed: %v", err)}
}

// Storage reports a cache storage-medium failure.
func Storage(err error) *Error {
	return &Error{Type: ErrorTypeStorage, Message: fmt.Sprintf("storage failure: %v", err)}
}

// IsRetryable checks if an error type should be retried. Retrying a
// decoding failure or a call that was never made cannot change the
// outcome, so those are never retried.
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransport, ErrorTypeHTTP, ErrorTypeInvalidResponse:
		return true
	case ErrorTypeNoConnection, ErrorTypeDecoding, ErrorTypeInvalidEndpoint, ErrorTypeStorage:
		return false
	default:
		return false
	}
}

// RetryableError reports whether err should be retried. Unknown error
// values default to retryable; context cancellation never is.
func RetryableError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return IsRetryable(apiErr.Type)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return true
}

// TypeOf returns the ErrorType of err, or ErrorTypeTransport for plain
// transport-level errors that carry no classification.
func TypeOf(err error) ErrorType {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Type
	}
	return ErrorTypeTransport
}
