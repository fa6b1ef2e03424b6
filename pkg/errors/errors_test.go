package errors

import (
	"context"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := HTTPError(404)
	expected := "http error (code 404): server returned status 404"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}

	err = NoConnection()
	expected = "no_connection error: no network connection"
	if err.Error() != expected {
		t.Errorf("Expected %q, got %q", expected, err.Error())
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		errorType ErrorType
		retryable bool
	}{
		{ErrorTypeTransport, true},
		{ErrorTypeHTTP, true},
		{ErrorTypeInvalidResponse, true},
		{ErrorTypeNoConnection, false},
		{ErrorTypeDecoding, false},
		{ErrorTypeInvalidEndpoint, false},
		{ErrorTypeStorage, false},
		{ErrorType("something_else"), false},
	}

	for _, test := range tests {
		t.Run(string(test.errorType), func(t *testing.T) {
			if got := IsRetryable(test.errorType); got != test.retryable {
				t.Errorf("IsRetryable(%s) = %v, want %v", test.errorType, got, test.retryable)
			}
		})
	}
}

func TestRetryableError(t *testing.T) {
	if RetryableError(nil) {
		t.Error("nil error should not be retryable")
	}
	if !RetryableError(Transport(fmt.Errorf("connection reset"))) {
		t.Error("transport error should be retryable")
	}
	if RetryableError(Decoding(fmt.Errorf("bad json"), 200)) {
		t.Error("decoding error should not be retryable")
	}
	if RetryableError(context.Canceled) {
		t.Error("context cancellation should not be retryable")
	}
	if !RetryableError(fmt.Errorf("some unknown error")) {
		t.Error("unknown errors should default to retryable")
	}
}

func TestRetryableErrorWrapped(t *testing.T) {
	wrapped := fmt.Errorf("fetch content: %w", HTTPError(503))
	if !RetryableError(wrapped) {
		t.Error("wrapped HTTP error should be retryable")
	}
	if TypeOf(wrapped) != ErrorTypeHTTP {
		t.Errorf("TypeOf(wrapped) = %s, want %s", TypeOf(wrapped), ErrorTypeHTTP)
	}
}
