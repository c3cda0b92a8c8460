package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors surfaced to callers.
var (
	// ErrNotFound means an identifier or record id resolved to nothing.
	ErrNotFound = errors.New("record not found")

	// ErrAuthExpired means the platform rejected the current token; the
	// caller must re-authenticate before issuing further requests.
	ErrAuthExpired = errors.New("authentication expired")
)

// APIError is a structured non-2xx response from the platform.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("okapi: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("okapi: %d: %s", e.StatusCode, e.Message)
}

// TransportError wraps a network-level failure (connection refused, DNS,
// timeout). It is distinct from a negative answer such as 404.
type TransportError struct {
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string { return "okapi: request failed: " + e.Err.Error() }

// Unwrap exposes the underlying transport error.
func (e *TransportError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a 404 response or ErrNotFound.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsAuthExpired reports whether err means the token was rejected.
func IsAuthExpired(err error) bool {
	return errors.Is(err, ErrAuthExpired)
}

// IsTransient reports whether err is a network failure or a server-side
// error that a read-only call may reasonably be retried on.
func IsTransient(err error) bool {
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return false
}

// IsValidation reports whether err is a 400 or 422 response.
func IsValidation(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		(apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusUnprocessableEntity)
}

// isRetryable limits retrying to rate limits and server errors. 4xx answers
// are definitive and must not be retried.
func isRetryable(err error) bool {
	return IsTransient(err)
}

// parseAPIError attempts to decode a JSON error body; falls back to raw text.
// Okapi modules answer errors in several shapes, plain text included.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Code = ""
		apiErr.Message = string(body)
	}
	return apiErr
}
