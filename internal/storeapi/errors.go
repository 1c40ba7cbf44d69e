package storeapi

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotAuthenticated means the identity check answered without an admin identity
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrMalformedResponse means a 2xx body could not be decoded
	ErrMalformedResponse = errors.New("malformed store API response")
)

// APIError is a failure reported by the store API, either as a non-2xx
// status or as success:false in the response envelope
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store API error (status %d)", e.Status)
	}
	return fmt.Sprintf("store API error (status %d): %s", e.Status, e.Message)
}

// Unauthorized reports whether the API rejected the session
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// MessageOf returns the message the store API gave for err, or fallback when
// err carries none (transport failures, decode errors, empty messages)
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
