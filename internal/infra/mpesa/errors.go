package mpesa

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrUnauthorized = errors.New("mpesa: authentication failed")

// APIError is a non-success answer from Daraja. Message carries the gateway's own
// description so callers can surface it unchanged.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("mpesa: %s (code %s, http %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("mpesa: %s (http %d)", e.Message, e.StatusCode)
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// Description returns the best human-readable message for err, or fallback.
func Description(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
