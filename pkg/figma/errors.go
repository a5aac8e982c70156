package figma

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned when the Figma API answers with a non-2xx status.
// It preserves the status code so callers can distinguish missing files
// and nodes (404) from auth problems (401/403) and throttling or server
// trouble (429/5xx) without parsing message text.
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// Message is the error description from the response body, if any.
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("figma: API request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("figma: API request failed with status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is an APIError for an unknown file or
// node identifier.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsAuth reports whether err is an APIError caused by a missing, invalid,
// or insufficiently scoped access token.
func IsAuth(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden
}

// IsRetryable reports whether err is an APIError the Figma API may stop
// returning on its own: rate limiting or a server-side failure.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
}
