package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned when Jira answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jira API returned %d for %s %s: %s", e.StatusCode, e.Method, e.Path, e.Body)
}

// IsRateLimited returns true if this is a rate limit error.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsServerError returns true if this is a server error.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// StatusCode extracts the HTTP status from err, or 0 if err carries none.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from Jira.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// isRetryable decides whether a failed request may be sent again. A 429 is
// never processed by the server, so it is always safe to retry. Server errors
// and transport failures are retried only for idempotent methods, since a
// repeated POST could create a duplicate issue.
func isRetryable(method string, err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.IsRateLimited() {
			return true
		}
		return apiErr.IsServerError() && method != http.MethodPost
	}
	return method != http.MethodPost
}
