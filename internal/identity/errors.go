package identity

import (
	"fmt"
	"net/http"

	"timetrack-gateway/internal/common/errors"
)

// StatusError is returned when the token endpoint answers with a non-2xx
// status. Code and Description carry the RFC 6749 error body when present.
type StatusError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("token endpoint returned status %d", e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Description != "" {
		msg += " - " + e.Description
	}
	return msg
}

// Unwrap classifies the status so callers can use errors.IsType. Rejected
// requests are authentication errors; throttling and server failures are
// upstream errors.
func (e *StatusError) Unwrap() error {
	if e.Temporary() {
		return errors.UpstreamError("identity provider unavailable", nil).WithCode(e.Code)
	}
	return errors.AuthError("identity provider rejected client credentials").WithCode(e.Code)
}

// Temporary reports whether retrying the same request may succeed
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout
}
