package remote

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnreachable is returned when the remote service cannot be reached
// at the transport level (DNS failure, refused connection, timeout)
var ErrUnreachable = errors.New("remote service unreachable")

// APIError represents an error response from the API
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	ErrorCode  string `json:"error"`
}

func (e APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.StatusCode, e.ErrorCode, e.Message)
}

// IsTransient reports whether the error is worth retrying: the remote
// service was unreachable, throttled the request, or failed internally.
// Both the reconciliation sweep and the facade-level retry consult this
// single classification.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnreachable) {
		return true
	}

	var apiErr APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusRequestTimeout:
			return true
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return true
		case apiErr.StatusCode >= 500:
			return true
		}
		return false
	}

	// Unclassified errors (context deadline, connection reset mid-body)
	// are treated as transient so a flaky network never marks a record failed.
	return true
}

// IsPermanent reports whether the remote service rejected the request
// itself: validation failure, conflict, missing resource, bad auth.
// Retrying without changing the request cannot succeed.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}

	var apiErr APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
			apiErr.StatusCode != http.StatusRequestTimeout &&
			apiErr.StatusCode != http.StatusTooManyRequests
	}

	return false
}
