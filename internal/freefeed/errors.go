package freefeed

import "fmt"

// APIError is returned when the FreeFeed API rejects a request or the
// response cannot be used. Callers surface it as a short textual error;
// nothing in this package retries it.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("freefeed api: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("freefeed api: %s", e.Message)
}

// AuthError is returned when authentication is missing or rejected.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("freefeed auth: %s", e.Message)
}
