package claims

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the claims API rejects the access token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the caller lacks permission in the organization
	ErrForbidden = errors.New("forbidden")
)

// ForbiddenMessage is shown to users when ErrForbidden is returned
const ForbiddenMessage = "You do not have permission to perform this action"

// APIError is any other non-2xx response of the claims API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("claims API error (status %d): %s", e.StatusCode, e.Message)
}

func newAPIError(statusCode int, body []byte) *APIError {
	msg := string(body)
	if msg == "" {
		msg = fmt.Sprintf("Request failed with status %d", statusCode)
	}
	return &APIError{StatusCode: statusCode, Message: msg}
}
