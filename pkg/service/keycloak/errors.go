package keycloak

import "errors"

var (
	// ErrUnexpectedStatus is returned for any non-2xx response
	ErrUnexpectedStatus = errors.New("unexpected status from identity provider")

	// ErrMalformedResponse is returned when a 2xx response cannot be used
	ErrMalformedResponse = errors.New("malformed response from identity provider")

	// ErrInvalidIDToken is returned when the ID token lacks a required claim
	ErrInvalidIDToken = errors.New("invalid ID token")
)
