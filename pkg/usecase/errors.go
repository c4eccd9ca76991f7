package usecase

import "errors"

// Sentinel errors for use case layer
var (
	// Session errors
	ErrSessionNotFound      = errors.New("session not found")
	ErrInvalidSessionSecret = errors.New("invalid session secret")
	ErrSessionExpired       = errors.New("session expired")
	ErrSessionRefreshFailed = errors.New("session token refresh failed")

	// Organization errors
	ErrNoOrganization = errors.New("user belongs to no organization")

	// Claim errors
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidAction    = errors.New("invalid claim action")
	ErrInvalidInput     = errors.New("invalid input")
)

// Context keys for error values
const (
	SessionIDKey      = "session_id"
	ClaimIDKey        = "claim_id"
	OrganizationIDKey = "organization_id"
	ActionKey         = "action"
)
