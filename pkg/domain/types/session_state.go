package types

// SessionState is the lifecycle state of an authenticated session
type SessionState string

const (
	// SessionStateFresh means the access token is still valid
	SessionStateFresh SessionState = "FRESH"
	// SessionStateExpiredRefreshable means the access token expired and a refresh token is present
	SessionStateExpiredRefreshable SessionState = "EXPIRED_REFRESHABLE"
	// SessionStateExpired means the access token expired and the provider issued no refresh token.
	// The stale token is passed through without recording an error.
	SessionStateExpired SessionState = "EXPIRED"
	// SessionStateErrored means the last refresh attempt failed
	SessionStateErrored SessionState = "ERRORED"
	// SessionStateUnauthenticated means there is no session
	SessionStateUnauthenticated SessionState = "UNAUTHENTICATED"
)

func (s SessionState) String() string {
	return string(s)
}
