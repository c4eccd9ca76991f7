package auth

import (
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/types"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// RefreshAccessTokenError is the sticky marker recorded on a session whose token refresh
// failed. Route guards force a sign-out when they see it.
const RefreshAccessTokenError = "RefreshAccessTokenError"

// DefaultSessionLifetime bounds how long a session cookie stays valid regardless of refreshes
const DefaultSessionLifetime = 30 * 24 * time.Hour

type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

func (x SessionID) String() string {
	return string(x)
}

func (x SessionID) Validate() error {
	if _, err := uuid.Parse(string(x)); err != nil {
		return goerr.Wrap(err, "invalid session ID format", goerr.V("id", x))
	}
	return nil
}

type SessionSecret string

func NewSessionSecret() SessionSecret {
	return SessionSecret(uuid.NewString() + uuid.NewString())
}

func (x SessionSecret) String() string {
	return string(x)
}

// Session is the server side state of a signed-in user. Tokens issued by the identity
// provider are kept here and never sent to the browser.
type Session struct {
	ID     SessionID     `firestore:"id" json:"id"`
	Secret SessionSecret `firestore:"secret" json:"-" masq:"secret"`

	UserID        string        `firestore:"user_id" json:"user_id"`
	Sub           string        `firestore:"sub" json:"sub"`
	Email         string        `firestore:"email" json:"email"`
	Name          string        `firestore:"name" json:"name"`
	LoyaltyTier   string        `firestore:"loyalty_tier" json:"loyalty_tier,omitempty"`
	Organizations Organizations `firestore:"organizations" json:"organizations"`

	AccessToken  string `firestore:"access_token" json:"-" masq:"secret"`
	RefreshToken string `firestore:"refresh_token" json:"-" masq:"secret"`
	IDToken      string `firestore:"id_token" json:"-" masq:"secret"`
	// ExpiresAt is the expiry of AccessToken. Zero means unknown and is treated as expired.
	ExpiresAt time.Time `firestore:"expires_at" json:"expires_at"`
	Error     string    `firestore:"error" json:"error,omitempty"`

	CreatedAt        time.Time `firestore:"created_at" json:"created_at"`
	SessionExpiresAt time.Time `firestore:"session_expires_at" json:"session_expires_at"`
}

// TokenSet is what the identity provider returns from its token endpoint
type TokenSet struct {
	AccessToken  string `masq:"secret"`
	RefreshToken string `masq:"secret"`
	IDToken      string `masq:"secret"`
	ExpiresIn    time.Duration
}

// Identity is the verified user information taken from an ID token
type Identity struct {
	Sub           string
	Email         string
	Name          string
	LoyaltyTier   string
	Organizations Organizations
}

// NewSession creates a session for a freshly signed-in user
func NewSession(identity *Identity, tokens *TokenSet, now time.Time) *Session {
	return &Session{
		ID:               NewSessionID(),
		Secret:           NewSessionSecret(),
		UserID:           StableUserID(identity.Email, identity.Sub),
		Sub:              identity.Sub,
		Email:            identity.Email,
		Name:             identity.Name,
		LoyaltyTier:      identity.LoyaltyTier,
		Organizations:    identity.Organizations,
		AccessToken:      tokens.AccessToken,
		RefreshToken:     tokens.RefreshToken,
		IDToken:          tokens.IDToken,
		ExpiresAt:        now.Add(tokens.ExpiresIn),
		CreatedAt:        now,
		SessionExpiresAt: now.Add(DefaultSessionLifetime),
	}
}

func (s *Session) Validate() error {
	if err := s.ID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session ID")
	}
	if s.Secret == "" {
		return goerr.New("session secret is required")
	}
	if s.UserID == "" {
		return goerr.New("session user ID is required", goerr.V("id", s.ID))
	}
	return nil
}

// State classifies the session at now. A refresh failure is sticky and wins over expiry.
func (s *Session) State(now time.Time) types.SessionState {
	switch {
	case s == nil:
		return types.SessionStateUnauthenticated
	case s.Error == RefreshAccessTokenError:
		return types.SessionStateErrored
	case !s.ExpiresAt.IsZero() && now.Before(s.ExpiresAt):
		return types.SessionStateFresh
	case s.RefreshToken != "":
		return types.SessionStateExpiredRefreshable
	default:
		return types.SessionStateExpired
	}
}

// IsSessionExpired reports whether the session outlived its absolute lifetime
func (s *Session) IsSessionExpired(now time.Time) bool {
	return !s.SessionExpiresAt.IsZero() && !now.Before(s.SessionExpiresAt)
}

// WithRefreshedTokens returns a copy of s carrying tokens. Refresh and ID tokens are kept
// when the provider did not issue new ones.
func (s *Session) WithRefreshedTokens(tokens *TokenSet, now time.Time) *Session {
	next := *s
	next.AccessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		next.RefreshToken = tokens.RefreshToken
	}
	if tokens.IDToken != "" {
		next.IDToken = tokens.IDToken
	}
	next.ExpiresAt = now.Add(tokens.ExpiresIn)
	next.Error = ""
	return &next
}

// WithRefreshError returns a copy of s marked as unrefreshable. Tokens are left untouched.
func (s *Session) WithRefreshError() *Session {
	next := *s
	next.Error = RefreshAccessTokenError
	return &next
}
