package interfaces

import (
	"context"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
)

// IdentityProvider is the OIDC provider users sign in with
type IdentityProvider interface {
	AuthURL(state, redirectURI string) string
	// ExchangeCode trades an authorization code for tokens and the verified identity
	ExchangeCode(ctx context.Context, code, redirectURI string) (*auth.TokenSet, *auth.Identity, error)
	// RefreshToken performs a single refresh_token grant. Any non-2xx status, transport
	// failure, timeout, or malformed payload is returned as an error.
	RefreshToken(ctx context.Context, refreshToken string) (*auth.TokenSet, error)
	// Logout ends the provider side session identified by idToken
	Logout(ctx context.Context, idToken string) error
}
