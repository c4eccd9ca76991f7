package usecase

import (
	"context"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
)

// noAuthnTokenLifetime keeps the development session fresh for the life of the process
const noAuthnTokenLifetime = 100 * 365 * 24 * time.Hour

// NoAuthnUseCase signs every request in as a fixed user (for development/testing)
type NoAuthnUseCase struct {
	session *auth.Session
}

var _ SessionUseCaseInterface = &NoAuthnUseCase{}

// NewNoAuthnUseCase creates a NoAuthnUseCase. accessToken is forwarded to the claims API
// as is and may be empty when the API runs without authentication too.
func NewNoAuthnUseCase(identity *auth.Identity, accessToken string) *NoAuthnUseCase {
	session := auth.NewSession(identity, &auth.TokenSet{
		AccessToken: accessToken,
		ExpiresIn:   noAuthnTokenLifetime,
	}, time.Now())
	session.SessionExpiresAt = session.ExpiresAt

	return &NoAuthnUseCase{session: session}
}

// GetAuthURL returns a dummy URL (should not be called in no-auth mode)
func (uc *NoAuthnUseCase) GetAuthURL(state string) string {
	return "/"
}

// HandleCallback returns the fixed session (should not be called in no-auth mode)
func (uc *NoAuthnUseCase) HandleCallback(ctx context.Context, code string) (*auth.Session, error) {
	return uc.copySession(), nil
}

// GetValidSession always returns the fixed session regardless of cookies
func (uc *NoAuthnUseCase) GetValidSession(ctx context.Context, id auth.SessionID, secret auth.SessionSecret) (*auth.Session, error) {
	return uc.copySession(), nil
}

// Logout does nothing in no-auth mode
func (uc *NoAuthnUseCase) Logout(ctx context.Context, id auth.SessionID) error {
	return nil
}

// IsNoAuthn returns true for NoAuthnUseCase
func (uc *NoAuthnUseCase) IsNoAuthn() bool {
	return true
}

func (uc *NoAuthnUseCase) copySession() *auth.Session {
	session := *uc.session
	return &session
}
