package usecase

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/interfaces"
	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/claimsportal/claimgate/pkg/domain/types"
	"github.com/claimsportal/claimgate/pkg/utils/async"
	"github.com/claimsportal/claimgate/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/singleflight"
)

// idpLogoutTimeout bounds the background logout call to the identity provider
const idpLogoutTimeout = 10 * time.Second

// SessionUseCaseInterface is what the HTTP layer needs to authenticate requests
type SessionUseCaseInterface interface {
	GetAuthURL(state string) string
	HandleCallback(ctx context.Context, code string) (*auth.Session, error)
	// GetValidSession returns the session with a usable access token, refreshing it when
	// needed. It returns ErrSessionRefreshFailed together with the session when the
	// refresh failed now or earlier.
	GetValidSession(ctx context.Context, id auth.SessionID, secret auth.SessionSecret) (*auth.Session, error)
	Logout(ctx context.Context, id auth.SessionID) error
	IsNoAuthn() bool
}

// SessionUseCase drives the session lifecycle against the identity provider
type SessionUseCase struct {
	repo        interfaces.Repository
	idp         interfaces.IdentityProvider
	callbackURL string
	now         func() time.Time
	dedup       bool
	group       singleflight.Group
	cache       *sessionCache
}

var _ SessionUseCaseInterface = &SessionUseCase{}

// SessionOption is a functional option for SessionUseCase
type SessionOption func(*SessionUseCase)

// WithClock replaces time.Now
func WithClock(now func() time.Time) SessionOption {
	return func(uc *SessionUseCase) {
		uc.now = now
	}
}

// WithRefreshDedup makes concurrent refreshes of the same session share one token request.
// Without it every request that sees an expired token refreshes on its own.
func WithRefreshDedup(enabled bool) SessionOption {
	return func(uc *SessionUseCase) {
		uc.dedup = enabled
	}
}

func NewSessionUseCase(repo interfaces.Repository, idp interfaces.IdentityProvider, callbackURL string, opts ...SessionOption) *SessionUseCase {
	uc := &SessionUseCase{
		repo:        repo,
		idp:         idp,
		callbackURL: callbackURL,
		now:         time.Now,
		cache:       newSessionCache(),
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// GetAuthURL returns the identity provider URL to start sign-in
func (uc *SessionUseCase) GetAuthURL(state string) string {
	return uc.idp.AuthURL(state, uc.callbackURL)
}

// IsNoAuthn returns false for regular SessionUseCase
func (uc *SessionUseCase) IsNoAuthn() bool {
	return false
}

// HandleCallback exchanges the authorization code and stores a new session
func (uc *SessionUseCase) HandleCallback(ctx context.Context, code string) (*auth.Session, error) {
	tokens, identity, err := uc.idp.ExchangeCode(ctx, code, uc.callbackURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to exchange code for tokens")
	}

	session := auth.NewSession(identity, tokens, uc.now())
	if err := uc.repo.Session().Put(ctx, session); err != nil {
		return nil, goerr.Wrap(err, "failed to store session",
			goerr.V(SessionIDKey, session.ID),
			goerr.V("sub", identity.Sub),
		)
	}

	logging.From(ctx).Info("user signed in",
		"session_id", session.ID,
		"user_id", session.UserID,
		"organizations", session.Organizations.IDs(),
	)

	return session, nil
}

func (uc *SessionUseCase) GetValidSession(ctx context.Context, id auth.SessionID, secret auth.SessionSecret) (*auth.Session, error) {
	now := uc.now()

	if session, ok := uc.cache.get(id, now); ok {
		if !secretMatches(session.Secret, secret) {
			return nil, goerr.Wrap(ErrInvalidSessionSecret, "secret mismatch", goerr.V(SessionIDKey, id))
		}
		return session, nil
	}

	session, err := uc.repo.Session().Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, goerr.Wrap(ErrSessionNotFound, "no such session", goerr.V(SessionIDKey, id))
		}
		return nil, goerr.Wrap(err, "failed to get session", goerr.V(SessionIDKey, id))
	}

	if !secretMatches(session.Secret, secret) {
		return nil, goerr.Wrap(ErrInvalidSessionSecret, "secret mismatch", goerr.V(SessionIDKey, id))
	}

	if session.IsSessionExpired(now) {
		if err := uc.repo.Session().Delete(ctx, id); err != nil && !isNotFound(err) {
			return nil, goerr.Wrap(err, "failed to delete expired session", goerr.V(SessionIDKey, id))
		}
		return nil, goerr.Wrap(ErrSessionExpired, "session outlived its lifetime", goerr.V(SessionIDKey, id))
	}

	session, err = uc.Refresh(ctx, session)
	if err != nil {
		return nil, err
	}

	switch session.State(uc.now()) {
	case types.SessionStateErrored:
		return session, goerr.Wrap(ErrSessionRefreshFailed, "session must sign in again", goerr.V(SessionIDKey, id))
	case types.SessionStateFresh:
		uc.cache.set(session, uc.now())
	}

	return session, nil
}

// Refresh brings session to a usable state. Only an expired session holding a refresh
// token causes a token request; a failed request marks the session instead of returning
// an error. A refresh cut short by ctx cancellation leaves the session untouched. The
// returned error is only about persisting the result.
func (uc *SessionUseCase) Refresh(ctx context.Context, session *auth.Session) (*auth.Session, error) {
	if session.State(uc.now()) != types.SessionStateExpiredRefreshable {
		return session, nil
	}

	if !uc.dedup {
		return uc.refresh(ctx, session)
	}

	// The shared call outlives any single caller; the IdP client timeout still bounds it
	sharedCtx := context.WithoutCancel(ctx)
	v, err, shared := uc.group.Do(session.ID.String(), func() (any, error) {
		return uc.refresh(sharedCtx, session)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logging.From(ctx).Debug("shared concurrent token refresh", "session_id", session.ID)
	}
	return v.(*auth.Session), nil
}

func (uc *SessionUseCase) refresh(ctx context.Context, session *auth.Session) (*auth.Session, error) {
	logger := logging.From(ctx)

	var next *auth.Session
	tokens, err := uc.idp.RefreshToken(ctx, session.RefreshToken)
	if err != nil && ctx.Err() != nil {
		// The request went away, not the identity provider. Leave the session as it was
		// so the next request tries again.
		logger.Info("token refresh abandoned by cancelled request",
			"session_id", session.ID,
			"error", err,
		)
		return session, nil
	}
	if err != nil {
		logger.Warn("failed to refresh access token",
			"session_id", session.ID,
			"user_id", session.UserID,
			"error", err,
		)
		next = session.WithRefreshError()
	} else {
		next = session.WithRefreshedTokens(tokens, uc.now())
		logger.Debug("refreshed access token",
			"session_id", session.ID,
			"expires_at", next.ExpiresAt,
		)
	}

	if err := uc.repo.Session().Put(ctx, next); err != nil {
		return nil, goerr.Wrap(err, "failed to store refreshed session", goerr.V(SessionIDKey, session.ID))
	}

	return next, nil
}

// Logout deletes the local session and ends the identity provider session in the
// background. A missing session is not an error.
func (uc *SessionUseCase) Logout(ctx context.Context, id auth.SessionID) error {
	uc.cache.remove(id)

	session, err := uc.repo.Session().Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return goerr.Wrap(err, "failed to get session", goerr.V(SessionIDKey, id))
	}

	if err := uc.repo.Session().Delete(ctx, id); err != nil && !isNotFound(err) {
		return goerr.Wrap(err, "failed to delete session", goerr.V(SessionIDKey, id))
	}

	if session.IDToken != "" {
		idToken := session.IDToken
		async.Dispatch(ctx, func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, idpLogoutTimeout)
			defer cancel()

			if err := uc.idp.Logout(ctx, idToken); err != nil {
				logging.From(ctx).Warn("identity provider logout failed", "session_id", id, "error", err)
			}
			return nil
		})
	}

	return nil
}

func secretMatches(stored, given auth.SessionSecret) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func isNotFound(err error) bool {
	return errors.Is(err, interfaces.ErrNotFound)
}
