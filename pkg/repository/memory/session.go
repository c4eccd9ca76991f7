package memory

import (
	"context"
	"sync"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/interfaces"
	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/m-mizutani/goerr/v2"
)

type sessionRepository struct {
	mu       sync.RWMutex
	sessions map[auth.SessionID]*auth.Session
}

var _ interfaces.SessionRepository = &sessionRepository{}

func newSessionRepository() *sessionRepository {
	return &sessionRepository{
		sessions: make(map[auth.SessionID]*auth.Session),
	}
}

func (r *sessionRepository) Put(ctx context.Context, session *auth.Session) error {
	if err := session.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = copySession(session)
	return nil
}

func (r *sessionRepository) Get(ctx context.Context, id auth.SessionID) (*auth.Session, error) {
	if err := id.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid session ID")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, goerr.Wrap(ErrNotFound, "session not found", goerr.V("id", id))
	}

	// Return a copy so callers cannot modify the stored session
	return copySession(session), nil
}

func (r *sessionRepository) Delete(ctx context.Context, id auth.SessionID) error {
	if err := id.Validate(); err != nil {
		return goerr.Wrap(err, "invalid session ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; !ok {
		return goerr.Wrap(ErrNotFound, "session not found", goerr.V("id", id))
	}

	delete(r.sessions, id)
	return nil
}

func (r *sessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, session := range r.sessions {
		if isSweepable(session, now) {
			delete(r.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// isSweepable matches sessions past their absolute lifetime and sessions whose refresh
// failed after the access token expired
func isSweepable(session *auth.Session, now time.Time) bool {
	if session.IsSessionExpired(now) {
		return true
	}
	return session.Error == auth.RefreshAccessTokenError && session.ExpiresAt.Before(now)
}

func copySession(session *auth.Session) *auth.Session {
	copied := *session
	copied.Organizations = session.Organizations.Clone()
	return &copied
}
