package usecase

import (
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
)

// SessionCacheTTL is exported for testing
const SessionCacheTTL = sessionCacheTTL

// SessionCache wraps sessionCache for testing
type SessionCache struct{ c *sessionCache }

func NewSessionCache() *SessionCache { return &SessionCache{c: newSessionCache()} }

func (x *SessionCache) Get(id auth.SessionID, now time.Time) (*auth.Session, bool) {
	return x.c.get(id, now)
}

func (x *SessionCache) Set(session *auth.Session, now time.Time) { x.c.set(session, now) }

func (x *SessionCache) Remove(id auth.SessionID) { x.c.remove(id) }
