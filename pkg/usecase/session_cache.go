package usecase

import (
	"sync"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
)

const (
	sessionCacheTTL = time.Minute
)

type cachedSession struct {
	session   *auth.Session
	expiresAt time.Time
}

// sessionCache holds fresh sessions only. An entry never outlives the access token it
// carries, so a cached session never needs a refresh.
type sessionCache struct {
	cache sync.Map
}

func newSessionCache() *sessionCache {
	return &sessionCache{}
}

func (c *sessionCache) get(id auth.SessionID, now time.Time) (*auth.Session, bool) {
	val, ok := c.cache.Load(id)
	if !ok {
		return nil, false
	}

	cached := val.(*cachedSession)
	if !now.Before(cached.expiresAt) {
		c.cache.Delete(id)
		return nil, false
	}

	return cached.session, true
}

func (c *sessionCache) set(session *auth.Session, now time.Time) {
	expiresAt := now.Add(sessionCacheTTL)
	if session.ExpiresAt.Before(expiresAt) {
		expiresAt = session.ExpiresAt
	}
	if !now.Before(expiresAt) {
		return
	}

	c.cache.Store(session.ID, &cachedSession{
		session:   session,
		expiresAt: expiresAt,
	})
}

func (c *sessionCache) remove(id auth.SessionID) {
	c.cache.Delete(id)
}
