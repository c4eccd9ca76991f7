package usecase_test

import (
	"testing"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/claimsportal/claimgate/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestSessionCache(t *testing.T) {
	newCached := func(expiresIn time.Duration) *auth.Session {
		return auth.NewSession(
			&auth.Identity{Sub: "kc-sub-1", Email: "alice@example.com"},
			&auth.TokenSet{AccessToken: "access-1", ExpiresIn: expiresIn},
			testNow,
		)
	}

	t.Run("entry lives for the TTL", func(t *testing.T) {
		cache := usecase.NewSessionCache()
		session := newCached(time.Hour)
		cache.Set(session, testNow)

		got, ok := cache.Get(session.ID, testNow.Add(usecase.SessionCacheTTL-time.Second))
		gt.Bool(t, ok).True()
		gt.Value(t, got.ID).Equal(session.ID)

		_, ok = cache.Get(session.ID, testNow.Add(usecase.SessionCacheTTL))
		gt.Bool(t, ok).False()
	})

	t.Run("entry never outlives the access token", func(t *testing.T) {
		cache := usecase.NewSessionCache()
		session := newCached(10 * time.Second)
		cache.Set(session, testNow)

		_, ok := cache.Get(session.ID, testNow.Add(9*time.Second))
		gt.Bool(t, ok).True()

		_, ok = cache.Get(session.ID, testNow.Add(10*time.Second))
		gt.Bool(t, ok).False()
	})

	t.Run("expired token is not cached", func(t *testing.T) {
		cache := usecase.NewSessionCache()
		session := newCached(0)
		cache.Set(session, testNow)

		_, ok := cache.Get(session.ID, testNow)
		gt.Bool(t, ok).False()
	})

	t.Run("remove", func(t *testing.T) {
		cache := usecase.NewSessionCache()
		session := newCached(time.Hour)
		cache.Set(session, testNow)
		cache.Remove(session.ID)

		_, ok := cache.Get(session.ID, testNow)
		gt.Bool(t, ok).False()
	})
}
