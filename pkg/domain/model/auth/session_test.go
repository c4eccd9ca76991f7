package auth_test

import (
	"testing"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/claimsportal/claimgate/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

var now = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newSession() *auth.Session {
	return auth.NewSession(
		&auth.Identity{Sub: "sub-1", Email: "alice@example.com", Name: "Alice"},
		&auth.TokenSet{AccessToken: "at-1", RefreshToken: "rt-1", IDToken: "id-1", ExpiresIn: 5 * time.Minute},
		now,
	)
}

func TestNewSession(t *testing.T) {
	s := newSession()
	gt.NoError(t, s.Validate())
	gt.Value(t, s.UserID).Equal("c160f8cc-69a4-30bf-ab03-62752353d060")
	gt.Bool(t, s.ExpiresAt.Equal(now.Add(5*time.Minute))).True()
	gt.Bool(t, s.SessionExpiresAt.Equal(now.Add(auth.DefaultSessionLifetime))).True()
	gt.Value(t, s.Error).Equal("")
}

func TestSession_State(t *testing.T) {
	var nilSession *auth.Session
	gt.Value(t, nilSession.State(now)).Equal(types.SessionStateUnauthenticated)

	s := newSession()
	gt.Value(t, s.State(now)).Equal(types.SessionStateFresh)
	gt.Value(t, s.State(now.Add(5*time.Minute))).Equal(types.SessionStateExpiredRefreshable)

	noRefresh := *s
	noRefresh.RefreshToken = ""
	gt.Value(t, noRefresh.State(now.Add(time.Hour))).Equal(types.SessionStateExpired)

	unknownExpiry := *s
	unknownExpiry.ExpiresAt = time.Time{}
	gt.Value(t, unknownExpiry.State(now)).Equal(types.SessionStateExpiredRefreshable)

	errored := s.WithRefreshError()
	gt.Value(t, errored.State(now)).Equal(types.SessionStateErrored)
	gt.Value(t, errored.State(now.Add(time.Hour))).Equal(types.SessionStateErrored)
}

func TestSession_WithRefreshedTokens(t *testing.T) {
	s := newSession().WithRefreshError()
	later := now.Add(10 * time.Minute)

	t.Run("keeps refresh and id token when not reissued", func(t *testing.T) {
		next := s.WithRefreshedTokens(&auth.TokenSet{AccessToken: "at-2", ExpiresIn: time.Hour}, later)
		gt.Value(t, next.AccessToken).Equal("at-2")
		gt.Value(t, next.RefreshToken).Equal("rt-1")
		gt.Value(t, next.IDToken).Equal("id-1")
		gt.Bool(t, next.ExpiresAt.Equal(later.Add(time.Hour))).True()
		gt.Value(t, next.Error).Equal("")
		gt.Value(t, next.State(later)).Equal(types.SessionStateFresh)
	})

	t.Run("replaces reissued tokens", func(t *testing.T) {
		next := s.WithRefreshedTokens(&auth.TokenSet{AccessToken: "at-3", RefreshToken: "rt-3", IDToken: "id-3", ExpiresIn: time.Hour}, later)
		gt.Value(t, next.RefreshToken).Equal("rt-3")
		gt.Value(t, next.IDToken).Equal("id-3")
	})

	t.Run("does not mutate the receiver", func(t *testing.T) {
		_ = s.WithRefreshedTokens(&auth.TokenSet{AccessToken: "at-4", ExpiresIn: time.Hour}, later)
		gt.Value(t, s.AccessToken).Equal("at-1")
		gt.Value(t, s.Error).Equal(auth.RefreshAccessTokenError)
	})
}

func TestSession_WithRefreshError(t *testing.T) {
	s := newSession()
	errored := s.WithRefreshError()
	gt.Value(t, errored.Error).Equal(auth.RefreshAccessTokenError)
	gt.Value(t, errored.AccessToken).Equal(s.AccessToken)
	gt.Value(t, errored.RefreshToken).Equal(s.RefreshToken)
	gt.Value(t, s.Error).Equal("")
}

func TestSession_IsSessionExpired(t *testing.T) {
	s := newSession()
	gt.Bool(t, s.IsSessionExpired(now)).False()
	gt.Bool(t, s.IsSessionExpired(s.SessionExpiresAt)).True()
}

func TestSessionID_Validate(t *testing.T) {
	gt.NoError(t, auth.NewSessionID().Validate())
	gt.Error(t, auth.SessionID("not-a-uuid").Validate())
}

func TestStableUserID(t *testing.T) {
	gt.Value(t, auth.StableUserID("alice@example.com", "sub")).Equal("c160f8cc-69a4-30bf-ab03-62752353d060")
	gt.Value(t, auth.StableUserID("bob@example.com", "sub")).Equal("4b9bb806-20f0-3eb3-b19e-0a061c14283d")
	gt.Value(t, auth.StableUserID("", "sub-only")).Equal("sub-only")
}
