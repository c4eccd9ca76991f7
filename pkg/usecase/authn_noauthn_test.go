package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/claimsportal/claimgate/pkg/domain/types"
	"github.com/claimsportal/claimgate/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func TestNoAuthnUseCase(t *testing.T) {
	identity := &auth.Identity{
		Sub:   "dev-user",
		Email: "dev@example.com",
		Name:  "Dev User",
		Organizations: auth.Organizations{
			"dev-org": {ID: "dev-org", Name: "Development", Roles: []string{auth.RoleAdmin}},
		},
	}

	uc := usecase.NewNoAuthnUseCase(identity, "dev-token")

	t.Run("GetValidSession returns the fixed user", func(t *testing.T) {
		session, err := uc.GetValidSession(context.Background(), "", "")
		gt.NoError(t, err).Required()

		gt.Value(t, session.Sub).Equal("dev-user")
		gt.Value(t, session.Email).Equal("dev@example.com")
		gt.Value(t, session.UserID).Equal(auth.StableUserID("dev@example.com", "dev-user"))
		gt.Value(t, session.AccessToken).Equal("dev-token")
		gt.Bool(t, session.Organizations.IsAdmin("dev-org")).True()
		gt.Value(t, session.State(time.Now())).Equal(types.SessionStateFresh)
	})

	t.Run("returned sessions are independent copies", func(t *testing.T) {
		s1, err := uc.GetValidSession(context.Background(), "", "")
		gt.NoError(t, err).Required()
		s1.Error = auth.RefreshAccessTokenError

		s2, err := uc.GetValidSession(context.Background(), "", "")
		gt.NoError(t, err).Required()
		gt.Value(t, s2.Error).Equal("")
	})

	t.Run("HandleCallback returns the fixed user", func(t *testing.T) {
		session, err := uc.HandleCallback(context.Background(), "dummy-code")
		gt.NoError(t, err).Required()
		gt.Value(t, session.Name).Equal("Dev User")
	})

	t.Run("IsNoAuthn returns true", func(t *testing.T) {
		gt.Bool(t, uc.IsNoAuthn()).True()
	})

	t.Run("GetAuthURL returns root path", func(t *testing.T) {
		gt.Value(t, uc.GetAuthURL("state")).Equal("/")
	})

	t.Run("Logout does nothing", func(t *testing.T) {
		gt.NoError(t, uc.Logout(context.Background(), auth.NewSessionID()))
	})
}
