package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/interfaces"
	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/claimsportal/claimgate/pkg/service/keycloak"
	"github.com/claimsportal/claimgate/pkg/usecase"
	"github.com/claimsportal/claimgate/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// Keycloak holds the identity provider settings and the development no-auth mode
type Keycloak struct {
	issuer       string
	clientID     string
	clientSecret string
	timeout      time.Duration
	refreshDedup bool

	noAuthEmail string
	noAuthOrg   string
	noAuthRoles string
	noAuthToken string
}

func (x *Keycloak) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "keycloak-issuer",
			Usage:       "Keycloak realm issuer URL (e.g. https://sso.example.com/realms/claims)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMGATE_KEYCLOAK_ISSUER"),
			Destination: &x.issuer,
		},
		&cli.StringFlag{
			Name:        "keycloak-client-id",
			Usage:       "Keycloak OIDC client ID",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMGATE_KEYCLOAK_CLIENT_ID"),
			Destination: &x.clientID,
		},
		&cli.StringFlag{
			Name:        "keycloak-client-secret",
			Usage:       "Keycloak OIDC client secret",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMGATE_KEYCLOAK_CLIENT_SECRET"),
			Destination: &x.clientSecret,
		},
		&cli.DurationFlag{
			Name:        "keycloak-timeout",
			Usage:       "Timeout of token, refresh and logout requests",
			Value:       keycloak.DefaultTimeout,
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMGATE_KEYCLOAK_TIMEOUT"),
			Destination: &x.timeout,
		},
		&cli.BoolFlag{
			Name:        "session-refresh-dedup",
			Usage:       "Share one token refresh between concurrent requests of the same session",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMGATE_SESSION_REFRESH_DEDUP"),
			Destination: &x.refreshDedup,
		},
		&cli.StringFlag{
			Name:        "no-auth",
			Usage:       "Skip authentication and sign every request in as this email (development only)",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMGATE_NO_AUTH"),
			Destination: &x.noAuthEmail,
		},
		&cli.StringFlag{
			Name:        "no-auth-org",
			Usage:       "Organization of the no-auth user",
			Value:       "dev-org",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMGATE_NO_AUTH_ORG"),
			Destination: &x.noAuthOrg,
		},
		&cli.StringFlag{
			Name:        "no-auth-roles",
			Usage:       "Comma separated roles of the no-auth user in its organization",
			Value:       auth.RoleAdmin,
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMGATE_NO_AUTH_ROLES"),
			Destination: &x.noAuthRoles,
		},
		&cli.StringFlag{
			Name:        "no-auth-token",
			Usage:       "Access token forwarded to the claims API in no-auth mode",
			Category:    "Authentication",
			Sources:     cli.EnvVars("CLAIMGATE_NO_AUTH_TOKEN"),
			Destination: &x.noAuthToken,
		},
	}
}

func (x Keycloak) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("issuer", x.issuer),
		slog.String("client-id", x.clientID),
		slog.Int("client-secret.len", len(x.clientSecret)),
		slog.Duration("timeout", x.timeout),
		slog.Bool("refresh-dedup", x.refreshDedup),
		slog.String("no-auth", x.noAuthEmail),
	)
}

// IsNoAuthMode reports whether the development no-auth mode is enabled
func (x *Keycloak) IsNoAuthMode() bool {
	return x.noAuthEmail != ""
}

// Configure returns the session use case: NoAuthnUseCase in no-auth mode, otherwise a
// SessionUseCase backed by Keycloak. baseURL is the public URL of this service.
func (x *Keycloak) Configure(repo interfaces.Repository, baseURL string) (usecase.SessionUseCaseInterface, error) {
	if x.IsNoAuthMode() {
		if x.issuer != "" || x.clientID != "" {
			logging.Default().Warn("--no-auth is set, ignoring --keycloak-* settings")
		}
		return usecase.NewNoAuthnUseCase(x.noAuthIdentity(), x.noAuthToken), nil
	}

	if x.issuer == "" || x.clientID == "" || x.clientSecret == "" || baseURL == "" {
		return nil, goerr.Wrap(ErrMissingKeycloak,
			"set --keycloak-issuer, --keycloak-client-id, --keycloak-client-secret and --base-url, or use --no-auth")
	}

	idp, err := keycloak.New(x.issuer, x.clientID, x.clientSecret, keycloak.WithTimeout(x.timeout))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create keycloak client")
	}

	callbackURL := strings.TrimSuffix(baseURL, "/") + "/api/auth/callback"
	return usecase.NewSessionUseCase(repo, idp, callbackURL, usecase.WithRefreshDedup(x.refreshDedup)), nil
}

func (x *Keycloak) noAuthIdentity() *auth.Identity {
	var roles []string
	for _, role := range strings.Split(x.noAuthRoles, ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}

	name, _, _ := strings.Cut(x.noAuthEmail, "@")
	return &auth.Identity{
		Sub:   "no-auth:" + x.noAuthEmail,
		Email: x.noAuthEmail,
		Name:  name,
		Organizations: auth.Organizations{
			x.noAuthOrg: {ID: x.noAuthOrg, Name: x.noAuthOrg, Roles: roles},
		},
	}
}
