package keycloak_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claimsportal/claimgate/pkg/service/keycloak"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/gt"
)

const (
	testClientID     = "claims-bff"
	testClientSecret = "bff-secret"
	realmPath        = "/realms/claims"
)

// fakeRealm serves the openid-connect endpoints of a single realm
type fakeRealm struct {
	t          *testing.T
	server     *httptest.Server
	signingKey jwk.Key
	keySet     jwk.Set

	tokenHandler  http.HandlerFunc
	logoutHandler http.HandlerFunc
	tokenCalls    atomic.Int32
}

func newFakeRealm(t *testing.T) *fakeRealm {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	gt.NoError(t, err).Required()

	key, err := jwk.FromRaw(raw)
	gt.NoError(t, err).Required()
	gt.NoError(t, key.Set(jwk.KeyIDKey, "test-key")).Required()
	gt.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256)).Required()

	pub, err := jwk.PublicKeyOf(key)
	gt.NoError(t, err).Required()
	gt.NoError(t, pub.Set(jwk.AlgorithmKey, jwa.RS256)).Required()

	set := jwk.NewSet()
	gt.NoError(t, set.AddKey(pub)).Required()

	realm := &fakeRealm{t: t, signingKey: key, keySet: set}

	mux := http.NewServeMux()
	mux.HandleFunc(realmPath+"/protocol/openid-connect/certs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		gt.NoError(t, json.NewEncoder(w).Encode(realm.keySet))
	})
	mux.HandleFunc(realmPath+"/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		realm.tokenCalls.Add(1)
		realm.tokenHandler(w, r)
	})
	mux.HandleFunc(realmPath+"/protocol/openid-connect/logout", func(w http.ResponseWriter, r *http.Request) {
		realm.logoutHandler(w, r)
	})

	realm.server = httptest.NewServer(mux)
	t.Cleanup(realm.server.Close)
	return realm
}

func (r *fakeRealm) issuer() string {
	return r.server.URL + realmPath
}

func (r *fakeRealm) client(opts ...keycloak.Option) *keycloak.Client {
	r.t.Helper()
	c, err := keycloak.New(r.issuer(), testClientID, testClientSecret, opts...)
	gt.NoError(r.t, err).Required()
	return c
}

func (r *fakeRealm) signIDToken(mutate func(b *jwt.Builder) *jwt.Builder) string {
	r.t.Helper()

	now := time.Now()
	builder := jwt.NewBuilder().
		Issuer(r.issuer()).
		Subject("kc-sub-1").
		Audience([]string{testClientID}).
		IssuedAt(now).
		Expiration(now.Add(5*time.Minute)).
		Claim("email", "alice@example.com").
		Claim("name", "Alice Example").
		Claim("loyalty_tier", "gold").
		Claim("organizations", map[string]any{
			"acme": map[string]any{
				"id":    "org-acme",
				"name":  "Acme Insurance",
				"roles": []string{"admin", "billing"},
				"attributes": map[string]any{
					"region": []string{"eu", "us"},
					"tier":   "enterprise",
				},
			},
			"globex": map[string]any{
				"name":  "Globex",
				"roles": []string{"viewer"},
			},
		})
	if mutate != nil {
		builder = mutate(builder)
	}

	token, err := builder.Build()
	gt.NoError(r.t, err).Required()

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, r.signingKey))
	gt.NoError(r.t, err).Required()
	return string(signed)
}

func writeTokenJSON(t *testing.T, w http.ResponseWriter, body map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	gt.NoError(t, json.NewEncoder(w).Encode(body))
}

func TestNew(t *testing.T) {
	t.Run("requires issuer", func(t *testing.T) {
		_, err := keycloak.New("", testClientID, testClientSecret)
		gt.Error(t, err)
	})

	t.Run("requires client ID", func(t *testing.T) {
		_, err := keycloak.New("https://idp.example.com/realms/claims", "", testClientSecret)
		gt.Error(t, err)
	})

	t.Run("rejects relative issuer", func(t *testing.T) {
		_, err := keycloak.New("realms/claims", testClientID, testClientSecret)
		gt.Error(t, err)
	})
}

func TestAuthURL(t *testing.T) {
	c, err := keycloak.New("https://idp.example.com/realms/claims/", testClientID, testClientSecret)
	gt.NoError(t, err).Required()

	authURL, err := url.Parse(c.AuthURL("state-123", "https://portal.example.com/api/auth/callback"))
	gt.NoError(t, err).Required()

	gt.Value(t, authURL.Host).Equal("idp.example.com")
	gt.Value(t, authURL.Path).Equal("/realms/claims/protocol/openid-connect/auth")

	q := authURL.Query()
	gt.Value(t, q.Get("client_id")).Equal(testClientID)
	gt.Value(t, q.Get("response_type")).Equal("code")
	gt.Value(t, q.Get("state")).Equal("state-123")
	gt.Value(t, q.Get("scope")).Equal("openid email profile")
	gt.Value(t, q.Get("redirect_uri")).Equal("https://portal.example.com/api/auth/callback")
}

func TestRefreshToken(t *testing.T) {
	t.Run("posts refresh_token grant with client credentials", func(t *testing.T) {
		realm := newFakeRealm(t)
		realm.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			gt.Value(t, r.Method).Equal(http.MethodPost)
			gt.Value(t, r.Header.Get("Content-Type")).Equal("application/x-www-form-urlencoded")
			gt.NoError(t, r.ParseForm())
			gt.Value(t, r.PostForm.Get("grant_type")).Equal("refresh_token")
			gt.Value(t, r.PostForm.Get("refresh_token")).Equal("refresh-old")
			gt.Value(t, r.PostForm.Get("client_id")).Equal(testClientID)
			gt.Value(t, r.PostForm.Get("client_secret")).Equal(testClientSecret)

			writeTokenJSON(t, w, map[string]any{
				"access_token":  "access-new",
				"refresh_token": "refresh-new",
				"expires_in":    300,
				"token_type":    "Bearer",
			})
		}

		tokens, err := realm.client().RefreshToken(context.Background(), "refresh-old")
		gt.NoError(t, err).Required()
		gt.Value(t, tokens.AccessToken).Equal("access-new")
		gt.Value(t, tokens.RefreshToken).Equal("refresh-new")
		gt.Value(t, tokens.IDToken).Equal("")
		gt.Value(t, tokens.ExpiresIn).Equal(300 * time.Second)
		gt.Value(t, realm.tokenCalls.Load()).Equal(int32(1))
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusInternalServerError} {
			realm := newFakeRealm(t)
			realm.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
				_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			}

			_, err := realm.client().RefreshToken(context.Background(), "refresh-old")
			gt.Error(t, err)
			gt.Bool(t, errors.Is(err, keycloak.ErrUnexpectedStatus)).Describef("status %d", code).True()
			gt.Value(t, realm.tokenCalls.Load()).Equal(int32(1))
		}
	})

	t.Run("malformed JSON is an error", func(t *testing.T) {
		realm := newFakeRealm(t)
		realm.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>maintenance</html>`))
		}

		_, err := realm.client().RefreshToken(context.Background(), "refresh-old")
		gt.Bool(t, errors.Is(err, keycloak.ErrMalformedResponse)).True()
	})

	t.Run("missing expires_in is an error", func(t *testing.T) {
		realm := newFakeRealm(t)
		realm.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			writeTokenJSON(t, w, map[string]any{"access_token": "access-new"})
		}

		_, err := realm.client().RefreshToken(context.Background(), "refresh-old")
		gt.Bool(t, errors.Is(err, keycloak.ErrMalformedResponse)).True()
	})

	t.Run("timeout is an error", func(t *testing.T) {
		realm := newFakeRealm(t)
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		realm.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}

		start := time.Now()
		_, err := realm.client(keycloak.WithTimeout(100*time.Millisecond)).RefreshToken(context.Background(), "refresh-old")
		gt.Error(t, err)
		gt.Bool(t, time.Since(start) < 5*time.Second).True()
	})

	t.Run("empty refresh token is rejected without a request", func(t *testing.T) {
		realm := newFakeRealm(t)

		_, err := realm.client().RefreshToken(context.Background(), "")
		gt.Error(t, err)
		gt.Value(t, realm.tokenCalls.Load()).Equal(int32(0))
	})
}

func TestExchangeCode(t *testing.T) {
	t.Run("returns tokens and verified identity", func(t *testing.T) {
		realm := newFakeRealm(t)
		idToken := realm.signIDToken(nil)
		realm.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			gt.NoError(t, r.ParseForm())
			gt.Value(t, r.PostForm.Get("grant_type")).Equal("authorization_code")
			gt.Value(t, r.PostForm.Get("code")).Equal("code-1")
			gt.Value(t, r.PostForm.Get("redirect_uri")).Equal("https://portal.example.com/api/auth/callback")

			writeTokenJSON(t, w, map[string]any{
				"access_token":  "access-1",
				"refresh_token": "refresh-1",
				"id_token":      idToken,
				"expires_in":    300,
			})
		}

		tokens, identity, err := realm.client().ExchangeCode(context.Background(), "code-1", "https://portal.example.com/api/auth/callback")
		gt.NoError(t, err).Required()

		gt.Value(t, tokens.AccessToken).Equal("access-1")
		gt.Value(t, tokens.IDToken).Equal(idToken)
		gt.Value(t, identity.Sub).Equal("kc-sub-1")
		gt.Value(t, identity.Email).Equal("alice@example.com")
		gt.Value(t, identity.Name).Equal("Alice Example")
		gt.Value(t, identity.LoyaltyTier).Equal("gold")

		gt.Array(t, identity.Organizations.IDs()).Length(2)
		gt.Bool(t, identity.Organizations.IsAdmin("acme")).True()
		gt.Bool(t, identity.Organizations.CanApproveClaim("acme")).True()
		gt.Bool(t, identity.Organizations.CanCreateClaim("globex")).False()
		gt.Value(t, identity.Organizations["acme"].ID).Equal("org-acme")
		gt.Value(t, identity.Organizations["acme"].Attributes["region"]).Equal("eu,us")
		gt.Value(t, identity.Organizations["acme"].Attributes["tier"]).Equal("enterprise")
		gt.Value(t, identity.Organizations["globex"].ID).Equal("globex")
	})

	t.Run("rejects ID token for another audience", func(t *testing.T) {
		realm := newFakeRealm(t)
		idToken := realm.signIDToken(func(b *jwt.Builder) *jwt.Builder {
			return b.Audience([]string{"another-client"})
		})
		realm.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			writeTokenJSON(t, w, map[string]any{
				"access_token": "access-1",
				"id_token":     idToken,
				"expires_in":   300,
			})
		}

		_, _, err := realm.client().ExchangeCode(context.Background(), "code-1", "https://portal.example.com/cb")
		gt.Error(t, err)
	})

	t.Run("rejects ID token from another issuer", func(t *testing.T) {
		realm := newFakeRealm(t)
		idToken := realm.signIDToken(func(b *jwt.Builder) *jwt.Builder {
			return b.Issuer("https://evil.example.com/realms/claims")
		})
		realm.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			writeTokenJSON(t, w, map[string]any{
				"access_token": "access-1",
				"id_token":     idToken,
				"expires_in":   300,
			})
		}

		_, _, err := realm.client().ExchangeCode(context.Background(), "code-1", "https://portal.example.com/cb")
		gt.Error(t, err)
	})

	t.Run("rejects ID token signed by unknown key", func(t *testing.T) {
		realm := newFakeRealm(t)
		other := newFakeRealm(t)
		idToken := other.signIDToken(func(b *jwt.Builder) *jwt.Builder {
			return b.Issuer(realm.issuer())
		})
		realm.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			writeTokenJSON(t, w, map[string]any{
				"access_token": "access-1",
				"id_token":     idToken,
				"expires_in":   300,
			})
		}

		_, _, err := realm.client().ExchangeCode(context.Background(), "code-1", "https://portal.example.com/cb")
		gt.Error(t, err)
	})

	t.Run("missing ID token is an error", func(t *testing.T) {
		realm := newFakeRealm(t)
		realm.tokenHandler = func(w http.ResponseWriter, r *http.Request) {
			writeTokenJSON(t, w, map[string]any{"access_token": "access-1", "expires_in": 300})
		}

		_, _, err := realm.client().ExchangeCode(context.Background(), "code-1", "https://portal.example.com/cb")
		gt.Bool(t, errors.Is(err, keycloak.ErrMalformedResponse)).True()
	})
}

func TestLogout(t *testing.T) {
	t.Run("posts id_token_hint", func(t *testing.T) {
		realm := newFakeRealm(t)
		var called atomic.Bool
		realm.logoutHandler = func(w http.ResponseWriter, r *http.Request) {
			called.Store(true)
			gt.NoError(t, r.ParseForm())
			gt.Value(t, r.PostForm.Get("id_token_hint")).Equal("id-1")
			gt.Value(t, r.PostForm.Get("client_id")).Equal(testClientID)
			gt.Value(t, r.PostForm.Get("client_secret")).Equal(testClientSecret)
			w.WriteHeader(http.StatusNoContent)
		}

		gt.NoError(t, realm.client().Logout(context.Background(), "id-1"))
		gt.Bool(t, called.Load()).True()
	})

	t.Run("error status is returned", func(t *testing.T) {
		realm := newFakeRealm(t)
		realm.logoutHandler = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}

		err := realm.client().Logout(context.Background(), "id-1")
		gt.Bool(t, errors.Is(err, keycloak.ErrUnexpectedStatus)).True()
	})
}
