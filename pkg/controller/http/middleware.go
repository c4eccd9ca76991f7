package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/claimsportal/claimgate/pkg/usecase"
	"github.com/claimsportal/claimgate/pkg/utils/errutil"
	"github.com/claimsportal/claimgate/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	sessionIDCookie     = "session_id"
	sessionSecretCookie = "session_secret"
	oauthStateCookie    = "oauth_state"
	selectedOrgCookie   = "selectedOrgId"

	sessionExpiredError = "session_expired"
)

// sessionGuard admits requests carrying a valid session and puts the session into the
// request context. A session whose token refresh failed is signed out here, once.
func sessionGuard(sessionUC SessionUseCase) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if sessionUC.IsNoAuthn() {
				session, err := sessionUC.GetValidSession(ctx, "", "")
				if err != nil {
					errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
					return
				}
				next.ServeHTTP(w, r.WithContext(auth.ContextWithSession(ctx, session)))
				return
			}

			idCookie, err := r.Cookie(sessionIDCookie)
			if err != nil {
				unauthenticated(w, r)
				return
			}
			secretCookie, err := r.Cookie(sessionSecretCookie)
			if err != nil {
				unauthenticated(w, r)
				return
			}

			sessionID := auth.SessionID(idCookie.Value)
			session, err := sessionUC.GetValidSession(ctx, sessionID, auth.SessionSecret(secretCookie.Value))
			switch {
			case errors.Is(err, usecase.ErrSessionRefreshFailed):
				forceSignOut(w, r, sessionUC, sessionID)
				return

			case err != nil:
				logging.From(ctx).Info("rejected session", "error", err.Error())
				clearSessionCookies(w, r)
				unauthenticated(w, r)
				return
			}

			logger := logging.From(ctx).With("user_id", session.UserID)
			ctx = logging.With(auth.ContextWithSession(ctx, session), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// forceSignOut ends a session that can no longer obtain a token. The user is sent to
// sign in again instead of being retried against the identity provider.
func forceSignOut(w http.ResponseWriter, r *http.Request, sessionUC SessionUseCase, id auth.SessionID) {
	ctx := r.Context()
	if err := sessionUC.Logout(ctx, id); err != nil {
		_ = errutil.Handle(ctx, goerr.Wrap(err, "failed to delete errored session",
			goerr.V(usecase.SessionIDKey, id)), "forced sign-out")
	}
	clearSessionCookies(w, r)

	logging.From(ctx).Info("session signed out after token refresh failure", "session_id", id)

	if isBrowserNavigation(r) {
		http.Redirect(w, r, "/?error="+sessionExpiredError, http.StatusFound)
		return
	}
	writeJSON(ctx, w, http.StatusUnauthorized, errorResponse{Error: sessionExpiredError})
}

func unauthenticated(w http.ResponseWriter, r *http.Request) {
	if isBrowserNavigation(r) {
		http.Redirect(w, r, "/?callbackUrl="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
		return
	}
	writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Error: "Authentication required"})
}

// isBrowserNavigation tells a page load from an API call
func isBrowserNavigation(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html")
}

func setCookie(w http.ResponseWriter, r *http.Request, cookie *http.Cookie) {
	cookie.Path = "/"
	cookie.HttpOnly = true
	cookie.Secure = r.TLS != nil
	cookie.SameSite = http.SameSiteLaxMode
	http.SetCookie(w, cookie)
}

func clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	setCookie(w, r, &http.Cookie{Name: name, Value: "", MaxAge: -1})
}

func clearSessionCookies(w http.ResponseWriter, r *http.Request) {
	clearCookie(w, r, sessionIDCookie)
	clearCookie(w, r, sessionSecretCookie)
}
