package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/claimsportal/claimgate/pkg/usecase"
	"github.com/claimsportal/claimgate/pkg/utils/errutil"
	"github.com/claimsportal/claimgate/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// callbackURLCookie carries the page to return to across the identity provider round trip
const callbackURLCookie = "auth_callback_url"

type organizationResponse struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Roles      []string          `json:"roles"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type userMeResponse struct {
	UserID                 string                   `json:"userId"`
	Sub                    string                   `json:"sub"`
	Email                  string                   `json:"email"`
	Name                   string                   `json:"name"`
	LoyaltyTier            string                   `json:"loyaltyTier,omitempty"`
	Organizations          []organizationResponse   `json:"organizations"`
	SelectedOrganizationID string                   `json:"selectedOrganizationId,omitempty"`
	Permissions            usecase.ClaimPermissions `json:"permissions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// generateState generates a random state parameter for OAuth
func generateState() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", goerr.Wrap(err, "failed to generate random state")
	}
	return hex.EncodeToString(bytes), nil
}

// isLocalPath accepts only same-origin paths as a post sign-in destination
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.Contains(p, `\`)
}

// authLoginHandler handles the OAuth login initiation
func authLoginHandler(sessionUC SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionUC.IsNoAuthn() {
			http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
			return
		}

		// Generate state parameter to prevent CSRF
		state, err := generateState()
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}
		setCookie(w, r, &http.Cookie{
			Name:   oauthStateCookie,
			Value:  state,
			MaxAge: 600, // 10 minutes
		})

		if callbackURL := r.URL.Query().Get("callbackUrl"); isLocalPath(callbackURL) {
			setCookie(w, r, &http.Cookie{
				Name:   callbackURLCookie,
				Value:  callbackURL,
				MaxAge: 600,
			})
		}

		http.Redirect(w, r, sessionUC.GetAuthURL(state), http.StatusTemporaryRedirect)
	}
}

// authCallbackHandler handles the OAuth callback
func authCallbackHandler(sessionUC SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stateCookie, err := r.Cookie(oauthStateCookie)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "missing state cookie"), http.StatusBadRequest)
			return
		}

		state := r.URL.Query().Get("state")
		if state == "" || state != stateCookie.Value {
			errutil.HandleHTTP(r.Context(), w, goerr.New("invalid state parameter"), http.StatusBadRequest)
			return
		}
		clearCookie(w, r, oauthStateCookie)

		if idpErr := r.URL.Query().Get("error"); idpErr != "" {
			logging.From(r.Context()).Warn("identity provider returned error",
				"error", idpErr,
				"description", r.URL.Query().Get("error_description"),
			)
			http.Redirect(w, r, "/?error="+url.QueryEscape(idpErr), http.StatusFound)
			return
		}

		code := r.URL.Query().Get("code")
		if code == "" {
			errutil.HandleHTTP(r.Context(), w, goerr.New("missing authorization code"), http.StatusBadRequest)
			return
		}

		session, err := sessionUC.HandleCallback(r.Context(), code)
		if err != nil {
			errutil.HandleHTTP(r.Context(), w, err, http.StatusInternalServerError)
			return
		}

		setCookie(w, r, &http.Cookie{
			Name:    sessionIDCookie,
			Value:   session.ID.String(),
			Expires: session.SessionExpiresAt,
		})
		setCookie(w, r, &http.Cookie{
			Name:    sessionSecretCookie,
			Value:   session.Secret.String(),
			Expires: session.SessionExpiresAt,
		})

		destination := "/"
		if c, err := r.Cookie(callbackURLCookie); err == nil && isLocalPath(c.Value) {
			destination = c.Value
			clearCookie(w, r, callbackURLCookie)
		}
		http.Redirect(w, r, destination, http.StatusFound)
	}
}

// authLogoutHandler deletes the session. It succeeds even without a session.
func authLogoutHandler(sessionUC SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if idCookie, err := r.Cookie(sessionIDCookie); err == nil {
			if err := sessionUC.Logout(r.Context(), auth.SessionID(idCookie.Value)); err != nil {
				errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "failed to logout"), http.StatusInternalServerError)
				return
			}
		}

		clearSessionCookies(w, r)
		clearCookie(w, r, selectedOrgCookie)

		writeJSON(r.Context(), w, http.StatusOK, successResponse{Success: true})
	}
}

// authMeHandler returns the signed-in user and the organization requests act in
func authMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.SessionFromContext(r.Context())
		if session == nil {
			writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Error: "Authentication required"})
			return
		}

		resp := userMeResponse{
			UserID:        session.UserID,
			Sub:           session.Sub,
			Email:         session.Email,
			Name:          session.Name,
			LoyaltyTier:   session.LoyaltyTier,
			Organizations: make([]organizationResponse, 0, len(session.Organizations)),
		}
		for _, key := range session.Organizations.IDs() {
			org := session.Organizations[key]
			resp.Organizations = append(resp.Organizations, organizationResponse{
				ID:         key,
				Name:       org.Name,
				Roles:      org.Roles,
				Attributes: org.Attributes,
			})
		}

		if actor, err := usecase.NewActor(session, selectedOrganization(r)); err == nil {
			resp.SelectedOrganizationID = actor.OrganizationID
			resp.Permissions = actor.Permissions()
		}

		writeJSON(r.Context(), w, http.StatusOK, resp)
	}
}

// writeJSON writes a JSON response with proper error handling
func writeJSON(ctx context.Context, w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = errutil.Handle(ctx, err, "failed to encode JSON response")
	}
}
