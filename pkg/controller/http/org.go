package http

import (
	"encoding/json"
	"net/http"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
)

// selectedOrgMaxAge keeps the organization choice for a year
const selectedOrgMaxAge = 365 * 24 * 60 * 60

type orgSelectRequest struct {
	OrganizationID string `json:"organizationId"`
}

type orgSelectResponse struct {
	Success        bool   `json:"success"`
	OrganizationID string `json:"organizationId"`
}

// selectedOrganization returns the organization chosen in the org switcher. Membership is
// checked by the caller.
func selectedOrganization(r *http.Request) string {
	if c, err := r.Cookie(selectedOrgCookie); err == nil {
		return c.Value
	}
	return ""
}

// orgSelectHandler switches the organization subsequent requests act in
func orgSelectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := auth.SessionFromContext(r.Context())

		var req orgSelectRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrganizationID == "" {
			writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{Error: "organizationId is required"})
			return
		}

		if session == nil || !session.Organizations.IsMember(req.OrganizationID) {
			writeJSON(r.Context(), w, http.StatusForbidden, errorResponse{Error: "not a member of the organization"})
			return
		}

		// The frontend reads the cookie to render the org switcher, so it is not HttpOnly
		http.SetCookie(w, &http.Cookie{
			Name:     selectedOrgCookie,
			Value:    req.OrganizationID,
			Path:     "/",
			MaxAge:   selectedOrgMaxAge,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(r.Context(), w, http.StatusOK, orgSelectResponse{Success: true, OrganizationID: req.OrganizationID})
	}
}
