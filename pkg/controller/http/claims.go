package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/claimsportal/claimgate/pkg/domain/interfaces"
	"github.com/claimsportal/claimgate/pkg/domain/model"
	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/claimsportal/claimgate/pkg/domain/types"
	"github.com/claimsportal/claimgate/pkg/service/claims"
	"github.com/claimsportal/claimgate/pkg/usecase"
	"github.com/claimsportal/claimgate/pkg/utils/errutil"
	"github.com/claimsportal/claimgate/pkg/utils/logging"
	"github.com/claimsportal/claimgate/pkg/utils/safe"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
)

const (
	exportFilename = "claims-export.csv"
	// archiveURLHeader tells the client where a copy of the export was kept
	archiveURLHeader = "X-Export-Archive"
)

// maxRequestBody bounds JSON request bodies
const maxRequestBody = 1 << 20

// actorFromRequest returns the user and the organization the request acts in
func actorFromRequest(r *http.Request) (usecase.Actor, error) {
	return usecase.NewActor(auth.SessionFromContext(r.Context()), selectedOrganization(r))
}

// handleError maps use case and claims API errors to a JSON error response. Statuses of the
// claims API are passed through with its message.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var apiErr *claims.APIError
	status, msg := http.StatusInternalServerError, "Internal server error"
	switch {
	case errors.As(err, &apiErr):
		status, msg = apiErr.StatusCode, apiErr.Message
	case errors.Is(err, claims.ErrUnauthorized):
		status, msg = http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, claims.ErrForbidden), errors.Is(err, usecase.ErrPermissionDenied):
		status, msg = http.StatusForbidden, claims.ForbiddenMessage
	case errors.Is(err, usecase.ErrNoOrganization):
		status, msg = http.StatusForbidden, "You are not a member of any organization"
	case errors.Is(err, usecase.ErrInvalidAction):
		status, msg = http.StatusBadRequest, "Invalid action"
	case errors.Is(err, usecase.ErrInvalidInput):
		status, msg = http.StatusBadRequest, err.Error()
	}

	if status >= http.StatusInternalServerError {
		_ = errutil.Handle(ctx, err, "request failed")
	} else {
		logging.From(ctx).Warn("request rejected", "status", status, "error", err.Error())
	}

	writeJSON(ctx, w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(v); err != nil {
		return goerr.Wrap(usecase.ErrInvalidInput, "malformed JSON body", goerr.V("reason", err.Error()))
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, goerr.Wrap(usecase.ErrInvalidInput, "invalid query parameter", goerr.V(key, raw))
	}
	return v, nil
}

func listClaimsHandler(uc *usecase.ClaimUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		opt := interfaces.ListClaimsOption{Status: types.ClaimStatus(r.URL.Query().Get("status"))}
		if opt.Page, err = queryInt(r, "page"); err != nil {
			handleError(w, r, err)
			return
		}
		if opt.Size, err = queryInt(r, "size"); err != nil {
			handleError(w, r, err)
			return
		}

		list, err := uc.ListClaims(r.Context(), actor, opt)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, list)
	}
}

func createClaimHandler(uc *usecase.ClaimUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		var req model.CreateClaimRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		claim, err := uc.CreateClaim(r.Context(), actor, &req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusCreated, claim)
	}
}

func statsHandler(uc *usecase.ClaimUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		stats, err := uc.Stats(r.Context(), actor)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, stats)
	}
}

func dashboardHandler(uc *usecase.ClaimUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		dashboard, err := uc.Dashboard(r.Context(), actor)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, dashboard)
	}
}

func reviewQueueHandler(uc *usecase.ClaimUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		queue, err := uc.ReviewQueue(r.Context(), actor)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, queue)
	}
}

func exportHandler(uc *usecase.ClaimUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		result, err := uc.Export(r.Context(), actor)
		if err != nil {
			handleError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
		if result.ArchiveURL != "" {
			w.Header().Set(archiveURLHeader, result.ArchiveURL)
		}
		w.WriteHeader(http.StatusOK)
		safe.Write(r.Context(), w, result.Data)
	}
}

func getClaimHandler(uc *usecase.ClaimUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		detail, err := uc.GetClaim(r.Context(), actor, chi.URLParam(r, "claimID"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, detail)
	}
}

func claimActionHandler(uc *usecase.ClaimUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		result, err := uc.PerformAction(r.Context(), actor, chi.URLParam(r, "claimID"), chi.URLParam(r, "action"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, result)
	}
}

func listNotesHandler(uc *usecase.ClaimUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		notes, err := uc.ListNotes(r.Context(), actor, chi.URLParam(r, "claimID"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, notes)
	}
}

func addNoteHandler(uc *usecase.ClaimUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			handleError(w, r, err)
			return
		}

		var req model.CreateNoteRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		note, err := uc.AddNote(r.Context(), actor, chi.URLParam(r, "claimID"), &req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusCreated, note)
	}
}

// scoreHandler evaluates a claim posted by the client. It does not call the claims API.
func scoreHandler(uc *usecase.ClaimUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req usecase.ScoreRequest
		if err := decodeJSON(w, r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		result, err := uc.Score(&req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(r.Context(), w, http.StatusOK, result)
	}
}
