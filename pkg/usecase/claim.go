package usecase

import (
	"context"
	"io"
	"sort"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/interfaces"
	"github.com/claimsportal/claimgate/pkg/domain/model"
	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/claimsportal/claimgate/pkg/domain/types"
	"github.com/claimsportal/claimgate/pkg/utils/errutil"
	"github.com/claimsportal/claimgate/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

const (
	// dashboardClaimLimit caps claims per active status inspected for the SLA banner
	dashboardClaimLimit = 100
	reviewQueueLimit    = 50

	// maxExportSize guards memory when buffering an export for archival
	maxExportSize = 64 << 20
)

// Actor is a signed-in user acting in one of their organizations
type Actor struct {
	Session        *auth.Session
	OrganizationID string
}

// NewActor selects the organization to act in. requestedOrgID is honored when the user
// belongs to it, otherwise the first membership is used.
func NewActor(session *auth.Session, requestedOrgID string) (Actor, error) {
	if session == nil {
		return Actor{}, goerr.Wrap(ErrSessionNotFound, "no session")
	}

	orgID, ok := session.Organizations.Resolve(requestedOrgID)
	if !ok {
		return Actor{}, goerr.Wrap(ErrNoOrganization, "cannot act without organization",
			goerr.V("user_id", session.UserID))
	}

	return Actor{Session: session, OrganizationID: orgID}, nil
}

func (a Actor) caller() interfaces.Caller {
	return interfaces.Caller{
		AccessToken:    a.Session.AccessToken,
		OrganizationID: a.OrganizationID,
	}
}

// Permissions tells which claim controls the actor may use
func (a Actor) Permissions() ClaimPermissions {
	orgs := a.Session.Organizations
	return ClaimPermissions{
		IsAdmin:    orgs.IsAdmin(a.OrganizationID),
		CanCreate:  orgs.CanCreateClaim(a.OrganizationID),
		CanApprove: orgs.CanApproveClaim(a.OrganizationID),
	}
}

// ClaimUseCase serves claims from the claims API enriched with SLA and priority
type ClaimUseCase struct {
	api     interfaces.ClaimsAPI
	archive interfaces.ExportArchive
	now     func() time.Time
}

// ClaimOption is a functional option for ClaimUseCase
type ClaimOption func(*ClaimUseCase)

// WithExportArchive keeps a copy of every export
func WithExportArchive(archive interfaces.ExportArchive) ClaimOption {
	return func(uc *ClaimUseCase) {
		uc.archive = archive
	}
}

// WithClaimClock replaces time.Now
func WithClaimClock(now func() time.Time) ClaimOption {
	return func(uc *ClaimUseCase) {
		uc.now = now
	}
}

func NewClaimUseCase(api interfaces.ClaimsAPI, opts ...ClaimOption) *ClaimUseCase {
	uc := &ClaimUseCase{
		api: api,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *ClaimUseCase) ListClaims(ctx context.Context, actor Actor, opt interfaces.ListClaimsOption) (*ClaimListView, error) {
	if opt.Status != "" && !opt.Status.IsValid() {
		return nil, goerr.Wrap(ErrInvalidInput, "unknown claim status", goerr.V("status", opt.Status))
	}

	page, err := uc.api.ListClaims(ctx, actor.caller(), opt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list claims", goerr.V(OrganizationIDKey, actor.OrganizationID))
	}

	return &ClaimListView{
		Content:       newClaimViews(page.Content, uc.now()),
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		Number:        page.Number,
		Size:          page.Size,
	}, nil
}

// GetClaim fetches the claim and its event log concurrently
func (uc *ClaimUseCase) GetClaim(ctx context.Context, actor Actor, claimID string) (*ClaimDetail, error) {
	var (
		claim  *model.Claim
		events []*model.ClaimEvent
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		claim, err = uc.api.GetClaim(egCtx, actor.caller(), claimID)
		return err
	})
	eg.Go(func() error {
		var err error
		events, err = uc.api.GetClaimEvents(egCtx, actor.caller(), claimID)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "failed to get claim", goerr.V(ClaimIDKey, claimID))
	}

	if events == nil {
		events = []*model.ClaimEvent{}
	}

	return &ClaimDetail{
		Claim:            newClaimView(claim, events, uc.now()),
		Events:           events,
		AvailableActions: model.AvailableActions(claim, actor.Session.Organizations, actor.OrganizationID),
		Permissions:      actor.Permissions(),
	}, nil
}

func (uc *ClaimUseCase) Stats(ctx context.Context, actor Actor) (*model.ClaimStats, error) {
	stats, err := uc.api.GetStats(ctx, actor.caller())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get claim stats", goerr.V(OrganizationIDKey, actor.OrganizationID))
	}
	return stats, nil
}

// Dashboard loads the organization stats and counts active claims at risk
func (uc *ClaimUseCase) Dashboard(ctx context.Context, actor Actor) (*Dashboard, error) {
	activeStatuses := []types.ClaimStatus{
		types.ClaimStatusDraft,
		types.ClaimStatusSubmitted,
		types.ClaimStatusUnderReview,
	}

	var stats *model.ClaimStats
	pages := make([]*model.ClaimsPage, len(activeStatuses))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		stats, err = uc.api.GetStats(egCtx, actor.caller())
		return err
	})
	for i, status := range activeStatuses {
		eg.Go(func() error {
			page, err := uc.api.ListClaims(egCtx, actor.caller(), interfaces.ListClaimsOption{
				Status: status,
				Size:   dashboardClaimLimit,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to list active claims", goerr.V("status", status))
			}
			pages[i] = page
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "failed to load dashboard", goerr.V(OrganizationIDKey, actor.OrganizationID))
	}

	var claims []*model.Claim
	for _, page := range pages {
		if page != nil {
			claims = append(claims, page.Content...)
		}
	}

	return &Dashboard{
		Stats: stats,
		SLA:   model.SummarizeSLA(claims, uc.now()),
	}, nil
}

// ReviewQueue lists claims waiting for a reviewer, oldest filing first
func (uc *ClaimUseCase) ReviewQueue(ctx context.Context, actor Actor) ([]*ClaimView, error) {
	statuses := []types.ClaimStatus{types.ClaimStatusSubmitted, types.ClaimStatusUnderReview}
	pages := make([]*model.ClaimsPage, len(statuses))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, status := range statuses {
		eg.Go(func() error {
			page, err := uc.api.ListClaims(egCtx, actor.caller(), interfaces.ListClaimsOption{
				Status: status,
				Size:   reviewQueueLimit,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to list claims", goerr.V("status", status))
			}
			pages[i] = page
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, goerr.Wrap(err, "failed to load review queue", goerr.V(OrganizationIDKey, actor.OrganizationID))
	}

	var claims []*model.Claim
	for _, page := range pages {
		if page != nil {
			claims = append(claims, page.Content...)
		}
	}
	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].FiledDate.Before(claims[j].FiledDate.Time)
	})

	return newClaimViews(claims, uc.now()), nil
}

func (uc *ClaimUseCase) CreateClaim(ctx context.Context, actor Actor, req *model.CreateClaimRequest) (*ClaimView, error) {
	if !actor.Session.Organizations.CanCreateClaim(actor.OrganizationID) {
		return nil, goerr.Wrap(ErrPermissionDenied, "only admins can file claims",
			goerr.V(OrganizationIDKey, actor.OrganizationID))
	}

	if err := req.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidInput, "invalid claim", goerr.V("reason", err.Error()))
	}

	claim, err := uc.api.CreateClaim(ctx, actor.caller(), req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create claim", goerr.V(OrganizationIDKey, actor.OrganizationID))
	}

	logging.From(ctx).Info("claim created",
		"claim_id", claim.ID,
		"organization_id", actor.OrganizationID,
		"user_id", actor.Session.UserID,
	)

	return newClaimView(claim, nil, uc.now()), nil
}

// PerformAction checks the user's roles and forwards the transition. Whether the claim's
// status allows it is decided by the claims API.
func (uc *ClaimUseCase) PerformAction(ctx context.Context, actor Actor, claimID, action string) (*ActionResult, error) {
	claimAction, err := types.ParseClaimAction(action)
	if err != nil {
		return nil, goerr.Wrap(ErrInvalidAction, "unknown action", goerr.V(ActionKey, action))
	}

	if !model.CanPerformAction(claimAction, actor.Session.Organizations, actor.OrganizationID) {
		return nil, goerr.Wrap(ErrPermissionDenied, "role does not allow action",
			goerr.V(ActionKey, claimAction),
			goerr.V(OrganizationIDKey, actor.OrganizationID),
		)
	}

	claim, err := uc.api.PerformAction(ctx, actor.caller(), claimID, claimAction)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to perform claim action",
			goerr.V(ClaimIDKey, claimID),
			goerr.V(ActionKey, claimAction),
		)
	}

	logging.From(ctx).Info("claim action performed",
		"claim_id", claimID,
		"action", claimAction,
		"user_id", actor.Session.UserID,
	)

	result := &ActionResult{Success: true}
	if claim != nil {
		result.Claim = newClaimView(claim, nil, uc.now())
	}
	return result, nil
}

func (uc *ClaimUseCase) ListNotes(ctx context.Context, actor Actor, claimID string) ([]*model.ClaimNote, error) {
	notes, err := uc.api.ListNotes(ctx, actor.caller(), claimID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list notes", goerr.V(ClaimIDKey, claimID))
	}
	if notes == nil {
		notes = []*model.ClaimNote{}
	}
	return notes, nil
}

func (uc *ClaimUseCase) AddNote(ctx context.Context, actor Actor, claimID string, req *model.CreateNoteRequest) (*model.ClaimNote, error) {
	if err := req.Validate(); err != nil {
		return nil, goerr.Wrap(ErrInvalidInput, "invalid note", goerr.V("reason", err.Error()))
	}

	note, err := uc.api.AddNote(ctx, actor.caller(), claimID, req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to add note", goerr.V(ClaimIDKey, claimID))
	}
	return note, nil
}

// Export returns the CSV export. Archival is best effort: a failure is reported but the
// export is still returned.
func (uc *ClaimUseCase) Export(ctx context.Context, actor Actor) (*ExportResult, error) {
	body, err := uc.api.Export(ctx, actor.caller())
	if err != nil {
		return nil, goerr.Wrap(err, "failed to export claims", goerr.V(OrganizationIDKey, actor.OrganizationID))
	}
	defer func() {
		if err := body.Close(); err != nil {
			logging.From(ctx).Warn("failed to close export body", "error", err)
		}
	}()

	data, err := io.ReadAll(io.LimitReader(body, maxExportSize+1))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read export", goerr.V(OrganizationIDKey, actor.OrganizationID))
	}
	if len(data) > maxExportSize {
		return nil, goerr.New("export too large", goerr.V("limit", maxExportSize))
	}

	result := &ExportResult{Data: data}
	if uc.archive != nil {
		url, err := uc.archive.Save(ctx, actor.OrganizationID, data)
		if err != nil {
			_ = errutil.Handle(ctx, err, "failed to archive claims export")
		} else {
			result.ArchiveURL = url
			logging.From(ctx).Info("claims export archived",
				"organization_id", actor.OrganizationID,
				"url", url,
				"size", len(data),
			)
		}
	}

	return result, nil
}

// Score evaluates an arbitrary claim without calling the claims API
func (uc *ClaimUseCase) Score(req *ScoreRequest) (*ScoreResult, error) {
	return Score(req, uc.now())
}

// Score evaluates req at req.Now, or at now when req.Now is unset
func Score(req *ScoreRequest, now time.Time) (*ScoreResult, error) {
	if req == nil || req.Claim == nil {
		return nil, goerr.Wrap(ErrInvalidInput, "claim is required")
	}
	if req.Claim.Status != "" && !req.Claim.Status.IsValid() {
		return nil, goerr.Wrap(ErrInvalidInput, "unknown claim status", goerr.V("status", req.Claim.Status))
	}

	at := now
	if req.Now != nil && !req.Now.IsZero() {
		at = *req.Now
	}

	return &ScoreResult{
		SLA:       model.ComputeSLA(req.Claim, req.Events, at),
		Priority:  model.ComputePriority(req.Claim, at),
		Evaluated: at,
	}, nil
}
