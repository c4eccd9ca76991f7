package usecase_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/interfaces"
	"github.com/claimsportal/claimgate/pkg/domain/model"
	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/claimsportal/claimgate/pkg/domain/types"
	"github.com/claimsportal/claimgate/pkg/usecase"
	"github.com/m-mizutani/gt"
)

// mockClaimsAPI is a mock implementation of interfaces.ClaimsAPI for testing
type mockClaimsAPI struct {
	mu      sync.Mutex
	callers []interfaces.Caller
	listed  []interfaces.ListClaimsOption

	claims    map[string]*model.Claim
	events    map[string][]*model.ClaimEvent
	stats     *model.ClaimStats
	notes     []*model.ClaimNote
	exportCSV string
	err       error

	actionClaim *model.Claim
	actions     []types.ClaimAction
	created     *model.CreateClaimRequest
}

func (m *mockClaimsAPI) record(caller interfaces.Caller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callers = append(m.callers, caller)
}

func (m *mockClaimsAPI) ListClaims(ctx context.Context, caller interfaces.Caller, opt interfaces.ListClaimsOption) (*model.ClaimsPage, error) {
	m.record(caller)
	m.mu.Lock()
	m.listed = append(m.listed, opt)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}

	page := &model.ClaimsPage{Size: opt.Size}
	for _, claim := range m.claims {
		if opt.Status == "" || claim.Status == opt.Status {
			page.Content = append(page.Content, claim)
		}
	}
	page.TotalElements = int64(len(page.Content))
	return page, nil
}

func (m *mockClaimsAPI) GetClaim(ctx context.Context, caller interfaces.Caller, claimID string) (*model.Claim, error) {
	m.record(caller)
	if m.err != nil {
		return nil, m.err
	}
	claim, ok := m.claims[claimID]
	if !ok {
		return nil, errors.New("claim not found")
	}
	return claim, nil
}

func (m *mockClaimsAPI) GetClaimEvents(ctx context.Context, caller interfaces.Caller, claimID string) ([]*model.ClaimEvent, error) {
	m.record(caller)
	if m.err != nil {
		return nil, m.err
	}
	return m.events[claimID], nil
}

func (m *mockClaimsAPI) GetStats(ctx context.Context, caller interfaces.Caller) (*model.ClaimStats, error) {
	m.record(caller)
	if m.err != nil {
		return nil, m.err
	}
	return m.stats, nil
}

func (m *mockClaimsAPI) CreateClaim(ctx context.Context, caller interfaces.Caller, req *model.CreateClaimRequest) (*model.Claim, error) {
	m.record(caller)
	m.created = req
	return &model.Claim{ID: "new", Type: req.Type, Status: types.ClaimStatusDraft, Amount: req.Amount}, nil
}

func (m *mockClaimsAPI) PerformAction(ctx context.Context, caller interfaces.Caller, claimID string, action types.ClaimAction) (*model.Claim, error) {
	m.record(caller)
	m.actions = append(m.actions, action)
	if m.err != nil {
		return nil, m.err
	}
	return m.actionClaim, nil
}

func (m *mockClaimsAPI) ListNotes(ctx context.Context, caller interfaces.Caller, claimID string) ([]*model.ClaimNote, error) {
	m.record(caller)
	return m.notes, nil
}

func (m *mockClaimsAPI) AddNote(ctx context.Context, caller interfaces.Caller, claimID string, req *model.CreateNoteRequest) (*model.ClaimNote, error) {
	m.record(caller)
	return &model.ClaimNote{ID: "n1", ClaimID: claimID, Content: req.Content}, nil
}

func (m *mockClaimsAPI) Export(ctx context.Context, caller interfaces.Caller) (io.ReadCloser, error) {
	m.record(caller)
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(strings.NewReader(m.exportCSV)), nil
}

// mockArchive is a mock implementation of interfaces.ExportArchive for testing
type mockArchive struct {
	saved map[string][]byte
	err   error
}

func (m *mockArchive) Save(ctx context.Context, organizationID string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.saved == nil {
		m.saved = map[string][]byte{}
	}
	m.saved[organizationID] = data
	return "gs://bucket/" + organizationID + "/export.csv", nil
}

func ts(t time.Time) model.Timestamp {
	return model.NewTimestamp(t)
}

func newActor(t *testing.T, roles ...string) usecase.Actor {
	t.Helper()

	session := auth.NewSession(
		&auth.Identity{
			Sub:   "kc-sub-1",
			Email: "alice@example.com",
			Organizations: auth.Organizations{
				"acme":   {ID: "acme", Roles: roles},
				"globex": {ID: "globex", Roles: []string{auth.RoleViewer}},
			},
		},
		&auth.TokenSet{AccessToken: "access-1", ExpiresIn: time.Hour},
		testNow,
	)
	actor, err := usecase.NewActor(session, "acme")
	gt.NoError(t, err).Required()
	return actor
}

func TestNewActor(t *testing.T) {
	session := auth.NewSession(
		&auth.Identity{
			Sub: "kc-sub-1",
			Organizations: auth.Organizations{
				"beta":  {ID: "beta"},
				"alpha": {ID: "alpha"},
			},
		},
		&auth.TokenSet{AccessToken: "access-1", ExpiresIn: time.Hour},
		testNow,
	)

	t.Run("requested membership", func(t *testing.T) {
		actor, err := usecase.NewActor(session, "beta")
		gt.NoError(t, err).Required()
		gt.Value(t, actor.OrganizationID).Equal("beta")
	})

	t.Run("falls back to first organization", func(t *testing.T) {
		actor, err := usecase.NewActor(session, "not-mine")
		gt.NoError(t, err).Required()
		gt.Value(t, actor.OrganizationID).Equal("alpha")

		actor, err = usecase.NewActor(session, "")
		gt.NoError(t, err).Required()
		gt.Value(t, actor.OrganizationID).Equal("alpha")
	})

	t.Run("no organization", func(t *testing.T) {
		lonely := *session
		lonely.Organizations = nil
		_, err := usecase.NewActor(&lonely, "")
		gt.Bool(t, errors.Is(err, usecase.ErrNoOrganization)).True()
	})

	t.Run("no session", func(t *testing.T) {
		_, err := usecase.NewActor(nil, "")
		gt.Error(t, err)
	})
}

func TestClaimUseCase_ListClaims(t *testing.T) {
	api := &mockClaimsAPI{
		claims: map[string]*model.Claim{
			"c1": {
				ID:        "c1",
				Type:      types.ClaimTypeLiability,
				Status:    types.ClaimStatusSubmitted,
				Amount:    150000,
				FiledDate: ts(testNow.Add(-31 * 24 * time.Hour)),
				UpdatedAt: ts(testNow.Add(-50 * time.Hour)),
			},
		},
	}
	uc := usecase.NewClaimUseCase(api, usecase.WithClaimClock(fixedClock))
	actor := newActor(t, auth.RoleAdmin)

	list, err := uc.ListClaims(context.Background(), actor, interfaces.ListClaimsOption{Status: types.ClaimStatusSubmitted, Size: 20})
	gt.NoError(t, err).Required()
	gt.Array(t, list.Content).Length(1).Required()

	view := list.Content[0]
	gt.Value(t, view.SLA.Status).Equal(types.SLAStatusBreached)
	gt.Value(t, view.SLA.Label).Equal("Overdue 1 days")
	// 40 amount + 20 liability + 20 age + 10 status
	gt.Value(t, view.Priority.Score).Equal(90)
	gt.Value(t, view.Priority.Level).Equal(types.PriorityCritical)

	gt.Array(t, api.callers).Length(1).Required()
	gt.Value(t, api.callers[0]).Equal(interfaces.Caller{AccessToken: "access-1", OrganizationID: "acme"})

	t.Run("unknown status filter", func(t *testing.T) {
		_, err := uc.ListClaims(context.Background(), actor, interfaces.ListClaimsOption{Status: "PENDING"})
		gt.Bool(t, errors.Is(err, usecase.ErrInvalidInput)).True()
	})
}

func TestClaimUseCase_GetClaim(t *testing.T) {
	api := &mockClaimsAPI{
		claims: map[string]*model.Claim{
			"c1": {
				ID:        "c1",
				Status:    types.ClaimStatusUnderReview,
				UpdatedAt: ts(testNow.Add(-20 * 24 * time.Hour)),
			},
		},
		events: map[string][]*model.ClaimEvent{
			"c1": {
				{ID: "e1", EventType: types.EventTypeCreated, Timestamp: ts(testNow.Add(-20 * 24 * time.Hour))},
				{ID: "e2", EventType: types.EventTypeReviewed, Timestamp: ts(testNow.Add(-2 * 24 * time.Hour))},
			},
		},
	}
	uc := usecase.NewClaimUseCase(api, usecase.WithClaimClock(fixedClock))

	t.Run("events drive SLA and actions follow roles", func(t *testing.T) {
		detail, err := uc.GetClaim(context.Background(), newActor(t, auth.RoleBilling), "c1")
		gt.NoError(t, err).Required()

		gt.Value(t, detail.Claim.SLA.Status).Equal(types.SLAStatusOK)
		gt.Value(t, detail.Claim.SLA.Label).Equal("12d remaining")
		gt.Array(t, detail.Events).Length(2)
		gt.Value(t, detail.AvailableActions).Equal([]types.ClaimAction{types.ClaimActionApprove})
		gt.Value(t, detail.Permissions).Equal(usecase.ClaimPermissions{CanApprove: true})
	})

	t.Run("missing claim", func(t *testing.T) {
		_, err := uc.GetClaim(context.Background(), newActor(t, auth.RoleAdmin), "nope")
		gt.Error(t, err)
	})
}

func TestClaimUseCase_Dashboard(t *testing.T) {
	api := &mockClaimsAPI{
		claims: map[string]*model.Claim{
			"breached": {ID: "breached", Status: types.ClaimStatusSubmitted, UpdatedAt: ts(testNow.Add(-72 * time.Hour))},
			"warning":  {ID: "warning", Status: types.ClaimStatusSubmitted, UpdatedAt: ts(testNow.Add(-40 * time.Hour))},
			"ok":       {ID: "ok", Status: types.ClaimStatusDraft, UpdatedAt: ts(testNow)},
			"closed":   {ID: "closed", Status: types.ClaimStatusClosed, UpdatedAt: ts(testNow.Add(-900 * time.Hour))},
		},
		stats: &model.ClaimStats{TotalClaims: 4, OpenClaims: 3},
	}
	uc := usecase.NewClaimUseCase(api, usecase.WithClaimClock(fixedClock))

	dashboard, err := uc.Dashboard(context.Background(), newActor(t, auth.RoleViewer))
	gt.NoError(t, err).Required()

	gt.Value(t, dashboard.Stats.TotalClaims).Equal(int64(4))
	gt.Value(t, dashboard.SLA.Breached).Equal(1)
	gt.Value(t, dashboard.SLA.Warning).Equal(1)
	gt.Value(t, dashboard.SLA.Message).Equal("1 claim SLA breached, 1 claim at risk")

	// Only active statuses are listed
	gt.Array(t, api.listed).Length(3)
	for _, opt := range api.listed {
		gt.Bool(t, opt.Status.IsActive()).Describef("status %s should be active", opt.Status).True()
	}

	t.Run("API failure", func(t *testing.T) {
		failing := usecase.NewClaimUseCase(&mockClaimsAPI{err: errors.New("down")})
		_, err := failing.Dashboard(context.Background(), newActor(t, auth.RoleViewer))
		gt.Error(t, err)
	})
}

func TestClaimUseCase_ReviewQueue(t *testing.T) {
	api := &mockClaimsAPI{
		claims: map[string]*model.Claim{
			"newer":  {ID: "newer", Status: types.ClaimStatusSubmitted, FiledDate: ts(testNow.Add(-24 * time.Hour))},
			"oldest": {ID: "oldest", Status: types.ClaimStatusUnderReview, FiledDate: ts(testNow.Add(-10 * 24 * time.Hour))},
			"middle": {ID: "middle", Status: types.ClaimStatusSubmitted, FiledDate: ts(testNow.Add(-5 * 24 * time.Hour))},
			"draft":  {ID: "draft", Status: types.ClaimStatusDraft, FiledDate: ts(testNow.Add(-30 * 24 * time.Hour))},
		},
	}
	uc := usecase.NewClaimUseCase(api, usecase.WithClaimClock(fixedClock))

	queue, err := uc.ReviewQueue(context.Background(), newActor(t, auth.RoleAdmin))
	gt.NoError(t, err).Required()
	gt.Array(t, queue).Length(3).Required()
	gt.Value(t, queue[0].ID).Equal("oldest")
	gt.Value(t, queue[1].ID).Equal("middle")
	gt.Value(t, queue[2].ID).Equal("newer")
}

func TestClaimUseCase_CreateClaim(t *testing.T) {
	req := &model.CreateClaimRequest{
		Type:         types.ClaimTypeAuto,
		Description:  "Rear-ended at a light",
		Amount:       2500,
		IncidentDate: "2026-03-10",
	}

	t.Run("admin can create", func(t *testing.T) {
		api := &mockClaimsAPI{}
		uc := usecase.NewClaimUseCase(api, usecase.WithClaimClock(fixedClock))

		view, err := uc.CreateClaim(context.Background(), newActor(t, auth.RoleAdmin), req)
		gt.NoError(t, err).Required()
		gt.Value(t, view.Status).Equal(types.ClaimStatusDraft)
		gt.Value(t, api.created).Equal(req)
	})

	t.Run("billing cannot create", func(t *testing.T) {
		api := &mockClaimsAPI{}
		uc := usecase.NewClaimUseCase(api)

		_, err := uc.CreateClaim(context.Background(), newActor(t, auth.RoleBilling), req)
		gt.Bool(t, errors.Is(err, usecase.ErrPermissionDenied)).True()
		gt.Value(t, api.created).Nil()
	})

	t.Run("invalid amount", func(t *testing.T) {
		api := &mockClaimsAPI{}
		uc := usecase.NewClaimUseCase(api)

		bad := *req
		bad.Amount = 0
		_, err := uc.CreateClaim(context.Background(), newActor(t, auth.RoleAdmin), &bad)
		gt.Bool(t, errors.Is(err, usecase.ErrInvalidInput)).True()
		gt.Value(t, api.created).Nil()
	})
}

func TestClaimUseCase_PerformAction(t *testing.T) {
	t.Run("permitted action is forwarded", func(t *testing.T) {
		api := &mockClaimsAPI{actionClaim: &model.Claim{ID: "c1", Status: types.ClaimStatusApproved}}
		uc := usecase.NewClaimUseCase(api, usecase.WithClaimClock(fixedClock))

		result, err := uc.PerformAction(context.Background(), newActor(t, auth.RoleBilling), "c1", "approve")
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Success).True()
		gt.Value(t, result.Claim.Status).Equal(types.ClaimStatusApproved)
		gt.Value(t, result.Claim.SLA.Status).Equal(types.SLAStatusNotApplicable)
		gt.Value(t, api.actions).Equal([]types.ClaimAction{types.ClaimActionApprove})
	})

	t.Run("no content", func(t *testing.T) {
		api := &mockClaimsAPI{}
		uc := usecase.NewClaimUseCase(api)

		result, err := uc.PerformAction(context.Background(), newActor(t, auth.RoleAdmin), "c1", "close")
		gt.NoError(t, err).Required()
		gt.Bool(t, result.Success).True()
		gt.Value(t, result.Claim).Nil()
	})

	t.Run("unknown action", func(t *testing.T) {
		api := &mockClaimsAPI{}
		uc := usecase.NewClaimUseCase(api)

		_, err := uc.PerformAction(context.Background(), newActor(t, auth.RoleAdmin), "c1", "archive")
		gt.Bool(t, errors.Is(err, usecase.ErrInvalidAction)).True()
		gt.Array(t, api.actions).Length(0)
	})

	t.Run("role not allowed", func(t *testing.T) {
		api := &mockClaimsAPI{}
		uc := usecase.NewClaimUseCase(api)

		_, err := uc.PerformAction(context.Background(), newActor(t, auth.RoleBilling), "c1", "deny")
		gt.Bool(t, errors.Is(err, usecase.ErrPermissionDenied)).True()
		gt.Array(t, api.actions).Length(0)
	})
}

func TestClaimUseCase_Notes(t *testing.T) {
	api := &mockClaimsAPI{notes: nil}
	uc := usecase.NewClaimUseCase(api)
	actor := newActor(t, auth.RoleViewer)

	notes, err := uc.ListNotes(context.Background(), actor, "c1")
	gt.NoError(t, err).Required()
	gt.Bool(t, notes != nil).True()
	gt.Array(t, notes).Length(0)

	note, err := uc.AddNote(context.Background(), actor, "c1", &model.CreateNoteRequest{Content: "called the garage"})
	gt.NoError(t, err).Required()
	gt.Value(t, note.Content).Equal("called the garage")

	_, err = uc.AddNote(context.Background(), actor, "c1", &model.CreateNoteRequest{Content: "   "})
	gt.Bool(t, errors.Is(err, usecase.ErrInvalidInput)).True()
}

func TestClaimUseCase_Export(t *testing.T) {
	const csv = "id,status\nc1,DRAFT\n"

	t.Run("without archive", func(t *testing.T) {
		uc := usecase.NewClaimUseCase(&mockClaimsAPI{exportCSV: csv})

		result, err := uc.Export(context.Background(), newActor(t, auth.RoleAdmin))
		gt.NoError(t, err).Required()
		gt.Value(t, string(result.Data)).Equal(csv)
		gt.Value(t, result.ArchiveURL).Equal("")
	})

	t.Run("archived", func(t *testing.T) {
		archive := &mockArchive{}
		uc := usecase.NewClaimUseCase(&mockClaimsAPI{exportCSV: csv}, usecase.WithExportArchive(archive))

		result, err := uc.Export(context.Background(), newActor(t, auth.RoleAdmin))
		gt.NoError(t, err).Required()
		gt.Value(t, result.ArchiveURL).Equal("gs://bucket/acme/export.csv")
		gt.Value(t, string(archive.saved["acme"])).Equal(csv)
	})

	t.Run("archive failure does not fail the export", func(t *testing.T) {
		archive := &mockArchive{err: errors.New("bucket not found")}
		uc := usecase.NewClaimUseCase(&mockClaimsAPI{exportCSV: csv}, usecase.WithExportArchive(archive))

		result, err := uc.Export(context.Background(), newActor(t, auth.RoleAdmin))
		gt.NoError(t, err).Required()
		gt.Value(t, string(result.Data)).Equal(csv)
		gt.Value(t, result.ArchiveURL).Equal("")
	})
}

func TestScore(t *testing.T) {
	claim := &model.Claim{
		ID:        "c1",
		Type:      types.ClaimTypeProperty,
		Status:    types.ClaimStatusDraft,
		Amount:    50000,
		FiledDate: ts(testNow.Add(-8 * 24 * time.Hour)),
		UpdatedAt: ts(testNow.Add(-6 * 24 * time.Hour)),
	}

	t.Run("uses clock when now is unset", func(t *testing.T) {
		uc := usecase.NewClaimUseCase(&mockClaimsAPI{}, usecase.WithClaimClock(fixedClock))

		result, err := uc.Score(&usecase.ScoreRequest{Claim: claim})
		gt.NoError(t, err).Required()
		gt.Value(t, result.Evaluated).Equal(testNow)
		gt.Value(t, result.SLA.Status).Equal(types.SLAStatusWarning)
		gt.Value(t, result.SLA.Label).Equal("1d remaining")
		// 30 amount + 15 property + 5 age
		gt.Value(t, result.Priority.Score).Equal(50)
		gt.Value(t, result.Priority.Level).Equal(types.PriorityHigh)
	})

	t.Run("explicit now", func(t *testing.T) {
		at := testNow.Add(2 * 24 * time.Hour)
		result, err := usecase.Score(&usecase.ScoreRequest{Claim: claim, Now: &at}, testNow)
		gt.NoError(t, err).Required()
		gt.Value(t, result.SLA.Status).Equal(types.SLAStatusBreached)
		gt.Value(t, result.Evaluated).Equal(at)
	})

	t.Run("claim is required", func(t *testing.T) {
		_, err := usecase.Score(&usecase.ScoreRequest{}, testNow)
		gt.Bool(t, errors.Is(err, usecase.ErrInvalidInput)).True()
	})
}

func TestClaimUseCase_Stats(t *testing.T) {
	api := &mockClaimsAPI{stats: &model.ClaimStats{TotalClaims: 12, ApprovalRate: 0.5}}
	uc := usecase.NewClaimUseCase(api)

	stats, err := uc.Stats(context.Background(), newActor(t, auth.RoleViewer))
	gt.NoError(t, err).Required()
	gt.Value(t, stats.TotalClaims).Equal(int64(12))
	gt.Value(t, api.callers[0].OrganizationID).Equal("acme")
}
