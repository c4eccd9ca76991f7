package usecase

import (
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/model"
	"github.com/claimsportal/claimgate/pkg/domain/types"
)

// ClaimView is a claim annotated with the facts derived at read time
type ClaimView struct {
	*model.Claim
	SLA      model.SLAResult      `json:"sla"`
	Priority model.PriorityResult `json:"priority"`
}

func newClaimView(claim *model.Claim, events []*model.ClaimEvent, now time.Time) *ClaimView {
	return &ClaimView{
		Claim:    claim,
		SLA:      model.ComputeSLA(claim, events, now),
		Priority: model.ComputePriority(claim, now),
	}
}

func newClaimViews(claims []*model.Claim, now time.Time) []*ClaimView {
	views := make([]*ClaimView, 0, len(claims))
	for _, claim := range claims {
		if claim == nil {
			continue
		}
		views = append(views, newClaimView(claim, nil, now))
	}
	return views
}

// ClaimListView is one annotated page of claims
type ClaimListView struct {
	Content       []*ClaimView `json:"content"`
	TotalElements int64        `json:"totalElements"`
	TotalPages    int          `json:"totalPages"`
	Number        int          `json:"number"`
	Size          int          `json:"size"`
}

// ClaimPermissions tells the client which controls to offer in the current organization
type ClaimPermissions struct {
	IsAdmin    bool `json:"isAdmin"`
	CanCreate  bool `json:"canCreate"`
	CanApprove bool `json:"canApprove"`
}

// ClaimDetail is a single claim with its event log and the actions open to the user
type ClaimDetail struct {
	Claim            *ClaimView          `json:"claim"`
	Events           []*model.ClaimEvent `json:"events"`
	AvailableActions []types.ClaimAction `json:"availableActions"`
	Permissions      ClaimPermissions    `json:"permissions"`
}

// Dashboard combines organization KPIs with the SLA alert banner
type Dashboard struct {
	Stats *model.ClaimStats `json:"stats"`
	SLA   model.SLASummary  `json:"sla"`
}

// ActionResult is the outcome of a lifecycle transition. Claim is nil when the claims API
// returned no content.
type ActionResult struct {
	Success bool       `json:"success"`
	Claim   *ClaimView `json:"claim,omitempty"`
}

// ExportResult is a CSV export. ArchiveURL is set when the export was archived.
type ExportResult struct {
	Data       []byte
	ArchiveURL string
}

// ScoreRequest asks for SLA and priority of an arbitrary claim. Now defaults to the
// current time.
type ScoreRequest struct {
	Claim  *model.Claim        `json:"claim"`
	Events []*model.ClaimEvent `json:"events,omitempty"`
	Now    *time.Time          `json:"now,omitempty"`
}

// ScoreResult is the derived facts of a ScoreRequest
type ScoreResult struct {
	SLA       model.SLAResult      `json:"sla"`
	Priority  model.PriorityResult `json:"priority"`
	Evaluated time.Time            `json:"evaluatedAt"`
}
