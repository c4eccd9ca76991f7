package model

import (
	"strings"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Claim is an insurance claim as served by the claims API. This service never mutates
// a claim; it only reads one to derive SLA and priority facts.
type Claim struct {
	ID             string            `json:"id"`
	ClaimNumber    string            `json:"claimNumber"`
	Type           types.ClaimType   `json:"type"`
	Status         types.ClaimStatus `json:"status"`
	Description    string            `json:"description,omitempty"`
	Amount         float64           `json:"amount"`
	IncidentDate   Timestamp         `json:"incidentDate"`
	FiledDate      Timestamp         `json:"filedDate"`
	OrganizationID string            `json:"organizationId"`
	UserID         string            `json:"userId"`
	CreatedAt      Timestamp         `json:"createdAt"`
	UpdatedAt      Timestamp         `json:"updatedAt"`
}

// ClaimEvent is an immutable entry of a claim's append-only event log
type ClaimEvent struct {
	ID          string          `json:"id"`
	ClaimID     string          `json:"claimId"`
	ActorUserID string          `json:"actorUserId"`
	EventType   types.EventType `json:"eventType"`
	Note        string          `json:"note,omitempty"`
	Timestamp   Timestamp       `json:"timestamp"`
}

// ClaimNote is a free text comment attached to a claim
type ClaimNote struct {
	ID                string    `json:"id"`
	ClaimID           string    `json:"claimId"`
	AuthorUserID      string    `json:"authorUserId"`
	AuthorDisplayName string    `json:"authorDisplayName"`
	Content           string    `json:"content"`
	CreatedAt         Timestamp `json:"createdAt"`
}

// ClaimsPage is one page of a claim listing
type ClaimsPage struct {
	Content       []*Claim `json:"content"`
	TotalElements int64    `json:"totalElements"`
	TotalPages    int      `json:"totalPages"`
	Number        int      `json:"number"`
	Size          int      `json:"size"`
}

// ClaimStats are the organization wide KPIs computed by the claims API
type ClaimStats struct {
	TotalClaims      int64            `json:"totalClaims"`
	OpenClaims       int64            `json:"openClaims"`
	ClaimsByStatus   map[string]int64 `json:"claimsByStatus"`
	ClaimsByType     map[string]int64 `json:"claimsByType"`
	ClaimsByPriority map[string]int64 `json:"claimsByPriority"`
	TotalExposure    float64          `json:"totalExposure"`
	ApprovalRate     float64          `json:"approvalRate"`
	ClaimsThisWeek   int64            `json:"claimsThisWeek"`
}

// CreateClaimRequest is the payload to file a new claim
type CreateClaimRequest struct {
	Type         types.ClaimType `json:"type"`
	Description  string          `json:"description"`
	Amount       float64         `json:"amount"`
	IncidentDate string          `json:"incidentDate,omitempty"` // YYYY-MM-DD
}

// Validate checks the fields the claims API would reject anyway, so the user gets the error early
func (r *CreateClaimRequest) Validate() error {
	if !r.Type.IsValid() {
		return goerr.Wrap(ErrInvalidClaimType, "claim type is required", goerr.V(ClaimTypeKey, r.Type))
	}
	if r.Amount <= 0 {
		return goerr.Wrap(ErrInvalidAmount, "invalid claim amount", goerr.V(AmountKey, r.Amount))
	}
	if r.IncidentDate != "" {
		if _, err := time.Parse(time.DateOnly, r.IncidentDate); err != nil {
			return goerr.Wrap(ErrInvalidTimestamp, "incident date must be YYYY-MM-DD", goerr.V(TimestampKey, r.IncidentDate))
		}
	}
	return nil
}

// CreateNoteRequest is the payload to add a note to a claim
type CreateNoteRequest struct {
	Content string `json:"content"`
}

func (r *CreateNoteRequest) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return goerr.Wrap(ErrEmptyNote, "invalid note")
	}
	return nil
}
