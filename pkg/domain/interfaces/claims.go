package interfaces

import (
	"context"
	"io"

	"github.com/claimsportal/claimgate/pkg/domain/model"
	"github.com/claimsportal/claimgate/pkg/domain/types"
)

// Caller identifies on whose behalf a claims API request is made
type Caller struct {
	AccessToken    string `masq:"secret"`
	OrganizationID string
}

// ListClaimsOption filters and pages a claim listing
type ListClaimsOption struct {
	Status types.ClaimStatus
	Page   int
	Size   int
}

// ClaimsAPI is the downstream claims service
type ClaimsAPI interface {
	ListClaims(ctx context.Context, caller Caller, opt ListClaimsOption) (*model.ClaimsPage, error)
	GetClaim(ctx context.Context, caller Caller, claimID string) (*model.Claim, error)
	GetClaimEvents(ctx context.Context, caller Caller, claimID string) ([]*model.ClaimEvent, error)
	GetStats(ctx context.Context, caller Caller) (*model.ClaimStats, error)
	CreateClaim(ctx context.Context, caller Caller, req *model.CreateClaimRequest) (*model.Claim, error)
	PerformAction(ctx context.Context, caller Caller, claimID string, action types.ClaimAction) (*model.Claim, error)
	ListNotes(ctx context.Context, caller Caller, claimID string) ([]*model.ClaimNote, error)
	AddNote(ctx context.Context, caller Caller, claimID string, req *model.CreateNoteRequest) (*model.ClaimNote, error)
	// Export returns the CSV export. The caller must close the reader.
	Export(ctx context.Context, caller Caller) (io.ReadCloser, error)
}

// ExportArchive keeps a copy of every claims export
type ExportArchive interface {
	Save(ctx context.Context, organizationID string, data []byte) (string, error)
}
