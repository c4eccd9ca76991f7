package types

import "fmt"

// ClaimStatus represents the workflow status of a claim.
// Transitions are monotonic: DRAFT → SUBMITTED → UNDER_REVIEW → APPROVED|DENIED → CLOSED.
type ClaimStatus string

const (
	ClaimStatusDraft       ClaimStatus = "DRAFT"
	ClaimStatusSubmitted   ClaimStatus = "SUBMITTED"
	ClaimStatusUnderReview ClaimStatus = "UNDER_REVIEW"
	ClaimStatusApproved    ClaimStatus = "APPROVED"
	ClaimStatusDenied      ClaimStatus = "DENIED"
	ClaimStatusClosed      ClaimStatus = "CLOSED"
)

// AllClaimStatuses returns all valid claim statuses in workflow order
func AllClaimStatuses() []ClaimStatus {
	return []ClaimStatus{
		ClaimStatusDraft,
		ClaimStatusSubmitted,
		ClaimStatusUnderReview,
		ClaimStatusApproved,
		ClaimStatusDenied,
		ClaimStatusClosed,
	}
}

// IsValid checks if the claim status is valid
func (s ClaimStatus) IsValid() bool {
	switch s {
	case ClaimStatusDraft,
		ClaimStatusSubmitted,
		ClaimStatusUnderReview,
		ClaimStatusApproved,
		ClaimStatusDenied,
		ClaimStatusClosed:
		return true
	default:
		return false
	}
}

// IsActive reports whether the claim is still being worked on.
func (s ClaimStatus) IsActive() bool {
	switch s {
	case ClaimStatusDraft, ClaimStatusSubmitted, ClaimStatusUnderReview:
		return true
	default:
		return false
	}
}

// String returns the string representation of the claim status
func (s ClaimStatus) String() string {
	return string(s)
}

// ParseClaimStatus parses a string into a ClaimStatus
func ParseClaimStatus(s string) (ClaimStatus, error) {
	status := ClaimStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid claim status: %s", s)
	}
	return status, nil
}
