package types

import "fmt"

// ClaimAction is a workflow transition requested on a claim
type ClaimAction string

const (
	ClaimActionSubmit  ClaimAction = "submit"
	ClaimActionReview  ClaimAction = "review"
	ClaimActionApprove ClaimAction = "approve"
	ClaimActionDeny    ClaimAction = "deny"
	ClaimActionClose   ClaimAction = "close"
)

// AllClaimActions returns all claim actions in workflow order
func AllClaimActions() []ClaimAction {
	return []ClaimAction{
		ClaimActionSubmit,
		ClaimActionReview,
		ClaimActionApprove,
		ClaimActionDeny,
		ClaimActionClose,
	}
}

func (a ClaimAction) IsValid() bool {
	switch a {
	case ClaimActionSubmit, ClaimActionReview, ClaimActionApprove, ClaimActionDeny, ClaimActionClose:
		return true
	default:
		return false
	}
}

func (a ClaimAction) String() string {
	return string(a)
}

// ParseClaimAction parses a string into a ClaimAction
func ParseClaimAction(s string) (ClaimAction, error) {
	a := ClaimAction(s)
	if !a.IsValid() {
		return "", fmt.Errorf("invalid claim action: %s", s)
	}
	return a, nil
}
