package types

import "fmt"

// ClaimType represents the line of business of a claim
type ClaimType string

const (
	ClaimTypeAuto      ClaimType = "AUTO"
	ClaimTypeProperty  ClaimType = "PROPERTY"
	ClaimTypeLiability ClaimType = "LIABILITY"
	ClaimTypeHealth    ClaimType = "HEALTH"
)

// AllClaimTypes returns all valid claim types
func AllClaimTypes() []ClaimType {
	return []ClaimType{
		ClaimTypeAuto,
		ClaimTypeProperty,
		ClaimTypeLiability,
		ClaimTypeHealth,
	}
}

// IsValid checks if the claim type is valid
func (t ClaimType) IsValid() bool {
	switch t {
	case ClaimTypeAuto, ClaimTypeProperty, ClaimTypeLiability, ClaimTypeHealth:
		return true
	default:
		return false
	}
}

func (t ClaimType) String() string {
	return string(t)
}

// ParseClaimType parses a string into a ClaimType
func ParseClaimType(s string) (ClaimType, error) {
	t := ClaimType(s)
	if !t.IsValid() {
		return "", fmt.Errorf("invalid claim type: %s", s)
	}
	return t, nil
}
