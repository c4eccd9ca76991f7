package types

import "fmt"

// PriorityLevel is the bucket a claim priority score falls into
type PriorityLevel string

const (
	PriorityLow      PriorityLevel = "LOW"
	PriorityMedium   PriorityLevel = "MEDIUM"
	PriorityHigh     PriorityLevel = "HIGH"
	PriorityCritical PriorityLevel = "CRITICAL"
)

// AllPriorityLevels returns all priority levels from lowest to highest
func AllPriorityLevels() []PriorityLevel {
	return []PriorityLevel{
		PriorityLow,
		PriorityMedium,
		PriorityHigh,
		PriorityCritical,
	}
}

func (p PriorityLevel) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

func (p PriorityLevel) String() string {
	return string(p)
}

// ParsePriorityLevel parses a string into a PriorityLevel
func ParsePriorityLevel(s string) (PriorityLevel, error) {
	p := PriorityLevel(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid priority level: %s", s)
	}
	return p, nil
}
