package types

import "strings"

// EventType is the kind of an entry in a claim's event log. The claims API may add
// kinds at any time, so unknown values are kept as-is rather than rejected.
type EventType string

const (
	EventTypeCreated   EventType = "CREATED"
	EventTypeUpdated   EventType = "UPDATED"
	EventTypeSubmitted EventType = "SUBMITTED"
	EventTypeReviewed  EventType = "REVIEWED"
	EventTypeApproved  EventType = "APPROVED"
	EventTypeDenied    EventType = "DENIED"
	EventTypeClosed    EventType = "CLOSED"
)

// Normalize upper-cases the event type for comparison
func (e EventType) Normalize() EventType {
	return EventType(strings.ToUpper(strings.TrimSpace(string(e))))
}

func (e EventType) String() string {
	return string(e)
}
