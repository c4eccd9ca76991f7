package types

// SLAStatus is the classification of a claim against its SLA target
type SLAStatus string

const (
	SLAStatusOK            SLAStatus = "OK"
	SLAStatusWarning       SLAStatus = "WARNING"
	SLAStatusBreached      SLAStatus = "BREACHED"
	SLAStatusNotApplicable SLAStatus = "NOT_APPLICABLE"
)

// AllSLAStatuses returns all SLA statuses
func AllSLAStatuses() []SLAStatus {
	return []SLAStatus{
		SLAStatusOK,
		SLAStatusWarning,
		SLAStatusBreached,
		SLAStatusNotApplicable,
	}
}

func (s SLAStatus) IsValid() bool {
	switch s {
	case SLAStatusOK, SLAStatusWarning, SLAStatusBreached, SLAStatusNotApplicable:
		return true
	default:
		return false
	}
}

func (s SLAStatus) String() string {
	return string(s)
}
