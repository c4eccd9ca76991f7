package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/types"
)

const day = 24 * time.Hour

// slaWarningRatio is the share of the SLA budget below which a claim is at risk
const slaWarningRatio = 0.25

type slaRule struct {
	status      types.ClaimStatus
	target      time.Duration
	description string
	entryEvents []types.EventType
}

// slaRules maps each active status to its dwell-time target. A draft can be edited
// repeatedly, so both CREATED and UPDATED count as entering DRAFT.
var slaRules = []slaRule{
	{
		status:      types.ClaimStatusDraft,
		target:      7 * day,
		description: "Submit within 7 days",
		entryEvents: []types.EventType{types.EventTypeCreated, types.EventTypeUpdated},
	},
	{
		status:      types.ClaimStatusSubmitted,
		target:      48 * time.Hour,
		description: "Begin review within 48h",
		entryEvents: []types.EventType{types.EventTypeSubmitted},
	},
	{
		status:      types.ClaimStatusUnderReview,
		target:      14 * day,
		description: "Decision within 14 days",
		entryEvents: []types.EventType{types.EventTypeReviewed},
	},
}

func findSLARule(status types.ClaimStatus) (slaRule, bool) {
	for _, rule := range slaRules {
		if rule.status == status {
			return rule, true
		}
	}
	return slaRule{}, false
}

func (r slaRule) isEntry(eventType types.EventType) bool {
	normalized := eventType.Normalize()
	for _, e := range r.entryEvents {
		if e == normalized {
			return true
		}
	}
	return false
}

// SLAResult is the SLA evaluation of a claim at a given instant. It is derived on every
// read and never persisted.
type SLAResult struct {
	Status types.SLAStatus
	// Remaining is negative when the claim is overdue
	Remaining  time.Duration
	TargetDate *time.Time
	Label      string
	// RuleDescription describes the target of the current status, empty for terminal statuses
	RuleDescription string
}

func (r SLAResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Status          types.SLAStatus `json:"status"`
		RemainingMs     int64           `json:"remainingMs"`
		TargetDate      *time.Time      `json:"targetDate"`
		Label           string          `json:"label"`
		RuleDescription string          `json:"ruleDescription,omitempty"`
	}{
		Status:          r.Status,
		RemainingMs:     r.Remaining.Milliseconds(),
		TargetDate:      r.TargetDate,
		Label:           r.Label,
		RuleDescription: r.RuleDescription,
	})
}

// ComputeSLA evaluates claim against the target of its current status.
// events is optional; when it contains an entry event for the current status the latest
// one is used as the time the claim entered the status, otherwise claim.UpdatedAt is used.
func ComputeSLA(claim *Claim, events []*ClaimEvent, now time.Time) SLAResult {
	if claim == nil {
		return notApplicableSLA()
	}

	rule, ok := findSLARule(claim.Status)
	if !ok {
		return notApplicableSLA()
	}

	enteredAt := statusEnteredAt(claim, rule, events)
	targetDate := enteredAt.Add(rule.target)
	remaining := targetDate.Sub(now)

	var status types.SLAStatus
	switch {
	case remaining < 0:
		status = types.SLAStatusBreached
	case remaining < time.Duration(float64(rule.target)*slaWarningRatio):
		status = types.SLAStatusWarning
	default:
		status = types.SLAStatusOK
	}

	return SLAResult{
		Status:          status,
		Remaining:       remaining,
		TargetDate:      &targetDate,
		Label:           slaLabel(remaining),
		RuleDescription: rule.description,
	}
}

func notApplicableSLA() SLAResult {
	return SLAResult{
		Status: types.SLAStatusNotApplicable,
		Label:  "Completed",
	}
}

func statusEnteredAt(claim *Claim, rule slaRule, events []*ClaimEvent) time.Time {
	var found *ClaimEvent
	for _, ev := range events {
		if ev == nil || !rule.isEntry(ev.EventType) {
			continue
		}
		// later entries win ties so a log without distinct timestamps behaves like a plain reverse scan
		if found == nil || !ev.Timestamp.Before(found.Timestamp.Time) {
			found = ev
		}
	}

	if found != nil && !found.Timestamp.IsZero() {
		return found.Timestamp.Time
	}
	return claim.UpdatedAt.Time
}

// slaLabel renders remaining time rounded up to the coarsest meaningful unit
func slaLabel(remaining time.Duration) string {
	switch {
	case remaining < 0:
		return fmt.Sprintf("Overdue %d days", ceilUnits(-remaining, day))
	case remaining < time.Hour:
		return fmt.Sprintf("%dm remaining", ceilUnits(remaining, time.Minute))
	case remaining < day:
		return fmt.Sprintf("%dh remaining", ceilUnits(remaining, time.Hour))
	default:
		return fmt.Sprintf("%dd remaining", ceilUnits(remaining, day))
	}
}

func ceilUnits(d, unit time.Duration) int64 {
	return int64((d + unit - 1) / unit)
}

// SLASummary counts active claims that need attention
type SLASummary struct {
	Breached int    `json:"breached"`
	Warning  int    `json:"warning"`
	Message  string `json:"message,omitempty"`
}

// SummarizeSLA evaluates every active claim in claims. Event logs are not consulted, so
// the entry time is each claim's last update.
func SummarizeSLA(claims []*Claim, now time.Time) SLASummary {
	var summary SLASummary
	for _, claim := range claims {
		if claim == nil || !claim.Status.IsActive() {
			continue
		}
		switch ComputeSLA(claim, nil, now).Status {
		case types.SLAStatusBreached:
			summary.Breached++
		case types.SLAStatusWarning:
			summary.Warning++
		}
	}

	switch {
	case summary.Breached > 0 && summary.Warning > 0:
		summary.Message = fmt.Sprintf("%s SLA breached, %s at risk", pluralClaims(summary.Breached), pluralClaims(summary.Warning))
	case summary.Breached > 0:
		summary.Message = pluralClaims(summary.Breached) + " SLA breached"
	case summary.Warning > 0:
		summary.Message = pluralClaims(summary.Warning) + " at risk"
	}
	return summary
}

func pluralClaims(n int) string {
	if n == 1 {
		return "1 claim"
	}
	return fmt.Sprintf("%d claims", n)
}
