package model

import (
	"slices"

	"github.com/claimsportal/claimgate/pkg/domain/model/auth"
	"github.com/claimsportal/claimgate/pkg/domain/types"
)

type claimActionRule struct {
	action  types.ClaimAction
	from    []types.ClaimStatus
	allowed func(orgs auth.Organizations, orgID string) bool
}

func anyMember(orgs auth.Organizations, orgID string) bool {
	return orgs.IsMember(orgID)
}

// claimActionRules is in workflow order; AvailableActions keeps that order
var claimActionRules = []claimActionRule{
	{
		action:  types.ClaimActionSubmit,
		from:    []types.ClaimStatus{types.ClaimStatusDraft},
		allowed: anyMember,
	},
	{
		action:  types.ClaimActionReview,
		from:    []types.ClaimStatus{types.ClaimStatusSubmitted},
		allowed: auth.Organizations.IsAdmin,
	},
	{
		action:  types.ClaimActionApprove,
		from:    []types.ClaimStatus{types.ClaimStatusUnderReview},
		allowed: auth.Organizations.CanApproveClaim,
	},
	{
		action:  types.ClaimActionDeny,
		from:    []types.ClaimStatus{types.ClaimStatusUnderReview},
		allowed: auth.Organizations.IsAdmin,
	},
	{
		action:  types.ClaimActionClose,
		from:    []types.ClaimStatus{types.ClaimStatusApproved, types.ClaimStatusDenied},
		allowed: auth.Organizations.IsAdmin,
	},
}

func findClaimActionRule(action types.ClaimAction) (claimActionRule, bool) {
	for _, rule := range claimActionRules {
		if rule.action == action {
			return rule, true
		}
	}
	return claimActionRule{}, false
}

// CanPerformAction reports whether the user's roles in orgID allow action, regardless of
// the claim's current status
func CanPerformAction(action types.ClaimAction, orgs auth.Organizations, orgID string) bool {
	rule, ok := findClaimActionRule(action)
	return ok && rule.allowed(orgs, orgID)
}

// AvailableActions lists the actions the user may perform on claim right now
func AvailableActions(claim *Claim, orgs auth.Organizations, orgID string) []types.ClaimAction {
	actions := []types.ClaimAction{}
	if claim == nil {
		return actions
	}

	for _, rule := range claimActionRules {
		if slices.Contains(rule.from, claim.Status) && rule.allowed(orgs, orgID) {
			actions = append(actions, rule.action)
		}
	}
	return actions
}
