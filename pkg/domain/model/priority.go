package model

import (
	"math"
	"time"

	"github.com/claimsportal/claimgate/pkg/domain/types"
)

type amountBand struct {
	min    float64
	points int
}

// amountBands are evaluated highest first; the first match wins
var amountBands = []amountBand{
	{min: 100000, points: 40},
	{min: 50000, points: 30},
	{min: 10000, points: 20},
	{min: 1000, points: 10},
}

var typeWeights = map[types.ClaimType]int{
	types.ClaimTypeLiability: 20,
	types.ClaimTypeProperty:  15,
	types.ClaimTypeHealth:    10,
	types.ClaimTypeAuto:      5,
}

type ageBand struct {
	olderThanDays int
	points        int
}

// ageBands are evaluated oldest first; the first match wins
var ageBands = []ageBand{
	{olderThanDays: 30, points: 20},
	{olderThanDays: 14, points: 10},
	{olderThanDays: 7, points: 5},
}

var statusBoosts = map[types.ClaimStatus]int{
	types.ClaimStatusSubmitted:   10,
	types.ClaimStatusUnderReview: 10,
}

type priorityBucket struct {
	minScore int
	level    types.PriorityLevel
}

var priorityBuckets = []priorityBucket{
	{minScore: 70, level: types.PriorityCritical},
	{minScore: 50, level: types.PriorityHigh},
	{minScore: 30, level: types.PriorityMedium},
}

// PriorityBreakdown holds the additive contributions to a priority score
type PriorityBreakdown struct {
	Amount int `json:"amount"`
	Type   int `json:"type"`
	Age    int `json:"age"`
	Status int `json:"status"`
}

// PriorityResult is the urgency of a claim at a given instant. It is derived on every read
// and never persisted.
type PriorityResult struct {
	Score     int                 `json:"score"`
	Level     types.PriorityLevel `json:"priority"`
	Breakdown PriorityBreakdown   `json:"breakdown"`
}

// ComputePriority scores claim as the sum of amount, type, age and status contributions.
// A missing filed date contributes nothing to the age band.
func ComputePriority(claim *Claim, now time.Time) PriorityResult {
	if claim == nil {
		return PriorityResult{Level: types.PriorityLow}
	}

	breakdown := PriorityBreakdown{
		Amount: amountPoints(claim.Amount),
		Type:   typeWeights[claim.Type],
		Age:    agePoints(claim.FiledDate, now),
		Status: statusBoosts[claim.Status],
	}
	score := breakdown.Amount + breakdown.Type + breakdown.Age + breakdown.Status

	return PriorityResult{
		Score:     score,
		Level:     priorityLevel(score),
		Breakdown: breakdown,
	}
}

func amountPoints(amount float64) int {
	for _, band := range amountBands {
		if amount >= band.min {
			return band.points
		}
	}
	return 0
}

func agePoints(filed Timestamp, now time.Time) int {
	if filed.IsZero() {
		return 0
	}

	days := int(math.Floor(now.Sub(filed.Time).Hours() / 24))
	for _, band := range ageBands {
		if days > band.olderThanDays {
			return band.points
		}
	}
	return 0
}

func priorityLevel(score int) types.PriorityLevel {
	for _, bucket := range priorityBuckets {
		if score >= bucket.minScore {
			return bucket.level
		}
	}
	return types.PriorityLow
}
