package model

import "github.com/m-mizutani/goerr/v2"

// Validation errors
var (
	ErrInvalidTimestamp = goerr.New("invalid timestamp")
	ErrInvalidClaimType = goerr.New("invalid claim type")
	ErrInvalidAmount    = goerr.New("amount must be positive")
	ErrEmptyNote        = goerr.New("note content is required")
)

// Context keys for error values
const (
	TimestampKey = "timestamp"
	ClaimTypeKey = "claim_type"
	AmountKey    = "amount"
)
