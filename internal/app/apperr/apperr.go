package apperr

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across layers
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrSoftConflict = errors.New("already exists")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Bidding state conflicts
var (
	ErrAuctionEnded = errors.New("auction has ended")
	ErrSelfBid      = errors.New("cannot bid on own item")
	ErrBidTooLow    = errors.New("bid too low")
)

// BidTooLowError carries the authoritative current price so the client can
// retry with a higher amount.
type BidTooLowError struct {
	CurrentPrice decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("Bid must be higher than current price: $%s", e.CurrentPrice.String())
}

func (e *BidTooLowError) Is(target error) bool {
	return target == ErrBidTooLow
}

// ErrPolicyDenied marks payment attempts blocked by policy (fraud tier,
// velocity, duplicate submission).
var ErrPolicyDenied = errors.New("policy denied")

// PolicyDeniedError separates what the caller sees from what gets logged.
// PublicMsg is intentionally generic; Reason holds the full detail for the
// audit trail and must never reach the response body.
type PolicyDeniedError struct {
	PublicMsg string
	Reason    string
}

func (e *PolicyDeniedError) Error() string {
	return e.PublicMsg
}

func (e *PolicyDeniedError) Is(target error) bool {
	return target == ErrPolicyDenied
}

// ErrUncredited is fatal: a transaction was marked successful but the wallet
// credit did not apply. Retrying settle would see status=success and mask the
// missed credit, so this must alert instead.
var ErrUncredited = errors.New("transaction settled but wallet not credited")
