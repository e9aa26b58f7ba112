package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventBidPlaced      EventKind = "bid_placed"
	EventOutbid         EventKind = "outbid"
	EventPaymentSettled EventKind = "payment_settled"
	EventWalletCredited EventKind = "wallet_credited"
	EventPaymentFlagged EventKind = "payment_flagged"
)

// Event is the closed set of things the system announces. Each kind is a
// concrete struct rather than an open field bag so the fields every kind
// carries are checked at compile time.
type Event interface {
	Kind() EventKind
}

type BidPlacedEvent struct {
	AuctionID    uuid.UUID       `json:"auction_id"`
	BidID        uuid.UUID       `json:"bid_id"`
	BidderID     uuid.UUID       `json:"bidder_id"`
	Amount       decimal.Decimal `json:"amount"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	PlacedAt     time.Time       `json:"placed_at"`
}

func (BidPlacedEvent) Kind() EventKind { return EventBidPlaced }

type OutbidEvent struct {
	AuctionID uuid.UUID       `json:"auction_id"`
	UserID    uuid.UUID       `json:"user_id"`
	NewPrice  decimal.Decimal `json:"new_price"`
}

func (OutbidEvent) Kind() EventKind { return EventOutbid }

type PaymentSettledEvent struct {
	TransactionID string          `json:"transaction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	SettledAt     time.Time       `json:"settled_at"`
}

func (PaymentSettledEvent) Kind() EventKind { return EventPaymentSettled }

type WalletCreditedEvent struct {
	TransactionID string          `json:"transaction_id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
}

func (WalletCreditedEvent) Kind() EventKind { return EventWalletCredited }

type PaymentFlaggedEvent struct {
	TransactionID string    `json:"transaction_id,omitempty"`
	UserID        uuid.UUID `json:"user_id"`
	FraudScore    int       `json:"fraud_score"`
	RiskLevel     RiskLevel `json:"risk_level"`
	Flags         []Flag    `json:"flags"`
}

func (PaymentFlaggedEvent) Kind() EventKind { return EventPaymentFlagged }
