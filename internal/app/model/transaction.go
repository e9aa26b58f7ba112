package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Flag tags a risk signal attached to a transaction by the scorer.
type Flag string

const (
	FlagHighValue        Flag = "high_value_transaction"
	FlagSuspiciousIP     Flag = "suspicious_ip"
	FlagHighVelocityIP   Flag = "high_velocity_ip"
	FlagFirstTransaction Flag = "first_transaction"
	FlagUnusualAmount    Flag = "unusual_amount"
	FlagMultipleFailed   Flag = "multiple_failed_attempts"
)

// PaymentTransaction is the durable record of one wallet top-up intent.
// TransactionID is the externally visible idempotency key: generated once at
// initiation and never reused. Status moves pending -> success exactly once,
// only through the settlement conditional update, and never back.
type PaymentTransaction struct {
	ID            uuid.UUID         `json:"-"`
	TransactionID string            `json:"transaction_id"`
	UserID        uuid.UUID         `json:"-"`
	Amount        decimal.Decimal   `json:"amount"`
	PaymentMethod string            `json:"payment_method"`
	Status        TransactionStatus `json:"status"`
	FraudScore    int               `json:"-"`
	RiskLevel     RiskLevel         `json:"-"`
	SecurityFlags []Flag            `json:"-"`
	CreatedAt     time.Time         `json:"created_at"`
	SettledAt     *time.Time        `json:"settled_at,omitempty"`
}
