//go:generate mockgen -source=./interface.go -destination=./mock/storage.go -package=storagemock
package storage

import (
	"context"
	"time"

	"bidmarket/internal/app/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UserRepository interface {
	// Create a new model.User
	Create(ctx context.Context, m *model.User) (*model.User, error)
	// ReadByNameAndPassword instance of model.User
	ReadByNameAndPassword(ctx context.Context, name string, password string) (*model.User, error)
	// Read instance of model.User
	Read(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type AuctionRepository interface {
	// Create a new model.Auction
	Create(ctx context.Context, m *model.Auction) (*model.Auction, error)
	// Read an auction with its bids, newest bid first
	Read(ctx context.Context, id uuid.UUID) (*model.Auction, error)
	// PlaceBid appends the bid and raises the current price as one atomic
	// operation. The price precondition is re-verified under the row lock so
	// two near-simultaneous bids cannot lose an update; losers get
	// apperr.BidTooLowError with the fresh price.
	PlaceBid(ctx context.Context, auctionID uuid.UUID, bid *model.Bid) (*model.Auction, error)
}

// SettleResult is what the conditional pending->success transition reports.
// Transaction holds the pre-update image when this call won the transition.
type SettleResult struct {
	AlreadyProcessed bool
	Transaction      *model.PaymentTransaction
}

type TransactionRepository interface {
	// Create a new pending model.PaymentTransaction with its risk assessment
	Create(ctx context.Context, m *model.PaymentTransaction) (*model.PaymentTransaction, error)
	// ReadByTransactionID by idempotency key
	ReadByTransactionID(ctx context.Context, transactionID string) (*model.PaymentTransaction, error)
	// Settle flips status pending->success, credits the wallet and records
	// the audit rows inside one database transaction. A transaction no longer
	// pending reports AlreadyProcessed and changes nothing.
	Settle(ctx context.Context, transactionID string) (*SettleResult, error)
	// MarkFailed moves a pending transaction to failed
	MarkFailed(ctx context.Context, transactionID string) error
	// CountRecentByUser counts pending+success transactions inside the window
	CountRecentByUser(ctx context.Context, userID uuid.UUID, window time.Duration) (int, error)
	// HasRecentPendingDuplicate reports a pending transaction for the same
	// user and exact amount inside the window
	HasRecentPendingDuplicate(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, window time.Duration) (bool, error)
	// RecentByUser returns the user's latest transactions, newest first
	RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.PaymentTransaction, error)
	// CountRecentFailed counts failed transactions inside the window
	CountRecentFailed(ctx context.Context, userID uuid.UUID, window time.Duration) (int, error)
}

type AuditRepository interface {
	// Record an audit event for later review
	Record(ctx context.Context, userID uuid.UUID, ev model.Event) error
}
