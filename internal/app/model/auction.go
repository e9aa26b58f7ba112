package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AuctionStatus string

const (
	AuctionStatusActive  AuctionStatus = "active"
	AuctionStatusSold    AuctionStatus = "sold"
	AuctionStatusExpired AuctionStatus = "expired"
)

// Auction is a timed listing accepting successive higher bids until EndTime.
// CurrentPrice never decreases: it equals the highest bid amount once any bid
// exists, otherwise StartingPrice. Bids are held newest-first.
type Auction struct {
	ID            uuid.UUID       `json:"id"`
	SellerID      uuid.UUID       `json:"seller_id"`
	Title         string          `json:"title"`
	StartingPrice decimal.Decimal `json:"starting_price"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	EndTime       time.Time       `json:"end_time"`
	Status        AuctionStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	Bids          []Bid           `json:"bids"`
}

// Ended reports whether bidding is closed at the given instant. EndTime is
// authoritative here; Status is advanced by a separate scheduler and may lag.
func (a *Auction) Ended(now time.Time) bool {
	return now.After(a.EndTime)
}

// Bid is created only by the bidding service and immutable afterwards.
type Bid struct {
	ID        uuid.UUID       `json:"id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
