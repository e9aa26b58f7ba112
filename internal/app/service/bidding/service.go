package bidding

import (
	"context"
	"fmt"
	"time"

	"bidmarket/internal/app/apperr"
	"bidmarket/internal/app/logger"
	"bidmarket/internal/app/model"
	"bidmarket/internal/app/notify"
	"bidmarket/internal/app/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is the auction bidding state machine.
type Service struct {
	auctions  storage.AuctionRepository
	publisher notify.Publisher
}

func (s *Service) LoggerComponent() string {
	return "Bidding.Service"
}

func New(auctions storage.AuctionRepository, publisher notify.Publisher) *Service {
	return &Service{
		auctions:  auctions,
		publisher: publisher,
	}
}

// PlaceBid validates the bid against the auction's current state and applies
// it. Preconditions run in a fixed order and the first failure wins: the
// auction must exist, the bidder must not be the seller, bidding must still
// be open, and the amount must beat the current price. The apply itself is a
// single atomic repository operation, so the price check cannot be raced.
// Nothing is persisted when any precondition fails.
func (s *Service) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, amount decimal.Decimal) (*model.Auction, *model.Bid, error) {
	auction, err := s.auctions.Read(ctx, auctionID)
	if err != nil {
		return nil, nil, fmt.Errorf("auction read: %w", err)
	}

	if auction.SellerID == bidderID {
		return nil, nil, apperr.ErrSelfBid
	}

	if auction.Ended(time.Now()) {
		return nil, nil, apperr.ErrAuctionEnded
	}

	if !amount.GreaterThan(auction.CurrentPrice) {
		return nil, nil, &apperr.BidTooLowError{CurrentPrice: auction.CurrentPrice}
	}

	bid := &model.Bid{
		BidderID: bidderID,
		Amount:   amount,
	}

	// The repository re-verifies price and end time under the row lock, so a
	// bid that raced past the checks above still cannot lose an update.
	updated, err := s.auctions.PlaceBid(ctx, auctionID, bid)
	if err != nil {
		return nil, nil, err
	}

	s.announce(ctx, updated, bid)

	return updated, bid, nil
}

// Get returns the auction with its bids, newest first.
func (s *Service) Get(ctx context.Context, auctionID uuid.UUID) (*model.Auction, error) {
	return s.auctions.Read(ctx, auctionID)
}

// Create opens a new auction listing.
func (s *Service) Create(ctx context.Context, sellerID uuid.UUID, title string, startingPrice decimal.Decimal, endTime time.Time) (*model.Auction, error) {
	if title == "" || !startingPrice.IsPositive() || endTime.Before(time.Now()) {
		return nil, apperr.ErrInvalidInput
	}

	return s.auctions.Create(ctx, &model.Auction{
		SellerID:      sellerID,
		Title:         title,
		StartingPrice: startingPrice,
		EndTime:       endTime,
		Status:        model.AuctionStatusActive,
	})
}

// announce publishes the bid update on the auction channel and an outbid
// notice to every prior bidder. Fan-out is best-effort: failures are logged
// and never fail the bid that already committed.
func (s *Service) announce(ctx context.Context, auction *model.Auction, bid *model.Bid) {
	l := logger.Get(ctx, s)

	ev := model.BidPlacedEvent{
		AuctionID:    auction.ID,
		BidID:        bid.ID,
		BidderID:     bid.BidderID,
		Amount:       bid.Amount,
		CurrentPrice: auction.CurrentPrice,
		PlacedAt:     bid.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, notify.AuctionChannel(auction.ID), ev); err != nil {
		l.Warn().Err(err).Msg("Bid update publish failed")
	}

	notified := map[uuid.UUID]bool{bid.BidderID: true}
	for _, prev := range auction.Bids {
		if notified[prev.BidderID] {
			continue
		}
		notified[prev.BidderID] = true

		out := model.OutbidEvent{
			AuctionID: auction.ID,
			UserID:    prev.BidderID,
			NewPrice:  auction.CurrentPrice,
		}
		if err := s.publisher.Publish(ctx, notify.UserChannel(prev.BidderID), out); err != nil {
			l.Warn().Err(err).Str("user_id", prev.BidderID.String()).Msg("Outbid publish failed")
		}
	}
}
