package notify

import (
	"context"

	"bidmarket/internal/app/model"

	"github.com/google/uuid"
)

// Publisher fans events out to a real-time channel. Delivery is best-effort
// at-least-once; publish failures must never fail the business operation that
// produced the event.
type Publisher interface {
	Publish(ctx context.Context, channel string, ev model.Event) error
}

// AuctionChannel is the channel carrying bid updates for one auction.
func AuctionChannel(auctionID uuid.UUID) string {
	return "auction:" + auctionID.String()
}

// UserChannel is the private channel for one user's notifications.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}
