package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"bidmarket/internal/app/apperr"
	"bidmarket/internal/app/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newAuctionRepo(t *testing.T) (*AuctionRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewAuctionRepository(db)
	require.NoError(t, err)

	return repo, mock
}

func auctionRow(id, sellerID uuid.UUID, currentPrice string, endTime time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "seller_id", "title", "starting_price", "current_price", "end_time", "status", "created_at",
	}).AddRow(id.String(), sellerID.String(), "old clock", "100", currentPrice, endTime, "active", time.Now())
}

func TestAuctionRepository_PlaceBid_AppliesUnderLock(t *testing.T) {
	repo, mock := newAuctionRepo(t)

	auctionID := uuid.New()
	sellerID := uuid.New()
	bidderID := uuid.New()
	bidID := uuid.New()
	prevBidID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM auctions (.+) FOR UPDATE").
		WithArgs(auctionID).
		WillReturnRows(auctionRow(auctionID, sellerID, "110", time.Now().Add(time.Hour)))
	mock.ExpectQuery("INSERT INTO bids").
		WithArgs(auctionID, bidderID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(bidID.String()))
	mock.ExpectExec("UPDATE auctions SET current_price").
		WithArgs(sqlmock.AnyArg(), auctionID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// ids carry no order, so amount breaks created_at ties
	mock.ExpectQuery("SELECT (.+) FROM bids (.+) ORDER BY created_at DESC, amount DESC, id DESC").
		WithArgs(auctionID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "auction_id", "bidder_id", "amount", "created_at"}).
			AddRow(bidID.String(), auctionID.String(), bidderID.String(), "150", time.Now()).
			AddRow(prevBidID.String(), auctionID.String(), uuid.New().String(), "110", time.Now().Add(-time.Minute)))
	mock.ExpectCommit()

	bid := &model.Bid{BidderID: bidderID, Amount: decimal.NewFromInt(150)}
	updated, err := repo.PlaceBid(context.Background(), auctionID, bid)
	require.NoError(t, err)

	require.Equal(t, bidID, bid.ID)
	require.True(t, updated.CurrentPrice.Equal(decimal.NewFromInt(150)))
	require.Len(t, updated.Bids, 2)
	require.True(t, updated.Bids[0].Amount.Equal(decimal.NewFromInt(150)), "newest bid comes first")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuctionRepository_PlaceBid_TooLowUnderLock(t *testing.T) {
	repo, mock := newAuctionRepo(t)

	auctionID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").
		WithArgs(auctionID).
		WillReturnRows(auctionRow(auctionID, uuid.New(), "110", time.Now().Add(time.Hour)))
	mock.ExpectRollback()

	bid := &model.Bid{BidderID: uuid.New(), Amount: decimal.NewFromInt(105)}
	_, err := repo.PlaceBid(context.Background(), auctionID, bid)

	require.Error(t, err)
	require.True(t, errors.Is(err, apperr.ErrBidTooLow))
	require.Equal(t, "Bid must be higher than current price: $110", err.Error())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuctionRepository_PlaceBid_Ended(t *testing.T) {
	repo, mock := newAuctionRepo(t)

	auctionID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").
		WithArgs(auctionID).
		WillReturnRows(auctionRow(auctionID, uuid.New(), "100", time.Now().Add(-time.Minute)))
	mock.ExpectRollback()

	bid := &model.Bid{BidderID: uuid.New(), Amount: decimal.NewFromInt(200)}
	_, err := repo.PlaceBid(context.Background(), auctionID, bid)

	require.True(t, errors.Is(err, apperr.ErrAuctionEnded))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuctionRepository_PlaceBid_NotFound(t *testing.T) {
	repo, mock := newAuctionRepo(t)

	auctionID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FOR UPDATE").
		WithArgs(auctionID).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := repo.PlaceBid(context.Background(), auctionID, &model.Bid{Amount: decimal.NewFromInt(10)})

	require.True(t, errors.Is(err, apperr.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAuctionRepository_Read_NotFound(t *testing.T) {
	repo, mock := newAuctionRepo(t)

	id := uuid.New()
	mock.ExpectQuery("SELECT (.+) FROM auctions").
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Read(context.Background(), id)
	require.True(t, errors.Is(err, apperr.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}
