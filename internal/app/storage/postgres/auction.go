package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bidmarket/internal/app/apperr"
	"bidmarket/internal/app/logger"
	"bidmarket/internal/app/model"
	"bidmarket/internal/app/storage"

	"github.com/google/uuid"
)

// storage.AuctionRepository interface implementation
var _ storage.AuctionRepository = (*AuctionRepository)(nil)

type AuctionRepository struct {
	db *sql.DB
}

func (r *AuctionRepository) LoggerComponent() string {
	return "AuctionRepository"
}

func NewAuctionRepository(db *sql.DB) (*AuctionRepository, error) {
	s := &AuctionRepository{
		db: db,
	}
	return s, nil
}

// Create implementation of interface storage.AuctionRepository
func (r *AuctionRepository) Create(ctx context.Context, m *model.Auction) (*model.Auction, error) {
	const SQL = `
		INSERT INTO auctions (seller_id, title, starting_price, current_price, end_time, status)
		VALUES ($1, $2, $3, $3, $4, $5)
		RETURNING id, created_at
`
	if m.Status == "" {
		m.Status = model.AuctionStatusActive
	}

	err := r.db.QueryRowContext(ctx, SQL, m.SellerID, m.Title, m.StartingPrice, m.EndTime, m.Status).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert: %w", err)
	}
	m.CurrentPrice = m.StartingPrice

	return m, nil
}

// Read implementation of interface storage.AuctionRepository
func (r *AuctionRepository) Read(ctx context.Context, id uuid.UUID) (*model.Auction, error) {
	const SQL = `
		SELECT id, seller_id, title, starting_price, current_price, end_time, status, created_at
		FROM auctions
		WHERE id=$1
`
	m := &model.Auction{}

	err := r.db.QueryRowContext(ctx, SQL, id).
		Scan(&m.ID, &m.SellerID, &m.Title, &m.StartingPrice, &m.CurrentPrice, &m.EndTime, &m.Status, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	bids, err := r.readBids(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	m.Bids = bids

	return m, nil
}

// PlaceBid implementation of interface storage.AuctionRepository.
// The auction row is locked for the duration of the check-and-apply so the
// read of current_price and the write of the new bid are one unit: no second
// bid can slip in between and be lost.
func (r *AuctionRepository) PlaceBid(ctx context.Context, auctionID uuid.UUID, bid *model.Bid) (*model.Auction, error) {
	l := logger.Ctx(ctx).With().
		Str("method", "PlaceBid").
		Str("auction_id", auctionID.String()).
		Logger()
	l.Debug().Msg("Placing bid")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Msg("DB transaction begin")
		return nil, err
	}

	m := &model.Auction{}
	const sqlLock = `
		SELECT id, seller_id, title, starting_price, current_price, end_time, status, created_at
		FROM auctions
		WHERE id=$1
		FOR UPDATE
`
	err = tx.QueryRowContext(ctx, sqlLock, auctionID).
		Scan(&m.ID, &m.SellerID, &m.Title, &m.StartingPrice, &m.CurrentPrice, &m.EndTime, &m.Status, &m.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		l.Error().Err(err).Msg("DB lock error")
		return nil, err
	}

	now := time.Now()
	if m.Ended(now) {
		_ = tx.Rollback()
		return nil, apperr.ErrAuctionEnded
	}

	if !bid.Amount.GreaterThan(m.CurrentPrice) {
		_ = tx.Rollback()
		return nil, &apperr.BidTooLowError{CurrentPrice: m.CurrentPrice}
	}

	bid.AuctionID = auctionID
	bid.CreatedAt = now

	const sqlBid = `INSERT INTO bids (auction_id, bidder_id, amount, created_at) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := tx.QueryRowContext(ctx, sqlBid, bid.AuctionID, bid.BidderID, bid.Amount, bid.CreatedAt).Scan(&bid.ID); err != nil {
		l.Error().Err(err).Msg("Bid insert failed")
		_ = tx.Rollback()
		return nil, err
	}

	const sqlPrice = `UPDATE auctions SET current_price=$1 WHERE id=$2`
	if _, err := tx.ExecContext(ctx, sqlPrice, bid.Amount, auctionID); err != nil {
		l.Error().Err(err).Msg("Price update failed")
		_ = tx.Rollback()
		return nil, err
	}

	bids, err := r.readBids(ctx, tx, auctionID)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Msg("TX commit failed")
		return nil, err
	}

	m.CurrentPrice = bid.Amount
	m.Bids = bids

	return m, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// readBids returns the auction's bids newest first; callers and API clients
// rely on index 0 being the latest bid. Amount breaks ties between bids that
// land within clock resolution, since ids are random and carry no order.
func (r *AuctionRepository) readBids(ctx context.Context, q queryer, auctionID uuid.UUID) ([]model.Bid, error) {
	const SQL = `
		SELECT id, auction_id, bidder_id, amount, created_at
		FROM bids
		WHERE auction_id=$1
		ORDER BY created_at DESC, amount DESC, id DESC
`
	res := make([]model.Bid, 0)
	rows, err := q.QueryContext(ctx, SQL, auctionID)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		b := model.Bid{}
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.BidderID, &b.Amount, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return res, nil
}
