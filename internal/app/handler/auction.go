package handler

import (
	"errors"
	"net/http"
	"time"

	"bidmarket/internal/app/apperr"
	"bidmarket/internal/app/logger"
	"bidmarket/internal/app/service/bidding"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AuctionHandler struct {
	bidding *bidding.Service
}

func NewAuctionHandler(b *bidding.Service) *AuctionHandler {
	return &AuctionHandler{bidding: b}
}

func (h *AuctionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Auction.Create")

	u, err := ReadContextUser(ctx)
	if err != nil {
		l.Debug().Err(err).Msg("Unauthorized")
		WriteError(w, err, http.StatusUnauthorized)
		return
	}

	in := struct {
		Title         string          `json:"title" validate:"required,min=1,max=128"`
		StartingPrice decimal.Decimal `json:"starting_price" validate:"required"`
		EndTime       time.Time       `json:"end_time" validate:"required"`
	}{}

	if err := readBody(r, &in); err != nil {
		WriteError(w, err, http.StatusBadRequest)
		return
	}

	if !validateData(w, in) {
		return
	}

	m, err := h.bidding.Create(ctx, u.ID, in.Title, in.StartingPrice, in.EndTime)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidInput) {
			WriteError(w, err, http.StatusUnprocessableEntity)
			return
		}
		l.Error().Err(err).Send()
		WriteError(w, err, http.StatusInternalServerError)
		return
	}

	WriteResponse(w, m, http.StatusCreated)
}

func (h *AuctionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Auction.Get")

	id, err := uuid.Parse(chi.URLParam(r, "auction_id"))
	if err != nil {
		WriteError(w, apperr.ErrInvalidInput, http.StatusBadRequest)
		return
	}

	m, err := h.bidding.Get(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			WriteError(w, err, http.StatusNotFound)
			return
		}
		l.Error().Err(err).Send()
		WriteError(w, err, http.StatusInternalServerError)
		return
	}

	WriteResponse(w, m, http.StatusOK)
}

func (h *AuctionHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Auction.PlaceBid")

	u, err := ReadContextUser(ctx)
	if err != nil {
		l.Debug().Err(err).Msg("Unauthorized")
		WriteError(w, err, http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "auction_id"))
	if err != nil {
		WriteError(w, apperr.ErrInvalidInput, http.StatusBadRequest)
		return
	}

	in := struct {
		Amount decimal.Decimal `json:"amount" validate:"required"`
	}{}

	if err := readBody(r, &in); err != nil {
		WriteError(w, err, http.StatusBadRequest)
		return
	}

	auction, bid, err := h.bidding.PlaceBid(ctx, id, u.ID, in.Amount)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			WriteError(w, err, http.StatusNotFound)
		case errors.Is(err, apperr.ErrSelfBid):
			WriteError(w, err, http.StatusForbidden)
		case errors.Is(err, apperr.ErrAuctionEnded):
			WriteError(w, err, http.StatusConflict)
		case errors.Is(err, apperr.ErrBidTooLow):
			// Message carries the current price so the client can retry above it.
			WriteError(w, err, http.StatusConflict)
		default:
			l.Error().Err(err).Send()
			WriteError(w, err, http.StatusInternalServerError)
		}
		return
	}

	out := struct {
		BidID        uuid.UUID       `json:"bid_id"`
		AuctionID    uuid.UUID       `json:"auction_id"`
		Amount       decimal.Decimal `json:"amount"`
		CurrentPrice decimal.Decimal `json:"current_price"`
		CreatedAt    time.Time       `json:"created_at"`
	}{bid.ID, auction.ID, bid.Amount, auction.CurrentPrice, bid.CreatedAt}

	WriteResponse(w, out, http.StatusCreated)
}
