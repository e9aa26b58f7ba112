package handler

import (
	"errors"
	"net/http"

	"bidmarket/internal/app/access"
	"bidmarket/internal/app/apperr"
	"bidmarket/internal/app/logger"
	"bidmarket/internal/app/service/payment"
	"bidmarket/pkg/gateway"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	payments *payment.Service
	acl      *access.Table
}

func NewPaymentHandler(payments *payment.Service, acl *access.Table) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		acl:      acl,
	}
}

// Initiate handles POST /api/payments: validate, record the pending
// transaction, hand back the gateway redirect.
func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Payment.Initiate")

	u, err := ReadContextUser(ctx)
	if err != nil {
		l.Debug().Err(err).Msg("Unauthorized")
		WriteError(w, err, http.StatusUnauthorized)
		return
	}

	in := struct {
		Amount        decimal.Decimal `json:"amount" validate:"required"`
		PaymentMethod string          `json:"payment_method" validate:"required,oneof=card wallet bank"`
		CardNumber    string          `json:"card_number,omitempty"`
	}{}

	if err := readBody(r, &in); err != nil {
		WriteError(w, err, http.StatusBadRequest)
		return
	}

	if !validateData(w, in) {
		return
	}

	res, err := h.payments.Initiate(ctx, u.ID, in.Amount, in.PaymentMethod, in.CardNumber, clientIP(r), r.UserAgent())
	if err != nil {
		if errors.Is(err, apperr.ErrPolicyDenied) {
			// Full detail stays in the logs; the caller gets the generic text.
			l.Info().Err(err).Str("user_id", u.ID.String()).Msg("Payment denied by policy")
			WriteError(w, err, http.StatusForbidden)
			return
		}
		if errors.Is(err, apperr.ErrInvalidInput) {
			WriteError(w, err, http.StatusUnprocessableEntity)
			return
		}
		l.Error().Err(err).Send()
		WriteError(w, err, http.StatusInternalServerError)
		return
	}

	out := struct {
		TransactionID string   `json:"transaction_id"`
		Reference     string   `json:"reference"`
		RedirectURL   string   `json:"redirect_url"`
		Warnings      []string `json:"warnings,omitempty"`
	}{res.TransactionID, res.Reference, res.RedirectURL, res.Warnings}

	WriteResponse(w, out, http.StatusCreated)
}

// Confirm handles POST /api/payments/{transaction_id}/confirm: the
// client-side confirmation ping. Safe to call any number of times.
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Payment.Confirm")

	if _, err := ReadContextUser(ctx); err != nil {
		l.Debug().Err(err).Msg("Unauthorized")
		WriteError(w, err, http.StatusUnauthorized)
		return
	}

	transactionID := chi.URLParam(r, "transaction_id")

	already, err := h.payments.ConfirmAndSettle(ctx, transactionID)
	if err != nil {
		h.writeSettleError(w, l, err)
		return
	}

	h.writeSettleResult(w, already)
}

// Webhook handles POST /api/webhooks/payment: the server-to-server gateway
// callback. Delivery is at-least-once; repeats are expected and harmless.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Payment.Webhook")

	in := struct {
		TransactionID string `json:"transaction_id" validate:"required"`
		Status        string `json:"status" validate:"required"`
	}{}

	if err := readBody(r, &in); err != nil {
		WriteError(w, err, http.StatusBadRequest)
		return
	}

	if !validateData(w, in) {
		return
	}

	if in.Status != gateway.StatusPaid {
		l.Debug().Str("status", in.Status).Str("transaction_id", in.TransactionID).Msg("Ignoring non-paid callback")
		w.WriteHeader(http.StatusOK)
		return
	}

	already, err := h.payments.Settle(ctx, in.TransactionID)
	if err != nil {
		h.writeSettleError(w, l, err)
		return
	}

	h.writeSettleResult(w, already)
}

// AdminSettle handles POST /api/admin/payments/{transaction_id}/settle:
// manual retry for stuck transactions. Idempotent like every settle path.
func (h *PaymentHandler) AdminSettle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Payment.AdminSettle")

	u, err := ReadContextUser(ctx)
	if err != nil {
		WriteError(w, err, http.StatusUnauthorized)
		return
	}

	if !h.acl.Allowed(u.Role, access.PermSettleRetry) {
		l.Debug().Str("user_id", u.ID.String()).Str("role", string(u.Role)).Msg("Forbidden")
		WriteError(w, apperr.ErrForbidden, http.StatusForbidden)
		return
	}

	already, err := h.payments.Settle(ctx, chi.URLParam(r, "transaction_id"))
	if err != nil {
		h.writeSettleError(w, l, err)
		return
	}

	h.writeSettleResult(w, already)
}

// History handles GET /api/payments.
func (h *PaymentHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := logger.Get(ctx, "Handler.Payment.History")

	u, err := ReadContextUser(ctx)
	if err != nil {
		WriteError(w, err, http.StatusUnauthorized)
		return
	}

	mm, err := h.payments.History(ctx, u.ID, 50)
	if err != nil {
		l.Error().Err(err).Send()
		WriteError(w, err, http.StatusInternalServerError)
		return
	}

	WriteResponse(w, mm, http.StatusOK)
}

func (h *PaymentHandler) writeSettleResult(w http.ResponseWriter, alreadyProcessed bool) {
	out := struct {
		AlreadyProcessed bool `json:"already_processed"`
	}{alreadyProcessed}

	WriteResponse(w, out, http.StatusOK)
}

func (h *PaymentHandler) writeSettleError(w http.ResponseWriter, l logger.Logger, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		WriteError(w, err, http.StatusNotFound)
	case errors.Is(err, apperr.ErrInvalidInput):
		WriteError(w, err, http.StatusUnprocessableEntity)
	case errors.Is(err, apperr.ErrUncredited):
		// Alertable: settled but uncredited must not be silently retried.
		l.Error().Err(err).Msg("ALERT: settlement credited no wallet")
		WriteError(w, err, http.StatusInternalServerError)
	default:
		l.Error().Err(err).Send()
		WriteError(w, err, http.StatusInternalServerError)
	}
}
