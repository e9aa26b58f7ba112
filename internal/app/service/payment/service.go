package payment

import (
	"context"
	"fmt"
	"strings"

	"bidmarket/internal/app/apperr"
	"bidmarket/internal/app/logger"
	"bidmarket/internal/app/model"
	"bidmarket/internal/app/notify"
	"bidmarket/internal/app/storage"
	"bidmarket/pkg/gateway"

	"github.com/ferdypruis/go-luhn"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway is the outbound payment-gateway surface the service depends on.
type Gateway interface {
	Initiate(ctx context.Context, in *gateway.InitiateRequest, out *gateway.InitiateResponse) error
	Verify(ctx context.Context, in *gateway.VerifyRequest, out *gateway.VerifyResponse) error
}

// InitiationResult is handed back to the request layer for the redirect.
type InitiationResult struct {
	TransactionID string
	Reference     string
	RedirectURL   string
	FraudScore    int
	RiskLevel     model.RiskLevel
	Warnings      []string
}

// Service drives payment initiation and exactly-once settlement.
type Service struct {
	transactions storage.TransactionRepository
	audit        storage.AuditRepository
	validator    *Validator
	gateway      Gateway
	publisher    notify.Publisher
}

func (s *Service) LoggerComponent() string {
	return "Payment.Service"
}

func New(transactions storage.TransactionRepository, audit storage.AuditRepository, validator *Validator, gw Gateway, publisher notify.Publisher) *Service {
	return &Service{
		transactions: transactions,
		audit:        audit,
		validator:    validator,
		gateway:      gw,
		publisher:    publisher,
	}
}

// Initiate validates the attempt, records the pending transaction with its
// risk assessment attached, and registers the charge with the gateway.
// The transaction id is the idempotency key for everything downstream:
// generated here once, never reused.
func (s *Service) Initiate(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, method, cardNumber, ip, userAgent string) (*InitiationResult, error) {
	l := logger.Get(ctx, s).With().
		Str("user_id", userID.String()).
		Logger()

	if method == methodCard {
		digits := strings.ReplaceAll(cardNumber, " ", "")
		if digits == "" || !luhn.Valid(digits) {
			return nil, fmt.Errorf("%w: invalid card number", apperr.ErrInvalidInput)
		}
	}

	verdict := s.validator.Validate(ctx, userID, amount, ip, userAgent)
	if !verdict.Allowed {
		// A malformed amount is the caller's mistake, not a policy call;
		// it gets the validation error class and no flagged-payment audit.
		if verdict.Invalid {
			return nil, fmt.Errorf("%w: %s", apperr.ErrInvalidInput, strings.Join(verdict.Errors, "; "))
		}

		if err := s.audit.Record(ctx, userID, model.PaymentFlaggedEvent{
			UserID:     userID,
			FraudScore: verdict.FraudScore,
			RiskLevel:  verdict.RiskLevel,
			Flags:      verdict.Flags,
		}); err != nil {
			l.Warn().Err(err).Msg("Flagged-payment audit failed")
		}

		return nil, &apperr.PolicyDeniedError{
			PublicMsg: strings.Join(verdict.Errors, "; "),
			Reason:    fmt.Sprintf("score=%d level=%s flags=%v", verdict.FraudScore, verdict.RiskLevel, verdict.Flags),
		}
	}

	m, err := s.transactions.Create(ctx, &model.PaymentTransaction{
		TransactionID: uuid.New().String(),
		UserID:        userID,
		Amount:        amount,
		PaymentMethod: method,
		Status:        model.TransactionStatusPending,
		FraudScore:    verdict.FraudScore,
		RiskLevel:     verdict.RiskLevel,
		SecurityFlags: verdict.Flags,
	})
	if err != nil {
		return nil, fmt.Errorf("transaction create: %w", err)
	}

	out := &gateway.InitiateResponse{}
	err = s.gateway.Initiate(ctx, &gateway.InitiateRequest{
		TransactionID: m.TransactionID,
		Amount:        m.Amount,
		PaymentMethod: m.PaymentMethod,
	}, out)
	if err != nil {
		l.Error().Err(err).Str("transaction_id", m.TransactionID).Msg("Gateway initiation failed")
		if ferr := s.transactions.MarkFailed(ctx, m.TransactionID); ferr != nil {
			l.Error().Err(ferr).Str("transaction_id", m.TransactionID).Msg("Mark failed failed")
		}
		return nil, fmt.Errorf("gateway initiate: %w", err)
	}

	return &InitiationResult{
		TransactionID: m.TransactionID,
		Reference:     out.Reference,
		RedirectURL:   out.RedirectURL,
		FraudScore:    verdict.FraudScore,
		RiskLevel:     verdict.RiskLevel,
		Warnings:      verdict.Warnings,
	}, nil
}

const methodCard = "card"

// Settle moves the transaction from pending to success and credits the
// wallet, exactly once per transaction id. Gateway callbacks, client
// confirmation pings and admin retries all land here, any number of times,
// concurrently or not: the repository's conditional transition picks a single
// winner and every other call reports alreadyProcessed.
func (s *Service) Settle(ctx context.Context, transactionID string) (alreadyProcessed bool, err error) {
	l := logger.Get(ctx, s).With().
		Str("transaction_id", transactionID).
		Logger()

	res, err := s.transactions.Settle(ctx, transactionID)
	if err != nil {
		// An uncredited settle is the one state that must page a human:
		// retrying would see status=success and mask the missed credit.
		l.Error().Err(err).Msg("Settlement failed")
		return false, err
	}

	if res.AlreadyProcessed {
		l.Debug().Msg("Settlement already processed")
		return true, nil
	}

	m := res.Transaction
	ev := model.PaymentSettledEvent{
		TransactionID: m.TransactionID,
		UserID:        m.UserID,
		Amount:        m.Amount,
		SettledAt:     *m.SettledAt,
	}
	if err := s.publisher.Publish(ctx, notify.UserChannel(m.UserID), ev); err != nil {
		l.Warn().Err(err).Msg("Settled-payment publish failed")
	}

	l.Info().
		Str("user_id", m.UserID.String()).
		Str("amount", m.Amount.String()).
		Msg("Payment settled")

	return false, nil
}

// ConfirmAndSettle is the client-confirmation path: the gateway is asked for
// the authoritative status first, then settlement runs if the charge is paid.
func (s *Service) ConfirmAndSettle(ctx context.Context, transactionID string) (alreadyProcessed bool, err error) {
	l := logger.Get(ctx, s).With().
		Str("transaction_id", transactionID).
		Logger()

	out := &gateway.VerifyResponse{}
	if err := s.gateway.Verify(ctx, &gateway.VerifyRequest{TransactionID: transactionID}, out); err != nil {
		return false, fmt.Errorf("gateway verify: %w", err)
	}

	switch out.Status {
	case gateway.StatusPaid:
		return s.Settle(ctx, transactionID)
	case gateway.StatusDeclined:
		if err := s.transactions.MarkFailed(ctx, transactionID); err != nil {
			l.Warn().Err(err).Msg("Mark failed failed")
		}
		return false, fmt.Errorf("%w: payment declined by gateway", apperr.ErrInvalidInput)
	default:
		return false, fmt.Errorf("%w: payment not completed, status %q", apperr.ErrInvalidInput, out.Status)
	}
}

// History returns the user's recent transactions, newest first.
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit int) ([]*model.PaymentTransaction, error) {
	return s.transactions.RecentByUser(ctx, userID, limit)
}
