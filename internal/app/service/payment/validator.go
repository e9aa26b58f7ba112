package payment

import (
	"context"
	"fmt"

	"bidmarket/internal/app/config"
	"bidmarket/internal/app/logger"
	"bidmarket/internal/app/model"
	"bidmarket/internal/app/risk"
	"bidmarket/internal/app/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Verdict is the validator's full output. On allow, the assessment fields are
// persisted onto the transaction being gated for later audit. Invalid marks a
// malformed request (bad amount) as opposed to a policy denial; callers map
// the two to different error classes.
type Verdict struct {
	Allowed    bool
	Invalid    bool
	Errors     []string
	Warnings   []string
	FraudScore int
	RiskLevel  model.RiskLevel
	Flags      []model.Flag
}

// Validator runs the ordered pre-initiation checks: amount bounds, velocity,
// duplicate submission, IP reputation and finally fraud scoring. Bounds,
// velocity and duplicates are hard failures that short-circuit; reputation
// only feeds scoring. The store-backed checks fail open on data-access
// errors: a monitoring outage must never block all payments.
type Validator struct {
	cfg          config.RiskConfig
	transactions storage.TransactionRepository
	reputation   risk.ReputationStore
	scorer       *risk.Scorer
}

func (v *Validator) LoggerComponent() string {
	return "Payment.Validator"
}

func NewValidator(cfg config.RiskConfig, transactions storage.TransactionRepository, reputation risk.ReputationStore) *Validator {
	return &Validator{
		cfg:          cfg,
		transactions: transactions,
		reputation:   reputation,
		scorer: risk.NewScorer(risk.Thresholds{
			HighValue:   cfg.HighValueDecimal(),
			MaxIPRate:   cfg.AttemptMax,
			MaxFailed:   cfg.FailedMax,
			HighScore:   70,
			MediumScore: 40,
		}),
	}
}

const historyLimit = 20

// Validate is invoked once per initiation attempt; it does not re-run at
// settlement time.
func (v *Validator) Validate(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, ip, userAgent string) *Verdict {
	l := logger.Get(ctx, v).With().
		Str("user_id", userID.String()).
		Str("ip", ip).
		Logger()

	verdict := &Verdict{
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	if amount.LessThan(v.cfg.MinAmountDecimal()) || amount.GreaterThan(v.cfg.MaxAmountDecimal()) {
		verdict.Invalid = true
		verdict.Errors = append(verdict.Errors,
			fmt.Sprintf("amount must be between %s and %s", v.cfg.MinAmount, v.cfg.MaxAmount))
		return verdict
	}

	cnt, err := v.transactions.CountRecentByUser(ctx, userID, v.cfg.VelocityWindow)
	if err != nil {
		l.Warn().Err(err).Msg("Velocity check unavailable, failing open")
	} else if cnt >= v.cfg.VelocityMax {
		verdict.Errors = append(verdict.Errors, "too many recent transactions, try again later")
		return verdict
	}

	dup, err := v.transactions.HasRecentPendingDuplicate(ctx, userID, amount, v.cfg.DuplicateWindow)
	if err != nil {
		l.Warn().Err(err).Msg("Duplicate check unavailable, failing open")
	} else if dup {
		verdict.Errors = append(verdict.Errors, "a matching payment is already in progress")
		return verdict
	}

	rep := v.gatherReputation(ctx, userID, ip, l)
	if rep.IPSuspicious {
		verdict.Warnings = append(verdict.Warnings, "source IP recently flagged")
	}

	history, err := v.transactions.RecentByUser(ctx, userID, historyLimit)
	if err != nil {
		l.Warn().Err(err).Msg("History fetch unavailable, scoring without it")
		history = nil
	}

	a := v.scorer.Score(risk.Candidate{Amount: amount, IP: ip}, history, rep)
	verdict.FraudScore = a.Score
	verdict.RiskLevel = a.Level
	verdict.Flags = a.Flags

	if a.Level == model.RiskLevelHigh {
		// The numeric score stays out of the caller-visible message.
		l.Info().
			Int("fraud_score", a.Score).
			Interface("flags", a.Flags).
			Msg("Transaction blocked by risk tier")
		// Feed the block back into reputation so later attempts from the
		// same address score against the suspicious-IP rule.
		if err := v.reputation.FlagSuspicious(ctx, ip, v.cfg.SuspiciousIPTTL); err != nil {
			l.Warn().Err(err).Msg("Could not flag source IP")
		}
		verdict.Errors = append(verdict.Errors, "transaction cannot be processed, please contact support")
		return verdict
	}

	verdict.Allowed = true
	return verdict
}

// gatherReputation collects the scorer's external signals, failing open to
// neutral values when a store is unreachable.
func (v *Validator) gatherReputation(ctx context.Context, userID uuid.UUID, ip string, l zerolog.Logger) risk.Reputation {
	rep := risk.Reputation{}

	suspicious, err := v.reputation.IsSuspicious(ctx, ip)
	if err != nil {
		l.Warn().Err(err).Msg("IP reputation unavailable, failing open")
	} else {
		rep.IPSuspicious = suspicious
	}

	cnt, err := v.reputation.RecordAttempt(ctx, ip, userID.String(), v.cfg.AttemptWindow)
	if err != nil {
		l.Warn().Err(err).Msg("Attempt counter unavailable, failing open")
	} else {
		// Prior attempts, excluding the one just recorded.
		rep.IPAttempts = cnt - 1
	}

	failed, err := v.transactions.CountRecentFailed(ctx, userID, v.cfg.FailedWindow)
	if err != nil {
		l.Warn().Err(err).Msg("Failed-attempt count unavailable, failing open")
	} else {
		rep.FailedRecent = failed
	}

	return rep
}
