package risk

import (
	"bidmarket/internal/app/model"

	"github.com/shopspring/decimal"
)

// Candidate is the transaction being scored before it is created.
type Candidate struct {
	Amount decimal.Decimal
	IP     string
}

// Reputation is the externally gathered signal set for the candidate:
// suspicious-IP flag, attempt count for the (IP,user) pair inside the tracking
// window, and the user's failed-transaction count inside the last 24h.
type Reputation struct {
	IPSuspicious bool
	IPAttempts   int
	FailedRecent int
}

// Assessment is the scorer's verdict. Level, not the raw score, gates the
// payment decision downstream.
type Assessment struct {
	Score int
	Level model.RiskLevel
	Flags []model.Flag
}

// Thresholds configures the scorer rules.
type Thresholds struct {
	HighValue   decimal.Decimal
	MaxIPRate   int
	MaxFailed   int
	HighScore   int
	MediumScore int
}

// DefaultThresholds mirror the production configuration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HighValue:   decimal.NewFromInt(10000),
		MaxIPRate:   4,
		MaxFailed:   3,
		HighScore:   70,
		MediumScore: 40,
	}
}

type Scorer struct {
	t Thresholds
}

func NewScorer(t Thresholds) *Scorer {
	return &Scorer{t: t}
}

// Score is a pure function over its inputs: no I/O, independently testable.
// Rules are additive and not mutually exclusive; every applicable rule fires.
func (s *Scorer) Score(c Candidate, history []*model.PaymentTransaction, rep Reputation) Assessment {
	a := Assessment{Flags: make([]model.Flag, 0, 4)}

	if c.Amount.GreaterThanOrEqual(s.t.HighValue) {
		a.add(30, model.FlagHighValue)
	}

	if rep.IPSuspicious {
		a.add(40, model.FlagSuspiciousIP)
	}

	if rep.IPAttempts >= s.t.MaxIPRate {
		a.add(25, model.FlagHighVelocityIP)
	}

	if len(history) == 0 {
		a.add(15, model.FlagFirstTransaction)
	} else if deviates(c.Amount, history) {
		a.add(20, model.FlagUnusualAmount)
	}

	if rep.FailedRecent >= s.t.MaxFailed {
		a.add(35, model.FlagMultipleFailed)
	}

	switch {
	case a.Score >= s.t.HighScore:
		a.Level = model.RiskLevelHigh
	case a.Score >= s.t.MediumScore:
		a.Level = model.RiskLevelMedium
	default:
		a.Level = model.RiskLevelLow
	}

	return a
}

func (a *Assessment) add(delta int, f model.Flag) {
	a.Score += delta
	a.Flags = append(a.Flags, f)
}

// deviates reports whether the amount strays more than twice the mean of the
// user's transaction history from that mean.
func deviates(amount decimal.Decimal, history []*model.PaymentTransaction) bool {
	sum := decimal.Zero
	for _, tx := range history {
		sum = sum.Add(tx.Amount)
	}
	mean := sum.Div(decimal.NewFromInt(int64(len(history))))
	if mean.IsZero() {
		return false
	}

	return amount.Sub(mean).Abs().Div(mean).GreaterThan(decimal.NewFromInt(2))
}
