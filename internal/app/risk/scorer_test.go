package risk

import (
	"testing"

	"bidmarket/internal/app/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func history(amounts ...int64) []*model.PaymentTransaction {
	res := make([]*model.PaymentTransaction, 0, len(amounts))
	for _, a := range amounts {
		res = append(res, &model.PaymentTransaction{Amount: decimal.NewFromInt(a)})
	}
	return res
}

func TestScorer_Score(t *testing.T) {
	s := NewScorer(DefaultThresholds())

	tests := []struct {
		name          string
		amount        int64
		history       []*model.PaymentTransaction
		rep           Reputation
		expectedScore int
		expectedLevel model.RiskLevel
		expectedFlags []model.Flag
	}{
		{
			name:          "clean_repeat_customer",
			amount:        100,
			history:       history(90, 110, 100),
			rep:           Reputation{},
			expectedScore: 0,
			expectedLevel: model.RiskLevelLow,
			expectedFlags: []model.Flag{},
		},
		{
			name:          "first_transaction_only",
			amount:        100,
			history:       nil,
			rep:           Reputation{},
			expectedScore: 15,
			expectedLevel: model.RiskLevelLow,
			expectedFlags: []model.Flag{model.FlagFirstTransaction},
		},
		{
			name:          "high_value_new_user_flagged_ip",
			amount:        50000,
			history:       nil,
			rep:           Reputation{IPSuspicious: true},
			expectedScore: 85,
			expectedLevel: model.RiskLevelHigh,
			expectedFlags: []model.Flag{model.FlagHighValue, model.FlagSuspiciousIP, model.FlagFirstTransaction},
		},
		{
			name:          "unusual_amount_deviation",
			amount:        1000,
			history:       history(100, 100, 100),
			rep:           Reputation{},
			expectedScore: 20,
			expectedLevel: model.RiskLevelLow,
			expectedFlags: []model.Flag{model.FlagUnusualAmount},
		},
		{
			name:          "amount_at_twice_mean_not_unusual",
			amount:        300,
			history:       history(100, 100, 100),
			rep:           Reputation{},
			expectedScore: 0,
			expectedLevel: model.RiskLevelLow,
			expectedFlags: []model.Flag{},
		},
		{
			name:          "ip_velocity_and_failures",
			amount:        100,
			history:       history(100),
			rep:           Reputation{IPAttempts: 4, FailedRecent: 3},
			expectedScore: 60,
			expectedLevel: model.RiskLevelMedium,
			expectedFlags: []model.Flag{model.FlagHighVelocityIP, model.FlagMultipleFailed},
		},
		{
			name:          "every_rule_fires",
			amount:        50000,
			history:       history(100, 100),
			rep:           Reputation{IPSuspicious: true, IPAttempts: 10, FailedRecent: 5},
			expectedScore: 150,
			expectedLevel: model.RiskLevelHigh,
			expectedFlags: []model.Flag{model.FlagHighValue, model.FlagSuspiciousIP, model.FlagHighVelocityIP, model.FlagUnusualAmount, model.FlagMultipleFailed},
		},
		{
			name:          "high_value_exact_threshold",
			amount:        10000,
			history:       history(9000, 11000),
			rep:           Reputation{},
			expectedScore: 30,
			expectedLevel: model.RiskLevelLow,
			expectedFlags: []model.Flag{model.FlagHighValue},
		},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a := s.Score(Candidate{Amount: decimal.NewFromInt(tc.amount), IP: "203.0.113.7"}, tc.history, tc.rep)

			require.Equal(t, tc.expectedScore, a.Score)
			require.Equal(t, tc.expectedLevel, a.Level)
			require.Equal(t, tc.expectedFlags, a.Flags)
		})
	}
}

// Each rule's trigger may only ever raise the score, never lower it.
func TestScorer_Monotonic(t *testing.T) {
	s := NewScorer(DefaultThresholds())
	c := Candidate{Amount: decimal.NewFromInt(500), IP: "203.0.113.7"}
	h := history(500, 500)

	base := s.Score(c, h, Reputation{})

	variants := []Reputation{
		{IPSuspicious: true},
		{IPAttempts: 4},
		{FailedRecent: 3},
		{IPSuspicious: true, IPAttempts: 4, FailedRecent: 3},
	}

	for _, rep := range variants {
		a := s.Score(c, h, rep)
		require.GreaterOrEqual(t, a.Score, base.Score)
	}

	// high value versus the same candidate below the threshold
	low := s.Score(Candidate{Amount: decimal.NewFromInt(9999)}, nil, Reputation{})
	high := s.Score(Candidate{Amount: decimal.NewFromInt(10000)}, nil, Reputation{})
	require.GreaterOrEqual(t, high.Score, low.Score)
}

// Tier cutoffs sit at exactly 40 and 70.
func TestScorer_TierBoundaries(t *testing.T) {
	s := NewScorer(DefaultThresholds())
	h := history(500, 500)

	// 35 < 40: still low
	a := s.Score(Candidate{Amount: decimal.NewFromInt(500)}, h, Reputation{FailedRecent: 3})
	require.Equal(t, 35, a.Score)
	require.Equal(t, model.RiskLevelLow, a.Level)

	// exactly 40: medium
	a = s.Score(Candidate{Amount: decimal.NewFromInt(500)}, h, Reputation{IPSuspicious: true})
	require.Equal(t, 40, a.Score)
	require.Equal(t, model.RiskLevelMedium, a.Level)

	// exactly 70: high
	a = s.Score(Candidate{Amount: decimal.NewFromInt(10000)}, history(10000, 10000), Reputation{IPSuspicious: true})
	require.Equal(t, 70, a.Score)
	require.Equal(t, model.RiskLevelHigh, a.Level)
}
