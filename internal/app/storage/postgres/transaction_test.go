package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"bidmarket/internal/app/apperr"
	"bidmarket/internal/app/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	pg "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTransactionRepo(t *testing.T) (*TransactionRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo, err := NewTransactionRepository(db)
	require.NoError(t, err)

	return repo, mock
}

func TestTransactionRepository_Settle_Winner(t *testing.T) {
	repo, mock := newTransactionRepo(t)

	txID := uuid.New().String()
	rowID := uuid.New()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`
			UPDATE payment_transactions
			SET status=$1, settled_at=$2
			WHERE transaction_id=$3 AND status=$4
			RETURNING id, user_id, amount, payment_method, created_at
`)).
		WithArgs(model.TransactionStatusSuccess, sqlmock.AnyArg(), txID, model.TransactionStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "payment_method", "created_at"}).
			AddRow(rowID.String(), userID.String(), "500", "card", time.Now()))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET balance=balance+$1 WHERE id=$2`)).
		WithArgs(sqlmock.AnyArg(), userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO audit_events (external_id, user_id, kind, payload) VALUES ($1, $2, $3, $4)`)).
		WithArgs(sqlmock.AnyArg(), userID, model.EventPaymentSettled, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO audit_events (external_id, user_id, kind, payload) VALUES ($1, $2, $3, $4)`)).
		WithArgs(sqlmock.AnyArg(), userID, model.EventWalletCredited, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	res, err := repo.Settle(context.Background(), txID)
	require.NoError(t, err)
	require.False(t, res.AlreadyProcessed)
	require.Equal(t, txID, res.Transaction.TransactionID)
	require.Equal(t, userID, res.Transaction.UserID)
	require.Equal(t, model.TransactionStatusSuccess, res.Transaction.Status)
	require.NotNil(t, res.Transaction.SettledAt)
	require.True(t, res.Transaction.Amount.Equal(decimal.NewFromInt(500)))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Settle_AlreadyProcessed(t *testing.T) {
	repo, mock := newTransactionRepo(t)

	txID := uuid.New().String()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE payment_transactions").
		WithArgs(model.TransactionStatusSuccess, sqlmock.AnyArg(), txID, model.TransactionStatusPending).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	res, err := repo.Settle(context.Background(), txID)
	require.NoError(t, err, "a replayed settlement is not an error")
	require.True(t, res.AlreadyProcessed)
	require.Nil(t, res.Transaction)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Settle_CreditMatchesNoUser(t *testing.T) {
	repo, mock := newTransactionRepo(t)

	txID := uuid.New().String()
	userID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE payment_transactions").
		WithArgs(model.TransactionStatusSuccess, sqlmock.AnyArg(), txID, model.TransactionStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "payment_method", "created_at"}).
			AddRow(uuid.New().String(), userID.String(), "100", "card", time.Now()))
	mock.ExpectExec("UPDATE users SET balance").
		WithArgs(sqlmock.AnyArg(), userID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Settle(context.Background(), txID)
	require.Error(t, err)
	require.True(t, errors.Is(err, apperr.ErrUncredited))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Create(t *testing.T) {
	repo, mock := newTransactionRepo(t)

	m := &model.PaymentTransaction{
		TransactionID: uuid.New().String(),
		UserID:        uuid.New(),
		Amount:        decimal.NewFromInt(250),
		PaymentMethod: "card",
		FraudScore:    45,
		RiskLevel:     model.RiskLevelMedium,
		SecurityFlags: []model.Flag{model.FlagHighValue},
	}

	mock.ExpectQuery("INSERT INTO payment_transactions").
		WithArgs(m.TransactionID, m.UserID, sqlmock.AnyArg(), "card",
			model.TransactionStatusPending, 45, model.RiskLevelMedium, []byte(`["high_value_transaction"]`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).
			AddRow(uuid.New().String(), time.Now()))

	created, err := repo.Create(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, model.TransactionStatusPending, created.Status)
	require.NotEqual(t, uuid.Nil, created.ID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_Create_DuplicateTransactionID(t *testing.T) {
	repo, mock := newTransactionRepo(t)

	mock.ExpectQuery("INSERT INTO payment_transactions").
		WillReturnError(&pg.Error{Code: pg.ErrorCode("23505")})

	_, err := repo.Create(context.Background(), &model.PaymentTransaction{
		TransactionID: uuid.New().String(),
		UserID:        uuid.New(),
		Amount:        decimal.NewFromInt(10),
		PaymentMethod: "card",
	})
	require.True(t, errors.Is(err, apperr.ErrConflict))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransactionRepository_MarkFailed(t *testing.T) {
	tests := []struct {
		name          string
		rowsAffected  int64
		expectedError error
	}{
		{name: "pending_transitions", rowsAffected: 1},
		{name: "no_pending_row", rowsAffected: 0, expectedError: apperr.ErrNotFound},
	}

	for _, tc := range tests {
		tc := tc

		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newTransactionRepo(t)
			txID := uuid.New().String()

			mock.ExpectExec("UPDATE payment_transactions").
				WithArgs(model.TransactionStatusFailed, txID, model.TransactionStatusPending).
				WillReturnResult(sqlmock.NewResult(0, tc.rowsAffected))

			err := repo.MarkFailed(context.Background(), txID)
			if tc.expectedError != nil {
				require.True(t, errors.Is(err, tc.expectedError))
			} else {
				require.NoError(t, err)
			}

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestTransactionRepository_HasRecentPendingDuplicate(t *testing.T) {
	repo, mock := newTransactionRepo(t)

	userID := uuid.New()
	amount := decimal.NewFromInt(250)

	mock.ExpectQuery("SELECT count").
		WithArgs(userID, model.TransactionStatusPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	dup, err := repo.HasRecentPendingDuplicate(context.Background(), userID, amount, 5*time.Minute)
	require.NoError(t, err)
	require.True(t, dup)

	require.NoError(t, mock.ExpectationsWereMet())
}
