package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"bidmarket/internal/app/apperr"
	"bidmarket/internal/app/logger"
	"bidmarket/internal/app/model"
	"bidmarket/internal/app/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	pg "github.com/lib/pq"
	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// storage.TransactionRepository interface implementation
var _ storage.TransactionRepository = (*TransactionRepository)(nil)

type TransactionRepository struct {
	db *sql.DB
}

func (r *TransactionRepository) LoggerComponent() string {
	return "TransactionRepository"
}

func NewTransactionRepository(db *sql.DB) (*TransactionRepository, error) {
	s := &TransactionRepository{
		db: db,
	}
	return s, nil
}

// Create implementation of interface storage.TransactionRepository
func (r *TransactionRepository) Create(ctx context.Context, m *model.PaymentTransaction) (*model.PaymentTransaction, error) {
	l := logger.Ctx(ctx).With().
		Str("method", "Create").
		Str("transaction_id", m.TransactionID).
		Logger()
	l.Debug().Msg("Creating transaction")

	const SQL = `
		INSERT INTO payment_transactions
			(transaction_id, user_id, amount, payment_method, status, fraud_score, risk_level, security_flags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
`
	if m.Status == "" {
		m.Status = model.TransactionStatusPending
	}

	flags, err := json.Marshal(m.SecurityFlags)
	if err != nil {
		return nil, fmt.Errorf("flags encode: %w", err)
	}

	err = r.db.QueryRowContext(ctx, SQL,
		m.TransactionID, m.UserID, m.Amount, m.PaymentMethod, m.Status, m.FraudScore, m.RiskLevel, flags).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		if pgErr, ok := err.(*pg.Error); ok {
			if pgerrcode.IsIntegrityConstraintViolation(string(pgErr.Code)) {
				return nil, apperr.ErrConflict
			}
		}
		return nil, fmt.Errorf("insert: %w", err)
	}

	return m, nil
}

// ReadByTransactionID implementation of interface storage.TransactionRepository
func (r *TransactionRepository) ReadByTransactionID(ctx context.Context, transactionID string) (*model.PaymentTransaction, error) {
	const SQL = `
		SELECT id, transaction_id, user_id, amount, payment_method, status, fraud_score, risk_level, created_at, settled_at
		FROM payment_transactions
		WHERE transaction_id=$1
`
	m := &model.PaymentTransaction{}

	err := r.db.QueryRowContext(ctx, SQL, transactionID).
		Scan(&m.ID, &m.TransactionID, &m.UserID, &m.Amount, &m.PaymentMethod, &m.Status, &m.FraudScore, &m.RiskLevel, &m.CreatedAt, &m.SettledAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.ErrNotFound
		}
		return nil, fmt.Errorf("select: %w", err)
	}

	return m, nil
}

// Settle implementation of interface storage.TransactionRepository.
//
// The conditional UPDATE ... WHERE status='pending' is the sole serialization
// point: exactly one of any number of concurrent callers matches the row, and
// only that winner proceeds to the wallet credit. Losers re-evaluate the
// predicate after the winner's lock releases, see status=success and fall
// into the already-processed path, so the default isolation level is enough.
// The credit and the audit rows live in the same database transaction as the
// flip, so a failure after the flip rolls the status back to pending instead
// of leaving the transaction settled but uncredited.
func (r *TransactionRepository) Settle(ctx context.Context, transactionID string) (*storage.SettleResult, error) {
	l := logger.Ctx(ctx).With().
		Str("method", "Settle").
		Str("transaction_id", transactionID).
		Logger()
	l.Debug().Msg("Settling transaction")

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Msg("DB transaction begin")
		return nil, err
	}

	now := time.Now()

	m := &model.PaymentTransaction{}
	const sqlFlip = `
		UPDATE payment_transactions
		SET status=$1, settled_at=$2
		WHERE transaction_id=$3 AND status=$4
		RETURNING id, user_id, amount, payment_method, created_at
`
	err = tx.QueryRowContext(ctx, sqlFlip,
		model.TransactionStatusSuccess, now, transactionID, model.TransactionStatusPending).
		Scan(&m.ID, &m.UserID, &m.Amount, &m.PaymentMethod, &m.CreatedAt)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			// Already transitioned by a prior or concurrent call. Expected
			// under at-least-once delivery from the gateway, not an error.
			return &storage.SettleResult{AlreadyProcessed: true}, nil
		}
		l.Error().Err(err).Msg("Status flip failed")
		return nil, err
	}
	m.TransactionID = transactionID
	m.Status = model.TransactionStatusSuccess
	m.SettledAt = &now

	const sqlCredit = `UPDATE users SET balance=balance+$1 WHERE id=$2`
	res, err := tx.ExecContext(ctx, sqlCredit, m.Amount, m.UserID)
	if err != nil {
		l.Error().Err(err).Msg("Wallet credit failed")
		_ = tx.Rollback()
		return nil, fmt.Errorf("%w: %v", apperr.ErrUncredited, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		l.Error().Str("user_id", m.UserID.String()).Msg("Wallet credit matched no user")
		_ = tx.Rollback()
		return nil, apperr.ErrUncredited
	}

	if err := r.txRecordAudit(ctx, tx, m.UserID, model.PaymentSettledEvent{
		TransactionID: transactionID,
		UserID:        m.UserID,
		Amount:        m.Amount,
		SettledAt:     now,
	}); err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	if err := r.txRecordAudit(ctx, tx, m.UserID, model.WalletCreditedEvent{
		TransactionID: transactionID,
		UserID:        m.UserID,
		Amount:        m.Amount,
	}); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Msg("TX commit failed")
		return nil, err
	}

	dur := time.Since(now)
	l.Debug().Dur("duration", dur).Msg("Done settling")

	return &storage.SettleResult{Transaction: m}, nil
}

// MarkFailed implementation of interface storage.TransactionRepository
func (r *TransactionRepository) MarkFailed(ctx context.Context, transactionID string) error {
	const SQL = `
		UPDATE payment_transactions
		SET status=$1
		WHERE transaction_id=$2 AND status=$3
`
	res, err := r.db.ExecContext(ctx, SQL, model.TransactionStatusFailed, transactionID, model.TransactionStatusPending)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.ErrNotFound
	}

	return nil
}

// CountRecentByUser implementation of interface storage.TransactionRepository
func (r *TransactionRepository) CountRecentByUser(ctx context.Context, userID uuid.UUID, window time.Duration) (int, error) {
	const SQL = `
		SELECT count(*)
		FROM payment_transactions
		WHERE user_id=$1 AND status IN ($2, $3) AND created_at > $4
`
	var cnt int
	since := time.Now().Add(-window)

	err := r.db.QueryRowContext(ctx, SQL, userID, model.TransactionStatusPending, model.TransactionStatusSuccess, since).Scan(&cnt)
	if err != nil {
		return 0, fmt.Errorf("select: %w", err)
	}

	return cnt, nil
}

// HasRecentPendingDuplicate implementation of interface storage.TransactionRepository
func (r *TransactionRepository) HasRecentPendingDuplicate(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, window time.Duration) (bool, error) {
	const SQL = `
		SELECT count(*)
		FROM payment_transactions
		WHERE user_id=$1 AND status=$2 AND amount=$3 AND created_at > $4
`
	var cnt int
	since := time.Now().Add(-window)

	err := r.db.QueryRowContext(ctx, SQL, userID, model.TransactionStatusPending, amount, since).Scan(&cnt)
	if err != nil {
		return false, fmt.Errorf("select: %w", err)
	}

	return cnt > 0, nil
}

// RecentByUser implementation of interface storage.TransactionRepository
func (r *TransactionRepository) RecentByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*model.PaymentTransaction, error) {
	const SQL = `
		SELECT id, transaction_id, user_id, amount, payment_method, status, created_at
		FROM payment_transactions
		WHERE user_id=$1
		ORDER BY created_at DESC
		LIMIT $2
`
	res := make([]*model.PaymentTransaction, 0)
	rows, err := r.db.QueryContext(ctx, SQL, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m := &model.PaymentTransaction{}
		if err := rows.Scan(&m.ID, &m.TransactionID, &m.UserID, &m.Amount, &m.PaymentMethod, &m.Status, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	return res, nil
}

// CountRecentFailed implementation of interface storage.TransactionRepository
func (r *TransactionRepository) CountRecentFailed(ctx context.Context, userID uuid.UUID, window time.Duration) (int, error) {
	const SQL = `
		SELECT count(*)
		FROM payment_transactions
		WHERE user_id=$1 AND status=$2 AND created_at > $3
`
	var cnt int
	since := time.Now().Add(-window)

	err := r.db.QueryRowContext(ctx, SQL, userID, model.TransactionStatusFailed, since).Scan(&cnt)
	if err != nil {
		return 0, fmt.Errorf("select: %w", err)
	}

	return cnt, nil
}

func (r *TransactionRepository) txRecordAudit(ctx context.Context, tx *sql.Tx, userID uuid.UUID, ev model.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("event encode: %w", err)
	}

	const SQL = `INSERT INTO audit_events (external_id, user_id, kind, payload) VALUES ($1, $2, $3, $4)`
	if _, err := tx.ExecContext(ctx, SQL, xid.New().String(), userID, ev.Kind(), payload); err != nil {
		return fmt.Errorf("audit insert: %w", err)
	}

	return nil
}
