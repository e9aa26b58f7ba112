package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"bidmarket/internal/app/model"
	"bidmarket/internal/app/storage"

	"github.com/google/uuid"
	"github.com/rs/xid"
)

// storage.AuditRepository interface implementation
var _ storage.AuditRepository = (*AuditRepository)(nil)

type AuditRepository struct {
	db *sql.DB
}

func (r *AuditRepository) LoggerComponent() string {
	return "AuditRepository"
}

func NewAuditRepository(db *sql.DB) (*AuditRepository, error) {
	s := &AuditRepository{
		db: db,
	}
	return s, nil
}

// Record implementation of interface storage.AuditRepository
func (r *AuditRepository) Record(ctx context.Context, userID uuid.UUID, ev model.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("event encode: %w", err)
	}

	const SQL = `INSERT INTO audit_events (external_id, user_id, kind, payload) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, SQL, xid.New().String(), userID, ev.Kind(), payload); err != nil {
		return fmt.Errorf("audit insert: %w", err)
	}

	return nil
}
