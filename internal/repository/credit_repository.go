package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencase/benefits-portal-api/internal/models"
)

// CreditRepository persists the append-only credit valuation history.
type CreditRepository struct {
	db *sqlx.DB
}

// NewCreditRepository constructs the repository.
func NewCreditRepository(db *sqlx.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// Create appends one credit audit entry.
func (r *CreditRepository) Create(ctx context.Context, entry *models.CreditAuditLog) error {
	return insertCreditAuditLog(ctx, r.db, entry)
}

// ListByCase returns the credit history for one case, oldest first.
func (r *CreditRepository) ListByCase(ctx context.Context, caseID string) ([]models.CreditAuditLog, error) {
	const query = `SELECT id, case_id, value_before, value_after, actor_id, context, reason, created_at
	FROM credit_audit_logs WHERE case_id = $1 ORDER BY created_at ASC`
	var entries []models.CreditAuditLog
	if err := r.db.SelectContext(ctx, &entries, query, caseID); err != nil {
		return nil, fmt.Errorf("list credit audit logs: %w", err)
	}
	return entries, nil
}

// insertCreditAuditLog writes a credit history row through any sqlx executor
// so status transitions can include it in their transaction.
func insertCreditAuditLog(ctx context.Context, ext sqlx.ExtContext, entry *models.CreditAuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO credit_audit_logs
	(id, case_id, value_before, value_after, actor_id, context, reason, created_at)
	VALUES (:id, :case_id, :value_before, :value_after, :actor_id, :context, :reason, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, entry); err != nil {
		return fmt.Errorf("create credit audit log: %w", err)
	}
	return nil
}
