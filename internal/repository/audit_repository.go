package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencase/benefits-portal-api/internal/models"
)

// AuditRepository persists the append-only audit trail.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository constructs the repository.
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog appends one audit entry.
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	return insertAuditLog(ctx, r.db, log)
}

// ListByCase returns the audit trail for one case, oldest first.
func (r *AuditRepository) ListByCase(ctx context.Context, caseID string, limit, offset int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `SELECT id, actor_id, action, description, case_id, changes, metadata, ip_address, created_at
	FROM audit_logs WHERE case_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`
	var logs []models.AuditLog
	if err := r.db.SelectContext(ctx, &logs, query, caseID, limit, offset); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

// CountByCaseAndAction counts audit entries of one action kind for a case.
func (r *AuditRepository) CountByCaseAndAction(ctx context.Context, caseID, action string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM audit_logs WHERE case_id = $1 AND action = $2`, caseID, action)
	if err != nil {
		return 0, fmt.Errorf("count audit logs: %w", err)
	}
	return count, nil
}

// insertAuditLog writes an audit row through any sqlx executor so callers can
// include it in their own transactions.
func insertAuditLog(ctx context.Context, ext sqlx.ExtContext, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO audit_logs
	(id, actor_id, action, description, case_id, changes, metadata, ip_address, created_at)
	VALUES (:id, :actor_id, :action, :description, :case_id, :changes, :metadata, :ip_address, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, ext, query, log); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}
