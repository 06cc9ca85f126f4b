package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencase/benefits-portal-api/internal/models"
)

// APICallRepository persists the external-system call log.
type APICallRepository struct {
	db *sqlx.DB
}

// NewAPICallRepository constructs the repository.
func NewAPICallRepository(db *sqlx.DB) *APICallRepository {
	return &APICallRepository{db: db}
}

// Open records the start of one sync attempt.
func (r *APICallRepository) Open(ctx context.Context, log *models.APICallLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if log.AttemptNumber <= 0 {
		log.AttemptNumber = 1
	}
	const query = `INSERT INTO api_call_logs
	(id, case_id, endpoint, request_payload, response_status, response_body, success, error_message, attempt_number, created_at, completed_at)
	VALUES (:id, :case_id, :endpoint, :request_payload, :response_status, :response_body, :success, :error_message, :attempt_number, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("open api call log: %w", err)
	}
	return nil
}

// CallResultParams carries the outcome written back onto an open attempt.
type CallResultParams struct {
	ResponseStatus *int
	ResponseBody   *string
	Success        bool
	ErrorMessage   *string
	CompletedAt    time.Time
}

// Complete records the result of an attempt exactly once. A second completion
// finds no open row and reports sql.ErrNoRows.
func (r *APICallRepository) Complete(ctx context.Context, id string, params CallResultParams) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE api_call_logs
		 SET response_status = $1, response_body = $2, success = $3, error_message = $4, completed_at = $5
		 WHERE id = $6 AND completed_at IS NULL`,
		params.ResponseStatus, params.ResponseBody, params.Success, params.ErrorMessage, params.CompletedAt, id)
	if err != nil {
		return fmt.Errorf("complete api call log: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check api call log rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByCase returns the number of recorded attempts for one case, which is
// the attempt count consulted by the retry ceiling.
func (r *APICallRepository) CountByCase(ctx context.Context, caseID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM api_call_logs WHERE case_id = $1`, caseID); err != nil {
		return 0, fmt.Errorf("count api call logs: %w", err)
	}
	return count, nil
}

// ListByCase returns all attempts for one case, oldest first.
func (r *APICallRepository) ListByCase(ctx context.Context, caseID string) ([]models.APICallLog, error) {
	const query = `SELECT id, case_id, endpoint, request_payload, response_status, response_body,
	       success, error_message, attempt_number, created_at, completed_at
	FROM api_call_logs WHERE case_id = $1 ORDER BY created_at ASC`
	var logs []models.APICallLog
	if err := r.db.SelectContext(ctx, &logs, query, caseID); err != nil {
		return nil, fmt.Errorf("list api call logs: %w", err)
	}
	return logs, nil
}
