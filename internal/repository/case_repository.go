package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/opencase/benefits-portal-api/internal/models"
)

const caseColumns = `id, case_number, status, member_id, technician_id, reviewer_id,
       member_email, employee_name, workshop_code, num_reports, tier, rush,
       credit_value, credit_reason, submitted_at, accepted_at, completed_at,
       scheduled_release_date, actual_release_date, scheduled_email_date, actual_email_sent_date,
       hold_reason, hold_started_at, hold_ends_at, pre_hold_status,
       external_case_id, api_sync_status, last_synced_at, form_data, created_at, updated_at`

// CaseRepository persists benefits cases and their lifecycle bookkeeping.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository constructs the repository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create inserts a new draft case together with its creation audit entry.
func (r *CaseRepository) Create(ctx context.Context, c *models.Case, audit *models.AuditLog) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.CaseStatusDraft
	}
	if c.APISyncStatus == "" {
		c.APISyncStatus = models.SyncStatusPending
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create case: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO cases
	(id, case_number, status, member_id, technician_id, reviewer_id,
	 member_email, employee_name, workshop_code, num_reports, tier, rush,
	 credit_value, credit_reason, submitted_at, accepted_at, completed_at,
	 scheduled_release_date, actual_release_date, scheduled_email_date, actual_email_sent_date,
	 hold_reason, hold_started_at, hold_ends_at, pre_hold_status,
	 external_case_id, api_sync_status, last_synced_at, form_data, created_at, updated_at)
	VALUES (:id, :case_number, :status, :member_id, :technician_id, :reviewer_id,
	 :member_email, :employee_name, :workshop_code, :num_reports, :tier, :rush,
	 :credit_value, :credit_reason, :submitted_at, :accepted_at, :completed_at,
	 :scheduled_release_date, :actual_release_date, :scheduled_email_date, :actual_email_sent_date,
	 :hold_reason, :hold_started_at, :hold_ends_at, :pre_hold_status,
	 :external_case_id, :api_sync_status, :last_synced_at, :form_data, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	if audit != nil {
		audit.CaseID = &c.ID
		if err := insertAuditLog(ctx, tx, audit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetByID fetches a case by identifier.
func (r *CaseRepository) GetByID(ctx context.Context, id string) (*models.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases WHERE id = $1`, caseColumns)
	var c models.Case
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns cases matching the filter, newest first.
func (r *CaseRepository) List(ctx context.Context, filter models.CaseFilter) ([]models.Case, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 4)
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM cases`, caseColumns))

	conditions := make([]string, 0, 4)
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.MemberID != "" {
		args = append(args, filter.MemberID)
		conditions = append(conditions, fmt.Sprintf("member_id = $%d", len(args)))
	}
	if filter.TechnicianID != "" {
		args = append(args, filter.TechnicianID)
		conditions = append(conditions, fmt.Sprintf("technician_id = $%d", len(args)))
	}
	if filter.SyncStatus != "" {
		args = append(args, filter.SyncStatus)
		conditions = append(conditions, fmt.Sprintf("api_sync_status = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	return cases, nil
}

// CaseUpdate groups the mutable columns a transition may set. Nil fields are
// left untouched; ClearHold resets all hold bookkeeping columns.
type CaseUpdate struct {
	Status               *models.CaseStatus
	TechnicianID         *string
	ReviewerID           *string
	Tier                 *string
	CreditValue          *float64
	CreditReason         *string
	SubmittedAt          *time.Time
	AcceptedAt           *time.Time
	CompletedAt          *time.Time
	ScheduledReleaseDate *time.Time
	ScheduledEmailDate   *time.Time
	HoldReason           *string
	HoldStartedAt        *time.Time
	HoldEndsAt           *time.Time
	PreHoldStatus        *models.CaseStatus
	ClearHold            bool
}

// TransitionParams describes one atomic lifecycle transition: the guarded
// case update plus the audit (and optional credit) rows written with it.
type TransitionParams struct {
	CaseID       string
	FromStatuses []models.CaseStatus
	Update       CaseUpdate
	Audit        *models.AuditLog
	Credit       *models.CreditAuditLog
}

// ApplyTransition performs the status-guarded update and its log inserts in a
// single transaction. It returns sql.ErrNoRows when the case is no longer in
// one of FromStatuses, which is how concurrent transitions on the same case
// lose the race without leaving mixed state.
func (r *CaseRepository) ApplyTransition(ctx context.Context, params TransitionParams) error {
	setParts, args := buildCaseSet(params.Update)
	if len(setParts) == 0 {
		return fmt.Errorf("transition for case %s sets no columns", params.CaseID)
	}
	args["id"] = params.CaseID
	args["updated_at"] = time.Now().UTC()
	setParts = append(setParts, "updated_at = :updated_at")

	query := fmt.Sprintf("UPDATE cases SET %s WHERE id = :id", strings.Join(setParts, ", "))
	if len(params.FromStatuses) > 0 {
		quoted := make([]string, len(params.FromStatuses))
		for i, status := range params.FromStatuses {
			quoted[i] = fmt.Sprintf("'%s'", status)
		}
		query += fmt.Sprintf(" AND status IN (%s)", strings.Join(quoted, ","))
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.NamedExecContext(ctx, query, args)
	if err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check transition rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}

	if params.Audit != nil {
		params.Audit.CaseID = &params.CaseID
		if err := insertAuditLog(ctx, tx, params.Audit); err != nil {
			return err
		}
	}
	if params.Credit != nil {
		params.Credit.CaseID = params.CaseID
		if err := insertCreditAuditLog(ctx, tx, params.Credit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func buildCaseSet(u CaseUpdate) ([]string, map[string]interface{}) {
	parts := make([]string, 0, 12)
	args := make(map[string]interface{}, 12)

	set := func(column string, value interface{}) {
		parts = append(parts, fmt.Sprintf("%s = :%s", column, column))
		args[column] = value
	}

	if u.Status != nil {
		set("status", *u.Status)
	}
	if u.TechnicianID != nil {
		set("technician_id", *u.TechnicianID)
	}
	if u.ReviewerID != nil {
		set("reviewer_id", *u.ReviewerID)
	}
	if u.Tier != nil {
		set("tier", *u.Tier)
	}
	if u.CreditValue != nil {
		set("credit_value", *u.CreditValue)
	}
	if u.CreditReason != nil {
		set("credit_reason", *u.CreditReason)
	}
	if u.SubmittedAt != nil {
		set("submitted_at", *u.SubmittedAt)
	}
	if u.AcceptedAt != nil {
		set("accepted_at", *u.AcceptedAt)
	}
	if u.CompletedAt != nil {
		set("completed_at", *u.CompletedAt)
	}
	if u.ScheduledReleaseDate != nil {
		set("scheduled_release_date", *u.ScheduledReleaseDate)
	}
	if u.ScheduledEmailDate != nil {
		set("scheduled_email_date", *u.ScheduledEmailDate)
	}
	if u.HoldReason != nil {
		set("hold_reason", *u.HoldReason)
	}
	if u.HoldStartedAt != nil {
		set("hold_started_at", *u.HoldStartedAt)
	}
	if u.HoldEndsAt != nil {
		set("hold_ends_at", *u.HoldEndsAt)
	}
	if u.PreHoldStatus != nil {
		set("pre_hold_status", *u.PreHoldStatus)
	}
	if u.ClearHold {
		parts = append(parts,
			"hold_reason = NULL",
			"hold_started_at = NULL",
			"hold_ends_at = NULL",
			"pre_hold_status = NULL",
		)
	}
	return parts, args
}

// ListReleaseDue returns completed, unreleased cases whose scheduled release
// date has passed as of the supplied civil date.
func (r *CaseRepository) ListReleaseDue(ctx context.Context, today time.Time) ([]models.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases
	WHERE status = $1 AND actual_release_date IS NULL
	  AND scheduled_release_date IS NOT NULL AND scheduled_release_date <= $2
	ORDER BY scheduled_release_date ASC`, caseColumns)
	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, query, models.CaseStatusCompleted, today); err != nil {
		return nil, fmt.Errorf("list release due: %w", err)
	}
	return cases, nil
}

// ListEmailDue returns completed cases with a due, unsent member notification.
func (r *CaseRepository) ListEmailDue(ctx context.Context, today time.Time) ([]models.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases
	WHERE status = $1 AND actual_email_sent_date IS NULL
	  AND scheduled_email_date IS NOT NULL AND scheduled_email_date <= $2
	ORDER BY scheduled_email_date ASC`, caseColumns)
	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, query, models.CaseStatusCompleted, today); err != nil {
		return nil, fmt.Errorf("list email due: %w", err)
	}
	return cases, nil
}

// ListSyncRetryCandidates returns submitted cases whose last sync attempt
// failed and that never received an external identifier.
func (r *CaseRepository) ListSyncRetryCandidates(ctx context.Context) ([]models.Case, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases
	WHERE status = $1 AND api_sync_status = $2 AND external_case_id IS NULL
	ORDER BY updated_at ASC`, caseColumns)
	var cases []models.Case
	if err := r.db.SelectContext(ctx, &cases, query, models.CaseStatusSubmitted, models.SyncStatusFailed); err != nil {
		return nil, fmt.Errorf("list sync retry candidates: %w", err)
	}
	return cases, nil
}

// StampRelease marks a due case released. The null guard on
// actual_release_date makes repeated sweeps within a day idempotent.
func (r *CaseRepository) StampRelease(ctx context.Context, caseID string, releasedAt time.Time, audit *models.AuditLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin release stamp: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		`UPDATE cases SET actual_release_date = $1, updated_at = $2
		 WHERE id = $3 AND status = $4 AND actual_release_date IS NULL`,
		releasedAt, time.Now().UTC(), caseID, models.CaseStatusCompleted)
	if err != nil {
		return fmt.Errorf("stamp release: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check release rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	if audit != nil {
		audit.CaseID = &caseID
		if err := insertAuditLog(ctx, tx, audit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// StampEmailSent marks the member notification delivered, at most once.
func (r *CaseRepository) StampEmailSent(ctx context.Context, caseID string, sentAt time.Time, audit *models.AuditLog) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin email stamp: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	result, err := tx.ExecContext(ctx,
		`UPDATE cases SET actual_email_sent_date = $1, updated_at = $2
		 WHERE id = $3 AND actual_email_sent_date IS NULL`,
		sentAt, time.Now().UTC(), caseID)
	if err != nil {
		return fmt.Errorf("stamp email sent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check email rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	if audit != nil {
		audit.CaseID = &caseID
		if err := insertAuditLog(ctx, tx, audit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SyncResultParams captures the outcome of one external submission attempt.
type SyncResultParams struct {
	CaseID         string
	Status         models.SyncStatus
	ExternalCaseID *string
	SyncedAt       *time.Time
}

// UpdateSyncResult records a sync outcome. The COALESCE keeps an already
// assigned external identifier from ever being overwritten.
func (r *CaseRepository) UpdateSyncResult(ctx context.Context, params SyncResultParams) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE cases SET api_sync_status = $1,
		       external_case_id = COALESCE(external_case_id, $2),
		       last_synced_at = COALESCE($3, last_synced_at),
		       updated_at = $4
		 WHERE id = $5`,
		params.Status, params.ExternalCaseID, params.SyncedAt, time.Now().UTC(), params.CaseID)
	if err != nil {
		return fmt.Errorf("update sync result: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check sync result rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
