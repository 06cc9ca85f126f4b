package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/opencase/benefits-portal-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCaseRepositoryCreateWritesAudit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCaseRepository(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO cases")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c := &models.Case{
		CaseNumber:   "BC-20260310-AAAA1111",
		MemberID:     "member-1",
		EmployeeName: "Dana Smith",
		WorkshopCode: "WS-204",
		NumReports:   2,
	}
	actor := "member-1"
	audit := &models.AuditLog{ActorID: &actor, Action: models.AuditActionCaseCreated, Description: "case opened"}

	require.NoError(t, repo.Create(context.Background(), c, audit))
	require.NotEmpty(t, c.ID)
	require.Equal(t, models.CaseStatusDraft, c.Status)
	require.Equal(t, models.SyncStatusPending, c.APISyncStatus)
	require.NotNil(t, audit.CaseID)
	require.Equal(t, c.ID, *audit.CaseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryApplyTransitionGuardsStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCaseRepository(db)
	status := models.CaseStatusSubmitted
	params := TransitionParams{
		CaseID:       "case-1",
		FromStatuses: []models.CaseStatus{models.CaseStatusDraft},
		Update:       CaseUpdate{Status: &status},
		Audit:        &models.AuditLog{Action: models.AuditActionCaseSubmitted, Description: "submitted"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cases SET .+ AND status IN \\('draft'\\)").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ApplyTransition(context.Background(), params))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryApplyTransitionLostRace(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCaseRepository(db)
	status := models.CaseStatusAccepted
	params := TransitionParams{
		CaseID:       "case-1",
		FromStatuses: []models.CaseStatus{models.CaseStatusSubmitted},
		Update:       CaseUpdate{Status: &status},
		Audit:        &models.AuditLog{Action: models.AuditActionCaseAccepted},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cases SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.ApplyTransition(context.Background(), params)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryApplyTransitionWritesCredit(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCaseRepository(db)
	status := models.CaseStatusSubmitted
	value := 2.0
	params := TransitionParams{
		CaseID:       "case-1",
		FromStatuses: []models.CaseStatus{models.CaseStatusDraft},
		Update:       CaseUpdate{Status: &status, CreditValue: &value},
		Audit:        &models.AuditLog{Action: models.AuditActionCaseSubmitted},
		Credit: &models.CreditAuditLog{
			ValueBefore: 0,
			ValueAfter:  2.0,
			Context:     models.CreditContextSubmission,
			Reason:      "default credit for 3 report(s)",
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE cases SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO credit_audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.ApplyTransition(context.Background(), params))
	require.Equal(t, "case-1", params.Credit.CaseID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryStampReleaseIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCaseRepository(db)
	releasedAt := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cases SET actual_release_date")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	audit := &models.AuditLog{Action: models.AuditActionCaseReleased, Description: "released"}
	require.NoError(t, repo.StampRelease(context.Background(), "case-1", releasedAt, audit))

	// Second stamp finds the null guard already satisfied.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cases SET actual_release_date")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.StampRelease(context.Background(), "case-1", releasedAt, audit)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryStampEmailSentIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCaseRepository(db)
	sentAt := time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cases SET actual_email_sent_date")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_logs")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	audit := &models.AuditLog{Action: models.AuditActionEmailSent, Description: "notified"}
	require.NoError(t, repo.StampEmailSent(context.Background(), "case-1", sentAt, audit))

	// Second stamp finds the null guard already satisfied.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE cases SET actual_email_sent_date")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.StampEmailSent(context.Background(), "case-1", sentAt, audit)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryUpdateSyncResultKeepsExternalID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCaseRepository(db)
	external := "EXT-77"
	syncedAt := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("external_case_id = COALESCE(external_case_id, $2)")).
		WithArgs(models.SyncStatusSynced, &external, &syncedAt, sqlmock.AnyArg(), "case-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateSyncResult(context.Background(), SyncResultParams{
		CaseID:         "case-1",
		Status:         models.SyncStatusSynced,
		ExternalCaseID: &external,
		SyncedAt:       &syncedAt,
	}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryListReleaseDue(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewCaseRepository(db)
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	scheduled := today.AddDate(0, 0, -1)

	rows := sqlmock.NewRows([]string{"id", "case_number", "status", "member_id", "scheduled_release_date"}).
		AddRow("case-1", "BC-20260220-AAAA1111", "completed", "member-1", scheduled)
	mock.ExpectQuery("SELECT .+ FROM cases\\s+WHERE status = \\$1 AND actual_release_date IS NULL").
		WithArgs(models.CaseStatusCompleted, today).
		WillReturnRows(rows)

	due, err := repo.ListReleaseDue(context.Background(), today)
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "case-1", due[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}
