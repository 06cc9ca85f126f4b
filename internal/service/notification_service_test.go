package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/opencase/benefits-portal-api/internal/models"
	"github.com/opencase/benefits-portal-api/internal/notifications"
	"github.com/opencase/benefits-portal-api/pkg/clock"
)

type notificationStoreStub struct {
	due     []models.Case
	stamped map[string]time.Time
	audits  []*models.AuditLog
}

func newNotificationStoreStub() *notificationStoreStub {
	return &notificationStoreStub{stamped: make(map[string]time.Time)}
}

func (s *notificationStoreStub) ListEmailDue(ctx context.Context, today time.Time) ([]models.Case, error) {
	return s.due, nil
}

func (s *notificationStoreStub) StampEmailSent(ctx context.Context, caseID string, sentAt time.Time, audit *models.AuditLog) error {
	if _, done := s.stamped[caseID]; done {
		return sql.ErrNoRows
	}
	s.stamped[caseID] = sentAt
	if audit != nil {
		s.audits = append(s.audits, audit)
	}
	return nil
}

func emailDueCase(id, email string) models.Case {
	scheduled := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	return models.Case{
		ID:                 id,
		CaseNumber:         "BC-20260220-ABCD1234",
		Status:             models.CaseStatusCompleted,
		MemberEmail:        email,
		EmployeeName:       "Dana Smith",
		ScheduledEmailDate: &scheduled,
	}
}

func newNotificationFixture(t *testing.T, repo *notificationStoreStub, audit auditLogger, sender notifications.Sender, settings models.SystemSettings) *NotificationService {
	t.Helper()
	renderer, err := notifications.NewRenderer("https://portal.example")
	require.NoError(t, err)
	fixed := clock.Fixed{Instant: time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)}
	return NewNotificationService(repo, &settingsStub{settings: settings}, audit, renderer, sender, fixed, nil)
}

func TestSendDueNotificationsDelivers(t *testing.T) {
	repo := newNotificationStoreStub()
	repo.due = []models.Case{emailDueCase("c1", "dana@example.com")}
	var sent []notifications.Message
	sender := notifications.SenderFunc(func(ctx context.Context, msg notifications.Message) error {
		sent = append(sent, msg)
		return nil
	})
	svc := newNotificationFixture(t, repo, &auditStub{}, sender, models.DefaultSettings())

	result, err := svc.SendDueNotifications(context.Background(), time.Time{}, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.Len(t, sent, 1)
	require.Equal(t, "dana@example.com", sent[0].To)
	require.Contains(t, sent[0].Subject, "BC-20260220-ABCD1234")
	require.Contains(t, sent[0].Body, "https://portal.example/cases/c1")

	require.Len(t, repo.stamped, 1)
	require.Len(t, repo.audits, 1)
	require.Equal(t, models.AuditActionEmailSent, repo.audits[0].Action)
}

func TestSendDueNotificationsGlobalFlagOff(t *testing.T) {
	repo := newNotificationStoreStub()
	repo.due = []models.Case{emailDueCase("c1", "dana@example.com")}
	audit := &auditStub{}
	sender := notifications.SenderFunc(func(ctx context.Context, msg notifications.Message) error {
		t.Fatal("sender must not be called when email is disabled")
		return nil
	})
	settings := models.DefaultSettings()
	settings.EmailEnabled = false
	svc := newNotificationFixture(t, repo, audit, sender, settings)

	result, err := svc.SendDueNotifications(context.Background(), time.Time{}, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)
	require.Empty(t, repo.stamped)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionEmailSkipped, audit.logs[0].Action)
}

func TestSendDueNotificationsMissingEmailSkips(t *testing.T) {
	repo := newNotificationStoreStub()
	repo.due = []models.Case{emailDueCase("c1", "")}
	audit := &auditStub{}
	sender := notifications.SenderFunc(func(ctx context.Context, msg notifications.Message) error {
		t.Fatal("sender must not be called without an address")
		return nil
	})
	svc := newNotificationFixture(t, repo, audit, sender, models.DefaultSettings())

	result, err := svc.SendDueNotifications(context.Background(), time.Time{}, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.Skipped)
	require.Empty(t, repo.stamped)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionEmailSkipped, audit.logs[0].Action)
}

func TestSendDueNotificationsSendFailure(t *testing.T) {
	repo := newNotificationStoreStub()
	repo.due = []models.Case{emailDueCase("c1", "dana@example.com")}
	audit := &auditStub{}
	sender := notifications.SenderFunc(func(ctx context.Context, msg notifications.Message) error {
		return errors.New("relay refused")
	})
	svc := newNotificationFixture(t, repo, audit, sender, models.DefaultSettings())

	result, err := svc.SendDueNotifications(context.Background(), time.Time{}, false)
	require.NoError(t, err)
	require.Equal(t, 1, result.Failed)
	// No stamp on failure: the next sweep retries delivery.
	require.Empty(t, repo.stamped)
	require.Len(t, audit.logs, 1)
	require.Equal(t, models.AuditActionEmailFailed, audit.logs[0].Action)
}

func TestSendDueNotificationsDryRun(t *testing.T) {
	repo := newNotificationStoreStub()
	repo.due = []models.Case{emailDueCase("c1", "dana@example.com")}
	audit := &auditStub{}
	sender := notifications.SenderFunc(func(ctx context.Context, msg notifications.Message) error {
		t.Fatal("sender must not be called in dry run")
		return nil
	})
	svc := newNotificationFixture(t, repo, audit, sender, models.DefaultSettings())

	result, err := svc.SendDueNotifications(context.Background(), time.Time{}, true)
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)
	require.True(t, result.DryRun)
	require.Empty(t, repo.stamped)
	require.Empty(t, audit.logs)
}
