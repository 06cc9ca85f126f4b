package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opencase/benefits-portal-api/internal/dto"
	"github.com/opencase/benefits-portal-api/internal/models"
	"github.com/opencase/benefits-portal-api/internal/notifications"
	"github.com/opencase/benefits-portal-api/pkg/clock"
	appErrors "github.com/opencase/benefits-portal-api/pkg/errors"
)

type notificationStore interface {
	ListEmailDue(ctx context.Context, today time.Time) ([]models.Case, error)
	StampEmailSent(ctx context.Context, caseID string, sentAt time.Time, audit *models.AuditLog) error
}

// NotificationService runs the member notification sweep. Delivery is
// at-most-once: the sent stamp is written only after the sender returns, and
// the null guard on the stamp keeps a concurrent sweep from sending twice.
type NotificationService struct {
	repo     notificationStore
	settings settingsProvider
	audit    auditLogger
	renderer *notifications.Renderer
	sender   notifications.Sender
	clk      clock.Clock
	logger   *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationStore, settings settingsProvider, audit auditLogger, renderer *notifications.Renderer, sender notifications.Sender, clk clock.Clock, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		repo:     repo,
		settings: settings,
		audit:    audit,
		renderer: renderer,
		sender:   sender,
		clk:      clk,
		logger:   logger,
	}
}

// SendDueNotifications delivers every due, unsent member notification as of
// the supplied civil date. With the global email flag off, every candidate is
// skipped and a skip entry is audited so the trail explains the silence.
func (s *NotificationService) SendDueNotifications(ctx context.Context, today time.Time, dryRun bool) (*dto.SweepResult, error) {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}

	if today.IsZero() {
		today = s.clk.Today()
	}
	due, err := s.repo.ListEmailDue(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list due notifications")
	}

	result := &dto.SweepResult{DryRun: dryRun}
	for i := range due {
		c := &due[i]
		switch {
		case !settings.EmailEnabled:
			result.Skipped++
			if !dryRun {
				s.auditOutcome(ctx, c.ID, models.AuditActionEmailSkipped, "email notifications disabled by settings")
			}
		case c.MemberEmail == "":
			// Permanent skip: without an address there is nothing to retry.
			result.Skipped++
			s.logger.Warn("case has no member email, notification skipped",
				zap.String("case_id", c.ID))
			if !dryRun {
				s.auditOutcome(ctx, c.ID, models.AuditActionEmailSkipped, "no member email on record")
			}
		case dryRun:
			result.Processed++
		default:
			if s.deliver(ctx, c) {
				result.Processed++
			} else {
				result.Failed++
			}
		}
	}

	s.logger.Info("notification sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Bool("dry_run", dryRun))
	return result, nil
}

func (s *NotificationService) deliver(ctx context.Context, c *models.Case) bool {
	msg, err := s.renderer.Render(c)
	if err != nil {
		s.logger.Error("failed to render notification",
			zap.String("case_id", c.ID), zap.Error(err))
		s.auditOutcome(ctx, c.ID, models.AuditActionEmailFailed, err.Error())
		return false
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("failed to send notification",
			zap.String("case_id", c.ID), zap.String("to", msg.To), zap.Error(err))
		s.auditOutcome(ctx, c.ID, models.AuditActionEmailFailed, err.Error())
		return false
	}

	audit := &models.AuditLog{
		Action:      models.AuditActionEmailSent,
		Description: fmt.Sprintf("completion notification sent to %s", msg.To),
	}
	if err := s.repo.StampEmailSent(ctx, c.ID, s.clk.Now(), audit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Already stamped by a concurrent sweep; the message went out
			// twice but the trail records it once.
			s.logger.Warn("notification already stamped",
				zap.String("case_id", c.ID))
			return true
		}
		s.logger.Error("failed to stamp notification",
			zap.String("case_id", c.ID), zap.Error(err))
		return false
	}
	return true
}

func (s *NotificationService) auditOutcome(ctx context.Context, caseID, action, description string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:      action,
		Description: description,
		CaseID:      &caseID,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to audit notification outcome",
			zap.String("case_id", caseID), zap.Error(err))
	}
}
