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
	"github.com/opencase/benefits-portal-api/pkg/clock"
	appErrors "github.com/opencase/benefits-portal-api/pkg/errors"
)

type releaseStore interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	ListReleaseDue(ctx context.Context, today time.Time) ([]models.Case, error)
	StampRelease(ctx context.Context, caseID string, releasedAt time.Time, audit *models.AuditLog) error
}

// ReleaseService runs the scheduled release sweep. Whether a case is due is
// decided purely on civil dates in the portal timezone, so a sweep that runs
// at 06:00 and one that runs at 23:59 agree on the same day's due set.
type ReleaseService struct {
	repo     releaseStore
	settings settingsProvider
	clk      clock.Clock
	logger   *zap.Logger
}

// NewReleaseService constructs the service.
func NewReleaseService(repo releaseStore, settings settingsProvider, clk clock.Clock, logger *zap.Logger) *ReleaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReleaseService{repo: repo, settings: settings, clk: clk, logger: logger}
}

// ShouldRelease reports whether a case is eligible for release on the given
// civil date. Completed, not yet released, and scheduled on or before today.
func ShouldRelease(c *models.Case, today time.Time) bool {
	if c == nil || c.Status != models.CaseStatusCompleted {
		return false
	}
	if c.ActualReleaseDate != nil || c.ScheduledReleaseDate == nil {
		return false
	}
	return !c.ScheduledReleaseDate.After(today)
}

// ReleaseCase releases a single due case out of band, stamped at now plus
// the operator-chosen delay. The delay is bounded by the clock package, so
// an out-of-range value fails before the case is even loaded. The same null
// guard as the sweep protects against double release.
func (s *ReleaseService) ReleaseCase(ctx context.Context, caseID string, hoursDelay int, actorID string) (*models.Case, error) {
	releaseAt, err := clock.CalculateReleaseTime(s.clk, hoursDelay)
	if err != nil {
		return nil, err
	}

	c, err := s.repo.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	if c.ActualReleaseDate != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "case is already released")
	}
	if !ShouldRelease(c, s.clk.Today()) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "case is not due for release")
	}

	audit := &models.AuditLog{
		ActorID:     actorRef(actorID),
		Action:      models.AuditActionCaseReleased,
		Description: fmt.Sprintf("case released by operator with %dh delay", hoursDelay),
	}
	if err := s.repo.StampRelease(ctx, caseID, releaseAt, audit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "case is already released")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release case")
	}

	s.logger.Info("case released by operator",
		zap.String("case_id", caseID),
		zap.Int("hours_delay", hoursDelay),
		zap.Time("release_at", releaseAt))
	c.ActualReleaseDate = &releaseAt
	return c, nil
}

// ReleaseDueCases releases every due case as of the supplied civil date. A
// zero today means "now" per the portal clock. With dryRun set, candidates
// are counted but nothing is written.
func (s *ReleaseService) ReleaseDueCases(ctx context.Context, today time.Time, dryRun bool) (*dto.SweepResult, error) {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	result := &dto.SweepResult{DryRun: dryRun}
	if !settings.ReleaseEnabled {
		s.logger.Info("release sweep disabled by settings")
		return result, nil
	}

	if today.IsZero() {
		today = s.clk.Today()
	}
	due, err := s.repo.ListReleaseDue(ctx, today)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list due cases")
	}

	now := s.clk.Now()
	for i := range due {
		c := &due[i]
		if !ShouldRelease(c, today) {
			result.Skipped++
			continue
		}
		if dryRun {
			result.Processed++
			continue
		}
		audit := &models.AuditLog{
			Action:      models.AuditActionCaseReleased,
			Description: fmt.Sprintf("case released on schedule (due %s)", c.ScheduledReleaseDate.Format("2006-01-02")),
		}
		if err := s.repo.StampRelease(ctx, c.ID, now, audit); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// Another sweep got there first.
				result.Skipped++
				continue
			}
			s.logger.Error("failed to release case",
				zap.String("case_id", c.ID), zap.Error(err))
			result.Failed++
			continue
		}
		result.Processed++
	}

	s.logger.Info("release sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Bool("dry_run", dryRun))
	return result, nil
}
