package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/opencase/benefits-portal-api/internal/benefitsapi"
	"github.com/opencase/benefits-portal-api/internal/dto"
	"github.com/opencase/benefits-portal-api/internal/models"
	"github.com/opencase/benefits-portal-api/internal/repository"
	"github.com/opencase/benefits-portal-api/pkg/clock"
	appErrors "github.com/opencase/benefits-portal-api/pkg/errors"
)

type syncCaseStore interface {
	GetByID(ctx context.Context, id string) (*models.Case, error)
	ListSyncRetryCandidates(ctx context.Context) ([]models.Case, error)
	UpdateSyncResult(ctx context.Context, params repository.SyncResultParams) error
}

type callLogStore interface {
	Open(ctx context.Context, log *models.APICallLog) error
	Complete(ctx context.Context, id string, params repository.CallResultParams) error
	CountByCase(ctx context.Context, caseID string) (int, error)
}

type caseSubmitter interface {
	Endpoint() string
	SubmitCase(ctx context.Context, payload benefitsapi.SubmitPayload) (*benefitsapi.Result, *benefitsapi.CallError)
}

// SyncService pushes submitted cases to the external benefits system. Every
// attempt, successful or not, leaves a call log row; the retry ceiling is
// enforced from that log before any network traffic happens.
type SyncService struct {
	repo      syncCaseStore
	calls     callLogStore
	settings  settingsProvider
	audit     auditLogger
	metrics   *MetricsService
	clk       clock.Clock
	logger    *zap.Logger
	newClient func(baseURL, apiKey string, timeout time.Duration) caseSubmitter
}

// NewSyncService constructs the service. The metrics service may be nil.
func NewSyncService(repo syncCaseStore, calls callLogStore, settings settingsProvider, audit auditLogger, metrics *MetricsService, clk clock.Clock, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		repo:     repo,
		calls:    calls,
		settings: settings,
		audit:    audit,
		metrics:  metrics,
		clk:      clk,
		logger:   logger,
		newClient: func(baseURL, apiKey string, timeout time.Duration) caseSubmitter {
			return benefitsapi.NewClient(baseURL, apiKey, timeout)
		},
	}
}

// SubmitCase performs one sync attempt for the case. The attempt number is
// recorded on the call log; pass 0 to derive it from the log.
func (s *SyncService) SubmitCase(ctx context.Context, caseID string, attempt int) error {
	c, err := s.repo.GetByID(ctx, caseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	if c.ExternalCaseID != nil {
		s.logger.Info("case already synced, skipping",
			zap.String("case_id", c.ID), zap.String("external_case_id", *c.ExternalCaseID))
		return nil
	}

	settings, err := s.settings.Current(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	if attempt <= 0 {
		count, err := s.calls.CountByCase(ctx, c.ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sync attempts")
		}
		attempt = count + 1
	}

	client := s.newClient(settings.APIBaseURL, settings.APIKey,
		time.Duration(settings.APITimeoutSeconds)*time.Second)
	payload := buildSubmitPayload(c, settings.RushThreshold)
	rawPayload, _ := json.Marshal(payload)

	callLog := &models.APICallLog{
		CaseID:         c.ID,
		Endpoint:       client.Endpoint(),
		RequestPayload: rawPayload,
		AttemptNumber:  attempt,
	}
	if err := s.calls.Open(ctx, callLog); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open call log")
	}

	result, callErr := client.SubmitCase(ctx, payload)
	s.metrics.ObserveSyncAttempt(callErr == nil)
	if callErr != nil {
		s.recordFailure(ctx, c, callLog.ID, callErr)
		return appErrors.Wrap(callErr, "SYNC_FAILED", appErrors.ErrInternal.Status,
			fmt.Sprintf("sync attempt %d failed for case %s", attempt, c.ID))
	}
	s.recordSuccess(ctx, c, callLog.ID, result)
	return nil
}

// RetryFailedSubmission retries one failed case. The ceiling check happens
// before any network call: once the attempt count reaches the configured
// maximum the case stays failed until an operator intervenes.
func (s *SyncService) RetryFailedSubmission(ctx context.Context, caseID string) error {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	count, err := s.calls.CountByCase(ctx, caseID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count sync attempts")
	}
	if count >= settings.APIMaxRetries {
		return appErrors.Clone(appErrors.ErrMaxRetriesExceeded,
			fmt.Sprintf("case %s exhausted %d sync attempts", caseID, count))
	}
	return s.SubmitCase(ctx, caseID, count+1)
}

// RetryFailedCases sweeps all failed, never-synced submitted cases and
// retries each within the ceiling. Exhausted cases are counted as skipped.
func (s *SyncService) RetryFailedCases(ctx context.Context, dryRun bool) (*dto.SweepResult, error) {
	candidates, err := s.repo.ListSyncRetryCandidates(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list retry candidates")
	}

	result := &dto.SweepResult{DryRun: dryRun}
	for i := range candidates {
		c := &candidates[i]
		if dryRun {
			result.Processed++
			continue
		}
		err := s.RetryFailedSubmission(ctx, c.ID)
		switch {
		case err == nil:
			result.Processed++
		case errors.Is(err, appErrors.ErrMaxRetriesExceeded):
			result.Skipped++
		default:
			result.Failed++
		}
	}

	s.logger.Info("sync retry sweep finished",
		zap.Int("processed", result.Processed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
		zap.Bool("dry_run", dryRun))
	return result, nil
}

func (s *SyncService) recordSuccess(ctx context.Context, c *models.Case, callID string, result *benefitsapi.Result) {
	now := s.clk.Now()
	if err := s.calls.Complete(ctx, callID, repository.CallResultParams{
		ResponseStatus: &result.Status,
		ResponseBody:   &result.Body,
		Success:        true,
		CompletedAt:    now,
	}); err != nil {
		s.logger.Error("failed to complete call log",
			zap.String("case_id", c.ID), zap.Error(err))
	}
	if err := s.repo.UpdateSyncResult(ctx, repository.SyncResultParams{
		CaseID:         c.ID,
		Status:         models.SyncStatusSynced,
		ExternalCaseID: &result.CaseID,
		SyncedAt:       &now,
	}); err != nil {
		s.logger.Error("failed to record sync success",
			zap.String("case_id", c.ID), zap.Error(err))
		return
	}
	s.auditOutcome(ctx, c.ID, models.AuditActionCaseSynced,
		fmt.Sprintf("case accepted by external system as %s", result.CaseID))
	s.logger.Info("case synced",
		zap.String("case_id", c.ID),
		zap.String("external_case_id", result.CaseID),
		zap.Duration("duration", result.Duration))
}

func (s *SyncService) recordFailure(ctx context.Context, c *models.Case, callID string, callErr *benefitsapi.CallError) {
	message := callErr.Error()
	params := repository.CallResultParams{
		Success:      false,
		ErrorMessage: &message,
		CompletedAt:  s.clk.Now(),
	}
	if callErr.Status > 0 {
		status := callErr.Status
		params.ResponseStatus = &status
	}
	if callErr.Body != "" {
		body := callErr.Body
		params.ResponseBody = &body
	}
	if err := s.calls.Complete(ctx, callID, params); err != nil {
		s.logger.Error("failed to complete call log",
			zap.String("case_id", c.ID), zap.Error(err))
	}
	if err := s.repo.UpdateSyncResult(ctx, repository.SyncResultParams{
		CaseID: c.ID,
		Status: models.SyncStatusFailed,
	}); err != nil {
		s.logger.Error("failed to record sync failure",
			zap.String("case_id", c.ID), zap.Error(err))
	}
	s.auditOutcome(ctx, c.ID, models.AuditActionCaseSyncFailed, message)
	s.logger.Warn("case sync failed",
		zap.String("case_id", c.ID),
		zap.Bool("transient", callErr.Transient),
		zap.Error(callErr))
}

func (s *SyncService) auditOutcome(ctx context.Context, caseID, action, description string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:      action,
		Description: description,
		CaseID:      &caseID,
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to audit sync outcome",
			zap.String("case_id", caseID), zap.Error(err))
	}
}

// buildSubmitPayload marks the submission urgent when the member asked for a
// rush or the report count reaches the configured threshold.
func buildSubmitPayload(c *models.Case, rushThreshold int) benefitsapi.SubmitPayload {
	payload := benefitsapi.SubmitPayload{
		WorkshopCode: c.WorkshopCode,
		MemberID:     c.MemberID,
		MemberEmail:  c.MemberEmail,
		EmployeeName: c.EmployeeName,
		NumReports:   c.NumReports,
		Rush:         c.Rush || (rushThreshold > 0 && c.NumReports >= rushThreshold),
		FormData:     json.RawMessage(c.FormData),
	}
	if c.SubmittedAt != nil {
		payload.SubmittedAt = c.SubmittedAt.UTC().Format(time.RFC3339)
	}
	return payload
}
