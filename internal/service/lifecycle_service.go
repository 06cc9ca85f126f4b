package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opencase/benefits-portal-api/internal/dto"
	"github.com/opencase/benefits-portal-api/internal/models"
	"github.com/opencase/benefits-portal-api/internal/repository"
	"github.com/opencase/benefits-portal-api/pkg/clock"
	appErrors "github.com/opencase/benefits-portal-api/pkg/errors"
	"github.com/opencase/benefits-portal-api/pkg/jobs"
)

type caseStore interface {
	Create(ctx context.Context, c *models.Case, audit *models.AuditLog) error
	GetByID(ctx context.Context, id string) (*models.Case, error)
	List(ctx context.Context, filter models.CaseFilter) ([]models.Case, error)
	ApplyTransition(ctx context.Context, params repository.TransitionParams) error
}

type settingsProvider interface {
	Current(ctx context.Context) (*models.SystemSettings, error)
}

type syncDispatcher interface {
	Enqueue(job jobs.Job) error
}

// submitLegalFrom etc. encode the legal transition table. Operations invoked
// from any other status fail with ErrInvalidTransition and write nothing.
var (
	submitLegalFrom = []models.CaseStatus{models.CaseStatusDraft, models.CaseStatusSubmitted}
	acceptLegalFrom = []models.CaseStatus{models.CaseStatusSubmitted, models.CaseStatusPendingReview}
	holdLegalFrom   = []models.CaseStatus{
		models.CaseStatusDraft, models.CaseStatusSubmitted,
		models.CaseStatusAccepted, models.CaseStatusPendingReview,
		models.CaseStatusHold,
	}
	resumeLegalTo = []models.CaseStatus{
		models.CaseStatusDraft, models.CaseStatusSubmitted,
		models.CaseStatusAccepted, models.CaseStatusPendingReview,
	}
)

// LifecycleService drives cases through the intake state machine. Every
// successful operation writes exactly one audit entry, in the same
// transaction as the status change.
type LifecycleService struct {
	repo      caseStore
	settings  settingsProvider
	credits   *CreditService
	clk       clock.Clock
	queue     syncDispatcher
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLifecycleService constructs the service.
func NewLifecycleService(repo caseStore, settings settingsProvider, credits *CreditService, clk clock.Clock, queue syncDispatcher, validate *validator.Validate, logger *zap.Logger) *LifecycleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if credits == nil {
		credits = NewCreditService(nil, logger)
	}
	return &LifecycleService{
		repo:      repo,
		settings:  settings,
		credits:   credits,
		clk:       clk,
		queue:     queue,
		validator: validate,
		logger:    logger,
	}
}

// CreateDraft opens a new case for a member.
func (s *LifecycleService) CreateDraft(ctx context.Context, req dto.CreateCaseRequest, memberID string) (*models.Case, error) {
	if memberID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case payload")
	}
	numReports := req.NumReports
	if numReports < 1 {
		numReports = 1
	}
	c := &models.Case{
		CaseNumber:   newCaseNumber(s.clk.Now()),
		Status:       models.CaseStatusDraft,
		MemberID:     memberID,
		MemberEmail:  req.MemberEmail,
		EmployeeName: req.EmployeeName,
		WorkshopCode: req.WorkshopCode,
		NumReports:   numReports,
		Tier:         req.Tier,
		Rush:         req.Rush,
		FormData:     append([]byte(nil), req.FormData...),
	}
	audit := &models.AuditLog{
		ActorID:     &memberID,
		Action:      models.AuditActionCaseCreated,
		Description: fmt.Sprintf("case opened for %s", req.EmployeeName),
	}
	if err := s.repo.Create(ctx, c, audit); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create case")
	}
	return c, nil
}

// Get loads a case enforcing member visibility scope.
func (s *LifecycleService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Case, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	c, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role == models.RoleMember && c.MemberID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	return c, nil
}

// List returns cases visible to the actor.
func (s *LifecycleService) List(ctx context.Context, query dto.CaseQuery, actor *models.JWTClaims) ([]models.Case, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.CaseFilter{Status: query.Status, Limit: query.Limit, Offset: query.Offset}
	if actor.Role == models.RoleMember {
		filter.MemberID = actor.UserID
	}
	cases, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cases")
	}
	return cases, nil
}

// Submit moves a case into the processing pipeline. The default credit value
// is derived from the requested report count, the release and email schedule
// from the active settings, and the first external sync attempt is enqueued.
func (s *LifecycleService) Submit(ctx context.Context, caseID, actorID string) (*models.Case, error) {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !statusIn(c.Status, submitLegalFrom) {
		return nil, s.invalidTransition(c, "submit")
	}

	settings, err := s.currentSettings(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	status := models.CaseStatusSubmitted
	releaseDate := s.clk.Today().AddDate(0, 0, settings.DefaultDueDays)
	emailDate := releaseDate.AddDate(0, 0, settings.EmailDelayDays)

	update := repository.CaseUpdate{
		Status:               &status,
		ScheduledReleaseDate: &releaseDate,
		ScheduledEmailDate:   &emailDate,
	}
	if c.SubmittedAt == nil {
		update.SubmittedAt = &now
	}

	changes := map[string]models.FieldChange{
		"status": {From: c.Status, To: status},
	}

	var credit *models.CreditAuditLog
	newCredit := s.credits.CalculateDefaultCredit(c.NumReports)
	if newCredit != c.CreditValue {
		reason := fmt.Sprintf("default credit for %d report(s)", c.NumReports)
		update.CreditValue = &newCredit
		update.CreditReason = &reason
		credit = &models.CreditAuditLog{
			ValueBefore: c.CreditValue,
			ValueAfter:  newCredit,
			ActorID:     actorRef(actorID),
			Context:     models.CreditContextSubmission,
			Reason:      reason,
		}
		changes["credit_value"] = models.FieldChange{From: c.CreditValue, To: newCredit}
	}

	params := repository.TransitionParams{
		CaseID:       c.ID,
		FromStatuses: submitLegalFrom,
		Update:       update,
		Audit: &models.AuditLog{
			ActorID:     actorRef(actorID),
			Action:      models.AuditActionCaseSubmitted,
			Description: "case submitted for processing",
			Changes:     encodeChanges(changes),
		},
		Credit: credit,
	}
	if err := s.apply(ctx, params, c, "submit"); err != nil {
		return nil, err
	}

	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{ID: c.ID, Type: "case_sync", Attempt: 1}); err != nil {
			s.logger.Warn("failed to enqueue sync job",
				zap.String("case_id", c.ID), zap.Error(err))
		}
	}
	return s.loadCase(ctx, caseID)
}

// Accept assigns a technician and starts processing.
func (s *LifecycleService) Accept(ctx context.Context, caseID, technicianID string) (*models.Case, error) {
	if technicianID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "technician is required")
	}
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if !statusIn(c.Status, acceptLegalFrom) {
		return nil, s.invalidTransition(c, "accept")
	}

	now := s.clk.Now()
	status := models.CaseStatusAccepted
	params := repository.TransitionParams{
		CaseID:       c.ID,
		FromStatuses: acceptLegalFrom,
		Update: repository.CaseUpdate{
			Status:       &status,
			TechnicianID: &technicianID,
			AcceptedAt:   &now,
		},
		Audit: &models.AuditLog{
			ActorID:     &technicianID,
			Action:      models.AuditActionCaseAccepted,
			Description: "case accepted for processing",
			Changes: encodeChanges(map[string]models.FieldChange{
				"status":        {From: c.Status, To: status},
				"technician_id": {From: c.TechnicianID, To: technicianID},
			}),
		},
	}
	if err := s.apply(ctx, params, c, "accept"); err != nil {
		return nil, err
	}
	return s.loadCase(ctx, caseID)
}

// Hold pauses a non-terminal case, remembering the status to resume to.
// Holding an already-held case refreshes the reason and window without
// touching the stored resume target.
func (s *LifecycleService) Hold(ctx context.Context, caseID, actorID string, req dto.HoldCaseRequest) (*models.Case, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid hold payload")
	}
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		return nil, appErrors.Clone(appErrors.ErrAlreadyCompleted, "completed cases cannot be held")
	}
	if !statusIn(c.Status, holdLegalFrom) {
		return nil, s.invalidTransition(c, "hold")
	}

	now := s.clk.Now()
	status := models.CaseStatusHold
	update := repository.CaseUpdate{
		Status:        &status,
		HoldReason:    &req.Reason,
		HoldStartedAt: &now,
	}
	if c.Status != models.CaseStatusHold {
		preHold := c.Status
		update.PreHoldStatus = &preHold
	}
	if req.DurationDays > 0 {
		ends := now.AddDate(0, 0, req.DurationDays)
		update.HoldEndsAt = &ends
	}

	params := repository.TransitionParams{
		CaseID:       c.ID,
		FromStatuses: []models.CaseStatus{c.Status},
		Update:       update,
		Audit: &models.AuditLog{
			ActorID:     actorRef(actorID),
			Action:      models.AuditActionCaseHeld,
			Description: req.Reason,
			Changes: encodeChanges(map[string]models.FieldChange{
				"status": {From: c.Status, To: status},
			}),
		},
	}
	if err := s.apply(ctx, params, c, "hold"); err != nil {
		return nil, err
	}
	return s.loadCase(ctx, caseID)
}

// Resume returns a held case to an active status. When the request does not
// name a target, the status stored when the hold began is used.
func (s *LifecycleService) Resume(ctx context.Context, caseID, actorID string, req dto.ResumeCaseRequest) (*models.Case, error) {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CaseStatusHold {
		return nil, s.invalidTransition(c, "resume")
	}

	target := req.TargetStatus
	if target == "" && c.PreHoldStatus != nil {
		target = *c.PreHoldStatus
	}
	if !statusIn(target, resumeLegalTo) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot resume case to status %q", target))
	}

	description := req.Reason
	if description == "" {
		description = "case resumed"
	}
	params := repository.TransitionParams{
		CaseID:       c.ID,
		FromStatuses: []models.CaseStatus{models.CaseStatusHold},
		Update: repository.CaseUpdate{
			Status:    &target,
			ClearHold: true,
		},
		Audit: &models.AuditLog{
			ActorID:     actorRef(actorID),
			Action:      models.AuditActionCaseResumed,
			Description: description,
			Changes: encodeChanges(map[string]models.FieldChange{
				"status": {From: c.Status, To: target},
			}),
		},
	}
	if err := s.apply(ctx, params, c, "resume"); err != nil {
		return nil, err
	}
	return s.loadCase(ctx, caseID)
}

// Complete finishes processing. The status field is frozen afterwards; only
// release, sync, and credit side fields may still change.
func (s *LifecycleService) Complete(ctx context.Context, caseID string, req dto.CompleteCaseRequest, actorID string) (*models.Case, error) {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if c.Status == models.CaseStatusCompleted {
		return nil, appErrors.ErrAlreadyCompleted
	}

	now := s.clk.Now()
	status := models.CaseStatusCompleted
	update := repository.CaseUpdate{
		Status:      &status,
		CompletedAt: &now,
	}
	if req.ReviewerID != "" {
		update.ReviewerID = &req.ReviewerID
	}
	if c.Status == models.CaseStatusHold {
		update.ClearHold = true
	}
	if c.ScheduledReleaseDate == nil {
		settings, err := s.currentSettings(ctx)
		if err != nil {
			return nil, err
		}
		releaseDate := s.clk.Today().AddDate(0, 0, settings.DefaultDueDays)
		emailDate := releaseDate.AddDate(0, 0, settings.EmailDelayDays)
		update.ScheduledReleaseDate = &releaseDate
		update.ScheduledEmailDate = &emailDate
	}

	fromStatuses := []models.CaseStatus{
		models.CaseStatusDraft, models.CaseStatusSubmitted, models.CaseStatusAccepted,
		models.CaseStatusPendingReview, models.CaseStatusHold,
	}
	params := repository.TransitionParams{
		CaseID:       c.ID,
		FromStatuses: fromStatuses,
		Update:       update,
		Audit: &models.AuditLog{
			ActorID:     actorRef(actorID),
			Action:      models.AuditActionCaseCompleted,
			Description: "case processing completed",
			Changes: encodeChanges(map[string]models.FieldChange{
				"status": {From: c.Status, To: status},
			}),
		},
	}
	if err := s.apply(ctx, params, c, "complete"); err != nil {
		return nil, err
	}
	return s.loadCase(ctx, caseID)
}

// ChangeTier adjusts the tier attribute outside the status machine.
func (s *LifecycleService) ChangeTier(ctx context.Context, caseID, actorID string, req dto.ChangeTierRequest) (*models.Case, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tier payload")
	}
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	description := req.Reason
	if description == "" {
		description = fmt.Sprintf("tier changed to %s", req.Tier)
	}
	params := repository.TransitionParams{
		CaseID: c.ID,
		Update: repository.CaseUpdate{Tier: &req.Tier},
		Audit: &models.AuditLog{
			ActorID:     actorRef(actorID),
			Action:      models.AuditActionTierChanged,
			Description: description,
			Changes: encodeChanges(map[string]models.FieldChange{
				"tier": {From: c.Tier, To: req.Tier},
			}),
		},
	}
	if err := s.apply(ctx, params, c, "change tier"); err != nil {
		return nil, err
	}
	return s.loadCase(ctx, caseID)
}

func (s *LifecycleService) loadCase(ctx context.Context, id string) (*models.Case, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load case")
	}
	return c, nil
}

func (s *LifecycleService) currentSettings(ctx context.Context) (*models.SystemSettings, error) {
	settings, err := s.settings.Current(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	return settings, nil
}

func (s *LifecycleService) apply(ctx context.Context, params repository.TransitionParams, c *models.Case, op string) error {
	if err := s.repo.ApplyTransition(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lost the race: the case moved out of the expected status
			// between load and update.
			return appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("case %s changed concurrently during %s", c.ID, op))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status,
			fmt.Sprintf("failed to %s case", op))
	}
	return nil
}

func (s *LifecycleService) invalidTransition(c *models.Case, op string) error {
	return appErrors.Clone(appErrors.ErrInvalidTransition,
		fmt.Sprintf("cannot %s case in status %q", op, c.Status))
}

func statusIn(status models.CaseStatus, set []models.CaseStatus) bool {
	for _, candidate := range set {
		if status == candidate {
			return true
		}
	}
	return false
}

func actorRef(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

func encodeChanges(changes map[string]models.FieldChange) []byte {
	if len(changes) == 0 {
		return nil
	}
	data, err := json.Marshal(changes)
	if err != nil {
		return nil
	}
	return data
}

func newCaseNumber(now time.Time) string {
	return fmt.Sprintf("BC-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}
