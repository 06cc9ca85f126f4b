package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/opencase/benefits-portal-api/internal/dto"
	"github.com/opencase/benefits-portal-api/internal/models"
	appErrors "github.com/opencase/benefits-portal-api/pkg/errors"
	"github.com/opencase/benefits-portal-api/pkg/response"
)

type lifecycleService interface {
	CreateDraft(ctx context.Context, req dto.CreateCaseRequest, memberID string) (*models.Case, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Case, error)
	List(ctx context.Context, query dto.CaseQuery, actor *models.JWTClaims) ([]models.Case, error)
	Submit(ctx context.Context, caseID, actorID string) (*models.Case, error)
	Accept(ctx context.Context, caseID, technicianID string) (*models.Case, error)
	Hold(ctx context.Context, caseID, actorID string, req dto.HoldCaseRequest) (*models.Case, error)
	Resume(ctx context.Context, caseID, actorID string, req dto.ResumeCaseRequest) (*models.Case, error)
	Complete(ctx context.Context, caseID string, req dto.CompleteCaseRequest, actorID string) (*models.Case, error)
	ChangeTier(ctx context.Context, caseID, actorID string, req dto.ChangeTierRequest) (*models.Case, error)
}

type creditAdjustService interface {
	AdjustCredit(ctx context.Context, caseID string, value float64, actorID string, creditCtx models.CreditContext, reason string) (*models.Case, error)
}

type auditTrailReader interface {
	ListByCase(ctx context.Context, caseID string, limit, offset int) ([]models.AuditLog, error)
}

type creditHistoryReader interface {
	ListByCase(ctx context.Context, caseID string) ([]models.CreditAuditLog, error)
}

type syncRetrier interface {
	RetryFailedSubmission(ctx context.Context, caseID string) error
}

type callLogReader interface {
	ListByCase(ctx context.Context, caseID string) ([]models.APICallLog, error)
}

type caseReleaser interface {
	ReleaseCase(ctx context.Context, caseID string, hoursDelay int, actorID string) (*models.Case, error)
}

// CaseHandler exposes REST endpoints for the case lifecycle.
type CaseHandler struct {
	lifecycle lifecycleService
	credits   creditAdjustService
	audits    auditTrailReader
	history   creditHistoryReader
	sync      syncRetrier
	calls     callLogReader
	releases  caseReleaser
}

// NewCaseHandler constructs the handler.
func NewCaseHandler(lifecycle lifecycleService, credits creditAdjustService, audits auditTrailReader, history creditHistoryReader, sync syncRetrier, calls callLogReader, releases caseReleaser) *CaseHandler {
	return &CaseHandler{lifecycle: lifecycle, credits: credits, audits: audits, history: history, sync: sync, calls: calls, releases: releases}
}

// Create godoc
// @Summary Open a new draft case
// @Tags Cases
// @Accept json
// @Produce json
// @Param payload body dto.CreateCaseRequest true "Case payload"
// @Success 201 {object} response.Envelope
// @Router /cases [post]
func (h *CaseHandler) Create(c *gin.Context) {
	var req dto.CreateCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid case payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	created, err := h.lifecycle.CreateDraft(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, created, nil)
}

// List godoc
// @Summary List cases visible to the caller
// @Tags Cases
// @Produce json
// @Param status query string false "Comma separated statuses"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /cases [get]
func (h *CaseHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var query dto.CaseQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid case query"))
		return
	}
	if rawStatus := c.Query("status"); rawStatus != "" {
		parts := strings.Split(rawStatus, ",")
		statuses := make([]models.CaseStatus, 0, len(parts))
		for _, part := range parts {
			part = strings.ToLower(strings.TrimSpace(part))
			if part == "" {
				continue
			}
			status := models.CaseStatus(part)
			if !status.Valid() {
				response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown case status "+part))
				return
			}
			statuses = append(statuses, status)
		}
		query.Status = statuses
	}
	cases, err := h.lifecycle.List(c.Request.Context(), query, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cases, nil)
}

// Get godoc
// @Summary Get case detail
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id} [get]
func (h *CaseHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	found, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, found, nil)
}

// Submit godoc
// @Summary Submit a case for processing
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/submit [post]
func (h *CaseHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	updated, err := h.lifecycle.Submit(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Accept godoc
// @Summary Accept a case for processing
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/accept [post]
func (h *CaseHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	updated, err := h.lifecycle.Accept(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Hold godoc
// @Summary Place a case on hold
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.HoldCaseRequest true "Hold payload"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/hold [post]
func (h *CaseHandler) Hold(c *gin.Context) {
	var req dto.HoldCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid hold payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	updated, err := h.lifecycle.Hold(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Resume godoc
// @Summary Resume a held case
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.ResumeCaseRequest false "Resume payload"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/resume [post]
func (h *CaseHandler) Resume(c *gin.Context) {
	// The payload is optional; a bare POST resumes to the pre-hold status.
	var req dto.ResumeCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid resume payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	updated, err := h.lifecycle.Resume(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Complete godoc
// @Summary Complete a case
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.CompleteCaseRequest false "Completion payload"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/complete [post]
func (h *CaseHandler) Complete(c *gin.Context) {
	// The payload is optional; a bare POST completes without a reviewer.
	var req dto.CompleteCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid completion payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	updated, err := h.lifecycle.Complete(c.Request.Context(), c.Param("id"), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// Release godoc
// @Summary Release a due case immediately or after a bounded delay
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.ReleaseCaseRequest false "Release payload"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/release [post]
func (h *CaseHandler) Release(c *gin.Context) {
	// The payload is optional; a bare POST releases with no delay.
	var req dto.ReleaseCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid release payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	updated, err := h.releases.ReleaseCase(c.Request.Context(), c.Param("id"), req.HoursDelay, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// ChangeTier godoc
// @Summary Change the case tier
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.ChangeTierRequest true "Tier payload"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/tier [patch]
func (h *CaseHandler) ChangeTier(c *gin.Context) {
	var req dto.ChangeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid tier payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	updated, err := h.lifecycle.ChangeTier(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// AdjustCredit godoc
// @Summary Override the case credit value
// @Tags Cases
// @Accept json
// @Produce json
// @Param id path string true "Case ID"
// @Param payload body dto.AdjustCreditRequest true "Credit payload"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/credit [patch]
func (h *CaseHandler) AdjustCredit(c *gin.Context) {
	var req dto.AdjustCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid credit payload"))
		return
	}
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	updated, err := h.credits.AdjustCredit(c.Request.Context(), c.Param("id"), req.Value,
		claims.UserID, models.CreditContext(strings.ToLower(req.Context)), req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}

// AuditTrail godoc
// @Summary List the case audit trail
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/audit [get]
func (h *CaseHandler) AuditTrail(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	// Visibility scoping rides on the case load.
	if _, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	limit := intQuery(c, "limit", 50)
	offset := intQuery(c, "offset", 0)
	logs, err := h.audits.ListByCase(c.Request.Context(), c.Param("id"), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}

// CreditHistory godoc
// @Summary List the case credit history
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/credits [get]
func (h *CaseHandler) CreditHistory(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if _, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.history.ListByCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// SyncAttempts godoc
// @Summary List external submission attempts for a case
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/sync-attempts [get]
func (h *CaseHandler) SyncAttempts(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if _, err := h.lifecycle.Get(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	attempts, err := h.calls.ListByCase(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, attempts, nil)
}

// RetrySync godoc
// @Summary Retry a failed external submission
// @Tags Cases
// @Produce json
// @Param id path string true "Case ID"
// @Success 200 {object} response.Envelope
// @Router /cases/{id}/sync/retry [post]
func (h *CaseHandler) RetrySync(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.sync.RetryFailedSubmission(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"status": "retried"}, nil)
}
