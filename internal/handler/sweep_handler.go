package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opencase/benefits-portal-api/internal/dto"
	appErrors "github.com/opencase/benefits-portal-api/pkg/errors"
	"github.com/opencase/benefits-portal-api/pkg/response"
)

type releaseSweeper interface {
	ReleaseDueCases(ctx context.Context, today time.Time, dryRun bool) (*dto.SweepResult, error)
}

type notificationSweeper interface {
	SendDueNotifications(ctx context.Context, today time.Time, dryRun bool) (*dto.SweepResult, error)
}

type syncSweeper interface {
	RetryFailedCases(ctx context.Context, dryRun bool) (*dto.SweepResult, error)
}

// SweepHandler triggers the periodic sweeps on demand. The same units run on
// the cron schedule; this surface exists for operators, with dry_run to
// preview what a run would touch.
type SweepHandler struct {
	release       releaseSweeper
	notifications notificationSweeper
	sync          syncSweeper
}

// NewSweepHandler constructs the handler.
func NewSweepHandler(release releaseSweeper, notifications notificationSweeper, sync syncSweeper) *SweepHandler {
	return &SweepHandler{release: release, notifications: notifications, sync: sync}
}

// Release godoc
// @Summary Run the scheduled release sweep
// @Tags Sweeps
// @Produce json
// @Param dry_run query bool false "Preview without writing"
// @Param date query string false "Civil date override (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /sweeps/release [post]
func (h *SweepHandler) Release(c *gin.Context) {
	today, ok := sweepDate(c)
	if !ok {
		return
	}
	result, err := h.release.ReleaseDueCases(c.Request.Context(), today, dryRunFlag(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Notifications godoc
// @Summary Run the member notification sweep
// @Tags Sweeps
// @Produce json
// @Param dry_run query bool false "Preview without writing"
// @Param date query string false "Civil date override (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /sweeps/notifications [post]
func (h *SweepHandler) Notifications(c *gin.Context) {
	today, ok := sweepDate(c)
	if !ok {
		return
	}
	result, err := h.notifications.SendDueNotifications(c.Request.Context(), today, dryRunFlag(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SyncRetry godoc
// @Summary Run the failed-sync retry sweep
// @Tags Sweeps
// @Produce json
// @Param dry_run query bool false "Preview without writing"
// @Success 200 {object} response.Envelope
// @Router /sweeps/sync-retry [post]
func (h *SweepHandler) SyncRetry(c *gin.Context) {
	result, err := h.sync.RetryFailedCases(c.Request.Context(), dryRunFlag(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

func dryRunFlag(c *gin.Context) bool {
	return c.Query("dry_run") == "true" || c.Query("dry_run") == "1"
}

func sweepDate(c *gin.Context) (time.Time, bool) {
	raw := c.Query("date")
	if raw == "" {
		return time.Time{}, true
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
		return time.Time{}, false
	}
	return parsed, true
}
