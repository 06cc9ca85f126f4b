package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/opencase/benefits-portal-api/internal/models"
	appErrors "github.com/opencase/benefits-portal-api/pkg/errors"
	"github.com/opencase/benefits-portal-api/pkg/response"
)

// Operation names one guarded portal action. Routes are gated by capability,
// not by ad-hoc role comparisons scattered through handlers; the status
// dimension of each operation is enforced by the lifecycle transition table.
type Operation string

const (
	OpCreateCase     Operation = "case:create"
	OpViewCase       Operation = "case:view"
	OpListCases      Operation = "case:list"
	OpSubmitCase     Operation = "case:submit"
	OpAcceptCase     Operation = "case:accept"
	OpHoldCase       Operation = "case:hold"
	OpResumeCase     Operation = "case:resume"
	OpCompleteCase   Operation = "case:complete"
	OpChangeTier     Operation = "case:change_tier"
	OpAdjustCredit   Operation = "case:adjust_credit"
	OpReleaseCase    Operation = "case:release"
	OpViewAuditTrail Operation = "case:view_audit"
	OpRetrySync      Operation = "case:retry_sync"
	OpRunSweep       Operation = "sweep:run"
	OpViewSettings   Operation = "settings:view"
	OpEditSettings   Operation = "settings:edit"
)

// capabilities is the role → permitted operations table, evaluated once per
// request. Member visibility scoping (own cases only) is applied by the
// services on top of this.
var capabilities = map[models.UserRole]map[Operation]struct{}{
	models.RoleAdmin: toSet(
		OpCreateCase, OpViewCase, OpListCases, OpSubmitCase, OpAcceptCase,
		OpHoldCase, OpResumeCase, OpCompleteCase, OpChangeTier, OpAdjustCredit,
		OpReleaseCase, OpViewAuditTrail, OpRetrySync, OpRunSweep, OpViewSettings,
		OpEditSettings,
	),
	models.RoleTechnician: toSet(
		OpViewCase, OpListCases, OpAcceptCase, OpHoldCase, OpResumeCase,
		OpCompleteCase, OpChangeTier, OpViewAuditTrail, OpRetrySync,
	),
	models.RoleMember: toSet(
		OpCreateCase, OpViewCase, OpListCases, OpSubmitCase,
	),
}

func toSet(ops ...Operation) map[Operation]struct{} {
	set := make(map[Operation]struct{}, len(ops))
	for _, op := range ops {
		set[op] = struct{}{}
	}
	return set
}

// Can reports whether the role may perform the operation.
func Can(role models.UserRole, op Operation) bool {
	_, ok := capabilities[role][op]
	return ok
}

// RequireCapability gates a route on the capability table. It expects JWT
// middleware to have stored claims on the context.
func RequireCapability(op Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims, ok := claimsValue.(*models.JWTClaims)
		if !ok || !Can(claims.Role, op) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
