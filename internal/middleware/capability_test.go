package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencase/benefits-portal-api/internal/models"
)

func TestCanTable(t *testing.T) {
	tests := []struct {
		name string
		role models.UserRole
		op   Operation
		want bool
	}{
		{"member creates cases", models.RoleMember, OpCreateCase, true},
		{"member submits own case", models.RoleMember, OpSubmitCase, true},
		{"member cannot accept", models.RoleMember, OpAcceptCase, false},
		{"member cannot adjust credit", models.RoleMember, OpAdjustCredit, false},
		{"member cannot run sweeps", models.RoleMember, OpRunSweep, false},
		{"technician accepts", models.RoleTechnician, OpAcceptCase, true},
		{"technician completes", models.RoleTechnician, OpCompleteCase, true},
		{"technician cannot edit settings", models.RoleTechnician, OpEditSettings, false},
		{"technician cannot create cases", models.RoleTechnician, OpCreateCase, false},
		{"admin runs sweeps", models.RoleAdmin, OpRunSweep, true},
		{"admin releases cases", models.RoleAdmin, OpReleaseCase, true},
		{"technician cannot release", models.RoleTechnician, OpReleaseCase, false},
		{"admin edits settings", models.RoleAdmin, OpEditSettings, true},
		{"unknown role has nothing", models.UserRole("auditor"), OpViewCase, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Can(tt.role, tt.op))
		})
	}
}

func runCapability(t *testing.T, op Operation, claims *models.JWTClaims) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/guarded", nil)
	require.NoError(t, err)
	c.Request = req
	if claims != nil {
		c.Set(ContextUserKey, claims)
	}
	reached := false
	RequireCapability(op)(c)
	if !c.IsAborted() {
		reached = true
	}
	return w, reached
}

func TestRequireCapabilityAllows(t *testing.T) {
	_, reached := runCapability(t, OpAcceptCase, &models.JWTClaims{UserID: "tech-1", Role: models.RoleTechnician})
	assert.True(t, reached)
}

func TestRequireCapabilityForbids(t *testing.T) {
	w, reached := runCapability(t, OpRunSweep, &models.JWTClaims{UserID: "member-1", Role: models.RoleMember})
	assert.False(t, reached)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireCapabilityNeedsClaims(t *testing.T) {
	w, reached := runCapability(t, OpViewCase, nil)
	assert.False(t, reached)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
