package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the capability system.
type UserRole string

const (
	RoleAdmin      UserRole = "ADMIN"
	RoleTechnician UserRole = "TECHNICIAN"
	RoleMember     UserRole = "MEMBER"
)

// Valid reports whether the role is one of the known portal roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTechnician, RoleMember:
		return true
	}
	return false
}

// JWTClaims are the validated claims carried on every authenticated request.
// Token issuance lives in the portal's auth frontend; this service only
// validates and reads.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
