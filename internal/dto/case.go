package dto

import (
	"encoding/json"

	"github.com/opencase/benefits-portal-api/internal/models"
)

// CreateCaseRequest opens a new draft case for the calling member.
type CreateCaseRequest struct {
	EmployeeName string          `json:"employee_name" validate:"required"`
	WorkshopCode string          `json:"workshop_code" validate:"required"`
	NumReports   int             `json:"num_reports"`
	Tier         string          `json:"tier"`
	Rush         bool            `json:"rush"`
	MemberEmail  string          `json:"member_email" validate:"omitempty,email"`
	FormData     json.RawMessage `json:"form_data"`
}

// HoldCaseRequest pauses a case with a reason and optional duration.
type HoldCaseRequest struct {
	Reason       string `json:"reason" validate:"required"`
	DurationDays int    `json:"duration_days" validate:"omitempty,min=1"`
}

// ResumeCaseRequest returns a held case to an active status. TargetStatus is
// optional; when omitted the status stored at hold time is used.
type ResumeCaseRequest struct {
	TargetStatus models.CaseStatus `json:"target_status"`
	Reason       string            `json:"reason"`
}

// ReleaseCaseRequest releases a due case out of band. HoursDelay shifts the
// stamped release instant forward by up to five hours; zero releases now.
type ReleaseCaseRequest struct {
	HoursDelay int `json:"hours_delay"`
}

// CompleteCaseRequest finishes processing, optionally naming the reviewer.
type CompleteCaseRequest struct {
	ReviewerID string `json:"reviewer_id"`
}

// ChangeTierRequest adjusts the case tier outside the status machine.
type ChangeTierRequest struct {
	Tier   string `json:"tier" validate:"required"`
	Reason string `json:"reason"`
}

// AdjustCreditRequest overrides a case credit value through the audited
// side channel.
type AdjustCreditRequest struct {
	Value   float64 `json:"value" validate:"min=0"`
	Context string  `json:"context" validate:"required"`
	Reason  string  `json:"reason" validate:"required"`
}

// CaseQuery filters case listings.
type CaseQuery struct {
	Status []models.CaseStatus `form:"status"`
	Limit  int                 `form:"limit"`
	Offset int                 `form:"offset"`
}
