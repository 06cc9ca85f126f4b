package models

import "time"

// CaseStatus enumerates lifecycle states for a benefits case.
type CaseStatus string

const (
	CaseStatusDraft         CaseStatus = "draft"
	CaseStatusSubmitted     CaseStatus = "submitted"
	CaseStatusAccepted      CaseStatus = "accepted"
	CaseStatusPendingReview CaseStatus = "pending_review"
	CaseStatusHold          CaseStatus = "hold"
	CaseStatusCompleted     CaseStatus = "completed"
)

// Valid reports whether the status is one of the closed lifecycle set.
func (s CaseStatus) Valid() bool {
	switch s {
	case CaseStatusDraft, CaseStatusSubmitted, CaseStatusAccepted,
		CaseStatusPendingReview, CaseStatusHold, CaseStatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether the status freezes further lifecycle transitions.
func (s CaseStatus) Terminal() bool {
	return s == CaseStatusCompleted
}

// SyncStatus tracks progress of pushing a case to the external benefits system.
type SyncStatus string

const (
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusFailed  SyncStatus = "failed"
)

// CreditValueCap bounds the credit value assignable to any case.
const CreditValueCap = 3.0

// Case is the unit of work moving through the intake lifecycle.
type Case struct {
	ID         string     `db:"id" json:"id"`
	CaseNumber string     `db:"case_number" json:"case_number"`
	Status     CaseStatus `db:"status" json:"status"`

	MemberID     string  `db:"member_id" json:"member_id"`
	TechnicianID *string `db:"technician_id" json:"technician_id,omitempty"`
	ReviewerID   *string `db:"reviewer_id" json:"reviewer_id,omitempty"`

	MemberEmail  string `db:"member_email" json:"member_email"`
	EmployeeName string `db:"employee_name" json:"employee_name"`
	WorkshopCode string `db:"workshop_code" json:"workshop_code"`

	NumReports int    `db:"num_reports" json:"num_reports"`
	Tier       string `db:"tier" json:"tier"`
	Rush       bool   `db:"rush" json:"rush"`

	CreditValue  float64 `db:"credit_value" json:"credit_value"`
	CreditReason string  `db:"credit_reason" json:"credit_reason"`

	SubmittedAt *time.Time `db:"submitted_at" json:"submitted_at,omitempty"`
	AcceptedAt  *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`

	ScheduledReleaseDate *time.Time `db:"scheduled_release_date" json:"scheduled_release_date,omitempty"`
	ActualReleaseDate    *time.Time `db:"actual_release_date" json:"actual_release_date,omitempty"`
	ScheduledEmailDate   *time.Time `db:"scheduled_email_date" json:"scheduled_email_date,omitempty"`
	ActualEmailSentDate  *time.Time `db:"actual_email_sent_date" json:"actual_email_sent_date,omitempty"`

	HoldReason    *string     `db:"hold_reason" json:"hold_reason,omitempty"`
	HoldStartedAt *time.Time  `db:"hold_started_at" json:"hold_started_at,omitempty"`
	HoldEndsAt    *time.Time  `db:"hold_ends_at" json:"hold_ends_at,omitempty"`
	PreHoldStatus *CaseStatus `db:"pre_hold_status" json:"pre_hold_status,omitempty"`

	ExternalCaseID *string    `db:"external_case_id" json:"external_case_id,omitempty"`
	APISyncStatus  SyncStatus `db:"api_sync_status" json:"api_sync_status"`
	LastSyncedAt   *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`

	FormData []byte `db:"form_data" json:"form_data,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// CaseFilter constrains case listing queries.
type CaseFilter struct {
	Status       []CaseStatus
	MemberID     string
	TechnicianID string
	SyncStatus   SyncStatus
	Limit        int
	Offset       int
}
