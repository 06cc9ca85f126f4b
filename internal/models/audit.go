package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionCaseCreated     = "CASE_CREATED"
	AuditActionCaseSubmitted   = "CASE_SUBMITTED"
	AuditActionCaseAccepted    = "CASE_ACCEPTED"
	AuditActionCaseHeld        = "CASE_HELD"
	AuditActionCaseResumed     = "CASE_RESUMED"
	AuditActionCaseCompleted   = "CASE_COMPLETED"
	AuditActionTierChanged     = "TIER_CHANGED"
	AuditActionCaseReleased    = "CASE_RELEASED"
	AuditActionEmailSent       = "EMAIL_NOTIFICATION_SENT"
	AuditActionEmailFailed     = "EMAIL_NOTIFICATION_FAILED"
	AuditActionEmailSkipped    = "EMAIL_NOTIFICATION_SKIPPED"
	AuditActionSettingsUpdated = "SETTINGS_UPDATED"
	AuditActionCaseSynced      = "CASE_SYNCED"
	AuditActionCaseSyncFailed  = "CASE_SYNC_FAILED"
	AuditActionCreditAdjusted  = "CREDIT_ADJUSTED"
)

// AuditLog represents one immutable audit trail record. A nil ActorID means
// the action was system-initiated (sweeps, queue workers).
type AuditLog struct {
	ID          string    `db:"id" json:"id"`
	ActorID     *string   `db:"actor_id" json:"actor_id,omitempty"`
	Action      string    `db:"action" json:"action"`
	Description string    `db:"description" json:"description"`
	CaseID      *string   `db:"case_id" json:"case_id,omitempty"`
	Changes     []byte    `db:"changes" json:"changes,omitempty"`
	Metadata    []byte    `db:"metadata" json:"metadata,omitempty"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// FieldChange captures a single before/after pair inside the changes map.
type FieldChange struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}
