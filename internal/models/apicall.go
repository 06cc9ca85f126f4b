package models

import "time"

// APICallLog records one attempt to synchronize a case to the external
// benefits system. The row is created when the attempt starts and completed
// exactly once with the outcome; it is immutable thereafter.
type APICallLog struct {
	ID             string     `db:"id" json:"id"`
	CaseID         string     `db:"case_id" json:"case_id"`
	Endpoint       string     `db:"endpoint" json:"endpoint"`
	RequestPayload []byte     `db:"request_payload" json:"request_payload,omitempty"`
	ResponseStatus *int       `db:"response_status" json:"response_status,omitempty"`
	ResponseBody   *string    `db:"response_body" json:"response_body,omitempty"`
	Success        bool       `db:"success" json:"success"`
	ErrorMessage   *string    `db:"error_message" json:"error_message,omitempty"`
	AttemptNumber  int        `db:"attempt_number" json:"attempt_number"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	CompletedAt    *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
