package models

import "time"

// CreditContext tags which lifecycle event triggered a credit change.
type CreditContext string

const (
	CreditContextSubmission CreditContext = "submission"
	CreditContextAcceptance CreditContext = "acceptance"
	CreditContextUpdate     CreditContext = "update"
	CreditContextCompletion CreditContext = "completion"
)

// Valid reports whether the context is one of the closed set.
func (c CreditContext) Valid() bool {
	switch c {
	case CreditContextSubmission, CreditContextAcceptance, CreditContextUpdate, CreditContextCompletion:
		return true
	}
	return false
}

// CreditAuditLog records one credit value change on a case. Rows are written
// in the same transaction as the triggering status change and never mutated.
type CreditAuditLog struct {
	ID          string        `db:"id" json:"id"`
	CaseID      string        `db:"case_id" json:"case_id"`
	ValueBefore float64       `db:"value_before" json:"value_before"`
	ValueAfter  float64       `db:"value_after" json:"value_after"`
	ActorID     *string       `db:"actor_id" json:"actor_id,omitempty"`
	Context     CreditContext `db:"context" json:"context"`
	Reason      string        `db:"reason" json:"reason"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
}
