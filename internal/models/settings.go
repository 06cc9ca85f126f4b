package models

import "time"

// SystemSettings is the single active configuration row read by every
// periodic job. It is mutated only through the administrative update path.
type SystemSettings struct {
	ID                string    `db:"id" json:"id"`
	EmailEnabled      bool      `db:"email_enabled" json:"email_enabled"`
	DefaultDueDays    int       `db:"default_due_days" json:"default_due_days"`
	RushThreshold     int       `db:"rush_threshold" json:"rush_threshold"`
	ReleaseEnabled    bool      `db:"release_enabled" json:"release_enabled"`
	ReleaseBatchHour  int       `db:"release_batch_hour" json:"release_batch_hour"`
	EmailDelayDays    int       `db:"email_delay_days" json:"email_delay_days"`
	APIBaseURL        string    `db:"api_base_url" json:"api_base_url"`
	APIKey            string    `db:"api_key" json:"-"`
	APITimeoutSeconds int       `db:"api_timeout_seconds" json:"api_timeout_seconds"`
	APIMaxRetries     int       `db:"api_max_retries" json:"api_max_retries"`
	UpdatedBy         *string   `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultSettings returns the values used before an admin ever saves the row.
func DefaultSettings() SystemSettings {
	return SystemSettings{
		EmailEnabled:      true,
		DefaultDueDays:    14,
		RushThreshold:     5,
		ReleaseEnabled:    true,
		ReleaseBatchHour:  6,
		EmailDelayDays:    1,
		APITimeoutSeconds: 30,
		APIMaxRetries:     3,
	}
}
