package dto

// UpdateSettingsRequest carries the administrative settings update payload.
type UpdateSettingsRequest struct {
	EmailEnabled      *bool   `json:"email_enabled"`
	DefaultDueDays    *int    `json:"default_due_days" validate:"omitempty,min=1,max=90"`
	RushThreshold     *int    `json:"rush_threshold" validate:"omitempty,min=1"`
	ReleaseEnabled    *bool   `json:"release_enabled"`
	ReleaseBatchHour  *int    `json:"release_batch_hour" validate:"omitempty,min=0,max=23"`
	EmailDelayDays    *int    `json:"email_delay_days" validate:"omitempty,min=0,max=30"`
	APIBaseURL        *string `json:"api_base_url" validate:"omitempty,url"`
	APIKey            *string `json:"api_key"`
	APITimeoutSeconds *int    `json:"api_timeout_seconds" validate:"omitempty,min=1,max=300"`
	APIMaxRetries     *int    `json:"api_max_retries" validate:"omitempty,min=1,max=10"`
}
