package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/opencase/benefits-portal-api/internal/models"
)

// settingsRowID pins the one active configuration row.
const settingsRowID = "default"

// SettingsRepository persists the single active SystemSettings row.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the active settings row. sql.ErrNoRows means no admin has
// saved settings yet; callers fall back to models.DefaultSettings.
func (r *SettingsRepository) Get(ctx context.Context) (*models.SystemSettings, error) {
	const query = `SELECT id, email_enabled, default_due_days, rush_threshold, release_enabled,
	       release_batch_hour, email_delay_days, api_base_url, api_key,
	       api_timeout_seconds, api_max_retries, updated_by, updated_at
	FROM system_settings WHERE id = $1`
	var settings models.SystemSettings
	if err := r.db.GetContext(ctx, &settings, query, settingsRowID); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Upsert writes the active settings row.
func (r *SettingsRepository) Upsert(ctx context.Context, settings *models.SystemSettings) error {
	settings.ID = settingsRowID
	settings.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO system_settings
	(id, email_enabled, default_due_days, rush_threshold, release_enabled,
	 release_batch_hour, email_delay_days, api_base_url, api_key,
	 api_timeout_seconds, api_max_retries, updated_by, updated_at)
	VALUES (:id, :email_enabled, :default_due_days, :rush_threshold, :release_enabled,
	 :release_batch_hour, :email_delay_days, :api_base_url, :api_key,
	 :api_timeout_seconds, :api_max_retries, :updated_by, :updated_at)
	ON CONFLICT (id) DO UPDATE SET
	 email_enabled = EXCLUDED.email_enabled,
	 default_due_days = EXCLUDED.default_due_days,
	 rush_threshold = EXCLUDED.rush_threshold,
	 release_enabled = EXCLUDED.release_enabled,
	 release_batch_hour = EXCLUDED.release_batch_hour,
	 email_delay_days = EXCLUDED.email_delay_days,
	 api_base_url = EXCLUDED.api_base_url,
	 api_key = EXCLUDED.api_key,
	 api_timeout_seconds = EXCLUDED.api_timeout_seconds,
	 api_max_retries = EXCLUDED.api_max_retries,
	 updated_by = EXCLUDED.updated_by,
	 updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}
