package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/opencase/benefits-portal-api/internal/dto"
	"github.com/opencase/benefits-portal-api/internal/models"
	appErrors "github.com/opencase/benefits-portal-api/pkg/errors"
)

const settingsCacheKey = "portal:system_settings"

type settingsStore interface {
	Get(ctx context.Context) (*models.SystemSettings, error)
	Upsert(ctx context.Context, settings *models.SystemSettings) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// SettingsService provides the one active configuration to every periodic
// job and service, replacing the legacy process-global settings singleton
// with an injected dependency. Reads are cache-aside through Redis.
type SettingsService struct {
	repo      settingsStore
	cache     *redis.Client
	audit     auditLogger
	defaults  models.SystemSettings
	validator *validator.Validate
	logger    *zap.Logger
	cacheTTL  time.Duration
}

// NewSettingsService constructs the service. The cache client may be nil.
// The defaults are served until an admin saves the row, so the environment
// seeds the initial API connection parameters and sweep flags.
func NewSettingsService(repo settingsStore, cache *redis.Client, audit auditLogger, defaults models.SystemSettings, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{
		repo:      repo,
		cache:     cache,
		audit:     audit,
		defaults:  defaults,
		validator: validate,
		logger:    logger,
		cacheTTL:  5 * time.Minute,
	}
}

// Current returns the active settings, falling back to defaults when no
// admin has ever saved the row.
func (s *SettingsService) Current(ctx context.Context) (*models.SystemSettings, error) {
	if cached := s.fromCache(ctx); cached != nil {
		return cached, nil
	}

	settings, err := s.repo.Get(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			defaults := s.defaults
			settings = &defaults
		} else {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
		}
	}
	s.toCache(ctx, settings)
	return settings, nil
}

// Update applies the administrative settings change, audits it, and
// invalidates the cache.
func (s *SettingsService) Update(ctx context.Context, req dto.UpdateSettingsRequest, actor *models.JWTClaims) (*models.SystemSettings, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}

	settings, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	updated := *settings
	changes := make(map[string]models.FieldChange)

	if req.EmailEnabled != nil && *req.EmailEnabled != updated.EmailEnabled {
		changes["email_enabled"] = models.FieldChange{From: updated.EmailEnabled, To: *req.EmailEnabled}
		updated.EmailEnabled = *req.EmailEnabled
	}
	if req.DefaultDueDays != nil && *req.DefaultDueDays != updated.DefaultDueDays {
		changes["default_due_days"] = models.FieldChange{From: updated.DefaultDueDays, To: *req.DefaultDueDays}
		updated.DefaultDueDays = *req.DefaultDueDays
	}
	if req.RushThreshold != nil && *req.RushThreshold != updated.RushThreshold {
		changes["rush_threshold"] = models.FieldChange{From: updated.RushThreshold, To: *req.RushThreshold}
		updated.RushThreshold = *req.RushThreshold
	}
	if req.ReleaseEnabled != nil && *req.ReleaseEnabled != updated.ReleaseEnabled {
		changes["release_enabled"] = models.FieldChange{From: updated.ReleaseEnabled, To: *req.ReleaseEnabled}
		updated.ReleaseEnabled = *req.ReleaseEnabled
	}
	if req.ReleaseBatchHour != nil && *req.ReleaseBatchHour != updated.ReleaseBatchHour {
		changes["release_batch_hour"] = models.FieldChange{From: updated.ReleaseBatchHour, To: *req.ReleaseBatchHour}
		updated.ReleaseBatchHour = *req.ReleaseBatchHour
	}
	if req.EmailDelayDays != nil && *req.EmailDelayDays != updated.EmailDelayDays {
		changes["email_delay_days"] = models.FieldChange{From: updated.EmailDelayDays, To: *req.EmailDelayDays}
		updated.EmailDelayDays = *req.EmailDelayDays
	}
	if req.APIBaseURL != nil && *req.APIBaseURL != updated.APIBaseURL {
		changes["api_base_url"] = models.FieldChange{From: updated.APIBaseURL, To: *req.APIBaseURL}
		updated.APIBaseURL = *req.APIBaseURL
	}
	if req.APIKey != nil && *req.APIKey != updated.APIKey {
		changes["api_key"] = models.FieldChange{From: "[redacted]", To: "[redacted]"}
		updated.APIKey = *req.APIKey
	}
	if req.APITimeoutSeconds != nil && *req.APITimeoutSeconds != updated.APITimeoutSeconds {
		changes["api_timeout_seconds"] = models.FieldChange{From: updated.APITimeoutSeconds, To: *req.APITimeoutSeconds}
		updated.APITimeoutSeconds = *req.APITimeoutSeconds
	}
	if req.APIMaxRetries != nil && *req.APIMaxRetries != updated.APIMaxRetries {
		changes["api_max_retries"] = models.FieldChange{From: updated.APIMaxRetries, To: *req.APIMaxRetries}
		updated.APIMaxRetries = *req.APIMaxRetries
	}

	if len(changes) == 0 {
		return settings, nil
	}

	updated.UpdatedBy = &actor.UserID
	if err := s.repo.Upsert(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update settings")
	}
	s.invalidate(ctx)

	if s.audit != nil {
		entry := &models.AuditLog{
			ActorID:     &actor.UserID,
			Action:      models.AuditActionSettingsUpdated,
			Description: "system settings updated",
			Changes:     encodeChanges(changes),
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to audit settings update", zap.Error(err))
		}
	}
	return &updated, nil
}

// settingsCacheEntry restores the API key explicitly: the model hides it
// from JSON so HTTP responses never carry it, but the cache must.
type settingsCacheEntry struct {
	Settings models.SystemSettings `json:"settings"`
	APIKey   string                `json:"api_key"`
}

func (s *SettingsService) fromCache(ctx context.Context) *models.SystemSettings {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, settingsCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Debug("settings cache read failed", zap.Error(err))
		}
		return nil
	}
	var entry settingsCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil
	}
	entry.Settings.APIKey = entry.APIKey
	return &entry.Settings
}

func (s *SettingsService) toCache(ctx context.Context, settings *models.SystemSettings) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(settingsCacheEntry{Settings: *settings, APIKey: settings.APIKey})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, settingsCacheKey, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Debug("settings cache write failed", zap.Error(err))
	}
}

func (s *SettingsService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, settingsCacheKey).Err(); err != nil {
		s.logger.Debug("settings cache invalidation failed", zap.Error(err))
	}
}
