package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Clock         ClockConfig
	Release       ReleaseConfig
	Notifications NotificationsConfig
	ExternalAPI   ExternalAPIConfig
	SyncQueue     SyncQueueConfig
	SMTP          SMTPConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ClockConfig pins the civil timezone used for all due-date comparisons.
type ClockConfig struct {
	Timezone string
}

// ReleaseConfig seeds the release sweep settings served until an admin
// saves the settings row.
type ReleaseConfig struct {
	Enabled   bool
	BatchHour int
}

// NotificationsConfig tunes the delayed member notification sweep.
type NotificationsConfig struct {
	Enabled       bool
	CronSpec      string
	FromAddress   string
	PortalBaseURL string
}

// ExternalAPIConfig holds connection parameters for the benefits system.
type ExternalAPIConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	CronSpec   string
}

// SyncQueueConfig tunes the async first-attempt submission queue.
type SyncQueueConfig struct {
	Workers    int
	BufferSize int
}

// SMTPConfig configures the outbound mail relay.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Clock = ClockConfig{
		Timezone: v.GetString("PORTAL_TIMEZONE"),
	}

	cfg.Release = ReleaseConfig{
		Enabled:   v.GetBool("RELEASE_SWEEP_ENABLED"),
		BatchHour: v.GetInt("RELEASE_BATCH_HOUR"),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:       v.GetBool("NOTIFICATIONS_ENABLED"),
		CronSpec:      v.GetString("NOTIFICATIONS_CRON_SPEC"),
		FromAddress:   v.GetString("NOTIFICATIONS_FROM_ADDRESS"),
		PortalBaseURL: v.GetString("PORTAL_BASE_URL"),
	}

	cfg.ExternalAPI = ExternalAPIConfig{
		BaseURL:    v.GetString("BENEFITS_API_BASE_URL"),
		APIKey:     v.GetString("BENEFITS_API_KEY"),
		Timeout:    parseDuration(v.GetString("BENEFITS_API_TIMEOUT"), 30*time.Second),
		MaxRetries: v.GetInt("BENEFITS_API_MAX_RETRIES"),
		CronSpec:   v.GetString("SYNC_RETRY_CRON_SPEC"),
	}

	cfg.SyncQueue = SyncQueueConfig{
		Workers:    v.GetInt("SYNC_QUEUE_WORKERS"),
		BufferSize: v.GetInt("SYNC_QUEUE_BUFFER"),
	}

	cfg.SMTP = SMTPConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		User:     v.GetString("SMTP_USER"),
		Password: v.GetString("SMTP_PASSWORD"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "benefits_portal")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PORTAL_TIMEZONE", "America/New_York")

	v.SetDefault("RELEASE_SWEEP_ENABLED", true)
	v.SetDefault("RELEASE_BATCH_HOUR", 6)

	v.SetDefault("NOTIFICATIONS_ENABLED", true)
	v.SetDefault("NOTIFICATIONS_CRON_SPEC", "0 * * * *")
	v.SetDefault("NOTIFICATIONS_FROM_ADDRESS", "no-reply@benefits-portal.example")
	v.SetDefault("PORTAL_BASE_URL", "http://localhost:8080")

	v.SetDefault("BENEFITS_API_TIMEOUT", "30s")
	v.SetDefault("BENEFITS_API_MAX_RETRIES", 3)
	v.SetDefault("SYNC_RETRY_CRON_SPEC", "30 * * * *")

	v.SetDefault("SYNC_QUEUE_WORKERS", 2)
	v.SetDefault("SYNC_QUEUE_BUFFER", 16)

	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 25)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
