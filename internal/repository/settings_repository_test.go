package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/opencase/benefits-portal-api/internal/models"
)

func TestSettingsRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSettingsRepository(db)
	updatedAt := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	admin := "admin-1"

	rows := sqlmock.NewRows([]string{
		"id", "email_enabled", "default_due_days", "rush_threshold", "release_enabled",
		"release_batch_hour", "email_delay_days", "api_base_url", "api_key",
		"api_timeout_seconds", "api_max_retries", "updated_by", "updated_at",
	}).AddRow("default", false, 21, 5, true, 6, 1, "https://benefits.example", "secret", 30, 3, admin, updatedAt)
	mock.ExpectQuery(regexp.QuoteMeta("FROM system_settings WHERE id = $1")).
		WithArgs("default").
		WillReturnRows(rows)

	settings, err := repo.Get(context.Background())
	require.NoError(t, err)
	require.False(t, settings.EmailEnabled)
	require.Equal(t, 21, settings.DefaultDueDays)
	require.Equal(t, "secret", settings.APIKey)
	require.NotNil(t, settings.UpdatedBy)
	require.Equal(t, admin, *settings.UpdatedBy)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryGetNoRow(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSettingsRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM system_settings WHERE id = $1")).
		WithArgs("default").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background())
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepositoryUpsertPinsRowID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewSettingsRepository(db)
	mock.ExpectExec("INSERT INTO system_settings .+ ON CONFLICT \\(id\\) DO UPDATE SET").
		WillReturnResult(sqlmock.NewResult(0, 1))

	settings := models.DefaultSettings()
	settings.ID = "something-else"
	require.NoError(t, repo.Upsert(context.Background(), &settings))
	require.Equal(t, "default", settings.ID)
	require.False(t, settings.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
