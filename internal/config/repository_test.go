package config

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tildaslashalef/oplink/internal/loggy"
)

func newSettingsRepo(t *testing.T) (*SQLSettingsRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLSettingsRepository(db, loggy.NewNoopLogger()), mock
}

func TestSettingsRepository_GetSetting(t *testing.T) {
	repo, mock := newSettingsRepo(t)
	ctx := context.Background()

	mock.ExpectQuery("SELECT value FROM settings WHERE key = \\? LIMIT 1").
		WithArgs(KeyNextcloudAppPassword).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(obfuscate("app-pass")))

	value, err := repo.GetSetting(ctx, KeyNextcloudAppPassword)
	require.NoError(t, err)
	assert.Equal(t, "app-pass", value)

	mock.ExpectQuery("SELECT value FROM settings").
		WithArgs(KeyLastWorkPackage).
		WillReturnError(sql.ErrNoRows)

	value, err = repo.GetSetting(ctx, KeyLastWorkPackage)
	require.NoError(t, err)
	assert.Empty(t, value)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_GetSettings(t *testing.T) {
	repo, mock := newSettingsRepo(t)

	rows := sqlmock.NewRows([]string{"key", "value"}).
		AddRow(KeyNextcloudURL, "https://cloud.example.com").
		AddRow(KeyNextcloudAppPassword, obfuscate("pw")).
		AddRow(KeyNextcloudUser, "admin")
	mock.ExpectQuery("SELECT key, value FROM settings WHERE key LIKE \\?").
		WithArgs("nextcloud.%").
		WillReturnRows(rows)

	settings, err := repo.GetSettings(context.Background(), "nextcloud.")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		KeyNextcloudURL:         "https://cloud.example.com",
		KeyNextcloudUser:        "admin",
		KeyNextcloudAppPassword: "pw",
	}, settings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsRepository_SetSettingObfuscatesSecrets(t *testing.T) {
	repo, mock := newSettingsRepo(t)

	mock.ExpectExec("INSERT INTO settings \\(id,key,value,created_at,updated_at\\) VALUES .* ON CONFLICT\\(key\\) DO UPDATE").
		WithArgs(sqlmock.AnyArg(), KeyNextcloudAppPassword, obfuscate("pw"), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SetSetting(context.Background(), KeyNextcloudAppPassword, "pw"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSettingsService_ApplyStoredConnection(t *testing.T) {
	repo, mock := newSettingsRepo(t)
	cfg := &Config{Nextcloud: NextcloudConfig{User: "from-env", Timeout: time.Second}}
	svc := NewSettingsService(repo, cfg, loggy.NewNoopLogger())

	mock.ExpectQuery("SELECT key, value FROM settings WHERE key LIKE \\?").
		WithArgs("nextcloud.%").
		WillReturnRows(sqlmock.NewRows([]string{"key", "value"}).
			AddRow(KeyNextcloudURL, "https://cloud.example.com").
			AddRow(KeyNextcloudUser, "stored-user"))

	require.NoError(t, svc.ApplyStoredConnection(context.Background()))
	assert.Equal(t, "https://cloud.example.com", cfg.Nextcloud.URL)
	assert.Equal(t, "from-env", cfg.Nextcloud.User)
	assert.NoError(t, mock.ExpectationsWereMet())
}
