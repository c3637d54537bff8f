package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var keys = []string{
	"DB_TYPE", "DATABASE_PATH", "DATABASE_URL", "TELEGRAM_BOT_TOKEN", "ADMIN_CHAT_IDS",
	"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "ITEMS_PER_SESSION",
	"NEW_ITEMS_PER_SESSION", "NOTIFICATION_START_HOUR", "NOTIFICATION_END_HOUR",
	"LEVEL_HISTORY_MODE", "LOG_LEVEL", "LOG_FILE", "METRICS_ADDR",
}

// clearEnv blanks every key for the duration of the test
func clearEnv(t *testing.T) {
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

func missingFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.DBType)
	assert.Equal(t, "data/korbot.db", cfg.DatabasePath)
	assert.Equal(t, 3, cfg.ItemsPerSession)
	assert.Equal(t, 2, cfg.NewItemsPerSession)
	assert.Equal(t, 4, cfg.NotificationStartHour)
	assert.Equal(t, 18, cfg.NotificationEndHour)
	assert.Equal(t, "always", cfg.LevelHistoryMode)
	assert.Equal(t, "gpt-4o", cfg.OpenAIModel)
	assert.Empty(t, cfg.AdminChatIDs)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("ITEMS_PER_SESSION", "5")
	t.Setenv("NEW_ITEMS_PER_SESSION", "0")
	t.Setenv("ADMIN_CHAT_IDS", "10, 20")
	t.Setenv("LEVEL_HISTORY_MODE", "on_change")

	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.ItemsPerSession)
	assert.Equal(t, 0, cfg.NewItemsPerSession)
	assert.Equal(t, []int64{10, 20}, cfg.AdminChatIDs)
	assert.Equal(t, "on_change", cfg.LevelHistoryMode)
}

func TestLoadDotEnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already present
	require.NoError(t, os.Unsetenv("OPENAI_MODEL"))
	require.NoError(t, os.Unsetenv("METRICS_ADDR"))
	t.Cleanup(func() {
		os.Unsetenv("OPENAI_MODEL")
		os.Unsetenv("METRICS_ADDR")
	})

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("OPENAI_MODEL=gpt-4o-mini\nMETRICS_ADDR=:9100\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAIModel)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"DB_TYPE":                 "mysql",
		"ITEMS_PER_SESSION":       "many",
		"NEW_ITEMS_PER_SESSION":   "-1",
		"NOTIFICATION_START_HOUR": "25",
		"LEVEL_HISTORY_MODE":      "sometimes",
		"ADMIN_CHAT_IDS":          "abc",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load(missingFile(t))
			assert.Error(t, err)
		})
	}
}

func TestPostgresRequiresURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_TYPE", "postgres")
	_, err := Load(missingFile(t))
	assert.Error(t, err)

	t.Setenv("DATABASE_URL", "postgres://localhost/korbot?sslmode=disable")
	cfg, err := Load(missingFile(t))
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DBType)
}
