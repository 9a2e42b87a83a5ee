package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/searchbyimage/internal/config"
	apperrors "github.com/edgard/searchbyimage/internal/errors"
	"github.com/edgard/searchbyimage/internal/trigger"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
transport: telegram
logger:
  level: debug
  json: true
telegram:
  token: "123456:abcdef"
  admin_user_id: 42
search:
  read_timeout: 30s
tracing:
  enabled: true
  sample_ratio: 0.25
database:
  path: /tmp/search.db
scheduler:
  tasks:
    sql_maintenance:
      enabled: false
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, config.TransportTelegram, cfg.Transport)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.True(t, cfg.Logger.JSON)
	assert.Equal(t, "123456:abcdef", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.AdminUserID)
	assert.Equal(t, 30*time.Second, cfg.Search.ReadTimeout)
	assert.Equal(t, config.DefaultSearchConnectTimeout, cfg.Search.ConnectTimeout)
	assert.Equal(t, config.DefaultSearchEndpoint, cfg.Search.Endpoint)
	assert.Equal(t, config.DefaultSearchSettingsPath, cfg.Search.SettingsPath)
	assert.True(t, cfg.Tracing.Enabled)
	assert.InDelta(t, 0.25, cfg.Tracing.SampleRatio, 1e-9)
	assert.Equal(t, config.DefaultTracingServiceName, cfg.Tracing.ServiceName)
	assert.Equal(t, "/tmp/search.db", cfg.Database.Path)
	assert.Equal(t, config.DefaultMessages, cfg.Messages)

	require.Contains(t, cfg.Scheduler.Tasks, config.TaskSQLMaintenance)
	assert.False(t, cfg.Scheduler.Tasks[config.TaskSQLMaintenance].Enabled)
	require.Contains(t, cfg.Scheduler.Tasks, config.TaskSearchLogPrune)
	assert.True(t, cfg.Scheduler.Tasks[config.TaskSearchLogPrune].Enabled)
}

func TestLoadConfigMissingFileUsesEnv(t *testing.T) {
	t.Setenv("BOT_TELEGRAM_TOKEN", "env-token")
	t.Setenv("BOT_LOGGER_LEVEL", "warn")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, config.DefaultDBPath, cfg.Database.Path)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Search.ConnectTimeout)
	assert.Equal(t, 60*time.Second, cfg.Search.ReadTimeout)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "telegram without token", content: "transport: telegram\n"},
		{name: "onebot without url", content: "transport: onebot\n"},
		{name: "unknown transport", content: "transport: irc\ntelegram:\n  token: x\n"},
		{name: "bad log level", content: "logger:\n  level: loud\ntelegram:\n  token: x\n"},
		{name: "timeout too short", content: "telegram:\n  token: x\nsearch:\n  read_timeout: 10ms\n"},
		{name: "sample ratio above one", content: "telegram:\n  token: x\ntracing:\n  sample_ratio: 1.5\n"},
		{name: "enabled task without schedule", content: "telegram:\n  token: x\nscheduler:\n  tasks:\n    extra:\n      enabled: true\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeConfig, apperrors.Code(err))
		})
	}
}

func TestLoadConfigOneBot(t *testing.T) {
	cfg, err := config.LoadConfig(writeConfig(t, `
transport: onebot
onebot:
  ws_url: ws://127.0.0.1:3001
  access_token: secret
`))
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:3001", cfg.OneBot.WSURL)
	assert.Equal(t, "secret", cfg.OneBot.AccessToken)
	assert.Equal(t, config.DefaultOneBotDialTimeout, cfg.OneBot.DialTimeout)
}

func TestReadSkipsTransportValidation(t *testing.T) {
	cfg, err := config.Read(writeConfig(t, "transport: telegram\nsearch:\n  endpoint: http://localhost:8080/search.php\n"))
	require.NoError(t, err)
	assert.Empty(t, cfg.Telegram.Token)
	assert.Equal(t, "http://localhost:8080/search.php", cfg.Search.Endpoint)
	require.NoError(t, cfg.ValidateSearch())
	require.Error(t, cfg.Validate())

	cfg.Search.ReadTimeout = time.Millisecond
	err = cfg.ValidateSearch()
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConfig, apperrors.Code(err))
}

func TestDefaultHelpShowsCaptionForm(t *testing.T) {
	assert.Contains(t, config.DefaultMessages.Help, trigger.Phrase+" 85.5")
	assert.NotContains(t, config.DefaultMessages.Help, trigger.ImagePlaceholder)
}
