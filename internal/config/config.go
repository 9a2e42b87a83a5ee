// Package config provides configuration loading, validation, and management
// for the bot. It reads a YAML file, applies BOT_* environment overrides on top
// of default values, and validates the result.
package config

import (
	"time"

	"github.com/go-telegram/bot/models"
)

// Transport names.
const (
	TransportTelegram = "telegram"
	TransportOneBot   = "onebot"
)

// Config defines the application configuration parameters for all components.
type Config struct {
	Transport string          `mapstructure:"transport" validate:"oneof=telegram onebot"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	OneBot    OneBotConfig    `mapstructure:"onebot"`
	Search    SearchConfig    `mapstructure:"search"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`
}

// LoggerConfig controls log verbosity and format.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the Telegram bot credentials. BotInfo is filled in at
// runtime from getMe.
type TelegramConfig struct {
	Token       string       `mapstructure:"token"`
	AdminUserID int64        `mapstructure:"admin_user_id" validate:"gte=0"`
	BotInfo     *models.User `mapstructure:"-"`
}

// OneBotConfig points at a OneBot v11 forward WebSocket endpoint.
type OneBotConfig struct {
	WSURL       string        `mapstructure:"ws_url"       validate:"omitempty,url"`
	AccessToken string        `mapstructure:"access_token"`
	DialTimeout time.Duration `mapstructure:"dial_timeout" validate:"min=0"`
}

// SearchConfig configures the SauceNAO client. The API key itself lives in
// the settings file at SettingsPath.
type SearchConfig struct {
	Endpoint       string        `mapstructure:"endpoint"        validate:"required,url"`
	SettingsPath   string        `mapstructure:"settings_path"   validate:"required"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" validate:"min=1s,max=5m"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"    validate:"min=1s,max=10m"`
}

// TracingConfig turns on OpenTelemetry spans for outgoing search requests.
// Spans are written to stderr.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name" validate:"required"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"min=0,max=1"`
}

// DatabaseConfig configures the search log database.
type DatabaseConfig struct {
	Path      string        `mapstructure:"path"      validate:"required"`
	Retention time.Duration `mapstructure:"retention" validate:"min=1h"`
}

// SchedulerConfig lists scheduled tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task and sets its cron schedule (with seconds).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MessagesConfig holds the user-facing command texts.
type MessagesConfig struct {
	Welcome              string `mapstructure:"welcome"                validate:"required"`
	Help                 string `mapstructure:"help"                   validate:"required"`
	ErrorGeneralMsg      string `mapstructure:"error_general"          validate:"required"`
	ErrorUnauthorizedMsg string `mapstructure:"error_unauthorized"     validate:"required"`
	StatsHeader          string `mapstructure:"stats_header"           validate:"required"`
	SearchDisabled       string `mapstructure:"search_disabled_notice" validate:"required"`
}
