package config

import (
	"time"

	"github.com/edgard/searchbyimage/internal/saucenao"
	"github.com/edgard/searchbyimage/internal/settings"
)

// Default values for configuration
const (
	DefaultTransport = TransportTelegram
	DefaultLogLevel  = "info"

	DefaultSearchEndpoint       = saucenao.DefaultEndpoint
	DefaultSearchSettingsPath   = settings.DefaultPath
	DefaultSearchConnectTimeout = saucenao.DefaultConnectTimeout
	DefaultSearchReadTimeout    = saucenao.DefaultReadTimeout

	DefaultTracingServiceName = "searchbyimage"
	DefaultTracingSampleRatio = 1.0

	DefaultDBPath      = "searchbyimage.db"
	DefaultDBRetention = 30 * 24 * time.Hour

	DefaultOneBotDialTimeout = 10 * time.Second

	// Cron expressions include a seconds field.
	DefaultMaintenanceSchedule = "0 0 4 * * *"
	DefaultPruneSchedule       = "0 30 3 * * *"
)

// Task names understood by the scheduler.
const (
	TaskSQLMaintenance = "sql_maintenance"
	TaskSearchLogPrune = "search_log_prune"
)

// DefaultMessages are the stock command replies.
var DefaultMessages = MessagesConfig{
	Welcome:              "👋 发送「以图搜图」并附上一张图片，我会帮你寻找图片来源。",
	Help:                 "用法：在群聊中发送图片并在说明中写「以图搜图」，或回复一张图片发送「以图搜图」。可在后面附加相似度阈值，例如说明写「以图搜图 85.5」。默认阈值为 80。",
	ErrorGeneralMsg:      "❌ An error occurred. Please try again later.",
	ErrorUnauthorizedMsg: "🚫 Access denied. Please contact the administrator.",
	StatsHeader:          "📊 Search statistics (last 24h):",
	SearchDisabled:       "⚠️ Image search is disabled: the API key is not configured.",
}

func defaultValues() map[string]any {
	return map[string]any{
		"transport": DefaultTransport,

		"logger.level": DefaultLogLevel,
		"logger.json":  false,

		"telegram.token":         "",
		"telegram.admin_user_id": 0,

		"onebot.ws_url":       "",
		"onebot.access_token": "",
		"onebot.dial_timeout": DefaultOneBotDialTimeout,

		"search.endpoint":        DefaultSearchEndpoint,
		"search.settings_path":   DefaultSearchSettingsPath,
		"search.connect_timeout": DefaultSearchConnectTimeout,
		"search.read_timeout":    DefaultSearchReadTimeout,

		"tracing.enabled":      false,
		"tracing.service_name": DefaultTracingServiceName,
		"tracing.sample_ratio": DefaultTracingSampleRatio,

		"database.path":      DefaultDBPath,
		"database.retention": DefaultDBRetention,

		"scheduler.tasks": map[string]any{
			TaskSQLMaintenance: map[string]any{"enabled": true, "schedule": DefaultMaintenanceSchedule},
			TaskSearchLogPrune: map[string]any{"enabled": true, "schedule": DefaultPruneSchedule},
		},

		"messages.welcome":                DefaultMessages.Welcome,
		"messages.help":                   DefaultMessages.Help,
		"messages.error_general":          DefaultMessages.ErrorGeneralMsg,
		"messages.error_unauthorized":     DefaultMessages.ErrorUnauthorizedMsg,
		"messages.stats_header":           DefaultMessages.StatsHeader,
		"messages.search_disabled_notice": DefaultMessages.SearchDisabled,
	}
}
