package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	apperrors "github.com/edgard/searchbyimage/internal/errors"
)

// LoadConfig loads and validates configuration from:
// 1. Default values
// 2. the YAML file at path (optional)
// 3. BOT_* environment variables, e.g. BOT_TELEGRAM_TOKEN
func LoadConfig(path string) (*Config, error) {
	startTime := time.Now()

	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewConfigError("invalid config", err)
	}

	slog.Debug("Configuration loaded",
		"path", path,
		"transport", cfg.Transport,
		"log_level", cfg.Logger.Level,
		"db_path", cfg.Database.Path,
		"duration_ms", time.Since(startTime).Milliseconds())
	return cfg, nil
}

// Read merges defaults, the file at path and the environment without
// validating the result.
func Read(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaultValues() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, apperrors.NewConfigError(fmt.Sprintf("failed to read config file %s", path), err)
			}
			slog.Info("Configuration file not found, using defaults", "path", path)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to parse config", err)
	}
	return cfg, nil
}

// ValidateSearch checks only the search section, for commands that do not
// start a transport.
func (c *Config) ValidateSearch() error {
	if err := validator.New().Struct(c.Search); err != nil {
		return apperrors.NewConfigError("invalid search config", err)
	}
	return nil
}

// Validate checks field constraints and the settings required by the
// selected transport.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Transport {
	case TransportTelegram:
		if c.Telegram.Token == "" {
			return errors.New("telegram.token is required when transport is telegram")
		}
	case TransportOneBot:
		if c.OneBot.WSURL == "" {
			return errors.New("onebot.ws_url is required when transport is onebot")
		}
	}

	for name, task := range c.Scheduler.Tasks {
		if task.Enabled && task.Schedule == "" {
			return fmt.Errorf("scheduler task %q is enabled but has no schedule", name)
		}
	}
	return nil
}
