// Package settings bootstraps and loads the search API credentials file.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	apperrors "github.com/edgard/searchbyimage/internal/errors"
)

// DefaultPath is where the credentials file lives, relative to the working directory.
const DefaultPath = "config/searchByImage/config.json"

// APIKeyLength is the length of a valid SauceNAO API key.
const APIKeyLength = 40

// Settings holds the search API credentials. It is read once at startup and
// never modified afterwards.
type Settings struct {
	APIKey string `json:"apiKey" mapstructure:"apiKey" validate:"len=40"`
}

// ErrInvalidAPIKey is returned when the configured key is not APIKeyLength characters long.
var ErrInvalidAPIKey = errors.New("api key length is not 40")

// Load ensures the settings file exists, reads it and validates the key.
// A missing directory or file is created with an empty key, which then fails
// validation. The returned error carries CodeConfig.
func Load(path string, logger *slog.Logger) (*Settings, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "settings")

	if err := ensureFile(path, log); err != nil {
		return nil, apperrors.NewConfigError("failed to prepare settings file", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("apiKey", "")
	if err := v.ReadInConfig(); err != nil {
		return nil, apperrors.NewConfigError("failed to read settings file", err)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, apperrors.NewConfigError("failed to parse settings file", err)
	}

	if err := s.Validate(); err != nil {
		log.Warn("程序配置文件错误, ApiKey长度不等于40!", "path", path, "length", len(s.APIKey))
		return nil, apperrors.NewConfigError("invalid settings", err)
	}

	log.Info("Settings loaded", "path", path)
	return &s, nil
}

// Validate checks the key length.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w (got %d)", ErrInvalidAPIKey, len(s.APIKey))
		}
		return err
	}
	return nil
}

// ensureFile creates the settings directory and an empty settings file when
// they do not exist yet.
func ensureFile(path string, log *slog.Logger) error {
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Warn("Making directory", "dir", dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}

	info, err = os.Stat(path)
	if err == nil && !info.IsDir() {
		return nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat settings file: %w", err)
	}
	if err == nil && info.IsDir() {
		return fmt.Errorf("settings path %s is a directory", path)
	}

	log.Warn("Creating config file", "path", path)
	data, err := json.Marshal(Settings{})
	if err != nil {
		return fmt.Errorf("failed to encode default settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write default settings: %w", err)
	}
	return nil
}
