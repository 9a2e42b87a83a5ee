// Package tasks implements the bot's scheduled maintenance tasks.
package tasks

import (
	"log/slog"

	"github.com/edgard/searchbyimage/internal/config"
	"github.com/edgard/searchbyimage/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
