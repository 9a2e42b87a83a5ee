package handlers

import (
	"log/slog"

	"github.com/edgard/searchbyimage/internal/config"
	"github.com/edgard/searchbyimage/internal/database"
)

// SearchStatus reports whether image search is currently answering requests.
type SearchStatus interface {
	Enabled() bool
}

// HandlerDeps provides dependencies for Telegram command handlers.
// Search may be nil when the feature could not be configured.
type HandlerDeps struct {
	Logger *slog.Logger
	Config *config.Config
	Store  database.Store
	Search SearchStatus
}
