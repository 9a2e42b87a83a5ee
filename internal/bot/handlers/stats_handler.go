package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/searchbyimage/internal/database"
)

const (
	statsWindow  = 24 * time.Hour
	statsTimeout = 10 * time.Second
)

// NewStatsHandler returns a handler for the /stats command.
func NewStatsHandler(deps HandlerDeps) bot.HandlerFunc {
	return statsHandler{deps: deps, now: time.Now}.Handle
}

// statsHandler reports search log totals for the last day.
// Requires admin privileges (enforced by middleware).
type statsHandler struct {
	deps HandlerDeps
	now  func() time.Time
}

func (h statsHandler) Handle(ctx context.Context, b *bot.Bot, update *models.Update) {
	log := h.deps.Logger.With("handler", "stats")

	if update.Message == nil {
		log.WarnContext(ctx, "Stats handler received update with nil message", "update_id", update.ID)
		return
	}
	chatID := update.Message.Chat.ID

	text, err := h.report(ctx)
	if err != nil {
		log.ErrorContext(ctx, "Failed to load search stats", "error", err, "chat_id", chatID)
		text = h.deps.Config.Messages.ErrorGeneralMsg
	}

	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		log.ErrorContext(ctx, "Failed to send stats message", "error", err, "chat_id", chatID)
	}
}

func (h statsHandler) report(ctx context.Context) (string, error) {
	statsCtx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()

	stats, err := h.deps.Store.SearchStats(statsCtx, h.now().Add(-statsWindow))
	if err != nil {
		return "", err
	}
	enabled := h.deps.Search != nil && h.deps.Search.Enabled()
	return formatStats(h.deps.Config.Messages.StatsHeader, stats, enabled), nil
}

func formatStats(header string, stats database.SearchStats, enabled bool) string {
	var sb strings.Builder
	sb.WriteString(header)
	fmt.Fprintf(&sb, "\nSearches: %d", stats.Total)
	fmt.Fprintf(&sb, "\nMatched: %d", stats.Matched)
	fmt.Fprintf(&sb, "\nNo match: %d", stats.NoMatch)
	fmt.Fprintf(&sb, "\nFailed: %d", stats.Failed)
	if enabled {
		sb.WriteString("\nImage search: enabled")
	} else {
		sb.WriteString("\nImage search: disabled")
	}
	return sb.String()
}
