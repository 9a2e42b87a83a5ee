package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/searchbyimage/internal/chat"
	"github.com/edgard/searchbyimage/internal/config"
	"github.com/edgard/searchbyimage/internal/trigger"
)

const (
	// DefaultFileBaseURL serves files referenced by getFile.
	DefaultFileBaseURL = "https://api.telegram.org"

	// Telegram rejects photo captions longer than this many characters.
	captionLimit = 1024
)

// Transport adapts a go-telegram bot to chat.Transport.
type Transport struct {
	bot         *bot.Bot
	token       string
	fileBaseURL string
	logger      *slog.Logger

	mu       sync.Mutex
	handlers map[string]struct{}
}

// TransportOption customizes a Transport.
type TransportOption func(*Transport)

// WithFileBaseURL overrides the host files are downloaded from.
func WithFileBaseURL(u string) TransportOption {
	return func(t *Transport) { t.fileBaseURL = u }
}

// NewTransport wraps b. token is needed to build file download links.
func NewTransport(b *bot.Bot, token string, logger *slog.Logger, opts ...TransportOption) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	t := &Transport{
		bot:         b,
		token:       token,
		fileBaseURL: DefaultFileBaseURL,
		logger:      logger.With("component", "telegram_transport"),
		handlers:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name implements chat.Transport.
func (t *Transport) Name() string { return config.TransportTelegram }

// Subscribe implements chat.Transport. Only group messages that carry a
// photo, or reply to one, reach h.
func (t *Transport) Subscribe(h chat.Handler) func() {
	id := t.bot.RegisterHandlerMatchFunc(matchImageMessage, func(ctx context.Context, _ *bot.Bot, update *models.Update) {
		event, ok := eventFromMessage(update.Message)
		if !ok {
			return
		}
		h(ctx, event)
	})

	t.mu.Lock()
	t.handlers[id] = struct{}{}
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if _, ok := t.handlers[id]; !ok {
			return
		}
		delete(t.handlers, id)
		t.bot.UnregisterHandler(id)
	}
}

// ImageURL implements chat.Transport. The returned link embeds the bot
// token, as Telegram requires for file downloads.
func (t *Transport) ImageURL(ctx context.Context, img trigger.Image) (string, error) {
	if img.URL != "" {
		return img.URL, nil
	}
	if img.ID == "" {
		return "", fmt.Errorf("image has neither url nor file id")
	}

	file, err := t.bot.GetFile(ctx, &bot.GetFileParams{FileID: img.ID})
	if err != nil {
		return "", fmt.Errorf("failed to get file info: %w", redact(err, t.token))
	}
	if file.FilePath == "" {
		return "", fmt.Errorf("file path is empty for file id %s", img.ID)
	}
	return fmt.Sprintf("%s/file/bot%s/%s", t.fileBaseURL, t.token, file.FilePath), nil
}

// SendReply implements chat.Transport. The photo is sent again quoting the
// request, with the result text as its caption.
func (t *Transport) SendReply(ctx context.Context, event chat.Event, reply chat.Reply) error {
	chatID, err := strconv.ParseInt(event.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", event.ChatID, err)
	}

	var replyParams *models.ReplyParameters
	if reply.QuoteMessageID != "" {
		messageID, err := strconv.Atoi(reply.QuoteMessageID)
		if err != nil {
			return fmt.Errorf("invalid telegram message id %q: %w", reply.QuoteMessageID, err)
		}
		replyParams = &models.ReplyParameters{MessageID: messageID}
	}

	caption := reply.Text
	if utf8.RuneCountInString(caption) > captionLimit {
		caption = ""
	}

	_, err = t.bot.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:          chatID,
		Photo:           &models.InputFileString{Data: reply.Image.ID},
		Caption:         caption,
		ReplyParameters: replyParams,
	})
	if err != nil {
		return fmt.Errorf("failed to send photo: %w", redact(err, t.token))
	}

	if caption == "" && reply.Text != "" {
		_, err = t.bot.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:          chatID,
			Text:            reply.Text,
			ReplyParameters: replyParams,
		})
		if err != nil {
			return fmt.Errorf("failed to send result text: %w", redact(err, t.token))
		}
	}

	t.logger.DebugContext(ctx, "Sent search reply", "chat_id", chatID, "quote", reply.QuoteMessageID)
	return nil
}

// Start implements chat.Transport. It long-polls until ctx is cancelled.
func (t *Transport) Start(ctx context.Context) error {
	t.logger.Info("Starting Telegram bot listener")
	t.bot.Start(ctx)
	t.logger.Info("Telegram bot listener stopped")

	if ctx.Err() == nil {
		return fmt.Errorf("telegram listener stopped unexpectedly")
	}
	return nil
}
