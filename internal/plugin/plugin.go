// Package plugin wires trigger matching, image search, and reply dispatch into
// a service that can be enabled on a chat transport.
package plugin

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/edgard/searchbyimage/internal/chat"
	"github.com/edgard/searchbyimage/internal/database"
	apperrors "github.com/edgard/searchbyimage/internal/errors"
	"github.com/edgard/searchbyimage/internal/search"
	"github.com/edgard/searchbyimage/internal/settings"
	"github.com/edgard/searchbyimage/internal/trigger"
)

const recordTimeout = 5 * time.Second

// ErrAlreadyEnabled is returned by Enable when the plugin is already subscribed.
var ErrAlreadyEnabled = errors.New("plugin already enabled")

// Searcher renders a reply for an image URL and threshold.
type Searcher interface {
	Search(ctx context.Context, imageURL string, threshold float64) (search.Outcome, error)
}

// Recorder persists search outcomes.
type Recorder interface {
	SaveSearch(ctx context.Context, record *database.SearchRecord) error
}

// Deps holds the plugin's collaborators. Recorder may be nil.
type Deps struct {
	Logger   *slog.Logger
	Settings *settings.Settings
	Engine   Searcher
	Recorder Recorder
}

// Plugin answers image search requests. Settings are read-only after
// construction, so Respond may run concurrently.
type Plugin struct {
	deps   Deps
	logger *slog.Logger

	mu          sync.Mutex
	unsubscribe func()
}

// New builds a plugin from deps. Missing or invalid settings are a
// configuration error: the feature stays off and nothing is subscribed.
func New(deps Deps) (*Plugin, error) {
	if deps.Settings == nil {
		return nil, apperrors.NewConfigError("image search settings are missing", nil)
	}
	if err := deps.Settings.Validate(); err != nil {
		return nil, apperrors.NewConfigError("image search settings are invalid", err)
	}
	if deps.Engine == nil {
		return nil, apperrors.NewConfigError("image search engine is missing", nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Plugin{
		deps:   deps,
		logger: logger.With("component", "image_search"),
	}, nil
}

// Respond computes the reply for event. It returns nil without error when
// the message is not a search request. Errors carry a code from the errors
// package telling image resolution, transport and malformed-response
// failures apart.
func (p *Plugin) Respond(ctx context.Context, event chat.Event, resolver chat.ImageResolver) (*chat.Reply, error) {
	req, ok := trigger.Detect(event.Message)
	if !ok {
		return nil, nil
	}

	log := p.logger.With("transport", event.Transport, "chat_id", event.ChatID, "message_id", event.MessageID)
	log.InfoContext(ctx, "Image search requested", "threshold", req.Threshold)

	record := &database.SearchRecord{
		Transport: event.Transport,
		ChatID:    event.ChatID,
		MessageID: event.MessageID,
		UserID:    event.UserID,
		Threshold: req.Threshold,
	}

	imageURL, err := resolver.ImageURL(ctx, req.Image)
	if err != nil {
		err = apperrors.NewImageError("failed to resolve image url", err)
		p.record(ctx, record, search.Outcome{}, err)
		return nil, err
	}

	outcome, err := p.deps.Engine.Search(ctx, imageURL, req.Threshold)
	p.record(ctx, record, outcome, err)
	if err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "Image search finished", "accepted", outcome.Accepted)
	return &chat.Reply{
		QuoteMessageID: event.MessageID,
		Image:          req.Image,
		Text:           outcome.Text,
	}, nil
}

func (p *Plugin) record(ctx context.Context, record *database.SearchRecord, outcome search.Outcome, searchErr error) {
	if p.deps.Recorder == nil {
		return
	}

	switch {
	case searchErr != nil:
		record.Outcome = database.OutcomeFailed
		record.ErrorCode = apperrors.Code(searchErr)
	case outcome.Matched():
		record.Outcome = database.OutcomeMatched
		record.AcceptedCount = outcome.Accepted
	default:
		record.Outcome = database.OutcomeNoMatch
	}

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := p.deps.Recorder.SaveSearch(recordCtx, record); err != nil {
		p.logger.WarnContext(ctx, "Failed to record search", "error", err, "chat_id", record.ChatID)
	}
}

// Enable subscribes the plugin to transport. Failures while handling a
// message are logged and never reach the chat.
func (p *Plugin) Enable(transport chat.Transport) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unsubscribe != nil {
		return ErrAlreadyEnabled
	}

	p.unsubscribe = transport.Subscribe(func(ctx context.Context, event chat.Event) {
		p.handle(ctx, transport, event)
	})
	p.logger.Info("Image search enabled", "transport", transport.Name())
	return nil
}

// Disable removes the subscription. It is a no-op when not enabled.
func (p *Plugin) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unsubscribe == nil {
		return
	}
	p.unsubscribe()
	p.unsubscribe = nil
	p.logger.Info("Image search disabled")
}

// Enabled reports whether the plugin is subscribed.
func (p *Plugin) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.unsubscribe != nil
}

func (p *Plugin) handle(ctx context.Context, transport chat.Transport, event chat.Event) {
	reply, err := p.Respond(ctx, event, transport)
	if err != nil {
		p.logger.ErrorContext(ctx, "Image search failed",
			"error", err,
			"error_code", apperrors.Code(err),
			"transport", event.Transport,
			"chat_id", event.ChatID,
			"message_id", event.MessageID)
		return
	}
	if reply == nil {
		return
	}

	if err := transport.SendReply(ctx, event, *reply); err != nil {
		p.logger.ErrorContext(ctx, "Failed to send search reply",
			"error", err,
			"transport", event.Transport,
			"chat_id", event.ChatID)
	}
}
