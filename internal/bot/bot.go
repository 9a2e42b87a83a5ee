// Package bot implements lifecycle management and component orchestration:
// it runs the chat transport and the scheduler together and enables image
// search on the transport for as long as the bot runs.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/searchbyimage/internal/chat"
)

// Feature is a plugin that can be attached to a transport.
type Feature interface {
	Enable(transport chat.Transport) error
	Disable()
}

// Runner is a background component started with the bot.
type Runner interface {
	Start() error
	Stop() error
}

// Bot represents the main bot application and manages its components' lifecycle.
type Bot struct {
	logger    *slog.Logger
	transport chat.Transport
	feature   Feature
	scheduler Runner
}

// NewBot creates a new instance of the bot. feature may be nil when image
// search is disabled.
func NewBot(logger *slog.Logger, transport chat.Transport, feature Feature, scheduler Runner) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		logger:    logger.With("component", "bot_orchestrator"),
		transport: transport,
		feature:   feature,
		scheduler: scheduler,
	}
}

// Run starts the bot and all its components, handling graceful shutdown on context cancellation.
// It returns an error if any component fails during startup or execution.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("Starting bot orchestrator", "transport", b.transport.Name())

	if b.feature != nil {
		if err := b.feature.Enable(b.transport); err != nil {
			return fmt.Errorf("failed to enable image search: %w", err)
		}
		defer b.feature.Disable()
	} else {
		b.logger.Warn("Image search is disabled, running without it")
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := b.transport.Start(gCtx); err != nil {
			b.logger.Error("Transport stopped with error", "error", err)
			return err
		}
		if gCtx.Err() == nil {
			return fmt.Errorf("%s transport stopped unexpectedly", b.transport.Name())
		}
		return nil
	})

	if b.scheduler != nil {
		g.Go(func() error {
			if err := b.scheduler.Start(); err != nil {
				b.logger.Error("Failed to start scheduler", "error", err)
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			<-gCtx.Done()
			b.logger.Info("Shutdown signal received, stopping scheduler")

			if err := b.scheduler.Stop(); err != nil {
				b.logger.Error("Error stopping scheduler", "error", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		b.logger.Error("Bot orchestrator stopped due to error", "error", err)
		return err
	}

	b.logger.Info("Bot orchestrator stopped gracefully")
	return nil
}
