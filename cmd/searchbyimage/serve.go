package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/edgard/searchbyimage/internal/bot"
	"github.com/edgard/searchbyimage/internal/bot/handlers"
	"github.com/edgard/searchbyimage/internal/bot/tasks"
	"github.com/edgard/searchbyimage/internal/chat"
	"github.com/edgard/searchbyimage/internal/config"
	"github.com/edgard/searchbyimage/internal/database"
	"github.com/edgard/searchbyimage/internal/logger"
	"github.com/edgard/searchbyimage/internal/onebot"
	"github.com/edgard/searchbyimage/internal/plugin"
	"github.com/edgard/searchbyimage/internal/saucenao"
	"github.com/edgard/searchbyimage/internal/search"
	"github.com/edgard/searchbyimage/internal/settings"
	"github.com/edgard/searchbyimage/internal/telegram"
	"github.com/edgard/searchbyimage/internal/tracing"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect to the configured chat transport and answer image searches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

// serve wires config, logger, database, image search, transport and
// scheduler, then blocks until ctx is cancelled or a component fails.
func serve(ctx context.Context) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration from %s: %w", configPath, err)
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Logger initialized", "level", cfg.Logger.Level, "json", cfg.Logger.JSON)

	var tp trace.TracerProvider
	if cfg.Tracing.Enabled {
		provider, err := tracing.NewProvider(cfg.Tracing, os.Stderr)
		if err != nil {
			log.Error("Failed to set up tracing", "error", err)
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Shutdown(shutdownCtx); err != nil {
				log.Warn("Failed to flush traces", "error", err)
			}
		}()
		otel.SetTracerProvider(provider)
		tp = provider
		log.Info("Tracing enabled", "service_name", cfg.Tracing.ServiceName, "sample_ratio", cfg.Tracing.SampleRatio)
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return err
	}
	defer database.CloseDB(db)
	store := database.NewStore(db, log)

	imageSearch := newImageSearch(cfg, store, tp, log)

	var transport chat.Transport
	switch cfg.Transport {
	case config.TransportTelegram:
		transport, err = newTelegramTransport(ctx, cfg, store, imageSearch, log)
	case config.TransportOneBot:
		transport, err = onebot.NewTransport(cfg.OneBot, log)
	default:
		err = fmt.Errorf("unknown transport %q", cfg.Transport)
	}
	if err != nil {
		log.Error("Failed to create transport", "transport", cfg.Transport, "error", err)
		return err
	}

	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Config: cfg,
	}))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return err
	}

	var feature bot.Feature
	if imageSearch != nil {
		feature = imageSearch
	}
	app := bot.NewBot(log, transport, feature, sched)

	log.Info("Starting bot", "transport", transport.Name())
	runErr := app.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		return runErr
	}

	log.Info("Bot stopped gracefully")
	return nil
}

// newImageSearch builds the plugin. A missing or invalid API key leaves the
// feature off for this run; the bot keeps serving commands.
func newImageSearch(cfg *config.Config, store database.Store, tp trace.TracerProvider, log *slog.Logger) *plugin.Plugin {
	s, err := settings.Load(cfg.Search.SettingsPath, log)
	if err != nil {
		log.Warn("Image search disabled", "settings_path", cfg.Search.SettingsPath, "error", err)
		return nil
	}

	client, err := saucenao.NewClient(saucenao.Config{
		Endpoint:       cfg.Search.Endpoint,
		APIKey:         s.APIKey,
		ConnectTimeout: cfg.Search.ConnectTimeout,
		ReadTimeout:    cfg.Search.ReadTimeout,
		TracerProvider: tp,
	}, log)
	if err != nil {
		log.Warn("Image search disabled", "error", err)
		return nil
	}

	p, err := plugin.New(plugin.Deps{
		Logger:   log,
		Settings: s,
		Engine:   search.NewEngine(client, log),
		Recorder: store,
	})
	if err != nil {
		log.Warn("Image search disabled", "error", err)
		return nil
	}
	return p
}

func newTelegramTransport(ctx context.Context, cfg *config.Config, store database.Store, imageSearch *plugin.Plugin, log *slog.Logger) (chat.Transport, error) {
	defaultLog := log.With("handler", "default")
	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithErrorsHandler(telegram.ErrorsHandler(cfg.Telegram.Token, log)),
		tgbot.WithDefaultHandler(func(ctx context.Context, _ *tgbot.Bot, update *models.Update) {
			defaultLog.DebugContext(ctx, "Ignoring update", "update_id", update.ID)
		}),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		return nil, err
	}

	infoCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	cfg.Telegram.BotInfo, err = tg.GetMe(infoCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get bot info: %w", err)
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	hDeps := handlers.HandlerDeps{
		Logger: log,
		Config: cfg,
		Store:  store,
	}
	if imageSearch != nil {
		hDeps.Search = imageSearch
	}
	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		return nil, err
	}

	return telegram.NewTransport(tg, cfg.Telegram.Token, log), nil
}
