package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/reshetovitsme/tg-chat-archive/internal/di"
	archiveService "github.com/reshetovitsme/tg-chat-archive/internal/modules/archive/service"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/config"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/logging"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/telemetry"
	httpServer "github.com/reshetovitsme/tg-chat-archive/internal/transport/http"
	"github.com/reshetovitsme/tg-chat-archive/internal/transport/telegram"
	"github.com/samber/do/v2"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return 1
	}
	if err := cfg.ValidateArchive(); err != nil {
		slog.Error("Invalid archive configuration", "error", err)
		return 1
	}

	logger, closeLog, err := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFile)
	if err != nil {
		slog.Error("Failed to set up logging", "error", err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing(logger, cfg.OTelServiceName)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
	} else {
		defer shutdownTracing()
	}

	injector, err := di.Setup(cfg, logger)
	if err != nil {
		logger.Error("Failed to setup dependency injection", "error", err)
		return 1
	}

	archiver, err := do.Invoke[*archiveService.Archiver](injector)
	if err != nil {
		logger.Error("Failed to build archiver", "error", err)
		return 1
	}
	defer func() {
		if err := di.Shutdown(injector); err != nil {
			logger.Error("Error during shutdown", "error", err)
		}
	}()
	client := do.MustInvoke[*telegram.Client](injector)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.HTTPPort != "" {
		server := do.MustInvoke[*httpServer.Server](injector)
		go func() {
			if err := server.Run(ctx); err != nil {
				logger.Error("HTTP server stopped", "error", err)
			}
		}()
	}

	if cfg.BotCommands {
		b := do.MustInvoke[*bot.Bot](injector)
		do.MustInvoke[*telegram.Handler](injector).RegisterCommands(b)
		go b.Start(ctx)
		logger.Info("Operator commands enabled", "allowed_users", len(cfg.AllowedUsers))
	}

	logger.Info("Archiver started",
		"source", cfg.SourceChat,
		"destination", cfg.DestinationChatID,
		"cursor_backend", cfg.CursorBackend,
		"schedule_interval", cfg.ScheduleInterval,
	)

	err = client.Run(ctx, func(ctx context.Context) error {
		if cfg.ScheduleInterval > 0 {
			return archiver.RunEvery(ctx, cfg.ScheduleInterval)
		}
		_, err := archiver.Run(ctx)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Archiver stopped", "state", archiver.State(), "error", err)
		return 1
	}

	logger.Info("Archiver finished", "state", archiver.State())
	return 0
}
