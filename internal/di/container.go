package di

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-telegram/bot"
	archiveService "github.com/reshetovitsme/tg-chat-archive/internal/modules/archive/service"
	cursorDomain "github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	cursorRepo "github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/repository"
	cursorService "github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/service"
	feedService "github.com/reshetovitsme/tg-chat-archive/internal/modules/feed/service"
	messageRepo "github.com/reshetovitsme/tg-chat-archive/internal/modules/message/repository"
	messageService "github.com/reshetovitsme/tg-chat-archive/internal/modules/message/service"
	uploadService "github.com/reshetovitsme/tg-chat-archive/internal/modules/upload/service"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/config"
	httpServer "github.com/reshetovitsme/tg-chat-archive/internal/transport/http"
	"github.com/reshetovitsme/tg-chat-archive/internal/transport/telegram"
	"github.com/samber/do/v2"
	"github.com/samber/oops"
)

// Setup initializes the dependency injection container. Providers are lazy:
// the uploader never opens the source account or the cursor store.
func Setup(cfg *config.Config, logger *slog.Logger) (do.Injector, error) {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)

	// Register Cursor Repository
	do.Provide(injector, func(i do.Injector) (cursorRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := cursorRepo.Open(context.Background(), cfg)
		if err != nil {
			return nil, oops.With("cursor_backend", cfg.CursorBackend, "context", "failed to open cursor store").Wrap(err)
		}
		return repo, nil
	})

	// Register Cursor Service
	do.Provide(injector, func(i do.Injector) (*cursorService.Service, error) {
		repo := do.MustInvoke[cursorRepo.Repository](i)
		return cursorService.New(repo, do.MustInvoke[*slog.Logger](i)), nil
	})

	// Register Message Journal Repository
	do.Provide(injector, func(i do.Injector) (messageRepo.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		repo, err := messageRepo.NewFileStorage(cfg.StoragePath)
		if err != nil {
			return nil, oops.With("storage_path", cfg.StoragePath, "context", "failed to initialize journal repository").Wrap(err)
		}
		return repo, nil
	})

	// Register Message Service
	do.Provide(injector, func(i do.Injector) (*messageService.Service, error) {
		repo := do.MustInvoke[messageRepo.Repository](i)
		return messageService.New(repo, do.MustInvoke[*slog.Logger](i)), nil
	})

	// Register Feed Service
	do.Provide(injector, func(i do.Injector) (*feedService.Service, error) {
		cfg := do.MustInvoke[*config.Config](i)
		journal := do.MustInvoke[*messageService.Service](i)
		return feedService.New(journal, cfg.DestinationChatID, feedService.DefaultLimit), nil
	})

	// Register Bot
	do.Provide(injector, func(i do.Injector) (*bot.Bot, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return telegram.NewBot(cfg.TelegramBotToken, cfg.TelegramAPIURL)
	})

	// Register Destination Sink
	do.Provide(injector, func(i do.Injector) (*telegram.Sink, error) {
		cfg := do.MustInvoke[*config.Config](i)
		b := do.MustInvoke[*bot.Bot](i)
		return telegram.NewSink(b, cfg.DestinationChatID, do.MustInvoke[*slog.Logger](i)), nil
	})

	// Register Source Client
	do.Provide(injector, func(i do.Injector) (*telegram.Client, error) {
		cfg := do.MustInvoke[*config.Config](i)
		client, err := telegram.NewClient(telegram.ClientConfig{
			AppID:       cfg.TelegramAppID,
			AppHash:     cfg.TelegramAppHash,
			Phone:       cfg.TelegramPhone,
			Password:    cfg.TelegramPassword,
			SessionPath: cfg.SessionPath,
			Chat:        cfg.SourceChat,
		}, do.MustInvoke[*slog.Logger](i))
		if err != nil {
			return nil, oops.With("context", "failed to create source client").Wrap(err)
		}
		return client, nil
	})

	// Register Archiver
	do.Provide(injector, func(i do.Injector) (*archiveService.Archiver, error) {
		cfg := do.MustInvoke[*config.Config](i)
		loc, err := cfg.Location()
		if err != nil {
			return nil, err
		}
		spoolDir := filepath.Join(cfg.StoragePath, "spool")
		if err := os.MkdirAll(spoolDir, 0755); err != nil {
			return nil, oops.With("spool_dir", spoolDir, "context", "failed to create spool directory").Wrap(err)
		}

		client := do.MustInvoke[*telegram.Client](i)
		opts := archiveService.Options{
			Key:       cursorDomain.Key{Source: cfg.SourceChat, Destination: cfg.DestinationChatID},
			BatchSize: cfg.BatchSize,
			PageSize:  cfg.PageSize,
			MinDelay:  cfg.MinDelay,
			MaxDelay:  cfg.MaxDelay,
			Retry: archiveService.RetryPolicy{
				MaxAttempts: cfg.MaxRetryAttempts,
				BaseDelay:   cfg.BackoffBase,
				MaxDelay:    cfg.BackoffMax,
			},
			ThrottlePadding: cfg.ThrottlePadding,
			MaxUploadBytes:  cfg.MaxUploadBytes,
			SpoolDir:        spoolDir,
			Renderer:        messageService.Renderer{Location: loc, SenderFallback: cfg.SenderFallback},
		}

		return archiveService.New(
			opts,
			client.Source(),
			client.MediaFetcher(),
			do.MustInvoke[*telegram.Sink](i),
			do.MustInvoke[*cursorService.Service](i),
			do.MustInvoke[*messageService.Service](i),
			do.MustInvoke[*slog.Logger](i),
		), nil
	})

	// Register HTTP Server
	do.Provide(injector, func(i do.Injector) (*httpServer.Server, error) {
		cfg := do.MustInvoke[*config.Config](i)
		server := httpServer.New(
			cfg,
			do.MustInvoke[*archiveService.Archiver](i),
			do.MustInvoke[*cursorService.Service](i),
			do.MustInvoke[*feedService.Service](i),
		)
		server.SetLogger(do.MustInvoke[*slog.Logger](i))
		return server, nil
	})

	// Register Operator Command Handler
	do.Provide(injector, func(i do.Injector) (*telegram.Handler, error) {
		return telegram.NewHandler(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[*archiveService.Archiver](i),
			do.MustInvoke[*cursorService.Service](i),
			do.MustInvoke[*feedService.Service](i),
			do.MustInvoke[*slog.Logger](i),
		), nil
	})

	// Register Video Uploader
	do.Provide(injector, func(i do.Injector) (*uploadService.Uploader, error) {
		cfg := do.MustInvoke[*config.Config](i)
		return uploadService.New(
			uploadService.NewHTTPDownloader(&http.Client{}, cfg.DownloadDir),
			uploadService.FFmpegResolution{},
			do.MustInvoke[*telegram.Sink](i),
			uploadService.Options{Timeout: cfg.UploadTimeout, ReportDir: cfg.ReportDir},
			do.MustInvoke[*slog.Logger](i),
		), nil
	})

	return injector, nil
}

// Shutdown releases what the archiver opened. Call it only after the
// cursor service has been invoked; it would otherwise open the store.
func Shutdown(injector do.Injector) error {
	if cursors, err := do.Invoke[*cursorService.Service](injector); err == nil && cursors != nil {
		if err := cursors.Close(); err != nil {
			return oops.With("context", "failed to close cursor store").Wrap(err)
		}
	}
	return nil
}
