package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/reshetovitsme/tg-chat-archive/internal/di"
	uploadService "github.com/reshetovitsme/tg-chat-archive/internal/modules/upload/service"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/config"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/logging"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/telemetry"
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

	manifest := flag.String("manifest", cfg.ManifestFile, "path to the manifest file (URL[, title] per line)")
	flag.Parse()

	if err := cfg.ValidateUpload(); err != nil {
		slog.Error("Invalid upload configuration", "error", err)
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

	injector, err := di.Setup(cfg, logger)
	if err != nil {
		logger.Error("Failed to setup dependency injection", "error", err)
		return 1
	}

	uploader, err := do.Invoke[*uploadService.Uploader](injector)
	if err != nil {
		logger.Error("Failed to build uploader", "error", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reportPath, reports, err := uploader.RunManifest(ctx, *manifest)
	if err != nil {
		logger.Error("Upload stopped", "manifest", *manifest, "error", err)
		return 1
	}

	logger.Info("Upload finished", "videos", len(reports), "report_file", reportPath)
	return 0
}
