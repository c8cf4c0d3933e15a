package di

import (
	"context"
	"log/slog"
	"testing"

	cursorDomain "github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	cursorService "github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/service"
	feedService "github.com/reshetovitsme/tg-chat-archive/internal/modules/feed/service"
	messageService "github.com/reshetovitsme/tg-chat-archive/internal/modules/message/service"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/config"
	"github.com/samber/do/v2"
)

func TestSetupWiresStorageServices(t *testing.T) {
	cfg := &config.Config{
		StoragePath:       t.TempDir(),
		CursorBackend:     config.CursorBackendFile,
		SourceChat:        "@history",
		DestinationChatID: "-1001",
	}
	injector, err := Setup(cfg, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	cursors, err := do.Invoke[*cursorService.Service](injector)
	if err != nil {
		t.Fatalf("invoke cursor service: %v", err)
	}
	key := cursorDomain.Key{Source: cfg.SourceChat, Destination: cfg.DestinationChatID}
	if _, err := cursors.Commit(context.Background(), key, 10, 10); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if _, err := do.Invoke[*messageService.Service](injector); err != nil {
		t.Errorf("invoke message service: %v", err)
	}
	feed, err := do.Invoke[*feedService.Service](injector)
	if err != nil {
		t.Fatalf("invoke feed service: %v", err)
	}
	if _, err := feed.GenerateFeed(cfg.SourceChat, "http://localhost"); err != nil {
		t.Errorf("GenerateFeed() error = %v", err)
	}

	if err := Shutdown(injector); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
