package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	archiveDomain "github.com/reshetovitsme/tg-chat-archive/internal/modules/archive/domain"
	cursorDomain "github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	feedService "github.com/reshetovitsme/tg-chat-archive/internal/modules/feed/service"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/config"
)

// ArchiveStatus is what the operator commands report on.
type ArchiveStatus interface {
	Key() cursorDomain.Key
	State() archiveDomain.State
	LastResult() (archiveDomain.Result, bool)
}

// CursorReader exposes the last committed cursor.
type CursorReader interface {
	Current(key cursorDomain.Key) (cursorDomain.Cursor, bool)
}

// Handler answers operator commands sent to the destination bot.
type Handler struct {
	cfg         *config.Config
	archive     ArchiveStatus
	cursors     CursorReader
	feedService *feedService.Service
	logger      *slog.Logger
}

// NewHandler creates a new operator command handler
func NewHandler(cfg *config.Config, archive ArchiveStatus, cursors CursorReader, feedService *feedService.Service, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:         cfg,
		archive:     archive,
		cursors:     cursors,
		feedService: feedService,
		logger:      logger,
	}
}

// RegisterCommands registers bot commands
func (h *Handler) RegisterCommands(b *bot.Bot) {
	b.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, h.handleHelp)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/status", bot.MatchTypeExact, h.handleStatus)
	b.RegisterHandler(bot.HandlerTypeMessageText, "/rsslink", bot.MatchTypeExact, h.handleRSSLink)
}

func (h *Handler) checkAuthorization(update *models.Update) bool {
	if update.Message == nil || update.Message.From == nil {
		return false
	}
	return slices.Contains(h.cfg.AllowedUsers, update.Message.From.ID)
}

func (h *Handler) reply(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	if _, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	}); err != nil {
		h.logger.Warn("Failed to answer command", "chat_id", update.Message.Chat.ID, "error", err)
	}
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ You are not authorized to use this bot.")
		return
	}

	key := h.archive.Key()
	text := fmt.Sprintf(`👋 Archive bot for %s → %s

Available commands:
/help - Show this help message
/status - Show archive progress
/rsslink - Get the feed link of archived messages`, key.Source, key.Destination)

	h.reply(ctx, b, update, text)
}

func (h *Handler) handleStatus(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}
	h.reply(ctx, b, update, h.statusText())
}

func (h *Handler) statusText() string {
	key := h.archive.Key()

	var text strings.Builder
	text.WriteString("📊 Archive Status:\n\n")
	fmt.Fprintf(&text, "Source: %s\nDestination: %s\nState: %s\n", key.Source, key.Destination, h.archive.State())

	if c, ok := h.cursors.Current(key); ok {
		fmt.Fprintf(&text, "Last archived: #%d\nTotal processed: %d\nCommitted: %s\n",
			c.LastArchivedID, c.TotalProcessed, c.UpdatedAt.Format(time.DateTime))
	} else {
		text.WriteString("Last archived: nothing yet\n")
	}

	if res, ok := h.archive.LastResult(); ok {
		fmt.Fprintf(&text, "\nLast run: %s, %d delivered in %d batches", res.State, res.Delivered, res.Batches)
		if res.Skipped > 0 {
			fmt.Fprintf(&text, ", %d skipped", res.Skipped)
		}
		if res.Error != "" {
			fmt.Fprintf(&text, "\nError: %s", res.Error)
		}
	}
	return text.String()
}

func (h *Handler) handleRSSLink(ctx context.Context, b *bot.Bot, update *models.Update) {
	if !h.checkAuthorization(update) {
		h.reply(ctx, b, update, "❌ Unauthorized")
		return
	}

	baseURL := h.cfg.PublicURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", h.cfg.HTTPPort)
	}
	meta, err := h.feedService.Meta(h.archive.Key().Source, baseURL)
	if err != nil {
		h.reply(ctx, b, update, fmt.Sprintf("❌ Failed to build feed: %v", err))
		return
	}

	h.reply(ctx, b, update, fmt.Sprintf("🔗 RSS Feed for %s (%d items):\n%s", meta.Source, meta.Items, meta.Link))
}
