package service

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/repository"
	"github.com/samber/lo"
)

// Service keeps the journal of archived messages
type Service struct {
	repo   repository.Repository
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new journal service
func New(repo repository.Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Record stores a journal entry for a delivered message. Journal failures are
// logged and returned but never affect archive progress.
func (s *Service) Record(source, destination string, out *domain.Outgoing) error {
	msg := out.Message
	entry := &domain.Entry{
		ID:          msg.ID,
		Source:      source,
		Destination: destination,
		Date:        msg.Date,
		Sender:      msg.Sender,
		Text:        msg.Text(),
		Attachments: lo.Map(msg.Attachments, func(a domain.Attachment, _ int) domain.AttachmentKind { return a.Kind }),
		Skipped:     out.Skipped,
		Link:        PermaLink(source, msg.ID),
		ArchivedAt:  s.now().UTC(),
	}

	if err := s.repo.SaveEntry(entry); err != nil {
		s.logger.Warn("journal write failed", slog.Int64("message_id", msg.ID), slog.Any("error", err))
		return err
	}
	return nil
}

// GetEntries retrieves the latest journal entries for a source
func (s *Service) GetEntries(source string, limit int) ([]*domain.Entry, error) {
	return s.repo.GetEntries(source, limit)
}

// GetRecentEntries retrieves journal entries dated after since
func (s *Service) GetRecentEntries(source string, since time.Time) ([]*domain.Entry, error) {
	return s.repo.GetRecentEntries(source, since)
}

// PermaLink returns the public t.me link of a message, or "" when the source
// is referenced by numeric id and has no public address.
func PermaLink(source string, id int64) string {
	name := strings.TrimPrefix(strings.TrimSpace(source), "@")
	name = strings.TrimPrefix(name, "https://t.me/")
	if name == "" {
		return ""
	}
	if _, err := strconv.ParseInt(name, 10, 64); err == nil {
		return ""
	}
	return fmt.Sprintf("https://t.me/%s/%d", name, id)
}
