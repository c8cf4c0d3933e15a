package service

import (
	"fmt"
	"html"
	"strings"

	"github.com/gorilla/feeds"
	"github.com/reshetovitsme/tg-chat-archive/internal/modules/feed/domain"
	msgdomain "github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
	"github.com/samber/lo"
	"github.com/samber/oops"
)

// DefaultLimit is how many journal entries a feed carries.
const DefaultLimit = 50

// Journal is the read side of the archive journal.
type Journal interface {
	GetEntries(source string, limit int) ([]*msgdomain.Entry, error)
}

// Service publishes the archive journal of a source as an RSS feed
type Service struct {
	journal     Journal
	destination string
	limit       int
}

// New creates a new feed service
func New(journal Journal, destination string, limit int) *Service {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Service{journal: journal, destination: destination, limit: limit}
}

// GenerateFeed builds the feed of the most recently archived messages of
// source, newest first. A source with nothing archived yields an empty feed.
func (s *Service) GenerateFeed(source string, baseURL string) (*feeds.Feed, error) {
	entries, err := s.journal.GetEntries(source, s.limit)
	if err != nil {
		return nil, oops.With("source", source, "context", "failed to get journal entries").Wrap(err)
	}

	meta := s.meta(source, baseURL, entries)
	feed := &feeds.Feed{
		Title:       meta.Title,
		Link:        &feeds.Link{Href: meta.Link},
		Description: fmt.Sprintf("Messages archived from %s to %s", source, s.destination),
		Author:      &feeds.Author{Name: source},
		Updated:     meta.Updated,
	}
	if len(entries) > 0 {
		feed.Created = entries[len(entries)-1].ArchivedAt
	}

	feed.Items = lo.Map(entries, func(e *msgdomain.Entry, _ int) *feeds.Item {
		return s.entryToFeedItem(e, meta.Link)
	})
	return feed, nil
}

// Meta summarizes the feed of source without rendering it.
func (s *Service) Meta(source string, baseURL string) (domain.Meta, error) {
	entries, err := s.journal.GetEntries(source, s.limit)
	if err != nil {
		return domain.Meta{}, oops.With("source", source, "context", "failed to get journal entries").Wrap(err)
	}
	return s.meta(source, baseURL, entries), nil
}

func (s *Service) meta(source, baseURL string, entries []*msgdomain.Entry) domain.Meta {
	m := domain.Meta{
		Source:      source,
		Destination: s.destination,
		Title:       fmt.Sprintf("%s - Archive Feed", source),
		Link:        fmt.Sprintf("%s/rss/%s", strings.TrimRight(baseURL, "/"), strings.TrimPrefix(source, "@")),
		Items:       len(entries),
	}
	if len(entries) > 0 {
		m.Updated = entries[0].ArchivedAt
	}
	return m
}

func (s *Service) entryToFeedItem(e *msgdomain.Entry, feedLink string) *feeds.Item {
	description := e.Text
	if description == "" {
		description = "No text content"
	}
	if len(e.Attachments) > 0 {
		kinds := lo.Map(e.Attachments, func(k msgdomain.AttachmentKind, _ int) string { return k.String() })
		description += "\n\nAttachments: " + strings.Join(kinds, ", ")
	}
	if e.Skipped > 0 {
		description += fmt.Sprintf("\nSkipped attachments: %d", e.Skipped)
	}

	content := "<p>" + strings.ReplaceAll(html.EscapeString(description), "\n", "<br>") + "</p>"

	link := e.Link
	if link == "" {
		link = fmt.Sprintf("%s#%d", feedLink, e.ID)
	}

	title := truncate(e.Text, 100)
	if title == "" {
		title = fmt.Sprintf("Message %d", e.ID)
	}

	return &feeds.Item{
		Title:       title,
		Link:        &feeds.Link{Href: link},
		Description: description,
		Content:     content,
		Author:      &feeds.Author{Name: e.Sender},
		Created:     e.Date,
		Updated:     e.ArchivedAt,
		Id:          fmt.Sprintf("%s-%d", e.Source, e.ID),
	}
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
