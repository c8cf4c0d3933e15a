package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
)

const (
	HeaderLayout = "2006-01-02 15:04:05"
	MediaText    = "[Media]"
)

// Renderer formats archived messages the way they appear in the destination.
type Renderer struct {
	Location       *time.Location
	SenderFallback string
}

// Header returns the message's text prefixed with "<time> - <sender>: ".
// The original formatting blocks follow the prefix unchanged.
func (r Renderer) Header(m domain.Message) []domain.TextBlock {
	loc := r.Location
	if loc == nil {
		loc = time.UTC
	}
	sender := m.Sender
	if sender == "" {
		sender = r.SenderFallback
	}

	prefix := fmt.Sprintf("%s - %s: ", m.Date.In(loc).Format(HeaderLayout), sender)
	blocks := []domain.TextBlock{{Kind: domain.EntityKindPlain, Text: prefix}}
	if strings.TrimSpace(m.Text()) == "" {
		return append(blocks, domain.TextBlock{Kind: domain.EntityKindPlain, Text: MediaText})
	}
	return append(blocks, m.Blocks...)
}

// LiveLocationNote accompanies a re-sent location.
func LiveLocationNote(id int64) string {
	return fmt.Sprintf("📍 Live Location shared at message %d", id)
}

// WebpageText renders a link preview as plain text.
func WebpageText(wp *domain.Webpage, id int64) string {
	if wp == nil || wp.URL == "" {
		return fmt.Sprintf("🌐 Webpage preview at message %d", id)
	}
	lines := []string{"🌐 Webpage shared: " + wp.URL}
	if wp.Title != "" {
		lines = append(lines, wp.Title)
	}
	if wp.Description != "" {
		lines = append(lines, wp.Description)
	}
	return strings.Join(lines, "\n")
}

// Placeholder marks an attachment that could not be re-materialized.
func Placeholder(id int64, reason string) string {
	if reason == "" {
		return fmt.Sprintf("[Media from %d]", id)
	}
	return fmt.Sprintf("[Media from %d: %s]", id, reason)
}
