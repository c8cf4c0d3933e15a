package repository

import (
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
)

// Repository defines the interface for the archive journal
type Repository interface {
	SaveEntry(entry *domain.Entry) error
	GetEntries(source string, limit int) ([]*domain.Entry, error)
	GetRecentEntries(source string, since time.Time) ([]*domain.Entry, error)
}
