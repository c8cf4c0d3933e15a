package repository

import (
	"context"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
)

// Repository persists cursors with atomic read/replace semantics.
type Repository interface {
	// Load returns the stored cursor, or a zero cursor if none exists.
	Load(ctx context.Context, key domain.Key) (*domain.Cursor, error)
	// Commit replaces the stored cursor when c.LastArchivedID is greater than
	// the stored id and reports whether it did. A smaller or equal id is a no-op.
	Commit(ctx context.Context, c *domain.Cursor) (bool, error)
	Close() error
}
