package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	"github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/repository"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/telemetry"
	"github.com/samber/oops"
)

// Service is the cursor store used by the archive loop. It is the only
// writer of the records it manages.
type Service struct {
	repo   repository.Repository
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	current map[domain.Key]domain.Cursor
}

// New creates a new cursor service
func New(repo repository.Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		logger:  logger,
		now:     time.Now,
		current: make(map[domain.Key]domain.Cursor),
	}
}

// Load returns the stored cursor for key, zero if the pair was never archived.
func (s *Service) Load(ctx context.Context, key domain.Key) (*domain.Cursor, error) {
	c, err := s.repo.Load(ctx, key)
	if err != nil {
		return nil, oops.With("cursor", key.String()).Wrapf(err, "load cursor")
	}

	s.remember(*c)
	telemetry.SetCursor(c.LastArchivedID)
	return c, nil
}

// Commit advances the cursor of key to lastID, adding delivered to the
// processed total. Committing an id at or below the stored one is a no-op.
func (s *Service) Commit(ctx context.Context, key domain.Key, lastID int64, delivered int) (*domain.Cursor, error) {
	prev, ok := s.Current(key)
	if !ok {
		loaded, err := s.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		prev = *loaded
	}

	if lastID <= prev.LastArchivedID {
		return &prev, nil
	}

	next := domain.Cursor{
		Key:            key,
		LastArchivedID: lastID,
		TotalProcessed: prev.TotalProcessed + int64(delivered),
		UpdatedAt:      s.now().UTC(),
	}

	applied, err := s.repo.Commit(ctx, &next)
	if err != nil {
		return nil, oops.With("cursor", key.String(), "last_archived_id", lastID).Wrapf(err, "commit cursor")
	}
	if !applied {
		// Someone else moved the record; trust storage.
		return s.Load(ctx, key)
	}

	s.remember(next)
	telemetry.SetCursor(lastID)
	s.logger.Info("cursor_committed",
		slog.String("cursor", key.String()),
		slog.Int64("last_archived_id", lastID),
		slog.Int64("total_processed", next.TotalProcessed),
	)
	return &next, nil
}

// Current returns the last cursor seen by this service without touching storage.
func (s *Service) Current(key domain.Key) (domain.Cursor, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.current[key]
	return c, ok
}

func (s *Service) remember(c domain.Cursor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current[c.Key] = c
}

// Close releases the underlying storage.
func (s *Service) Close() error {
	return s.repo.Close()
}
