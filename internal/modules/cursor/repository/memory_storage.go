package repository

import (
	"context"
	"sync"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
)

// MemoryStorage keeps cursors in process memory. Used by tests and dry runs.
type MemoryStorage struct {
	mu      sync.RWMutex
	cursors map[domain.Key]domain.Cursor
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{cursors: make(map[domain.Key]domain.Cursor)}
}

func (s *MemoryStorage) Load(_ context.Context, key domain.Key) (*domain.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.cursors[key]
	if !ok {
		return domain.Zero(key), nil
	}
	return &c, nil
}

func (s *MemoryStorage) Commit(_ context.Context, c *domain.Cursor) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if stored, ok := s.cursors[c.Key]; ok && c.LastArchivedID <= stored.LastArchivedID {
		return false, nil
	}
	s.cursors[c.Key] = *c
	return true, nil
}

func (s *MemoryStorage) Close() error { return nil }
