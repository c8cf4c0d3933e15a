package repository

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	"github.com/samber/oops"
)

// FileStorage keeps one JSON progress file per (source, destination) pair.
// Commits go through a temp file, fsync and rename, so readers see either the
// old or the new record.
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based cursor repository
func NewFileStorage(basePath string) (*FileStorage, error) {
	cursorPath := filepath.Join(basePath, "cursors")
	if err := os.MkdirAll(cursorPath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create cursors directory").Wrap(err)
	}

	return &FileStorage{basePath: cursorPath}, nil
}

// path escapes both halves of key, so the name never contains a separator
// or the comma joining them, and distinct keys never share a file.
func (s *FileStorage) path(key domain.Key) string {
	return filepath.Join(s.basePath, url.QueryEscape(key.Source)+","+url.QueryEscape(key.Destination)+".json")
}

func (s *FileStorage) Load(_ context.Context, key domain.Key) (*domain.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.read(key)
}

func (s *FileStorage) read(key domain.Key) (*domain.Cursor, error) {
	path := s.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Zero(key), nil
		}
		return nil, oops.With("path", path, "cursor", key.String()).Wrap(err)
	}

	var c domain.Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, oops.With("path", path, "context", "corrupt cursor file").Wrap(err)
	}
	c.Key = key
	return &c, nil
}

func (s *FileStorage) Commit(_ context.Context, c *domain.Cursor) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, err := s.read(c.Key)
	if err != nil {
		return false, err
	}
	if c.LastArchivedID <= stored.LastArchivedID {
		return false, nil
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return false, oops.With("cursor", c.Key.String(), "context", "failed to marshal cursor").Wrap(err)
	}

	if err := writeFileAtomic(s.path(c.Key), data); err != nil {
		return false, oops.With("cursor", c.Key.String()).Wrap(err)
	}
	return true, nil
}

func (s *FileStorage) Close() error { return nil }

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".cursor-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	// Persist the rename itself.
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
