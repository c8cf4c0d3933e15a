package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
	"github.com/samber/oops"
)

// FileStorage implements Repository with one JSON file per archived message
type FileStorage struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStorage creates a new file-based journal repository
func NewFileStorage(basePath string) (Repository, error) {
	journalPath := filepath.Join(basePath, "journal")
	if err := os.MkdirAll(journalPath, 0755); err != nil {
		return nil, oops.With("base_path", basePath, "context", "failed to create journal directory").Wrap(err)
	}

	return &FileStorage{basePath: journalPath}, nil
}

// SourceDir maps a source reference onto a safe directory name.
func SourceDir(source string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "@", "", "..", "_")
	name := r.Replace(strings.TrimSpace(source))
	if name == "" {
		return "_"
	}
	return name
}

func (s *FileStorage) SaveEntry(entry *domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.basePath, SourceDir(entry.Source))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return oops.With("journal_dir", dir, "context", "failed to create journal directory").Wrap(err)
	}

	// Zero padding keeps directory order equal to id order.
	path := filepath.Join(dir, fmt.Sprintf("%020d.json", entry.ID))
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return oops.With("source", entry.Source, "message_id", entry.ID, "context", "failed to marshal entry").Wrap(err)
	}

	return os.WriteFile(path, data, 0644)
}

// GetEntries returns up to limit entries, newest first.
func (s *FileStorage) GetEntries(source string, limit int) ([]*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.list(source)
	if err != nil {
		return nil, err
	}

	var entries []*domain.Entry
	for i := len(files) - 1; i >= 0 && len(entries) < limit; i-- {
		if entry, ok := readEntry(files[i]); ok {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// GetRecentEntries returns entries dated after since, oldest first.
func (s *FileStorage) GetRecentEntries(source string, since time.Time) ([]*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	files, err := s.list(source)
	if err != nil {
		return nil, err
	}

	var entries []*domain.Entry
	for _, path := range files {
		entry, ok := readEntry(path)
		if !ok {
			continue
		}
		if entry.Date.After(since) {
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

func (s *FileStorage) list(source string) ([]string, error) {
	dir := filepath.Join(s.basePath, SourceDir(source))
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, oops.With("source", source, "journal_dir", dir, "context", "failed to read journal directory").Wrap(err)
	}

	files := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	return files, nil
}

func readEntry(path string) (*domain.Entry, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry domain.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}
