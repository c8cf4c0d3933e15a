package repository

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	"github.com/samber/oops"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS archive_cursors (
	source           TEXT    NOT NULL,
	destination      TEXT    NOT NULL,
	last_archived_id INTEGER NOT NULL,
	total_processed  INTEGER NOT NULL DEFAULT 0,
	updated_at       INTEGER NOT NULL,
	PRIMARY KEY (source, destination)
)`

// SQLiteStorage keeps cursors in a SQLite table.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens (creating if needed) the database at path.
func NewSQLiteStorage(ctx context.Context, path string) (*SQLiteStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, oops.With("path", path, "context", "open sqlite").Wrap(err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, oops.With("path", path, "context", "ping sqlite").Wrap(err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, oops.With("path", path, "context", "create archive_cursors").Wrap(err)
	}

	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Load(ctx context.Context, key domain.Key) (*domain.Cursor, error) {
	c := domain.Zero(key)
	var updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT last_archived_id, total_processed, updated_at
		FROM archive_cursors WHERE source = ? AND destination = ?
	`, key.Source, key.Destination).Scan(&c.LastArchivedID, &c.TotalProcessed, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, nil
		}
		return nil, oops.With("cursor", key.String()).Wrap(err)
	}
	c.UpdatedAt = time.UnixMilli(updated).UTC()
	return c, nil
}

func (s *SQLiteStorage) Commit(ctx context.Context, c *domain.Cursor) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO archive_cursors (source, destination, last_archived_id, total_processed, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (source, destination) DO UPDATE SET
			last_archived_id = excluded.last_archived_id,
			total_processed  = excluded.total_processed,
			updated_at       = excluded.updated_at
		WHERE excluded.last_archived_id > archive_cursors.last_archived_id
	`, c.Source, c.Destination, c.LastArchivedID, c.TotalProcessed, c.UpdatedAt.UnixMilli())
	if err != nil {
		return false, oops.With("cursor", c.Key.String()).Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, oops.With("cursor", c.Key.String()).Wrap(err)
	}
	return n > 0, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
