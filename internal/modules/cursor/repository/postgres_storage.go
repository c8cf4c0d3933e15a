package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	"github.com/samber/oops"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS archive_cursors (
	source           TEXT        NOT NULL,
	destination      TEXT        NOT NULL,
	last_archived_id BIGINT      NOT NULL,
	total_processed  BIGINT      NOT NULL DEFAULT 0,
	updated_at       TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (source, destination)
)`

// PostgresStorage keeps cursors in a PostgreSQL table.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

// NewPostgresStorage connects to databaseURL and ensures the schema exists.
func NewPostgresStorage(ctx context.Context, databaseURL string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.With("context", "connect postgres").Wrap(err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, oops.With("context", "ping postgres").Wrap(err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, oops.With("context", "create archive_cursors").Wrap(err)
	}

	return &PostgresStorage{pool: pool}, nil
}

func (s *PostgresStorage) Load(ctx context.Context, key domain.Key) (*domain.Cursor, error) {
	c := domain.Zero(key)
	err := s.pool.QueryRow(ctx, `
		SELECT last_archived_id, total_processed, updated_at
		FROM archive_cursors WHERE source = $1 AND destination = $2
	`, key.Source, key.Destination).Scan(&c.LastArchivedID, &c.TotalProcessed, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c, nil
		}
		return nil, oops.With("cursor", key.String()).Wrap(err)
	}
	return c, nil
}

func (s *PostgresStorage) Commit(ctx context.Context, c *domain.Cursor) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO archive_cursors (source, destination, last_archived_id, total_processed, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source, destination) DO UPDATE SET
			last_archived_id = EXCLUDED.last_archived_id,
			total_processed  = EXCLUDED.total_processed,
			updated_at       = EXCLUDED.updated_at
		WHERE EXCLUDED.last_archived_id > archive_cursors.last_archived_id
	`, c.Source, c.Destination, c.LastArchivedID, c.TotalProcessed, c.UpdatedAt)
	if err != nil {
		return false, oops.With("cursor", c.Key.String()).Wrap(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
