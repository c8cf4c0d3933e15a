package repository

import (
	"context"
	"path/filepath"

	"github.com/reshetovitsme/tg-chat-archive/internal/shared/config"
	"github.com/reshetovitsme/tg-chat-archive/internal/shared/errors"
	"github.com/samber/oops"
)

// Open returns the cursor backend selected in cfg.
func Open(ctx context.Context, cfg *config.Config) (Repository, error) {
	switch cfg.CursorBackend {
	case config.CursorBackendFile:
		return NewFileStorage(cfg.StoragePath)
	case config.CursorBackendBbolt:
		return NewBoltStorage(filepath.Join(cfg.StoragePath, "cursors.bolt.db"))
	case config.CursorBackendSqlite:
		return NewSQLiteStorage(ctx, filepath.Join(cfg.StoragePath, "cursors.sqlite"))
	case config.CursorBackendPostgres:
		return NewPostgresStorage(ctx, cfg.DatabaseURL)
	case config.CursorBackendRedis:
		return NewRedisStorage(ctx, cfg.RedisURL)
	case config.CursorBackendMemory:
		return NewMemoryStorage(), nil
	default:
		return nil, oops.With("cursor_backend", cfg.CursorBackend).Wrap(errors.ErrInvalidConfig)
	}
}
