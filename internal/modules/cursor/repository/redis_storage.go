package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	"github.com/samber/oops"
)

// commitScript replaces the hash only when the new id is greater.
var commitScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], 'last_archived_id') or '0')
if tonumber(ARGV[1]) <= current then
	return 0
end
redis.call('HSET', KEYS[1], 'last_archived_id', ARGV[1], 'total_processed', ARGV[2], 'updated_at', ARGV[3])
return 1
`)

// RedisStorage keeps each cursor in a hash.
type RedisStorage struct {
	client *redis.Client
	prefix string
}

// NewRedisStorage connects to redisURL.
func NewRedisStorage(ctx context.Context, redisURL string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, oops.With("context", "parse redis url").Wrap(err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, oops.With("context", "ping redis").Wrap(err)
	}

	return &RedisStorage{client: client, prefix: "archive:cursor"}, nil
}

func (s *RedisStorage) cursorKey(key domain.Key) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, key.Source, key.Destination)
}

func (s *RedisStorage) Load(ctx context.Context, key domain.Key) (*domain.Cursor, error) {
	fields, err := s.client.HGetAll(ctx, s.cursorKey(key)).Result()
	if err != nil {
		return nil, oops.With("cursor", key.String()).Wrap(err)
	}

	c := domain.Zero(key)
	if len(fields) == 0 {
		return c, nil
	}

	if c.LastArchivedID, err = strconv.ParseInt(fields["last_archived_id"], 10, 64); err != nil {
		return nil, oops.With("cursor", key.String(), "field", "last_archived_id").Wrap(err)
	}
	if v := fields["total_processed"]; v != "" {
		if c.TotalProcessed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, oops.With("cursor", key.String(), "field", "total_processed").Wrap(err)
		}
	}
	if v := fields["updated_at"]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, oops.With("cursor", key.String(), "field", "updated_at").Wrap(err)
		}
		c.UpdatedAt = time.UnixMilli(ms).UTC()
	}
	return c, nil
}

func (s *RedisStorage) Commit(ctx context.Context, c *domain.Cursor) (bool, error) {
	n, err := commitScript.Run(ctx, s.client,
		[]string{s.cursorKey(c.Key)},
		c.LastArchivedID, c.TotalProcessed, c.UpdatedAt.UnixMilli(),
	).Int()
	if err != nil {
		return false, oops.With("cursor", c.Key.String()).Wrap(err)
	}
	return n == 1, nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
