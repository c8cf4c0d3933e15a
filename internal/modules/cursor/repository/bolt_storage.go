package repository

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	"github.com/samber/oops"
	"go.etcd.io/bbolt"
)

var cursorBucket = []byte("cursors")

// BoltStorage keeps cursors in a bbolt file. Each commit is one
// read-compare-write transaction.
type BoltStorage struct {
	db *bbolt.DB
}

func NewBoltStorage(path string) (*BoltStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, oops.With("path", path, "context", "open bolt storage").Wrap(err)
	}

	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cursorBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, oops.With("path", path, "context", "create cursor bucket").Wrap(err)
	}

	return &BoltStorage{db: db}, nil
}

func boltKey(key domain.Key) []byte {
	return []byte(key.Source + "\x00" + key.Destination)
}

func (s *BoltStorage) Load(_ context.Context, key domain.Key) (*domain.Cursor, error) {
	c := domain.Zero(key)
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(cursorBucket).Get(boltKey(key))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, c)
	})
	if err != nil {
		return nil, oops.With("cursor", key.String()).Wrap(err)
	}
	c.Key = key
	return c, nil
}

func (s *BoltStorage) Commit(_ context.Context, c *domain.Cursor) (bool, error) {
	applied := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(cursorBucket)
		k := boltKey(c.Key)

		if data := b.Get(k); data != nil {
			var stored domain.Cursor
			if err := json.Unmarshal(data, &stored); err != nil {
				return err
			}
			if c.LastArchivedID <= stored.LastArchivedID {
				return nil
			}
		}

		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		applied = true
		return b.Put(k, data)
	})
	if err != nil {
		return false, oops.With("cursor", c.Key.String()).Wrap(err)
	}
	return applied, nil
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}
