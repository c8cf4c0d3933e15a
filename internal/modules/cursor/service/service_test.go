package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/domain"
	"github.com/reshetovitsme/tg-chat-archive/internal/modules/cursor/repository"
)

var key = domain.Key{Source: "@history", Destination: "-100"}

func newService(repo repository.Repository) *Service {
	svc := New(repo, slog.New(slog.DiscardHandler))
	svc.now = func() time.Time { return time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestCommitAccumulatesTotal(t *testing.T) {
	ctx := context.Background()
	svc := newService(repository.NewMemoryStorage())

	c, err := svc.Load(ctx, key)
	if err != nil || !c.IsZero() {
		t.Fatalf("Load() = %+v, %v; want zero cursor", c, err)
	}

	if _, err := svc.Commit(ctx, key, 20, 20); err != nil {
		t.Fatal(err)
	}
	c, err = svc.Commit(ctx, key, 40, 20)
	if err != nil {
		t.Fatal(err)
	}
	if c.LastArchivedID != 40 || c.TotalProcessed != 40 {
		t.Errorf("Commit() = id %d total %d, want 40/40", c.LastArchivedID, c.TotalProcessed)
	}

	// Restart: a fresh service over the same storage resumes at 40.
	restarted := newService(svc.repo)
	c, err = restarted.Load(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if c.LastArchivedID != 40 {
		t.Errorf("Load() after restart = %d, want 40", c.LastArchivedID)
	}
}

func TestCommitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newService(repository.NewMemoryStorage())

	if _, err := svc.Commit(ctx, key, 40, 40); err != nil {
		t.Fatal(err)
	}
	c, err := svc.Commit(ctx, key, 40, 40)
	if err != nil {
		t.Fatal(err)
	}
	if c.TotalProcessed != 40 {
		t.Errorf("repeated commit changed total to %d", c.TotalProcessed)
	}
	c, err = svc.Commit(ctx, key, 12, 1)
	if err != nil {
		t.Fatal(err)
	}
	if c.LastArchivedID != 40 {
		t.Errorf("smaller commit moved cursor to %d", c.LastArchivedID)
	}
}

func TestCommitWithoutPriorLoad(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryStorage()
	if _, err := repo.Commit(ctx, &domain.Cursor{Key: key, LastArchivedID: 10, TotalProcessed: 10}); err != nil {
		t.Fatal(err)
	}

	svc := newService(repo)
	c, err := svc.Commit(ctx, key, 15, 5)
	if err != nil {
		t.Fatal(err)
	}
	if c.TotalProcessed != 15 {
		t.Errorf("TotalProcessed = %d, want 15", c.TotalProcessed)
	}
}

type failingRepo struct{ repository.Repository }

func (failingRepo) Commit(context.Context, *domain.Cursor) (bool, error) {
	return false, errors.New("disk full")
}

func TestCommitErrorKeepsCachedCursor(t *testing.T) {
	ctx := context.Background()
	svc := newService(failingRepo{repository.NewMemoryStorage()})

	if _, err := svc.Load(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Commit(ctx, key, 5, 5); err == nil {
		t.Fatal("Commit() swallowed a storage error")
	}
	c, _ := svc.Current(key)
	if c.LastArchivedID != 0 {
		t.Errorf("cached cursor advanced to %d after failed commit", c.LastArchivedID)
	}
}
