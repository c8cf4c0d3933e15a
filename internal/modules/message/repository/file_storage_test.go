package repository

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reshetovitsme/tg-chat-archive/internal/modules/message/domain"
)

func TestFileStorageOrdering(t *testing.T) {
	repo, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStorage() error = %v", err)
	}

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// 9 and 10 sort differently as plain strings.
	for _, id := range []int64{10, 9, 2, 100} {
		entry := &domain.Entry{ID: id, Source: "@history", Date: base.Add(time.Duration(id) * time.Minute), Text: "m"}
		if err := repo.SaveEntry(entry); err != nil {
			t.Fatalf("SaveEntry(%d) error = %v", id, err)
		}
	}

	latest, err := repo.GetEntries("@history", 2)
	if err != nil {
		t.Fatalf("GetEntries() error = %v", err)
	}
	if len(latest) != 2 || latest[0].ID != 100 || latest[1].ID != 10 {
		t.Fatalf("GetEntries() ids = %v, want [100 10]", ids(latest))
	}

	recent, err := repo.GetRecentEntries("@history", base.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("GetRecentEntries() error = %v", err)
	}
	if got := ids(recent); len(got) != 3 || got[0] != 9 || got[1] != 10 || got[2] != 100 {
		t.Fatalf("GetRecentEntries() ids = %v, want [9 10 100]", got)
	}
}

func TestFileStorageUnknownSource(t *testing.T) {
	repo, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	entries, err := repo.GetEntries("nobody", 10)
	if err != nil {
		t.Fatalf("GetEntries() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("GetEntries() = %d entries, want 0", len(entries))
	}
}

func TestFileStorageSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileStorage(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveEntry(&domain.Entry{ID: 1, Source: "src"}); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "journal", "src", "00000000000000000002.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := repo.GetEntries("src", 10)
	if err != nil {
		t.Fatalf("GetEntries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].ID != 1 {
		t.Errorf("GetEntries() ids = %v, want [1]", ids(entries))
	}
}

func TestSourceDir(t *testing.T) {
	tests := map[string]string{
		"@history":    "history",
		"-1001234":    "-1001234",
		"../etc":      "__etc",
		"":            "_",
		"a/b":         "a_b",
	}
	for in, want := range tests {
		if got := SourceDir(in); got != want {
			t.Errorf("SourceDir(%q) = %q, want %q", in, got, want)
		}
	}
}

func ids(entries []*domain.Entry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}
