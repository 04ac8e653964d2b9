package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/anatolykoptev/go_captions/internal/engine"
	"github.com/anatolykoptev/go_captions/internal/engine/vocab"
)

func openTemp(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "videos.db"))
	if err != nil {
		t.Fatalf("OpenSQLite error: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestSQLite_GetMissing(t *testing.T) {
	s := openTemp(t)
	if _, err := s.Get(context.Background(), "dQw4w9WgXcQ"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Get(context.Background(), " "); err == nil {
		t.Error("expected error for blank id")
	}
}

func TestSQLite_SaveMerges(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	first, err := s.Save(ctx, VideoRecord{VideoID: "dQw4w9WgXcQ", Title: "Talk", Text: "line one\nline two", Language: "en"})
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if first.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set")
	}

	_, err = s.Save(ctx, VideoRecord{
		VideoID:    "dQw4w9WgXcQ",
		Candidates: []vocab.Candidate{{Term: "line", Type: "word", Freq: 2}},
	})
	if err != nil {
		t.Fatalf("Save patch error: %v", err)
	}

	got, err := s.Get(ctx, "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Title != "Talk" || got.Text != "line one\nline two" || got.Language != "en" {
		t.Errorf("patch clobbered fields: %+v", got)
	}
	if len(got.Candidates) != 1 || got.Candidates[0].Term != "line" {
		t.Errorf("Candidates = %+v", got.Candidates)
	}
	if got.Cards != nil {
		t.Errorf("Cards = %+v, want nil", got.Cards)
	}
	if got.UpdatedAt.Before(first.UpdatedAt) {
		t.Errorf("UpdatedAt went backwards: %v < %v", got.UpdatedAt, first.UpdatedAt)
	}

	// An explicit empty slice replaces stored data.
	_, err = s.Save(ctx, VideoRecord{VideoID: "dQw4w9WgXcQ", Candidates: []vocab.Candidate{}})
	if err != nil {
		t.Fatalf("Save clear error: %v", err)
	}
	got, _ = s.Get(ctx, "dQw4w9WgXcQ")
	if len(got.Candidates) != 0 {
		t.Errorf("Candidates after clear = %+v", got.Candidates)
	}
}

func TestMerge(t *testing.T) {
	base := &VideoRecord{VideoID: "x", Title: "Old", Language: "de"}
	got := merge(base, VideoRecord{VideoID: "x", Title: "  ", Language: "en"})
	if got.Title != "Old" || got.Language != "en" {
		t.Errorf("merge() = %+v", got)
	}
	if base.Language != "de" {
		t.Error("merge mutated base")
	}
	if got := merge(nil, VideoRecord{VideoID: "y", Text: "t"}); got.VideoID != "y" || got.Text != "t" {
		t.Errorf("merge(nil) = %+v", got)
	}
}

func TestDefault_SQLiteUnderDataDir(t *testing.T) {
	dir := t.TempDir()
	prev := *engine.Cfg
	engine.Init(engine.Config{DataDir: dir})
	t.Cleanup(func() { engine.Init(prev) })

	defaultStore, defaultErr, defaultOnce = nil, nil, sync.Once{}
	t.Cleanup(func() {
		if defaultStore != nil {
			defaultStore.Close()
		}
		defaultStore, defaultErr, defaultOnce = nil, nil, sync.Once{}
	})

	s, err := Default(context.Background())
	if err != nil {
		t.Fatalf("Default error: %v", err)
	}
	if _, ok := s.(*SQLite); !ok {
		t.Fatalf("Default() = %T, want *SQLite", s)
	}
	if got := sqlitePath(dir); got != filepath.Join(dir, "videos.db") {
		t.Errorf("sqlitePath = %q", got)
	}
}
