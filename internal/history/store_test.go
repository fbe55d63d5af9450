package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	want := Entry{
		ID:         "job-1",
		Template:   "blog_default.json",
		Title:      "Go tips",
		DocumentID: "doc-1",
		URL:        "https://docs.google.com/document/d/doc-1/edit",
		Status:     "completed",
		DurationMs: 1500,
		CreatedAt:  time.Unix(1700000000, 0),
	}
	if err := s.Record(ctx, want); err != nil {
		t.Fatalf("record: %v", err)
	}
	got, err := s.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != want.Title || got.URL != want.URL || got.Status != want.Status {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if got.DurationMs != want.DurationMs {
		t.Errorf("expected duration %d, got %d", want.DurationMs, got.DurationMs)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", want.CreatedAt, got.CreatedAt)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)
	for i, id := range []string{"a", "b", "c"} {
		if err := s.Record(ctx, Entry{ID: id, Template: "t.json", Status: "completed", CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 3 || entries[0].ID != "c" || entries[2].ID != "a" {
		t.Fatalf("expected c,b,a; got %+v", entries)
	}

	limited, err := s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 || limited[0].ID != "c" {
		t.Errorf("expected 2 newest entries, got %+v", limited)
	}
}

func TestRecordReplacesAndDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	_ = s.Record(ctx, Entry{ID: "j", Template: "t.json", Status: "rendering"})
	_ = s.Record(ctx, Entry{ID: "j", Template: "t.json", Status: "failed", Error: "boom"})

	got, err := s.Get(ctx, "j")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "failed" || got.Error != "boom" {
		t.Errorf("expected replaced entry, got %+v", got)
	}

	if err := s.Delete(ctx, "j"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, "j"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected entry deleted, got %v", err)
	}
}

func TestRecordRequiresID(t *testing.T) {
	s := openTestStore(t)
	if err := s.Record(context.Background(), Entry{Template: "t.json"}); err == nil {
		t.Error("expected error for entry without id")
	}
}
