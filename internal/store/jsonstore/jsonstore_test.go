package jsonstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "todos.json"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func item(id, content string) model.Item {
	return model.Item{
		ID:      id,
		Date:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Content: content,
	}
}

func TestScanAllEmpty(t *testing.T) {
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		s := newStore(t)
		items, err := s.ScanAll(ctx)
		if err != nil {
			t.Fatalf("ScanAll failed: %v", err)
		}
		if len(items) != 0 {
			t.Errorf("got %d items, want 0", len(items))
		}
	})

	for name, content := range map[string]string{
		"empty file":     "",
		"blank file":     "  \n",
		"empty document": "{}",
		"null todos":     `{"todos": null}`,
	} {
		t.Run(name, func(t *testing.T) {
			s := newStore(t)
			if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			items, err := s.ScanAll(ctx)
			if err != nil {
				t.Fatalf("ScanAll failed: %v", err)
			}
			if items == nil || len(items) != 0 {
				t.Errorf("got %v, want empty non-nil slice", items)
			}
		})
	}
}

func TestAppendAndScan(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, it := range []model.Item{item("1", "a"), item("2", "b")} {
		if _, err := s.Append(ctx, it); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	items, err := s.ScanAll(ctx)
	if err != nil {
		t.Fatalf("ScanAll failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].ID != "1" || items[1].ID != "2" {
		t.Errorf("append order lost: %+v", items)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(raw), `"todos"`) {
		t.Errorf("document missing todos key: %s", raw)
	}
	if !strings.HasSuffix(string(raw), "\n") {
		t.Error("document should end with a newline")
	}
}

func TestUpdateByID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	if _, err := s.Append(ctx, item("1", "a")); err != nil {
		t.Fatal(err)
	}

	done := true
	got, err := s.UpdateByID(ctx, "1", model.Patch{Done: &done})
	if err != nil {
		t.Fatalf("UpdateByID failed: %v", err)
	}
	if !got.Done || got.Content != "a" {
		t.Errorf("unexpected update result: %+v", got)
	}

	items, _ := s.ScanAll(ctx)
	if !items[0].Done {
		t.Error("update was not persisted")
	}

	_, err = s.UpdateByID(ctx, "missing", model.Patch{Done: &done})
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestDeleteByID(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for _, it := range []model.Item{item("1", "a"), item("2", "b"), item("3", "c")} {
		if _, err := s.Append(ctx, it); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.DeleteByID(ctx, "2"); err != nil {
		t.Fatalf("DeleteByID failed: %v", err)
	}
	items, _ := s.ScanAll(ctx)
	if len(items) != 2 || items[0].ID != "1" || items[1].ID != "3" {
		t.Errorf("unexpected items after delete: %+v", items)
	}

	if err := s.DeleteByID(ctx, "2"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestCorruptDocumentIsStorageError(t *testing.T) {
	s := newStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := s.ScanAll(context.Background())
	if err == nil {
		t.Fatal("expected error for corrupt document")
	}
	var se *store.Error
	if !errors.As(err, &se) || se.Op != "parse" {
		t.Errorf("got %v, want parse storage error", err)
	}
}

func TestWriteFailureIsStorageError(t *testing.T) {
	dir := t.TempDir()
	// A directory where the file should be makes the rename fail.
	path := filepath.Join(dir, "todos.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
	s, _ := New(path)
	_, err := s.Append(context.Background(), item("1", "a"))
	if err == nil {
		t.Fatal("expected error")
	}
	if !store.IsStorage(err) {
		t.Errorf("got %v, want storage error", err)
	}
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	for i := 0; i < 3; i++ {
		if _, err := s.Append(ctx, item(string(rune('a'+i)), "x")); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("expected only the store file, got %v", names)
	}
}
