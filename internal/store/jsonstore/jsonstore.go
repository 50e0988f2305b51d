package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
)

// JSON-backed storage. Single file, human-readable, portable.
// Every mutation loads the whole document, computes the next one and replaces
// the file atomically. There is no locking: two processes writing the same
// file can lose each other's updates.

// DefaultFileName is used when no path is configured.
const DefaultFileName = "todos.json"

type document struct {
	Todos []model.Item `json:"todos"`
}

// Store is a file-backed store.Store.
type Store struct {
	path string
}

var _ store.Store = (*Store)(nil)

// New returns a store backed by path. An empty path means DefaultFileName in
// the working directory.
func New(path string) (*Store, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getwd: %w", err)
		}
		path = filepath.Join(wd, DefaultFileName)
	}
	return &Store{path: path}, nil
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Append(_ context.Context, item model.Item) (model.Item, error) {
	items, err := s.load()
	if err != nil {
		return model.Item{}, err
	}
	items = append(items, item)
	if err := s.save(items); err != nil {
		return model.Item{}, err
	}
	return item, nil
}

func (s *Store) ScanAll(_ context.Context) ([]model.Item, error) {
	return s.load()
}

func (s *Store) UpdateByID(_ context.Context, id string, patch model.Patch) (model.Item, error) {
	items, err := s.load()
	if err != nil {
		return model.Item{}, err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return model.Item{}, store.ErrNotFound
	}
	items[idx] = patch.Apply(items[idx])
	if err := s.save(items); err != nil {
		return model.Item{}, err
	}
	return items[idx], nil
}

func (s *Store) DeleteByID(_ context.Context, id string) error {
	items, err := s.load()
	if err != nil {
		return err
	}
	idx := indexOf(items, id)
	if idx < 0 {
		return store.ErrNotFound
	}
	items = append(items[:idx], items[idx+1:]...)
	return s.save(items)
}

func (s *Store) Close() error { return nil }

func indexOf(items []model.Item, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// load reads the snapshot. A missing or blank file is an empty list.
func (s *Store) load() ([]model.Item, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.Item{}, nil
		}
		return nil, store.Wrap("read", fmt.Errorf("read file: %w", err))
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return []model.Item{}, nil
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, store.Wrap("parse", fmt.Errorf("json unmarshal: %w", err))
	}
	if doc.Todos == nil {
		return []model.Item{}, nil
	}
	return doc.Todos, nil
}

// save replaces the file with the next snapshot via temp file + rename.
func (s *Store) save(items []model.Item) error {
	b, err := json.MarshalIndent(document{Todos: items}, "", "  ")
	if err != nil {
		return store.Wrap("write", fmt.Errorf("json marshal: %w", err))
	}
	b = append(b, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return store.Wrap("write", fmt.Errorf("mkdir: %w", err))
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return store.Wrap("write", fmt.Errorf("create temp: %w", err))
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		cleanup()
		return store.Wrap("write", fmt.Errorf("write file: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return store.Wrap("write", fmt.Errorf("sync: %w", err))
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return store.Wrap("write", fmt.Errorf("close: %w", err))
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return store.Wrap("write", fmt.Errorf("chmod: %w", err))
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return store.Wrap("write", fmt.Errorf("rename: %w", err))
	}
	return nil
}
