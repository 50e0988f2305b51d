// Package repository turns raw store access into paginated, newest-first
// views and implements the item transitions (create, toggle, delete).
package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
)

// Defaults applied by List when the caller leaves page or limit unset.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// NotFoundError is returned when an operation targets a missing id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("todo with id %s not found", e.ID)
}

// Is makes errors.Is(err, store.ErrNotFound) hold for NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == store.ErrNotFound
}

// ListParams selects a page. Values below 1 fall back to the defaults.
type ListParams struct {
	Page  int
	Limit int
}

// Page is one window of the newest-first listing.
type Page struct {
	Todos []model.Item `json:"todos"`
	Total int          `json:"total"`
	Pages int          `json:"pages"`
}

// Repository is stateless: every call recomputes from the store.
type Repository struct {
	st    store.Store
	now   func() time.Time
	newID func() string
}

// Option customizes a Repository.
type Option func(*Repository)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithIDGenerator overrides id assignment.
func WithIDGenerator(gen func() string) Option {
	return func(r *Repository) { r.newID = gen }
}

func New(st store.Store, opts ...Option) *Repository {
	r := &Repository{
		st:    st,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Normalize applies the defaults to p.
func (p ListParams) Normalize() ListParams {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	return p
}

// Window returns the half-open index range [(page-1)*limit, page*limit).
// A page too large to address yields an empty window past any listing.
func (p ListParams) Window() store.Window {
	p = p.Normalize()
	if p.Page-1 > (math.MaxInt-p.Limit)/p.Limit {
		return store.Window{Start: math.MaxInt, End: math.MaxInt}
	}
	return store.Window{
		Start: (p.Page - 1) * p.Limit,
		End:   p.Page * p.Limit,
	}
}

// PageCount is ceil(total/limit).
func PageCount(total, limit int) int {
	if limit < 1 || total <= 0 {
		return 0
	}
	pages := total / limit
	if total%limit != 0 {
		pages++
	}
	return pages
}

// List returns one newest-first page. Windows past the end are empty, never
// an error.
func (r *Repository) List(ctx context.Context, p ListParams) (Page, error) {
	p = p.Normalize()
	w := p.Window()

	if pager, ok := r.st.(store.Pager); ok {
		items, total, err := pager.Page(ctx, w)
		if err != nil {
			return Page{}, fmt.Errorf("list todos: %w", err)
		}
		if items == nil {
			items = []model.Item{}
		}
		return Page{Todos: items, Total: total, Pages: PageCount(total, p.Limit)}, nil
	}

	all, err := r.All(ctx)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Todos: slice(all, w),
		Total: len(all),
		Pages: PageCount(len(all), p.Limit),
	}, nil
}

// All returns every item, newest first.
func (r *Repository) All(ctx context.Context) ([]model.Item, error) {
	items, err := r.st.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	sortNewestFirst(items)
	return items, nil
}

// CreateByContent assigns an id and timestamp and persists a new item.
// Content is validated by the caller.
func (r *Repository) CreateByContent(ctx context.Context, content string) (model.Item, error) {
	it := model.Item{
		ID:      r.newID(),
		Date:    r.now().UTC().Truncate(time.Microsecond),
		Content: content,
		Done:    false,
	}
	created, err := r.st.Append(ctx, it)
	if err != nil {
		return model.Item{}, fmt.Errorf("create todo: %w", err)
	}
	return created, nil
}

// ToggleDone flips done on the item with id. Concurrent toggles of the same
// item resolve last-writer-wins.
func (r *Repository) ToggleDone(ctx context.Context, id string) (model.Item, error) {
	current, err := r.find(ctx, id)
	if err != nil {
		return model.Item{}, err
	}
	done := !current.Done
	updated, err := r.st.UpdateByID(ctx, id, model.Patch{Done: &done})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.Item{}, &NotFoundError{ID: id}
		}
		return model.Item{}, fmt.Errorf("toggle todo: %w", err)
	}
	return updated, nil
}

// DeleteByID removes the item. Existence is checked first so callers get a
// NotFoundError even from backends that silently ignore missing keys.
func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.find(ctx, id); err != nil {
		return err
	}
	if err := r.st.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &NotFoundError{ID: id}
		}
		return fmt.Errorf("delete todo: %w", err)
	}
	return nil
}

func (r *Repository) find(ctx context.Context, id string) (model.Item, error) {
	if finder, ok := r.st.(store.Finder); ok {
		it, err := finder.FindByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return model.Item{}, &NotFoundError{ID: id}
		}
		if err != nil {
			return model.Item{}, fmt.Errorf("find todo: %w", err)
		}
		return it, nil
	}

	items, err := r.st.ScanAll(ctx)
	if err != nil {
		return model.Item{}, fmt.Errorf("find todo: %w", err)
	}
	for _, it := range items {
		if it.ID == id {
			return it, nil
		}
	}
	return model.Item{}, &NotFoundError{ID: id}
}

// sortNewestFirst orders by Date descending. Ties keep the reverse of
// insertion order, matching "newest appended first".
func sortNewestFirst(items []model.Item) {
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
}

func slice(items []model.Item, w store.Window) []model.Item {
	start, end := w.Start, w.End
	if start < 0 || start >= len(items) || w.Len() == 0 {
		return []model.Item{}
	}
	if end > len(items) {
		end = len(items)
	}
	out := make([]model.Item, end-start)
	copy(out, items[start:end])
	return out
}
