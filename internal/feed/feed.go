// Package feed is the client-side accumulation state behind "load more"
// pagination. It is a cache of the pages fetched so far, never the source of
// truth.
//
// A Feed is not safe for concurrent use: mutate it from one event loop and do
// the network calls elsewhere, handing results back through Apply and Fail.
// Responses may arrive in any order; they are reconciled on arrival.
package feed

import (
	"context"
	"strings"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/repository"
)

// Fetcher loads one page from the API.
type Fetcher interface {
	List(ctx context.Context, page, limit int) (repository.Page, error)
}

type Feed struct {
	limit int

	currentPage int // highest page merged into items
	totalPages  int
	requested   int // highest page handed out by Init/Next
	items       []model.Item

	inFlight map[int]bool
	pending  map[int]repository.Page // pages that arrived ahead of a gap

	initStarted   bool
	hasLoadedOnce bool
	err           error
}

// New returns an empty feed fetching limit items per page.
func New(limit int) *Feed {
	if limit < 1 {
		limit = repository.DefaultLimit
	}
	return &Feed{
		limit:    limit,
		inFlight: map[int]bool{},
		pending:  map[int]repository.Page{},
	}
}

func (f *Feed) Limit() int { return f.limit }

func (f *Feed) CurrentPage() int { return f.currentPage }

func (f *Feed) TotalPages() int { return f.totalPages }

func (f *Feed) IsLoading() bool { return len(f.inFlight) > 0 }

// HasLoadedOnce reports whether the first page has settled, successfully or not.
func (f *Feed) HasLoadedOnce() bool { return f.hasLoadedOnce }

// Err is the last load failure, cleared by the next successful load.
func (f *Feed) Err() error { return f.err }

// HasMore reports whether pages beyond the merged ones exist.
func (f *Feed) HasMore() bool { return f.currentPage < f.totalPages }

// Items returns a copy of the accumulated items.
func (f *Feed) Items() []model.Item {
	out := make([]model.Item, len(f.items))
	copy(out, f.items)
	return out
}

// Init hands out the first page exactly once per feed lifetime, however many
// times it is called.
func (f *Feed) Init() (page int, ok bool) {
	if f.initStarted {
		return 0, false
	}
	f.initStarted = true
	f.requested = 1
	f.inFlight[1] = true
	return 1, true
}

// Next hands out the page after the last requested one, if the server said it
// exists. Several pages may be in flight at once. After a failed first load it
// hands out page 1 again.
func (f *Feed) Next() (page int, ok bool) {
	last := f.totalPages
	if f.initStarted && f.currentPage == 0 {
		last = 1
	}
	if f.requested >= last {
		return 0, false
	}
	f.requested++
	f.inFlight[f.requested] = true
	return f.requested, true
}

// Apply merges the response for page. Pages are merged strictly in order:
// an early page waits for the gap to fill, a stale or duplicate one is
// dropped. Items already present (for instance created locally) are skipped.
func (f *Feed) Apply(page int, p repository.Page) {
	delete(f.inFlight, page)
	if page == 1 {
		f.hasLoadedOnce = true
	}
	if page <= f.currentPage {
		return
	}
	f.err = nil
	f.pending[page] = p
	for {
		next, ok := f.pending[f.currentPage+1]
		if !ok {
			break
		}
		delete(f.pending, f.currentPage+1)
		f.merge(next.Todos)
		f.currentPage++
		f.totalPages = next.Pages
	}
	if f.requested < f.currentPage {
		f.requested = f.currentPage
	}
}

// Fail records a failed load of page and clears its loading state. The page
// can be requested again.
func (f *Feed) Fail(page int, err error) {
	delete(f.inFlight, page)
	f.err = err
	if page == 1 {
		f.hasLoadedOnce = true
	}
	if page > f.currentPage && f.requested >= page {
		f.requested = page - 1
		if f.requested < f.currentPage {
			f.requested = f.currentPage
		}
	}
}

func (f *Feed) merge(todos []model.Item) {
	seen := make(map[string]bool, len(f.items))
	for _, it := range f.items {
		seen[it.ID] = true
	}
	for _, it := range todos {
		if seen[it.ID] {
			continue
		}
		seen[it.ID] = true
		f.items = append(f.items, it)
	}
}

// LoadInitial performs the one-shot initial load. Later calls are no-ops.
func (f *Feed) LoadInitial(ctx context.Context, src Fetcher) error {
	page, ok := f.Init()
	if !ok {
		return nil
	}
	return f.load(ctx, src, page)
}

// LoadNext fetches and merges the next page. It is a no-op when there is
// nothing more to load.
func (f *Feed) LoadNext(ctx context.Context, src Fetcher) error {
	page, ok := f.Next()
	if !ok {
		return nil
	}
	return f.load(ctx, src, page)
}

func (f *Feed) load(ctx context.Context, src Fetcher, page int) error {
	p, err := src.List(ctx, page, f.limit)
	if err != nil {
		f.Fail(page, err)
		return err
	}
	f.Apply(page, p)
	return nil
}

// FilterView returns the accumulated items whose content contains search,
// case-insensitively. It does not touch the paging state.
func (f *Feed) FilterView(search string) []model.Item {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return f.Items()
	}
	out := []model.Item{}
	for _, it := range f.items {
		if strings.Contains(strings.ToLower(it.Content), needle) {
			out = append(out, it)
		}
	}
	return out
}

// ApplyLocalToggle flips done on the cached item after a successful toggle.
func (f *Feed) ApplyLocalToggle(id string) bool {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Done = !f.items[i].Done
			return true
		}
	}
	return false
}

// ApplyLocalCreate prepends a newly created item.
func (f *Feed) ApplyLocalCreate(it model.Item) {
	for _, existing := range f.items {
		if existing.ID == it.ID {
			return
		}
	}
	f.items = append([]model.Item{it}, f.items...)
}

// ApplyLocalDelete drops the cached item after a successful delete.
func (f *Feed) ApplyLocalDelete(id string) bool {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true
		}
	}
	return false
}
