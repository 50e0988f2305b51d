// Package store defines the record store contract shared by the file and
// relational backends.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Makepad-fr/tada/internal/model"
)

// ErrNotFound is returned when an operation targets an id the store does not hold.
var ErrNotFound = errors.New("not found")

// Store is durable keyed storage of items. Every write is durable before the
// call returns.
type Store interface {
	Append(ctx context.Context, item model.Item) (model.Item, error)
	// ScanAll returns every item. Order is backend-defined.
	ScanAll(ctx context.Context) ([]model.Item, error)
	UpdateByID(ctx context.Context, id string, patch model.Patch) (model.Item, error)
	DeleteByID(ctx context.Context, id string) error
	Close() error
}

// Window is a half-open [Start, End) range over the newest-first ordering.
type Window struct {
	Start int
	End   int
}

// Len is the number of positions the window covers. A window starting
// before 0 covers nothing.
func (w Window) Len() int {
	if w.Start < 0 || w.End <= w.Start {
		return 0
	}
	return w.End - w.Start
}

// Pager is implemented by backends that order, slice and count natively.
type Pager interface {
	Page(ctx context.Context, w Window) ([]model.Item, int, error)
}

// Finder is implemented by backends with a point lookup.
type Finder interface {
	FindByID(ctx context.Context, id string) (model.Item, error)
}

// Error reports a failure of the underlying medium (disk, network, codec).
type Error struct {
	Op  string // "read", "parse" or "write"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err as a storage failure of the given op. Nil stays nil.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// IsStorage reports whether err is (or wraps) a storage failure.
func IsStorage(err error) bool {
	var se *Error
	return errors.As(err, &se)
}
