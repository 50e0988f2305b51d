// Package client talks to the todo HTTP API on behalf of the UI. Every
// response is shape-checked before use, so a misbehaving server surfaces as a
// ParseError instead of corrupting the caller's state.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/repository"
	"github.com/Makepad-fr/tada/internal/schema"
)

const defaultTimeout = 10 * time.Second

// ParseError reports a response that does not have the expected shape.
type ParseError struct {
	Op     string
	Issues []schema.Issue
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unexpected response from server: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StatusError is a non-2xx answer. Message is the server's error message.
type StatusError struct {
	Op      string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: server returned %d", e.Op, e.Code)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

type Client struct {
	baseURL string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// List fetches one page.
func (c *Client) List(ctx context.Context, page, limit int) (repository.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	body, err := c.do(ctx, "list", http.MethodGet, "/api/todos?"+q.Encode(), nil, http.StatusOK)
	if err != nil {
		return repository.Page{}, err
	}
	if issues, err := schema.Validate(schema.TodoPage, body); err != nil {
		return repository.Page{}, &ParseError{Op: "list", Issues: issues, Err: err}
	}

	var wire struct {
		Total int        `json:"total"`
		Pages int        `json:"pages"`
		Todos []wireTodo `json:"todos"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return repository.Page{}, &ParseError{Op: "list", Err: err}
	}
	out := repository.Page{
		Total: wire.Total,
		Pages: wire.Pages,
		Todos: make([]model.Item, 0, len(wire.Todos)),
	}
	for _, w := range wire.Todos {
		it, err := w.item()
		if err != nil {
			return repository.Page{}, &ParseError{Op: "list", Err: err}
		}
		out.Todos = append(out.Todos, it)
	}
	return out, nil
}

// All walks every page, newest first.
func (c *Client) All(ctx context.Context, limit int) ([]model.Item, error) {
	var items []model.Item
	for page := 1; ; page++ {
		p, err := c.List(ctx, page, limit)
		if err != nil {
			return nil, err
		}
		items = append(items, p.Todos...)
		if page >= p.Pages || len(p.Todos) == 0 {
			return items, nil
		}
	}
}

func (c *Client) CreateByContent(ctx context.Context, content string) (model.Item, error) {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return model.Item{}, err
	}
	body, err := c.do(ctx, "create", http.MethodPost, "/api/todos", payload, http.StatusCreated)
	if err != nil {
		return model.Item{}, err
	}
	return parseEnvelope("create", body)
}

func (c *Client) ToggleDone(ctx context.Context, id string) (model.Item, error) {
	body, err := c.do(ctx, "toggle", http.MethodPut, "/api/todos/"+url.PathEscape(id)+"/toggle-done", nil, http.StatusOK)
	if err != nil {
		return model.Item{}, err
	}
	return parseEnvelope("toggle", body)
}

func (c *Client) DeleteByID(ctx context.Context, id string) error {
	_, err := c.do(ctx, "delete", http.MethodDelete, "/api/todos/"+url.PathEscape(id), nil, http.StatusNoContent)
	return err
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte, want int) ([]byte, error) {
	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	if resp.StatusCode != want {
		return nil, &StatusError{Op: op, Code: resp.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage extracts error.message from an error payload, if present.
func errorMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error.Message
}

func parseEnvelope(op string, body []byte) (model.Item, error) {
	if issues, err := schema.Validate(schema.TodoEnvelope, body); err != nil {
		return model.Item{}, &ParseError{Op: op, Issues: issues, Err: err}
	}
	var env struct {
		Todo wireTodo `json:"todo"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return model.Item{}, &ParseError{Op: op, Err: err}
	}
	it, err := env.Todo.item()
	if err != nil {
		return model.Item{}, &ParseError{Op: op, Err: err}
	}
	return it, nil
}

// wireTodo is the todo as sent by the server. done may arrive as a boolean
// or as the string "true"/"false".
type wireTodo struct {
	ID      string   `json:"id"`
	Date    string   `json:"date"`
	Content string   `json:"content"`
	Done    flexBool `json:"done"`
}

func (w wireTodo) item() (model.Item, error) {
	date, err := time.Parse(time.RFC3339Nano, w.Date)
	if err != nil {
		return model.Item{}, fmt.Errorf("todo %s: bad date %q", w.ID, w.Date)
	}
	return model.Item{
		ID:      w.ID,
		Date:    date,
		Content: w.Content,
		Done:    bool(w.Done),
	}, nil
}

type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v bool
	if err := json.Unmarshal(data, &v); err == nil {
		*b = flexBool(v)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("done: want boolean, got %s", data)
	}
	*b = flexBool(strings.EqualFold(s, "true"))
	return nil
}
