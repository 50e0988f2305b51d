package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/repository"
	"github.com/Makepad-fr/tada/internal/schema"
)

// maxBodyBytes caps request bodies; todo content is short text.
const maxBodyBytes = 64 << 10

// ValidationError is malformed input caught at the boundary. It never reaches
// the repository and always maps to 400.
type ValidationError struct {
	Field   string
	Message string
	Details []schema.Issue
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ParseListQuery reads page and limit. Absent values keep the repository
// defaults; present values must be integers.
func ParseListQuery(q url.Values) (repository.ListParams, error) {
	var p repository.ListParams
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"page", &p.Page},
		{"limit", &p.Limit},
	} {
		raw := strings.TrimSpace(q.Get(f.name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return repository.ListParams{}, &ValidationError{
				Field:   f.name,
				Message: fmt.Sprintf("`%s` must be a number", f.name),
			}
		}
		*f.dst = n
	}
	return p, nil
}

// ParseCreateBody validates a create request and returns the trimmed content.
func ParseCreateBody(r io.Reader) (string, error) {
	const msg = "Content is required to create a new Todo"

	b, err := io.ReadAll(io.LimitReader(r, maxBodyBytes+1))
	if err != nil {
		return "", &ValidationError{Field: "content", Message: msg}
	}
	if len(b) > maxBodyBytes {
		return "", &ValidationError{Field: "content", Message: "request body too large"}
	}
	if issues, err := schema.Validate(schema.CreateBody, b); err != nil {
		return "", &ValidationError{Field: "content", Message: msg, Details: issues}
	}

	var body struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return "", &ValidationError{Field: "content", Message: msg}
	}
	content := strings.TrimSpace(body.Content)
	if content == "" {
		return "", &ValidationError{
			Field:   "content",
			Message: msg,
			Details: []schema.Issue{{Path: "/content", Message: "must not be blank"}},
		}
	}
	return content, nil
}

// ParseID checks that raw is a well-formed UUID and returns its canonical form.
func ParseID(raw string) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", &ValidationError{Field: "id", Message: "id must be a valid UUID"}
	}
	return id.String(), nil
}
