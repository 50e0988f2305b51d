// Package schema holds the JSON Schemas for request bodies and API responses.
// The server validates untrusted input with them; the client checks that a
// response has the shape it expects before using it.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const todoDef = `{
	"type": "object",
	"required": ["id", "date", "content", "done"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"date": {"type": "string"},
		"content": {"type": "string"},
		"done": {"anyOf": [{"type": "boolean"}, {"type": "string", "enum": ["true", "false", "TRUE", "FALSE", "True", "False"]}]}
	}
}`

var (
	// CreateBody is the POST /api/todos request body.
	CreateBody = jsonschema.MustCompileString("tada://create-body.json", `{
		"type": "object",
		"required": ["content"],
		"properties": {
			"content": {"type": "string", "minLength": 1}
		}
	}`)

	// TodoEnvelope is the {todo} response of create and toggle.
	TodoEnvelope = jsonschema.MustCompileString("tada://todo-envelope.json", `{
		"type": "object",
		"required": ["todo"],
		"properties": {"todo": `+todoDef+`}
	}`)

	// TodoPage is the {total, pages, todos} response of list.
	TodoPage = jsonschema.MustCompileString("tada://todo-page.json", `{
		"type": "object",
		"required": ["total", "pages", "todos"],
		"properties": {
			"total": {"type": "integer", "minimum": 0},
			"pages": {"type": "integer", "minimum": 0},
			"todos": {"type": "array", "items": `+todoDef+`}
		}
	}`)
)

// Issue is one schema violation, located by JSON pointer.
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Validate decodes data as JSON and checks it against s. A decode failure is
// reported as a single issue at the document root.
func Validate(s *jsonschema.Schema, data []byte) ([]Issue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return []Issue{{Path: "", Message: "invalid json"}}, fmt.Errorf("decode: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return issues(ve, nil), err
		}
		return nil, err
	}
	return nil, nil
}

// issues flattens the leaf causes of a validation error.
func issues(ve *jsonschema.ValidationError, out []Issue) []Issue {
	if len(ve.Causes) == 0 {
		return append(out, Issue{Path: ve.InstanceLocation, Message: ve.Message})
	}
	for _, c := range ve.Causes {
		out = issues(c, out)
	}
	return out
}
