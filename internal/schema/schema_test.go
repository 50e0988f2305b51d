package schema

import (
	"strings"
	"testing"
)

func TestCreateBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"content": "buy milk"}`, false},
		{"extra fields are fine", `{"content": "x", "done": true}`, false},
		{"empty content", `{"content": ""}`, true},
		{"missing content", `{}`, true},
		{"numeric content", `{"content": 12}`, true},
		{"not an object", `["content"]`, true},
		{"broken json", `{"content": `, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := Validate(CreateBody, []byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && len(issues) == 0 {
				t.Error("expected at least one issue")
			}
		})
	}
}

func TestIssuesPointAtField(t *testing.T) {
	issues, err := Validate(CreateBody, []byte(`{"content": ""}`))
	if err == nil {
		t.Fatal("expected error")
	}
	found := false
	for _, is := range issues {
		if strings.Contains(is.Path, "content") {
			found = true
		}
	}
	if !found {
		t.Errorf("no issue located at content: %+v", issues)
	}
}

func TestTodoPage(t *testing.T) {
	valid := `{"total": 1, "pages": 1, "todos": [
		{"id": "70905d7e-c969-45b1-99f0-1aa155477204", "date": "2023-04-15T19:46:51.109Z", "content": "x", "done": "false"}
	]}`
	if _, err := Validate(TodoPage, []byte(valid)); err != nil {
		t.Errorf("valid page rejected: %v", err)
	}

	for name, body := range map[string]string{
		"missing todos":   `{"total": 0, "pages": 0}`,
		"todos not array": `{"total": 0, "pages": 0, "todos": {}}`,
		"todo missing id": `{"total": 1, "pages": 1, "todos": [{"date": "d", "content": "x", "done": false}]}`,
		"bad done":        `{"total": 1, "pages": 1, "todos": [{"id": "a", "date": "d", "content": "x", "done": "maybe"}]}`,
	} {
		if _, err := Validate(TodoPage, []byte(body)); err == nil {
			t.Errorf("%s: expected rejection", name)
		}
	}
}

func TestTodoEnvelope(t *testing.T) {
	if _, err := Validate(TodoEnvelope, []byte(`{"todo": {"id": "a", "date": "d", "content": "x", "done": true}}`)); err != nil {
		t.Errorf("valid envelope rejected: %v", err)
	}
	if _, err := Validate(TodoEnvelope, []byte(`{"item": {}}`)); err == nil {
		t.Error("expected rejection of wrong envelope")
	}
}
