package api

import (
	"errors"
	"net/url"
	"strings"
	"testing"

	"github.com/Makepad-fr/tada/internal/repository"
)

func TestParseListQuery(t *testing.T) {
	tests := []struct {
		query   string
		want    repository.ListParams
		wantErr string
	}{
		{"", repository.ListParams{}, ""},
		{"page=2", repository.ListParams{Page: 2}, ""},
		{"page=2&limit=5", repository.ListParams{Page: 2, Limit: 5}, ""},
		{"limit=%202%20", repository.ListParams{Limit: 2}, ""},
		{"page=abc", repository.ListParams{}, "page"},
		{"page=1&limit=1.5", repository.ListParams{}, "limit"},
	}
	for _, tt := range tests {
		q, _ := url.ParseQuery(tt.query)
		got, err := ParseListQuery(q)
		if tt.wantErr != "" {
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.wantErr {
				t.Errorf("ParseListQuery(%q) error = %v, want field %s", tt.query, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseListQuery(%q) unexpected error: %v", tt.query, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseListQuery(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}

func TestParseCreateBody(t *testing.T) {
	got, err := ParseCreateBody(strings.NewReader(`{"content": "  buy milk  "}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "buy milk" {
		t.Errorf("content = %q, want trimmed", got)
	}

	big := `{"content": "` + strings.Repeat("x", maxBodyBytes) + `"}`
	if _, err := ParseCreateBody(strings.NewReader(big)); err == nil {
		t.Error("expected oversized body to be rejected")
	}
}

func TestParseID(t *testing.T) {
	id, err := ParseID("70905D7E-C969-45B1-99F0-1AA155477204")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "70905d7e-c969-45b1-99f0-1aa155477204" {
		t.Errorf("id = %s, want canonical lower case", id)
	}

	for _, bad := range []string{"", "not-a-uuid", "1234"} {
		if _, err := ParseID(bad); err == nil {
			t.Errorf("ParseID(%q) should fail", bad)
		}
	}
}
