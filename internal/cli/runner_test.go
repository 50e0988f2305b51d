package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/repository"
	"github.com/Makepad-fr/tada/internal/store/jsonstore"
	"github.com/Makepad-fr/tada/internal/ui"
)

type env struct {
	opt  Options
	repo *repository.Repository
	out  *bytes.Buffer
	err  *bytes.Buffer
}

// run executes one CLI invocation with fresh output buffers.
func (e *env) run(args ...string) int {
	e.out.Reset()
	e.err.Reset()
	return Run(context.Background(), args, e.opt)
}

func setup(t *testing.T, ids ...string) *env {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)

	st, err := jsonstore.New(filepath.Join(dir, "todos.json"))
	if err != nil {
		t.Fatal(err)
	}
	var opts []repository.Option
	if len(ids) > 0 {
		next := 0
		opts = append(opts, repository.WithIDGenerator(func() string {
			id := ids[next]
			next++
			return id
		}))
	}
	repo := repository.New(st, opts...)
	srv := httptest.NewServer(api.NewTodoHandler(repo, log.New(io.Discard)).Routes())
	t.Cleanup(srv.Close)

	e := &env{
		opt:  Options{ServerURL: srv.URL, NoColor: true},
		repo: repo,
		out:  &bytes.Buffer{},
		err:  &bytes.Buffer{},
	}
	prevOut, prevErr := ui.Stdout, ui.Stderr
	ui.Stdout, ui.Stderr = e.out, e.err
	t.Cleanup(func() { ui.Stdout, ui.Stderr = prevOut, prevErr })
	return e
}

func TestAddListToggleRemove(t *testing.T) {
	e := setup(t)

	if code := e.run("add", "Buy", "milk"); code != 0 {
		t.Fatalf("add exit %d: %s", code, e.err)
	}
	if !strings.Contains(e.out.String(), "added") {
		t.Errorf("add output = %q", e.out)
	}

	if code := e.run("ls", "--plain"); code != 0 {
		t.Fatalf("ls exit %d: %s", code, e.err)
	}
	if !strings.Contains(e.out.String(), "Buy milk") || !strings.Contains(e.out.String(), "Total 1") {
		t.Errorf("ls output:\n%s", e.out)
	}

	all, err := e.repo.All(context.Background())
	if err != nil || len(all) != 1 {
		t.Fatalf("repository = %v, %v", all, err)
	}
	id := all[0].ID

	if code := e.run("done", id[:8]); code != 0 {
		t.Fatalf("done exit %d: %s", code, e.err)
	}
	if !strings.Contains(e.out.String(), "marked done") {
		t.Errorf("done output = %q", e.out)
	}
	if code := e.run("done", strings.ToUpper(id)); code != 0 {
		t.Fatalf("done by full id exit %d: %s", code, e.err)
	}
	if !strings.Contains(e.out.String(), "marked pending") {
		t.Errorf("second done output = %q", e.out)
	}

	if code := e.run("rm", id); code != 0 {
		t.Fatalf("rm exit %d: %s", code, e.err)
	}
	if code := e.run("ls", "--plain"); code != 0 {
		t.Fatalf("ls exit %d", code)
	}
	if !strings.Contains(e.out.String(), "no todos") {
		t.Errorf("ls after rm:\n%s", e.out)
	}

	if code := e.run("rm", id); code != 1 {
		t.Errorf("rm of a deleted id exit %d, want 1", code)
	}
	if !strings.Contains(e.err.String(), "Hint") {
		t.Errorf("missing hint: %q", e.err)
	}
}

func TestListPaging(t *testing.T) {
	e := setup(t)
	for _, c := range []string{"a", "b", "c"} {
		if code := e.run("add", c); code != 0 {
			t.Fatalf("add exit %d", code)
		}
	}
	if code := e.run("ls", "--plain", "--page", "2"); code != 0 {
		t.Fatalf("ls exit %d: %s", code, e.err)
	}
	out := e.out.String()
	if !strings.Contains(out, "page 2/2") || !strings.Contains(out, "☐ a ") || strings.Contains(out, "☐ c ") {
		t.Errorf("page 2 with default page size:\n%s", out)
	}

	if code := e.run("ls", "--plain", "--limit", "10"); code != 0 {
		t.Fatalf("ls exit %d", code)
	}
	if !strings.Contains(e.out.String(), "page 1/1") {
		t.Errorf("limit 10:\n%s", e.out)
	}
}

func TestUsageErrors(t *testing.T) {
	e := setup(t)
	tests := []struct {
		args []string
		want int
	}{
		{nil, 2},
		{[]string{"help"}, 0},
		{[]string{"bogus"}, 2},
		{[]string{"add"}, 2},
		{[]string{"add", "  "}, 2},
		{[]string{"done"}, 2},
		{[]string{"rm", "a", "b"}, 2},
		{[]string{"serve", "extra"}, 2},
		{[]string{"ls", "--page", "0"}, 2},
		{[]string{"ls", "--nope"}, 2},
		{[]string{"export", "--format", "xml"}, 2},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			if code := e.run(tt.args...); code != tt.want {
				t.Errorf("exit %d, want %d (stderr %q)", code, tt.want, e.err)
			}
		})
	}
}

func TestResolveID(t *testing.T) {
	e := setup(t,
		"aaaa1111-0000-4000-8000-000000000001",
		"aaaa2222-0000-4000-8000-000000000002",
	)
	e.run("add", "first")
	e.run("add", "second")

	tests := []struct {
		name string
		arg  string
		want int
	}{
		{"ambiguous prefix", "aaaa", 2},
		{"no match", "bbbb", 1},
		{"unique prefix", "aaaa2", 0},
		{"unknown full id", "aaaa3333-0000-4000-8000-000000000003", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if code := e.run("done", tt.arg); code != tt.want {
				t.Errorf("done %s exit %d, want %d (stderr %q)", tt.arg, code, tt.want, e.err)
			}
		})
	}
}

func TestExport(t *testing.T) {
	e := setup(t)
	e.run("add", "Buy milk")
	e.run("add", "Walk dog")

	if code := e.run("export"); code != 0 {
		t.Fatalf("export exit %d: %s", code, e.err)
	}
	var doc struct {
		Todos []struct {
			Content string `json:"content"`
		} `json:"todos"`
	}
	if err := json.Unmarshal(e.out.Bytes(), &doc); err != nil {
		t.Fatalf("export is not json: %v", err)
	}
	if len(doc.Todos) != 2 || doc.Todos[0].Content != "Walk dog" {
		t.Errorf("exported = %+v", doc.Todos)
	}

	path := filepath.Join(t.TempDir(), "todos.csv")
	if code := e.run("export", "--format", "csv", "--out", path); code != 0 {
		t.Fatalf("export csv exit %d: %s", code, e.err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "id,date,content,done\n") {
		t.Errorf("csv = %q", data)
	}
}

func TestServerDown(t *testing.T) {
	e := setup(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	e.opt.ServerURL = srv.URL
	srv.Close()

	if code := e.run("ls", "--plain"); code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
	if !strings.Contains(e.err.String(), "is the server running") {
		t.Errorf("stderr = %q", e.err)
	}
}

func TestBadConfig(t *testing.T) {
	e := setup(t)
	e.opt.Backend = "redis"
	if code := e.run("ls", "--plain"); code != 2 {
		t.Errorf("unknown backend exit %d, want 2", code)
	}

	e.opt.Backend = ""
	e.opt.Theme = "sparkles"
	if code := e.run("ls", "--plain"); code != 2 {
		t.Errorf("unknown theme exit %d, want 2", code)
	}

	e.opt.Theme = ""
	e.opt.ConfigPath = "missing.toml"
	if code := e.run("ls", "--plain"); code != 1 {
		t.Errorf("missing explicit config exit %d, want 1", code)
	}
}

func TestServeFlags(t *testing.T) {
	e := setup(t)

	if code := e.run("serve", "-backend", "redis"); code != 2 {
		t.Errorf("serve -backend redis exit %d, want 2", code)
	}
	if code := e.run("serve", "-backend", "postgres"); code != 2 {
		t.Errorf("serve -backend postgres without dsn exit %d, want 2", code)
	}
	if !strings.Contains(e.err.String(), "requires a dsn") {
		t.Errorf("stderr = %q", e.err)
	}

	// A cancelled context makes serve shut down right after it starts listening.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	file := filepath.Join(t.TempDir(), "served.json")
	args := []string{"serve", "-addr", "127.0.0.1:0", "-backend", "file", "-file", file}
	if code := Run(ctx, args, e.opt); code != 0 {
		t.Errorf("serve exit %d, want 0 (stderr %q)", code, e.err)
	}
}
