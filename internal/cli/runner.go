package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/client"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/export"
	"github.com/Makepad-fr/tada/internal/feed"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/repository"
	"github.com/Makepad-fr/tada/internal/server"
	"github.com/Makepad-fr/tada/internal/ui"
)

// allPageSize is the page size used when walking every todo.
const allPageSize = 100

// Options carry the root flags. Zero values leave the loaded config alone.
type Options struct {
	ConfigPath string
	Addr       string
	Backend    string
	File       string
	DSN        string
	ServerURL  string
	PageSize   int
	LogLevel   string
	LogFormat  string
	Theme      string
	Color      bool // force colors even when not a TTY
	NoColor    bool
}

func (o Options) apply(cfg *config.Config) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Addr, o.Addr)
	set(&cfg.Backend, o.Backend)
	set(&cfg.File, o.File)
	set(&cfg.DSN, o.DSN)
	set(&cfg.ServerURL, o.ServerURL)
	set(&cfg.LogLevel, o.LogLevel)
	set(&cfg.LogFormat, o.LogFormat)
	set(&cfg.Theme, o.Theme)
	if o.PageSize > 0 {
		cfg.PageSize = o.PageSize
	}
}

type runner struct {
	cfg *config.Config
	log *log.Logger
	api *client.Client
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(ctx context.Context, args []string, opt Options) int {
	if len(args) == 0 {
		PrintHelp()
		return 2
	}
	cmd, a := args[0], args[1:]
	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		PrintHelp()
		return 0
	}

	cfg, err := config.Load(opt.ConfigPath)
	if err != nil {
		ui.Fail("config: " + err.Error())
		return 1
	}
	opt.apply(cfg)
	if err := cfg.Validate(); err != nil {
		ui.Fail("config: " + err.Error())
		return 2
	}
	ui.SetColorForcing(opt.Color, opt.NoColor)
	if err := ui.SetTheme(cfg.Theme); err != nil {
		ui.Fail("config: " + err.Error())
		return 2
	}
	logger, err := logging.New(ui.Stderr, logging.Options{
		Level:           cfg.LogLevel,
		Format:          cfg.LogFormat,
		ReportTimestamp: cmd == "serve",
	})
	if err != nil {
		ui.Fail("config: " + err.Error())
		return 2
	}

	r := &runner{cfg: cfg, log: logger, api: client.New(cfg.ServerURL)}
	logger.Debug("config loaded", "cmd", cmd, "server_url", cfg.ServerURL, "backend", cfg.Backend)

	switch cmd {
	case "serve":
		return r.serve(ctx, a)

	case "ls":
		return r.list(ctx, a)

	case "add":
		content := strings.TrimSpace(strings.Join(a, " "))
		if content == "" {
			ui.Fail("usage: todo add <content...>")
			return 2
		}
		return r.add(ctx, content)

	case "done":
		if len(a) != 1 || strings.TrimSpace(a[0]) == "" {
			ui.Fail("usage: todo done <id>")
			return 2
		}
		return r.toggle(ctx, a[0])

	case "rm":
		if len(a) != 1 || strings.TrimSpace(a[0]) == "" {
			ui.Fail("usage: todo rm <id>")
			return 2
		}
		return r.remove(ctx, a[0])

	case "export":
		return r.export(ctx, a)
	}

	ui.Fail("unknown subcommand: " + cmd)
	fmt.Fprintln(ui.Stderr)
	PrintHelp()
	return 2
}

func PrintHelp() {
	fmt.Fprintf(ui.Stdout, `todo - a small todo manager with an HTTP API

Usage:
  todo [flags] <subcommand> [args]

Subcommands:
  serve [-addr A] [-backend B] [-file F] [-dsn D]
                              Run the API server
  ls [--plain] [--page N] [--limit N]
                              Browse todos (interactive on a terminal)
  add <content...>            Add a new todo
  done <id>                   Toggle done (an id prefix from ls is enough)
  rm <id>                     Delete a todo
  export [--format F] [--out FILE]
                              Export every todo as %s

Examples:
  todo serve -backend postgres -dsn postgres://localhost/todos
  todo add "Buy milk"
  todo ls --plain
  todo done 3f2a9c1e
  todo export --format pdf --out todos.pdf
`, strings.Join(export.Formats, ", "))
}

// -------------- subcommand impls ----------------

func (r *runner) serve(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(ui.Stderr)
	var o Options
	fs.StringVar(&o.Addr, "addr", "", "listen address")
	fs.StringVar(&o.Backend, "backend", "", "storage backend: file, postgres or mysql")
	fs.StringVar(&o.File, "file", "", "todos file for the file backend")
	fs.StringVar(&o.DSN, "dsn", "", "database DSN for the postgres and mysql backends")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		ui.Fail("usage: todo serve [-addr A] [-backend B] [-file F] [-dsn D]")
		return 2
	}
	o.apply(r.cfg)
	if err := r.cfg.Validate(); err != nil {
		ui.Fail("config: " + err.Error())
		return 2
	}

	st, err := server.OpenStore(ctx, r.cfg)
	if err != nil {
		r.log.Error("open store", "backend", r.cfg.Backend, "err", err)
		return 1
	}
	defer st.Close()

	h := api.NewTodoHandler(repository.New(st), r.log)
	r.log.Info("starting", "backend", r.cfg.Backend, "addr", r.cfg.Addr)
	if err := server.New(h.Routes(), r.log).ListenAndServe(ctx, r.cfg.Addr); err != nil {
		r.log.Error("server stopped", "err", err)
		return 1
	}
	return 0
}

func (r *runner) list(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("ls", flag.ContinueOnError)
	fs.SetOutput(ui.Stderr)
	plain := fs.Bool("plain", false, "print one page instead of the interactive list")
	page := fs.Int("page", repository.DefaultPage, "page to print with --plain")
	limit := fs.Int("limit", 0, "todos per page (default: page_size from config)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 || *page < 1 || *limit < 0 {
		ui.Fail("usage: todo ls [--plain] [--page N] [--limit N]")
		return 2
	}
	if *limit == 0 {
		*limit = r.cfg.PageSize
	}

	if !*plain && ui.IsTerminal() {
		if err := ui.Run(ctx, r.api, feed.New(*limit)); err != nil {
			ui.Fail("ui: " + err.Error())
			return 1
		}
		return 0
	}

	p, err := r.api.List(ctx, *page, *limit)
	if err != nil {
		return r.fail(err)
	}
	ui.Panel(ui.ListLines(p.Todos, p.Total, *page, p.Pages))
	return 0
}

func (r *runner) add(ctx context.Context, content string) int {
	it, err := r.api.CreateByContent(ctx, content)
	if err != nil {
		return r.fail(err)
	}
	ui.OK("added " + ui.ShortID(it.ID))
	return 0
}

func (r *runner) toggle(ctx context.Context, arg string) int {
	id, code := r.resolve(ctx, arg)
	if code != 0 {
		return code
	}
	it, err := r.api.ToggleDone(ctx, id)
	if err != nil {
		return r.fail(err)
	}
	state := "pending"
	if it.Done {
		state = "done"
	}
	ui.OK(fmt.Sprintf("%s marked %s", ui.ShortID(id), state))
	return 0
}

func (r *runner) remove(ctx context.Context, arg string) int {
	id, code := r.resolve(ctx, arg)
	if code != 0 {
		return code
	}
	if err := r.api.DeleteByID(ctx, id); err != nil {
		return r.fail(err)
	}
	ui.OK("removed " + ui.ShortID(id))
	return 0
}

func (r *runner) export(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(ui.Stderr)
	format := fs.String("format", "json", "output format: "+strings.Join(export.Formats, ", "))
	out := fs.String("out", "", "output file (default: stdout)")
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 0 {
		ui.Fail("usage: todo export [--format F] [--out FILE]")
		return 2
	}
	if !slices.Contains(export.Formats, strings.ToLower(*format)) {
		ui.Fail(fmt.Sprintf("export: unknown format %q (want %s)", *format, strings.Join(export.Formats, ", ")))
		return 2
	}

	items, err := r.api.All(ctx, allPageSize)
	if err != nil {
		return r.fail(err)
	}
	data, err := export.Export(items, *format)
	if err != nil {
		ui.Fail("export: " + err.Error())
		return 1
	}

	if *out == "" || *out == "-" {
		if _, err := ui.Stdout.Write(data); err != nil {
			ui.Fail("export: " + err.Error())
			return 1
		}
		return 0
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		ui.Fail("export: " + err.Error())
		return 1
	}
	ui.OK(fmt.Sprintf("exported %d todos to %s", len(items), *out))
	return 0
}

// -------------- helpers --------------

// resolve turns a full id or a unique id prefix into a canonical id.
func (r *runner) resolve(ctx context.Context, arg string) (string, int) {
	if id, err := uuid.Parse(arg); err == nil {
		return id.String(), 0
	}
	items, err := r.api.All(ctx, allPageSize)
	if err != nil {
		return "", r.fail(err)
	}
	prefix := strings.ToLower(strings.TrimSpace(arg))
	var matches []string
	for _, it := range items {
		if strings.HasPrefix(it.ID, prefix) {
			matches = append(matches, it.ID)
		}
	}
	switch len(matches) {
	case 0:
		ui.Fail(fmt.Sprintf("no todo matches %q", arg))
		ui.Hint("run `todo ls --plain` to see valid ids")
		return "", 1
	case 1:
		return matches[0], 0
	default:
		ui.Fail(fmt.Sprintf("%q matches %d todos, use a longer prefix", arg, len(matches)))
		return "", 2
	}
}

// fail reports an API error and maps it to an exit code.
func (r *runner) fail(err error) int {
	ui.Fail(err.Error())
	var se *client.StatusError
	var ue *url.Error
	switch {
	case client.IsNotFound(err):
		ui.Hint("run `todo ls --plain` to see valid ids")
	case errors.As(err, &se) && se.Code == http.StatusBadRequest:
		return 2
	case errors.As(err, &ue):
		ui.Hint(fmt.Sprintf("is the server running at %s? start it with `todo serve`", r.cfg.ServerURL))
	}
	return 1
}

// parseFlags parses a subcommand's flags; ok is false when the caller should
// return code right away.
func parseFlags(fs *flag.FlagSet, args []string) (code int, ok bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, false
		}
		return 2, false
	}
	return 0, true
}
