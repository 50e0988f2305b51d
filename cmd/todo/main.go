package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/Makepad-fr/tada/internal/cli"
)

func main() {
	// Root flags (apply to every subcommand)
	var opt cli.Options
	flag.StringVar(&opt.ConfigPath, "config", "", "config file (default: tada.toml if present)")
	flag.StringVar(&opt.ServerURL, "server", "", "API base URL for client subcommands")
	flag.StringVar(&opt.Addr, "addr", "", "listen address for serve")
	flag.StringVar(&opt.Backend, "backend", "", "storage backend for serve: file, postgres or mysql")
	flag.StringVar(&opt.File, "file", "", "todos file for the file backend")
	flag.StringVar(&opt.DSN, "dsn", "", "database DSN for the postgres and mysql backends")
	flag.IntVar(&opt.PageSize, "page-size", 0, "todos fetched per page")
	flag.StringVar(&opt.LogLevel, "log-level", "", "debug, info, warn or error")
	flag.StringVar(&opt.LogFormat, "log-format", "", "text, json or logfmt")
	flag.StringVar(&opt.Theme, "theme", "", "classic, neon or mono")
	flag.BoolVar(&opt.Color, "color", false, "force colored output")
	flag.BoolVar(&opt.NoColor, "no-color", false, "disable colored output")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, flag.Args(), opt)
	stop()
	os.Exit(code)
}
