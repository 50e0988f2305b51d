// Package config handles configuration loading and defaults.
//
// Configuration is loaded from multiple sources in priority order:
// 1. Built-in defaults
// 2. Config file (tada.toml in the working directory, or the -config path)
// 3. .env file in the working directory (never overrides real environment)
// 4. Environment variables (TADA_*)
// 5. CLI flags
//
// Each level overrides the previous one, so CLI flags take precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// Default values.
const (
	DefaultConfigFile = "tada.toml"
	DefaultAddr       = ":8080"
	DefaultBackend    = BackendFile
	DefaultFile       = "todos.json"
	DefaultServerURL  = "http://localhost:8080"
	DefaultPageSize   = 2
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultTheme      = "classic"
)

// Config holds the full configuration for the server and the client.
type Config struct {
	// Server
	Addr    string `toml:"addr"`
	Backend string `toml:"backend"`
	File    string `toml:"file"`
	DSN     string `toml:"dsn"`

	// Client
	ServerURL string `toml:"server_url"`
	PageSize  int    `toml:"page_size"`
	Theme     string `toml:"theme"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns a config with built-in defaults.
func Default() *Config {
	return &Config{
		Addr:      DefaultAddr,
		Backend:   DefaultBackend,
		File:      DefaultFile,
		ServerURL: DefaultServerURL,
		PageSize:  DefaultPageSize,
		Theme:     DefaultTheme,
		LogLevel:  DefaultLogLevel,
		LogFormat: DefaultLogFormat,
	}
}

// Load builds the config from defaults, the config file and the environment.
// An empty path means DefaultConfigFile, which may be absent; an explicit
// path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := loadFile(cfg, path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// loadFromEnv overrides config from TADA_* environment variables.
func loadFromEnv(cfg *Config) error {
	strs := map[string]*string{
		"TADA_ADDR":       &cfg.Addr,
		"TADA_BACKEND":    &cfg.Backend,
		"TADA_FILE":       &cfg.File,
		"TADA_DSN":        &cfg.DSN,
		"TADA_SERVER_URL": &cfg.ServerURL,
		"TADA_THEME":      &cfg.Theme,
		"TADA_LOG_LEVEL":  &cfg.LogLevel,
		"TADA_LOG_FORMAT": &cfg.LogFormat,
	}
	for env, dst := range strs {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
	if v := strings.TrimSpace(os.Getenv("TADA_PAGE_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TADA_PAGE_SIZE: not a number: %q", v)
		}
		cfg.PageSize = n
	}
	return nil
}

// Validate checks the config for consistency.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendFile:
	case BackendPostgres, BackendMySQL:
		if strings.TrimSpace(c.DSN) == "" {
			return fmt.Errorf("backend %s requires a dsn", c.Backend)
		}
	default:
		return fmt.Errorf("unknown backend %q (want file, postgres or mysql)", c.Backend)
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page_size must be at least 1, got %d", c.PageSize)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	return nil
}
