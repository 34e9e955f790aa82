// Package config loads HobbyShelf configuration from command-line flags,
// environment variables and a .env file.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Search engines.
const (
	SearchEngineFTS5  = "fts5"
	SearchEngineBleve = "bleve"
)

// Schema enforcement policies for entry properties.
const (
	EnforcementOff    = "off"
	EnforcementWarn   = "warn"
	EnforcementStrict = "strict"
)

// View count modes.
const (
	ViewCountBestEffort = "best_effort"
	ViewCountStrict     = "strict"
)

// Backup compression formats.
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZip  = "zip"
)

// Config is the resolved server and CLI configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Search   SearchConfig
	Content  ContentConfig
	Backup   BackupConfig
	Server   ServerConfig
}

type AppConfig struct {
	Environment string
	DataPath    string // root for the database, index and backups
}

type LoggerConfig struct {
	Level  string
	Format string // optional; json or pretty
}

// DatabaseConfig holds SQLite configuration.
type DatabaseConfig struct {
	Path string
}

// SearchConfig selects and locates the search engine.
type SearchConfig struct {
	Engine    string
	IndexPath string // bleve only
}

// ContentConfig holds entry write policies.
type ContentConfig struct {
	SchemaEnforcement string
	ViewCountMode     string
}

// BackupConfig holds snapshot configuration.
type BackupConfig struct {
	Path        string
	Compression string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Overrides carries values supplied on the command line. Empty strings mean
// "not set" so lower-precedence sources apply.
type Overrides struct {
	EnvFile           string
	Environment       string
	LogLevel          string
	DataPath          string
	DatabasePath      string
	SearchEngine      string
	SchemaEnforcement string
	BackupPath        string
	Compression       string
	Port              string
}

// LoadConfig registers the server flags on the default flag set, parses them
// and calls Load. Flags beat the environment, which beats the .env file.
func LoadConfig() (*Config, error) {
	var o Overrides
	flag.StringVar(&o.EnvFile, "env-file", ".env", "Path to .env file")
	flag.StringVar(&o.Environment, "env", "", "Environment (development, staging, production)")
	flag.StringVar(&o.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flag.StringVar(&o.DataPath, "data-path", "", "Base directory for data (default: ~/HobbyShelf)")
	flag.StringVar(&o.DatabasePath, "db", "", "SQLite database path (default: {data}/hobbyshelf.db)")
	flag.StringVar(&o.SearchEngine, "search-engine", "", "Search engine (fts5, bleve)")
	flag.StringVar(&o.SchemaEnforcement, "schema-enforcement", "", "Property schema enforcement (off, warn, strict)")
	flag.StringVar(&o.BackupPath, "backup-path", "", "Directory for snapshots (default: {data}/backups)")
	flag.StringVar(&o.Compression, "backup-compression", "", "Snapshot container (none, gzip, zip)")
	flag.StringVar(&o.Port, "port", "", "Server port (default: 8080)")
	flag.Parse()

	return Load(o)
}

// Load builds a Config from overrides, the environment and the .env file.
func Load(o Overrides) (*Config, error) {
	envFile := o.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// godotenv.Load never overrides variables that are already set, and a
	// missing file is not an error here.
	_ = godotenv.Load(envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: pick(o.Environment, "ENV", "development"),
			DataPath:    pick(o.DataPath, "DATA_PATH", ""),
		},
		Logger: LoggerConfig{
			Level:  pick(o.LogLevel, "LOG_LEVEL", "info"),
			Format: pick("", "LOG_FORMAT", ""),
		},
		Database: DatabaseConfig{
			Path: pick(o.DatabasePath, "DATABASE_PATH", ""),
		},
		Search: SearchConfig{
			Engine:    strings.ToLower(pick(o.SearchEngine, "SEARCH_ENGINE", SearchEngineFTS5)),
			IndexPath: pick("", "SEARCH_INDEX_PATH", ""),
		},
		Content: ContentConfig{
			SchemaEnforcement: strings.ToLower(pick(o.SchemaEnforcement, "SCHEMA_ENFORCEMENT", EnforcementWarn)),
			ViewCountMode:     strings.ToLower(pick("", "VIEW_COUNT_MODE", ViewCountBestEffort)),
		},
		Backup: BackupConfig{
			Path:        pick(o.BackupPath, "BACKUP_PATH", ""),
			Compression: strings.ToLower(pick(o.Compression, "BACKUP_COMPRESSION", CompressionNone)),
		},
		Server: ServerConfig{
			Port:           pick(o.Port, "SERVER_PORT", "8080"),
			CORSOrigins:    splitList(pick("", "CORS_ORIGINS", "*")),
			RateLimitRPS:   pickParsed("RATE_LIMIT_RPS", 20.0, parseFloat),
			RateLimitBurst: pickParsed("RATE_LIMIT_BURST", 40, strconv.Atoi),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = pickDuration("SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = pickDuration("SERVER_WRITE_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = pickDuration("SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate reports the first setting outside its allowed values.
func (c *Config) Validate() error {
	enums := []struct {
		name    string
		value   string
		allowed []string
	}{
		{"environment", c.App.Environment, []string{"development", "staging", "production"}},
		{"log level", strings.ToLower(c.Logger.Level), []string{"debug", "info", "warn", "error"}},
		{"search engine", c.Search.Engine, []string{SearchEngineFTS5, SearchEngineBleve}},
		{"schema enforcement", c.Content.SchemaEnforcement, []string{EnforcementOff, EnforcementWarn, EnforcementStrict}},
		{"view count mode", c.Content.ViewCountMode, []string{ViewCountBestEffort, ViewCountStrict}},
		{"backup compression", c.Backup.Compression, []string{CompressionNone, CompressionGzip, CompressionZip}},
	}
	if c.Logger.Format != "" {
		enums = append(enums, struct {
			name    string
			value   string
			allowed []string
		}{"log format", c.Logger.Format, []string{"json", "pretty"}})
	}
	for _, e := range enums {
		if !slices.Contains(e.allowed, e.value) {
			return fmt.Errorf("invalid %s %q (allowed: %s)", e.name, e.value, strings.Join(e.allowed, ", "))
		}
	}

	switch {
	case c.Database.Path == "":
		return errors.New("database path is empty")
	case c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0:
		return errors.New("rate limit values cannot be negative")
	}
	return nil
}

// resolvePaths fills unset locations from DataPath, which itself defaults to
// ~/HobbyShelf.
func (c *Config) resolvePaths() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("home directory: %w", err)
	}

	targets := []struct {
		dst *string
		def func() string
	}{
		{&c.App.DataPath, func() string { return filepath.Join(home, "HobbyShelf") }},
		{&c.Database.Path, func() string { return filepath.Join(c.App.DataPath, "hobbyshelf.db") }},
		{&c.Search.IndexPath, func() string { return filepath.Join(c.App.DataPath, "search.bleve") }},
		{&c.Backup.Path, func() string { return filepath.Join(c.App.DataPath, "backups") }},
	}
	for _, t := range targets {
		if *t.dst == "" {
			*t.dst = t.def()
			continue
		}
		if *t.dst, err = absPath(*t.dst, home); err != nil {
			return err
		}
	}
	return nil
}

// absPath expands a leading "~/" against home and cleans the result.
func absPath(p, home string) (string, error) {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		p = filepath.Join(home, rest)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", p, err)
	}
	return abs, nil
}

// pick returns the override when set, then the environment variable, then def.
func pick(override, envKey, def string) string {
	if override != "" {
		return override
	}
	if v, ok := os.LookupEnv(envKey); ok && v != "" {
		return v
	}
	return def
}

// pickParsed reads envKey and parses it, falling back to def when unset or
// malformed.
func pickParsed[T any](envKey string, def T, parse func(string) (T, error)) T {
	raw := pick("", envKey, "")
	if raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil {
		return def
	}
	return v
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func pickDuration(envKey, def string) (time.Duration, error) {
	raw := pick("", envKey, def)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, raw, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
