// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full runtime configuration. Values come from an optional
// YAML file first, then environment variables override, then defaults fill
// the rest.
type Config struct {
	MetaDBPath string `yaml:"meta_db_path"` // SQLite control-plane database path
	SinkDriver string `yaml:"sink_driver"`  // "sqlite3" or "duckdb"
	SinkDSN    string `yaml:"sink_dsn"`     // data-plane DSN; defaults per driver

	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"` // debug, info, warn, error
	Env        string `yaml:"env"`       // "development" (default) or "production"

	JWTSecret string `yaml:"jwt_secret"` // HS256 shared secret

	// Worker pool
	Workers    int `yaml:"workers"`
	QueueDepth int `yaml:"queue_depth"`

	// Stale-job reaper
	StaleJobAfter time.Duration `yaml:"stale_job_after"`

	// Remote API source
	FetchBaseURL string        `yaml:"fetch_base_url"`
	FetchAPIKey  string        `yaml:"fetch_api_key"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// Rate limiting
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`

	// CORS
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	// Warnings collects non-fatal notes generated during loading. They are
	// logged by the caller after the logger is initialised.
	Warnings []string `yaml:"-"`
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// Load builds the configuration. The optional CONFIG_FILE YAML is read
// first; environment variables override its values.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&cfg.MetaDBPath, "META_DB_PATH")
	setString(&cfg.SinkDriver, "SINK_DRIVER")
	setString(&cfg.SinkDSN, "SINK_DSN")
	setString(&cfg.ListenAddr, "LISTEN_ADDR")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.Env, "ENV")
	setString(&cfg.JWTSecret, "JWT_SECRET")
	setString(&cfg.FetchBaseURL, "FETCH_BASE_URL")
	setString(&cfg.FetchAPIKey, "FETCH_API_KEY")

	if v := os.Getenv("WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Workers = n
		}
	}
	if v := os.Getenv("QUEUE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.QueueDepth = n
		}
	}
	if v := os.Getenv("STALE_JOB_AFTER"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StaleJobAfter = d
		}
	}
	if v := os.Getenv("FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.FetchTimeout = d
		}
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}
}

func applyDefaults(cfg *Config) error {
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "tabsink_meta.sqlite"
	}
	if cfg.SinkDriver == "" {
		cfg.SinkDriver = "sqlite3"
	}
	if cfg.SinkDriver != "sqlite3" && cfg.SinkDriver != "duckdb" {
		return fmt.Errorf("SINK_DRIVER must be sqlite3 or duckdb, got %q", cfg.SinkDriver)
	}
	if cfg.SinkDSN == "" {
		switch cfg.SinkDriver {
		case "sqlite3":
			cfg.SinkDSN = "tabsink_data.sqlite"
		case "duckdb":
			cfg.SinkDSN = "" // in-memory
		}
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 64
	}
	if cfg.StaleJobAfter <= 0 {
		cfg.StaleJobAfter = 10 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 30 * time.Second
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return fmt.Errorf("JWT_SECRET must be set in production (ENV=production)")
		}
		cfg.JWTSecret = "insecure-dev-secret"
		cfg.Warnings = append(cfg.Warnings, "JWT_SECRET not set, using insecure development default")
	}
	if cfg.IsProduction() && len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
		return fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
	}

	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from a file into the process environment.
// Missing file is not an error. Existing environment variables win.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}
