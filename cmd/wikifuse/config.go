package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime settings read from WIKIFUSE_* environment variables.
type Config struct {
	DB            string        `envconfig:"DB"`
	ConfigDir     string        `envconfig:"CONFIG_DIR"`
	LogLevel      string        `envconfig:"LOG_LEVEL" default:"info"`
	Concurrency   int           `envconfig:"CONCURRENCY" default:"8"`
	FetchTimeout  time.Duration `envconfig:"FETCH_TIMEOUT" default:"30s"`
	RateLimit     float64       `envconfig:"RATE_LIMIT" default:"1"`
	RetryMax      int           `envconfig:"RETRY_MAX" default:"3"`
	DefaultSource string        `envconfig:"DEFAULT_SOURCE" default:"generic"`
}

// LoadConfig reads the configuration from the environment and fills in
// the default database and configuration paths.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("wikifuse", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DB == "" || cfg.ConfigDir == "" {
		dir := defaultDir()
		if cfg.DB == "" {
			cfg.DB = filepath.Join(dir, "wikifuse.db")
		}
		if cfg.ConfigDir == "" {
			cfg.ConfigDir = filepath.Join(dir, "sources")
		}
	}
	return cfg, nil
}

func defaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".wikifuse")
}

// newLogger returns a text logger on w at the named level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l})), nil
}
