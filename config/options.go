package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ErrInvalidOptions is wrapped by Options.Validate failures.
var ErrInvalidOptions = errors.New("invalid options")

// Options are the process options of the server binary. Environment
// variables provide defaults that command line flags override.
type Options struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"ICONIFY_LSP_LOG_LEVEL" envDefault:"info"`
	// MetricsAddr enables the debug listener serving /metrics when set.
	MetricsAddr string `env:"ICONIFY_LSP_METRICS_ADDR"`
	// DecorationInterval is the minimum time between two decoration
	// passes of one document.
	DecorationInterval time.Duration `env:"ICONIFY_LSP_DECORATION_INTERVAL" envDefault:"1s"`
	// Watch enables the server-side file watcher.
	Watch bool `env:"ICONIFY_LSP_WATCH" envDefault:"true"`
}

// LoadOptions reads Options from the environment.
func LoadOptions() (Options, error) {
	var o Options
	if err := env.Parse(&o); err != nil {
		return Options{}, fmt.Errorf("parse env: %w", err)
	}
	return o, nil
}

// Validate checks option values.
func (o Options) Validate() error {
	if _, ok := parseLevel(o.LogLevel); !ok {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidOptions, o.LogLevel)
	}
	if o.DecorationInterval < 0 {
		return fmt.Errorf("%w: decoration interval must not be negative", ErrInvalidOptions)
	}
	return nil
}

// SlogLevel returns the slog level of LogLevel, info when unknown.
func (o Options) SlogLevel() slog.Level {
	level, _ := parseLevel(o.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}
