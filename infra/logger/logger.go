// Package logger provides a zerolog root logger. The terminal belongs to the
// UI, so output goes to a file unless a writer is given.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Options configures the logger.
type Options struct {
	Level     string
	Format    string // "json" or "console"
	Path      string
	Writer    io.Writer
	Component string
}

// FromEnv reads MOMENTLOG_LOG_LEVEL, MOMENTLOG_LOG_FORMAT and MOMENTLOG_LOG_PATH.
func FromEnv() Options {
	return Options{
		Level:  strings.ToLower(envOr("MOMENTLOG_LOG_LEVEL", "info")),
		Format: strings.ToLower(envOr("MOMENTLOG_LOG_FORMAT", "json")),
		Path:   os.Getenv("MOMENTLOG_LOG_PATH"),
	}
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

var (
	once   sync.Once
	root   atomic.Pointer[zerolog.Logger]
	inited atomic.Bool
	closer io.Closer
)

// Logger is the project-wide logging type.
type Logger = zerolog.Logger

// Get returns the root logger, initializing it from the environment.
func Get() *Logger {
	if !inited.Load() {
		Init(FromEnv())
	}
	return root.Load()
}

// Init builds the root logger. Only the first call has an effect.
// A log file that cannot be opened silences logging rather than
// corrupting the terminal.
func Init(opt Options) {
	once.Do(func() {
		zerolog.TimeFieldFormat = time.RFC3339Nano

		w := opt.Writer
		if w == nil {
			w = io.Discard
			if opt.Path != "" {
				if f, err := openLogFile(opt.Path); err == nil {
					w, closer = f, f
				}
			}
		}
		if opt.Format == "console" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
		}

		ctx := zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp()
		if opt.Component != "" {
			ctx = ctx.Str("component", opt.Component)
		}
		log := ctx.Logger()

		root.Store(&log)
		inited.Store(true)
	})
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}

// Close releases the log file, if one was opened.
func Close() error {
	if closer == nil {
		return nil
	}
	return closer.Close()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Named returns a child logger with a component field.
func Named(component string) *Logger {
	if component == "" {
		return Get()
	}
	l := Get().With().Str("component", component).Logger()
	return &l
}
