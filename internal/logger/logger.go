// Package logger wraps log/slog with the attributes quarry tags its records
// with: component, query and base term.
package logger

import (
	"io"
	"log/slog"
	"os"
)

type Logger struct {
	*slog.Logger
}

type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json

	// Output defaults to stderr so CLI output on stdout stays parseable.
	Output io.Writer
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ParseLevel maps a configured level name to a slog level.
func ParseLevel(name string) (slog.Level, bool) {
	level, ok := levels[name]
	return level, ok
}

// New builds a logger from cfg. Unknown levels fall back to info and unknown
// formats to text.
func New(cfg Config) *Logger {
	level, ok := ParseLevel(cfg.Level)
	if !ok {
		level = slog.LevelInfo
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithComponent tags records with the subsystem that wrote them.
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithJob tags records with the query a worker is extracting.
func (l *Logger) WithJob(queryID, keyword string) *Logger {
	return l.with("query_id", queryID, "keyword", keyword)
}

func (l *Logger) WithBaseTerm(baseTermID, term string) *Logger {
	return l.with("base_term_id", baseTermID, "term", term)
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

func Default() *Logger {
	return New(Config{Level: "info", Format: "text"})
}
