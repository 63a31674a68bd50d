// Package logging provides structured logging using Go's slog package.
//
// Three terminal formats are supported: json for machines, text for plain
// terminals and pretty (charmbracelet/log) for humans. When file logging is
// enabled every record is also written as JSON to a rolling file, which is
// the only sink the interactive UI and the one-shot commands use since their
// stdout belongs to the user. Each sink filters by its own level.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelTrace is more verbose than debug. Used for per-quote diagnostics.
const LevelTrace = slog.Level(-8)

// Config holds logging configuration.
type Config struct {
	Level   string // trace, debug, info, warn, error
	Format  string // json, text, pretty
	Service string // service name for default attrs
	Version string // service version for default attrs
	File    FileConfig
}

// FileConfig holds rolling log file settings.
type FileConfig struct {
	Enabled    bool
	Path       string
	Level      string // defaults to Config.Level
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// New creates a logger writing to stdout.
func New(cfg *Config) *slog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

// NewWithWriter creates a logger writing to w, plus the log file when enabled.
// Secrets are redacted in every sink.
func NewWithWriter(cfg *Config, w io.Writer) *slog.Logger {
	logger, _ := NewWithCloser(cfg, w)
	return logger
}

// NewWithCloser is NewWithWriter that also returns a closer for the log file.
// The closer is a no-op when file logging is disabled. A nil or io.Discard
// writer drops the terminal sink entirely.
func NewWithCloser(cfg *Config, w io.Writer) (*slog.Logger, io.Closer) {
	level := parseLevel(cfg.Level)

	var (
		sinks  []slog.Handler
		closer io.Closer = nopCloser{}
	)

	if w != nil && w != io.Discard {
		sinks = append(sinks, terminalHandler(cfg.Format, level, w))
	}

	if cfg.File.Enabled && cfg.File.Path != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		closer = file

		fileLevel := level
		if cfg.File.Level != "" {
			fileLevel = parseLevel(cfg.File.Level)
		}

		sinks = append(sinks, slog.NewJSONHandler(file, &slog.HandlerOptions{
			Level:       fileLevel,
			ReplaceAttr: NewReplaceAttr(),
		}))
	}

	logger := slog.New(newTee(sinks...)).With(
		slog.String("service_name", cfg.Service),
		slog.String("service_version", cfg.Version),
	)

	return logger, closer
}

func terminalHandler(format string, level slog.Level, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: NewReplaceAttr(),
	}

	switch strings.ToLower(format) {
	case "text":
		return slog.NewTextHandler(w, opts)
	case "pretty":
		return log.NewWithOptions(w, log.Options{
			Level:           slogToCharmLevel(level),
			ReportTimestamp: true,
		})
	default:
		return slog.NewJSONHandler(w, opts)
	}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// slogToCharmLevel clamps a slog level onto charm's coarser scale.
// charm has no trace level so trace records render as debug.
func slogToCharmLevel(level slog.Level) log.Level {
	switch {
	case level < slog.LevelInfo:
		return log.DebugLevel
	case level < slog.LevelWarn:
		return log.InfoLevel
	case level < slog.LevelError:
		return log.WarnLevel
	default:
		return log.ErrorLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
