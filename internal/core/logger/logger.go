// Package logger provides the structured logging engine for buildctl.
// Uses log/slog with two sinks: an append-only log file under the buildctl
// home and, when --debug is given, stderr.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Logger wraps slog.Logger with buildctl-specific utilities.
type Logger struct {
	*slog.Logger
	closer io.Closer
}

// Options controls where and how log records are written.
type Options struct {
	Level  string // debug | info | warn | error
	Format string // text | json
	File   string // empty disables the file sink
	Debug  bool   // forces debug level and adds the stderr sink
	Stderr io.Writer
}

// Init builds a Logger and installs it as the slog default.
// A log file that cannot be opened is skipped rather than failing the run.
func Init(opts Options) (*Logger, error) {
	lvl := parseLevel(opts.Level)
	if opts.Debug {
		lvl = slog.LevelDebug
	}

	var writers []io.Writer
	var closer io.Closer

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0750); err == nil {
			f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
			if err == nil {
				writers = append(writers, f)
				closer = f
			}
		}
	}

	if opts.Debug {
		stderr := opts.Stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		writers = append(writers, stderr)
	}

	out := io.Discard
	if len(writers) > 0 {
		out = io.MultiWriter(writers...)
	}

	var handler slog.Handler
	hopts := &slog.HandlerOptions{Level: lvl, AddSource: opts.Debug}
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, hopts)
	} else {
		handler = slog.NewTextHandler(out, hopts)
	}

	base := slog.New(handler)
	slog.SetDefault(base)

	return &Logger{Logger: base, closer: closer}, nil
}

// Nop returns a Logger that discards everything. Used by tests and by
// packages constructed without a logger.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Close releases the log file, if one was opened.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
