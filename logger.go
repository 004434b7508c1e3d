package inframed

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/inframed/inframed/repository"
)

// Logger wraps slog.Logger with inframed-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON lines to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NewTextLogger creates a Logger that writes human-readable text to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))}
}

// NoopLogger creates a Logger that discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithConfig adds the config path being worked on.
func (l *Logger) WithConfig(path string) *Logger {
	return &Logger{Logger: l.Logger.With("config", path)}
}

// WithPid adds a patient id.
func (l *Logger) WithPid(pid int32) *Logger {
	return &Logger{Logger: l.Logger.With("pid", pid)}
}

// LogConvert logs the outcome of a conversion run.
func (l *Logger) LogConvert(ctx context.Context, rep *Report, err error) {
	if rep == nil {
		rep = &Report{}
	}
	if err != nil {
		l.ErrorContext(ctx, "conversion failed",
			"run_id", rep.RunID,
			"patients", rep.Patients,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "conversion completed",
		"run_id", rep.RunID,
		"mode", rep.Mode,
		"patients", rep.Patients,
		"written", rep.Written,
		"rejected", rep.Rejected,
		"duration", rep.Duration,
	)
}

// LogPublish logs the outcome of a publish.
func (l *Logger) LogPublish(ctx context.Context, m *repository.Manifest, err error) {
	if err != nil {
		l.ErrorContext(ctx, "publish failed", "error", err)
		return
	}
	var bytes int64
	for _, f := range m.Files {
		bytes += f.Size
	}
	l.InfoContext(ctx, "publish completed",
		"config", m.Config,
		"files", len(m.Files),
		"bytes", bytes,
	)
}
