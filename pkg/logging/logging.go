package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"emperror.dev/errors"
	"github.com/lmittmann/tint"

	"github.com/spicierbot/spicier/pkg/config"
)

const latestLog = "latest.log"

// Logging owns the process logger and the optional log file.
type Logging struct {
	Logger *slog.Logger
	// Library is the logger handed to the Discord client; it only passes warnings.
	Library *slog.Logger
	Level   *slog.LevelVar
	file    io.WriteCloser
}

// New builds the tint console handler and, when enabled, a debug-level file
// handler writing to {dir}/latest.log after rotating the previous file.
func New(cfg config.LogConfig, console io.Writer) (*Logging, error) {
	level := new(slog.LevelVar)
	level.Set(cfg.SlogLevel())

	l := &Logging{Level: level}

	if cfg.File {
		f, err := openLatest(cfg.Dir, time.Now())
		if err != nil {
			return nil, err
		}
		l.file = f
	}

	l.Logger = slog.New(l.handler(console, level, slog.LevelDebug))
	l.Library = slog.New(l.handler(console, slog.LevelWarn, slog.LevelWarn))
	return l, nil
}

func (l *Logging) handler(console io.Writer, level slog.Leveler, fileLevel slog.Level) slog.Handler {
	consoleHandler := tint.NewHandler(console, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
	})
	if l.file == nil {
		return consoleHandler
	}

	fileHandler := slog.NewTextHandler(l.file, &slog.HandlerOptions{Level: fileLevel})
	return &fanout{handlers: []slog.Handler{consoleHandler, fileHandler}}
}

// SetDebug switches the console level between debug and info.
func (l *Logging) SetDebug(on bool) {
	if on {
		l.Level.Set(slog.LevelDebug)
		return
	}
	l.Level.Set(slog.LevelInfo)
}

// Debug reports whether debug logging is on.
func (l *Logging) Debug() bool {
	return l.Level.Level() <= slog.LevelDebug
}

func (l *Logging) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// openLatest rotates an existing latest.log to {YY-MM-DD}-{n}.log, where n is
// the number of log files already carrying today's date, then opens a fresh
// latest.log.
func openLatest(dir string, now time.Time) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.WrapIf(err, "creating log directory")
	}

	latest := filepath.Join(dir, latestLog)
	if _, err := os.Stat(latest); err == nil {
		rotated, err := rotatedName(dir, now)
		if err != nil {
			return nil, err
		}
		if err := os.Rename(latest, rotated); err != nil {
			return nil, errors.WrapIf(err, "rotating latest.log")
		}
	}

	f, err := os.OpenFile(latest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.WrapIf(err, "opening latest.log")
	}
	return f, nil
}

func rotatedName(dir string, now time.Time) (string, error) {
	day := now.Format("06-01-02")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", errors.WrapIf(err, "listing log directory")
	}
	count := 0
	for _, e := range entries {
		if strings.Contains(e.Name(), day) {
			count++
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%d.log", day, count)), nil
}

// fanout sends each record to every handler that accepts its level.
type fanout struct {
	handlers []slog.Handler
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if h.Enabled(ctx, r.Level) {
			if err := h.Handle(ctx, r.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Combine(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		hs[i] = h.WithAttrs(attrs)
	}
	return &fanout{handlers: hs}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		hs[i] = h.WithGroup(name)
	}
	return &fanout{handlers: hs}
}
