// Package logging configures the global slog logger for localbridge binaries.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pwntr/tinter"
	slogmulti "github.com/samber/slog-multi"
)

// Format selects the log output format.
type Format string

const (
	FormatAuto Format = "auto"
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options controls where and how records are written.
type Options struct {
	Format Format
	Level  slog.Level
	// File, when set, receives every record as JSON in addition to stderr.
	// It is rotated every RotateEvery (default hourly) keeping KeepFiles
	// old files (default 24).
	File        string
	RotateEvery time.Duration
	KeepFiles   int
}

// ParseFormat converts a string to a Format, returning FormatAuto for unknown values.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "text", "tint", "human":
		return FormatText
	case "json":
		return FormatJSON
	default:
		return FormatAuto
	}
}

// ParseLevel converts a string to a slog.Level, defaulting to Info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// NewHandler builds the handler used for w: tinter on terminals (or when text
// is forced), JSON everywhere else.
func NewHandler(w io.Writer, format Format, level slog.Level) slog.Handler {
	if format == FormatText || (format == FormatAuto && IsTTY(w)) {
		return tinter.NewHandler(w, &tinter.Options{
			Level:      level,
			TimeFormat: "15:04:05.000",
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// Setup configures the global slog logger. Call once after flag/viper parsing.
// The returned closer releases the log file, if any.
func Setup(opts Options) (io.Closer, error) {
	h := NewHandler(os.Stderr, opts.Format, opts.Level)
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		if opts.RotateEvery <= 0 {
			opts.RotateEvery = DefaultRotateEvery
		}
		if opts.KeepFiles <= 0 {
			opts.KeepFiles = DefaultKeepFiles
		}
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("log file dir: %w", err)
		}
		f := openRotating(opts.File, opts.RotateEvery, opts.KeepFiles)
		h = slogmulti.Fanout(h, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level}))
		closer = f
	}

	slog.SetDefault(slog.New(h))
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
