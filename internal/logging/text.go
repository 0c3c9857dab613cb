package logging

import (
	"context"
	"log/slog"
	"unicode/utf8"
)

// previewLen is the number of runes of text shown at debug level.
const previewLen = 120

// LogText logs a text event at INFO (length plus args) and, when debug is
// enabled, a preview of up to 120 runes.
func LogText(event, text string, args ...any) {
	slog.Info(event, append(args, "chars", utf8.RuneCountInString(text))...)

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	slog.Debug(event+" (text)", "preview", Preview(text))
}

// Preview shortens text to at most 120 runes, marking the cut with an ellipsis.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:previewLen]) + "…"
}
