// Package logx extends slog with a trace level for per-keystroke paths
// that are too noisy for debug output.
package logx

import (
	"context"
	"log/slog"
)

// LevelTrace sits one notch below slog.LevelDebug.
const LevelTrace = slog.LevelDebug - 4

// Trace logs at trace level.
func Trace(log *slog.Logger, msg string, args ...any) {
	log.Log(context.Background(), LevelTrace, msg, args...)
}

// ReplaceLevelNames renders the custom trace level as TRACE instead of
// DEBUG-4. Install as HandlerOptions.ReplaceAttr.
func ReplaceLevelNames(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok && level == LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}
