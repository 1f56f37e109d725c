package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON to stdout; log
// shipping is the platform's concern, not ours.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
