// Package logging exposes the process-wide slog logger used by every other package.
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

var level = new(slog.LevelVar)

var logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
	Level:      level,
	TimeFormat: time.Kitchen,
}))

func init() {
	level.Set(slog.LevelWarn)
}

// Logger returns the process logger.
func Logger() *slog.Logger {
	return logger
}

// SetLevel adjusts the minimum level for all subsequent log records.
func SetLevel(l slog.Level) {
	level.Set(l)
}
