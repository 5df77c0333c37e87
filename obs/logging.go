// Package obs builds the structured loggers shared by the HTTP layer and the store.
package obs

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

// ParseLevel maps a LOG_LEVEL value to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger returns a JSON logger writing to w.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// NewGormLogger routes gorm's SQL logging through l. Only slow queries and
// errors are reported unless l is at debug level.
func NewGormLogger(l *slog.Logger, slow time.Duration) gormlogger.Interface {
	lvl := gormlogger.Warn
	if l.Handler().Enabled(context.Background(), slog.LevelDebug) {
		lvl = gormlogger.Info
	}
	return gormlogger.New(
		slog.NewLogLogger(l.Handler(), slog.LevelWarn),
		gormlogger.Config{
			SlowThreshold:             slow,
			LogLevel:                  lvl,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}
