package logger

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-co-op/gocron/v2"
)

// gocronLogger routes gocron's internal logging to slog.
type gocronLogger struct {
	log *slog.Logger
}

// NewGocronLogger returns a gocron.Logger writing to log under component=gocron.
//
//nolint:ireturn // gocron.WithLogger takes the interface.
func NewGocronLogger(log *slog.Logger) gocron.Logger {
	return &gocronLogger{log: log.With("component", "gocron")}
}

func (l *gocronLogger) Debug(msg string, args ...any) { l.emit(slog.LevelDebug, msg, args) }
func (l *gocronLogger) Info(msg string, args ...any)  { l.emit(slog.LevelInfo, msg, args) }
func (l *gocronLogger) Warn(msg string, args ...any)  { l.emit(slog.LevelWarn, msg, args) }
func (l *gocronLogger) Error(msg string, args ...any) { l.emit(slog.LevelError, msg, args) }

// emit drops gocron's "gocron: " message prefix and pairs up its arguments.
// A trailing unpaired argument is logged under "extra".
func (l *gocronLogger) emit(level slog.Level, msg string, args []any) {
	ctx := context.Background()
	if !l.log.Enabled(ctx, level) {
		return
	}
	msg = strings.TrimPrefix(msg, "gocron: ")

	attrs := make([]any, 0, len(args)+1)
	for i := 0; i < len(args); i += 2 {
		if i+1 >= len(args) {
			attrs = append(attrs, "extra", args[i])
			break
		}
		attrs = append(attrs, args[i], args[i+1])
	}
	l.log.Log(ctx, level, msg, attrs...)
}
