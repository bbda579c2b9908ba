// Package notify delivers "new bot message" notifications to the operator.
package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// Notification describes a message that arrived in an unmuted conversation.
type Notification struct {
	ConversationID int64
	UserID         int64
	Title          string
	Avatar         string
	Body           string
	Unread         int64
}

// Notifier delivers a notification. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notification) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n Notification) error { return f(ctx, n) }

// LogNotifier writes notifications to a structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs at info level.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LogNotifier{logger: logger.With("component", "notifier")}
}

// Notify logs n.
func (l *LogNotifier) Notify(ctx context.Context, n Notification) error {
	l.logger.InfoContext(ctx, "New message",
		"conversation_id", n.ConversationID,
		"user_id", n.UserID,
		"from", n.Title,
		"unread", n.Unread,
		"preview", Preview(n.Body, 80))
	return nil
}

// Multi fans a notification out to every notifier and joins their errors.
type Multi []Notifier

// Notify delivers n to all notifiers even when some fail.
func (m Multi) Notify(ctx context.Context, n Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Preview shortens s to at most maxRunes runes, appending an ellipsis when cut.
func Preview(s string, maxRunes int) string {
	runes := []rune(s)
	if len(runes) <= maxRunes {
		return s
	}
	if maxRunes <= 1 {
		return "…"
	}
	return string(runes[:maxRunes-1]) + "…"
}
