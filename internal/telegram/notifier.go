package telegram

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/chatdesk/internal/notify"
)

const maxPreview = 500

// Sender is the subset of *bot.Bot used for delivery.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Notifier posts notifications to a single Telegram chat.
type Notifier struct {
	sender Sender
	chatID int64
	logger *slog.Logger
}

// NewNotifier returns a notifier that writes to chatID through sender.
func NewNotifier(sender Sender, chatID int64, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		sender: sender,
		chatID: chatID,
		logger: logger.With("component", "telegram_notifier"),
	}
}

// Notify sends "<name>: <message>" to the configured chat.
func (n *Notifier) Notify(ctx context.Context, note notify.Notification) error {
	text := fmt.Sprintf("%s: %s", note.Title, notify.Preview(note.Body, maxPreview))
	if note.Unread > 1 {
		text = fmt.Sprintf("%s (%d unread)", text, note.Unread)
	}

	msg, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: n.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("telegram send to chat %d: %w", n.chatID, err)
	}

	n.logger.DebugContext(ctx, "Notification forwarded", "chat_id", n.chatID, "message_id", msg.ID, "conversation_id", note.ConversationID)
	return nil
}
