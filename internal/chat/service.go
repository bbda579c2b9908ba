// Package chat implements the message flows that do more than a single store call:
// bot delivery with its notification, and operator sends that may trigger an automatic bot reply.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/edgard/chatdesk/internal/database"
	"github.com/edgard/chatdesk/internal/notify"
)

// Responder produces a bot's reply to the conversation history.
type Responder interface {
	GenerateReply(ctx context.Context, botName string, history []database.Message) (string, error)
}

// Service coordinates the store with notifications and automatic replies.
type Service struct {
	store    database.Store
	notifier notify.Notifier
	logger   *slog.Logger

	responder    Responder
	historyLimit int
	replyTimeout time.Duration

	wg sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the notifier used for bot messages in unmuted conversations.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithResponder enables automatic replies for bot conversations.
func WithResponder(r Responder, historyLimit int, timeout time.Duration) Option {
	return func(s *Service) {
		s.responder = r
		if historyLimit > 0 {
			s.historyLimit = historyLimit
		}
		if timeout > 0 {
			s.replyTimeout = timeout
		}
	}
}

// NewService creates a chat service on top of store.
func NewService(store database.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Service{
		store:        store,
		logger:       logger.With("component", "chat_service"),
		historyLimit: 20,
		replyTimeout: time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BotSend delivers content from the bot userID. The message insert and the
// unread increment commit together; the notification is issued afterwards and
// only for unmuted conversations. Notification failures are logged, not returned.
func (s *Service) BotSend(ctx context.Context, userID int64, content, format string) (*database.BotDelivery, error) {
	delivery, err := s.store.DeliverBotMessage(ctx, userID, content, format)
	if err != nil {
		return nil, err
	}

	conv := delivery.Conversation
	if conv.Muted || s.notifier == nil {
		return delivery, nil
	}

	n := notify.Notification{
		ConversationID: conv.ID,
		UserID:         conv.UserID,
		Title:          conv.Name,
		Avatar:         conv.Avatar,
		Body:           content,
		Unread:         conv.Unread,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "Notification failed", "conversation_id", conv.ID, "error", err)
	}
	return delivery, nil
}

// SendMessage stores a message. When the operator writes to a bot and a
// Responder is configured, the reply is generated in the background.
func (s *Service) SendMessage(ctx context.Context, msg database.NewMessage) (int64, error) {
	id, err := s.store.SendMessage(ctx, msg)
	if err != nil {
		return 0, err
	}

	if s.responder != nil && msg.SenderType == database.SenderMe {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.replyTimeout)
			defer cancel()
			if err := s.autoReply(replyCtx, msg.ConversationID); err != nil {
				s.logger.ErrorContext(replyCtx, "Automatic reply failed", "conversation_id", msg.ConversationID, "error", err)
			}
		}()
	}
	return id, nil
}

// Wait blocks until all in-flight automatic replies finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) autoReply(ctx context.Context, conversationID int64) error {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("load conversation: %w", err)
	}
	if conv.Type != database.UserTypeBot {
		return nil
	}

	history, err := s.store.RecentMessages(ctx, conversationID, s.historyLimit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	reply, err := s.responder.GenerateReply(ctx, conv.Name, history)
	if err != nil {
		return fmt.Errorf("generate reply: %w", err)
	}
	if reply == "" {
		return nil
	}

	if _, err := s.BotSend(ctx, conv.UserID, reply, database.FormatMarkdown); err != nil {
		return fmt.Errorf("deliver reply: %w", err)
	}
	s.logger.InfoContext(ctx, "Automatic reply delivered", "conversation_id", conversationID, "user_id", conv.UserID)
	return nil
}
