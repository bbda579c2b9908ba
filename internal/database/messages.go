package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// createdAtLayout is UTC ISO-8601 with milliseconds, the form desktop builds
// wrote into messages.created_at.
const createdAtLayout = "2006-01-02T15:04:05.000Z"

const messageSelect = `
    SELECT m.id, m.conversation_id, m.sender_id, m.sender_type,
           COALESCE(u.name, '')       AS sender_name,
           m.content,
           COALESCE(m.format, 'text') AS format,
           COALESCE(m.created_at, '') AS created_at
    FROM messages m
    LEFT JOIN users u ON u.id = m.sender_id
`

// ListMessages returns a conversation's messages in insertion order.
// An unknown conversation yields an empty slice.
func (s *sqlxStore) ListMessages(ctx context.Context, conversationID int64) ([]Message, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	messages := []Message{}
	query := messageSelect + ` WHERE m.conversation_id = ? ORDER BY m.id ASC;`
	if err := s.db.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, s.queryFailed(ctx, "list messages", err, "conversation_id", conversationID)
	}

	s.logger.DebugContext(ctx, "Listed messages", "conversation_id", conversationID, "count", len(messages))
	return messages, nil
}

// RecentMessages returns the newest limit messages of a conversation, oldest first.
func (s *sqlxStore) RecentMessages(ctx context.Context, conversationID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}

	messages := []Message{}
	query := `SELECT * FROM (` + messageSelect + ` WHERE m.conversation_id = ? ORDER BY m.id DESC LIMIT ?) ORDER BY id ASC;`
	if err := s.db.SelectContext(ctx, &messages, query, conversationID, limit); err != nil {
		return nil, s.queryFailed(ctx, "recent messages", err, "conversation_id", conversationID, "limit", limit)
	}
	return messages, nil
}

// SendMessage inserts msg and refreshes the conversation's last-message fields
// in the same transaction. It does not touch the unread counter.
func (s *sqlxStore) SendMessage(ctx context.Context, msg NewMessage) (int64, error) {
	if msg.Format == "" {
		msg.Format = FormatText
	}

	var id int64
	err := s.withTx(ctx, "send message", func(tx *sqlx.Tx) error {
		var err error
		id, err = s.insertMessage(ctx, tx, msg)
		if err != nil {
			return err
		}
		return s.touchConversation(ctx, tx, msg.ConversationID, msg.Content, false)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.ErrorContext(ctx, "Error sending message", "conversation_id", msg.ConversationID, "error", err)
		}
		return 0, err
	}

	s.logger.DebugContext(ctx, "Message saved successfully",
		"conversation_id", msg.ConversationID, "sender_id", msg.SenderID, "message_id", id)
	return id, nil
}

// DeliverBotMessage resolves userID's conversation, stores content as an
// "other" message and increments unread, committing all of it atomically.
func (s *sqlxStore) DeliverBotMessage(ctx context.Context, userID int64, content, format string) (*BotDelivery, error) {
	if format == "" {
		format = FormatText
	}

	var delivery BotDelivery
	err := s.withTx(ctx, "deliver bot message", func(tx *sqlx.Tx) error {
		conv, err := getConversation(ctx, tx, conversationSelect+` WHERE c.user_id = ? ORDER BY c.id LIMIT 1;`, userID)
		if err != nil {
			return err
		}

		delivery.MessageID, err = s.insertMessage(ctx, tx, NewMessage{
			ConversationID: conv.ID,
			SenderID:       userID,
			SenderType:     SenderOther,
			Content:        content,
			Format:         format,
		})
		if err != nil {
			return err
		}
		if err := s.touchConversation(ctx, tx, conv.ID, content, true); err != nil {
			return err
		}

		updated, err := getConversation(ctx, tx, conversationSelect+` WHERE c.id = ?;`, conv.ID)
		if err != nil {
			return fmt.Errorf("reload conversation: %w", err)
		}
		delivery.Conversation = *updated
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.ErrorContext(ctx, "Error delivering bot message", "user_id", userID, "error", err)
		}
		return nil, err
	}

	s.logger.InfoContext(ctx, "Bot message delivered",
		"user_id", userID,
		"conversation_id", delivery.Conversation.ID,
		"message_id", delivery.MessageID,
		"unread", delivery.Conversation.Unread)
	return &delivery, nil
}

func (s *sqlxStore) insertMessage(ctx context.Context, tx *sqlx.Tx, msg NewMessage) (int64, error) {
	query := `
        INSERT INTO messages (conversation_id, sender_id, sender_type, content, format, created_at)
        VALUES (:conversation_id, :sender_id, :sender_type, :content, :format, :created_at);
    `
	row := struct {
		NewMessage
		CreatedAt string `db:"created_at"`
	}{NewMessage: msg, CreatedAt: s.now().UTC().Format(createdAtLayout)}
	res, err := tx.NamedExecContext(ctx, query, row)
	if err != nil {
		return 0, s.queryFailed(ctx, "insert message", err, "conversation_id", msg.ConversationID)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}
