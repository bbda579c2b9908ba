package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const conversationSelect = `
    SELECT c.id, c.user_id,
           COALESCE(u.name, '')          AS name,
           COALESCE(u.avatar, '')        AS avatar,
           COALESCE(u.type, 'user')      AS type,
           COALESCE(c.last_message, '')  AS last_message,
           COALESCE(c.last_time, '')     AS last_time,
           COALESCE(c.last_timestamp, 0) AS last_timestamp,
           COALESCE(c.unread, 0)         AS unread,
           COALESCE(c.muted, 0)          AS muted,
           COALESCE(c.created_at, '')    AS created_at
    FROM conversations c
    JOIN users u ON u.id = c.user_id
`

// ListConversations returns every conversation ordered by last activity, newest first.
func (s *sqlxStore) ListConversations(ctx context.Context) ([]Conversation, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	conversations := []Conversation{}
	query := conversationSelect + ` ORDER BY c.last_timestamp DESC, c.id DESC;`
	if err := s.db.SelectContext(ctx, &conversations, query); err != nil {
		return nil, s.queryFailed(ctx, "list conversations", err)
	}

	s.logger.DebugContext(ctx, "Listed conversations", "count", len(conversations))
	return conversations, nil
}

// GetConversation returns the conversation with the given id or ErrNotFound.
func (s *sqlxStore) GetConversation(ctx context.Context, conversationID int64) (*Conversation, error) {
	return getConversation(ctx, s.db, conversationSelect+` WHERE c.id = ?;`, conversationID)
}

// GetConversationByUserID returns the conversation owned by userID or ErrNotFound.
func (s *sqlxStore) GetConversationByUserID(ctx context.Context, userID int64) (*Conversation, error) {
	conv, err := getConversation(ctx, s.db, conversationSelect+` WHERE c.user_id = ? ORDER BY c.id LIMIT 1;`, userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, s.queryFailed(ctx, "get conversation by user", err, "user_id", userID)
	}
	return conv, err
}

func getConversation(ctx context.Context, q sqlx.QueryerContext, query string, arg int64) (*Conversation, error) {
	var conv Conversation
	if err := sqlx.GetContext(ctx, q, &conv, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// IncrementUnread adds one to the conversation's unread counter.
// An unknown id is a no-op.
func (s *sqlxStore) IncrementUnread(ctx context.Context, conversationID int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE conversations SET unread = COALESCE(unread, 0) + 1 WHERE id = ?;`, conversationID); err != nil {
		return s.queryFailed(ctx, "increment unread", err, "conversation_id", conversationID)
	}
	return nil
}

// ClearUnread resets the conversation's unread counter. An unknown id is a no-op.
func (s *sqlxStore) ClearUnread(ctx context.Context, conversationID int64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE conversations SET unread = 0 WHERE id = ?;`, conversationID); err != nil {
		return s.queryFailed(ctx, "clear unread", err, "conversation_id", conversationID)
	}
	return nil
}

// GetTotalUnread sums unread over conversations that are not muted.
func (s *sqlxStore) GetTotalUnread(ctx context.Context) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(unread), 0) FROM conversations WHERE COALESCE(muted, 0) = 0;`
	if err := s.db.GetContext(ctx, &total, query); err != nil {
		return 0, s.queryFailed(ctx, "total unread", err)
	}
	return total, nil
}

// ToggleMuted flips the muted flag and returns the new value.
func (s *sqlxStore) ToggleMuted(ctx context.Context, conversationID int64) (bool, error) {
	var muted bool
	err := s.withTx(ctx, "toggle muted", func(tx *sqlx.Tx) error {
		var current bool
		if err := tx.GetContext(ctx, &current, `SELECT COALESCE(muted, 0) FROM conversations WHERE id = ?;`, conversationID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return s.queryFailed(ctx, "read muted", err, "conversation_id", conversationID)
		}
		muted = !current
		if _, err := tx.ExecContext(ctx, `UPDATE conversations SET muted = ? WHERE id = ?;`, muted, conversationID); err != nil {
			return s.queryFailed(ctx, "write muted", err, "conversation_id", conversationID)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.InfoContext(ctx, "Conversation mute toggled", "conversation_id", conversationID, "muted", muted)
	return muted, nil
}

// IsConversationMuted reports whether the conversation is muted.
func (s *sqlxStore) IsConversationMuted(ctx context.Context, conversationID int64) (bool, error) {
	var muted bool
	err := s.db.GetContext(ctx, &muted, `SELECT COALESCE(muted, 0) FROM conversations WHERE id = ?;`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, s.queryFailed(ctx, "is muted", err, "conversation_id", conversationID)
	}
	return muted, nil
}

// touchConversation refreshes the last-message cache; unread is bumped when incrUnread is set.
func (s *sqlxStore) touchConversation(ctx context.Context, tx *sqlx.Tx, conversationID int64, content string, incrUnread bool) error {
	lastTime, lastTimestamp := s.stamp()
	query := `UPDATE conversations SET last_message = ?, last_time = ?, last_timestamp = ? WHERE id = ?;`
	if incrUnread {
		query = `UPDATE conversations SET last_message = ?, last_time = ?, last_timestamp = ?, unread = COALESCE(unread, 0) + 1 WHERE id = ?;`
	}

	res, err := tx.ExecContext(ctx, query, content, lastTime, lastTimestamp, conversationID)
	if err != nil {
		return s.queryFailed(ctx, "update last message", err, "conversation_id", conversationID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
