package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const userSelect = `
    SELECT id, name,
           COALESCE(avatar, '')     AS avatar,
           COALESCE(type, 'user')   AS type,
           COALESCE(created_at, '') AS created_at
    FROM users
`

// GetUsers returns all users ordered by id, newest first.
func (s *sqlxStore) GetUsers(ctx context.Context) ([]User, error) {
	users := []User{}
	if err := s.db.SelectContext(ctx, &users, userSelect+` ORDER BY id DESC;`); err != nil {
		return nil, s.queryFailed(ctx, "list users", err)
	}
	return users, nil
}

// GetUser returns the user with the given id or ErrNotFound.
func (s *sqlxStore) GetUser(ctx context.Context, userID int64) (*User, error) {
	var user User
	if err := s.db.GetContext(ctx, &user, userSelect+` WHERE id = ?;`, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, s.queryFailed(ctx, "get user", err, "user_id", userID)
	}
	return &user, nil
}

// AddUser inserts a user and its empty conversation atomically and returns the user id.
// An empty userType defaults to bot.
func (s *sqlxStore) AddUser(ctx context.Context, name, avatar, userType string) (int64, error) {
	if userType == "" {
		userType = UserTypeBot
	}

	var id int64
	err := s.withTx(ctx, "add user", func(tx *sqlx.Tx) error {
		var err error
		id, err = insertUser(ctx, tx, name, avatar, userType)
		if err != nil {
			return s.queryFailed(ctx, "insert user", err, "name", name)
		}
		if _, err := s.insertConversation(ctx, tx, id, ""); err != nil {
			return s.queryFailed(ctx, "insert conversation", err, "user_id", id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.InfoContext(ctx, "User added", "user_id", id, "name", name, "type", userType)
	return id, nil
}

// UpdateUser overwrites name and avatar. Returns ErrNotFound for an unknown id.
func (s *sqlxStore) UpdateUser(ctx context.Context, userID int64, name, avatar string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET name = ?, avatar = ? WHERE id = ?;`, name, avatar, userID)
	if err != nil {
		return s.queryFailed(ctx, "update user", err, "user_id", userID)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	s.logger.InfoContext(ctx, "User updated", "user_id", userID)
	return nil
}

// DeleteUser removes the user's messages, conversations and finally the user row.
// The operator cannot be deleted.
func (s *sqlxStore) DeleteUser(ctx context.Context, userID int64) error {
	if userID == OperatorID {
		return ErrOperatorImmutable
	}

	err := s.withTx(ctx, "delete user", func(tx *sqlx.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, `SELECT COUNT(*) FROM users WHERE id = ?;`, userID); err != nil {
			return s.queryFailed(ctx, "check user", err, "user_id", userID)
		}
		if exists == 0 {
			return ErrNotFound
		}

		steps := []struct {
			name  string
			query string
		}{
			{"delete messages", `DELETE FROM messages WHERE conversation_id IN (SELECT id FROM conversations WHERE user_id = ?);`},
			{"delete conversations", `DELETE FROM conversations WHERE user_id = ?;`},
			{"delete user", `DELETE FROM users WHERE id = ?;`},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.query, userID); err != nil {
				return s.queryFailed(ctx, step.name, err, "user_id", userID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "User deleted", "user_id", userID)
	return nil
}

func insertUser(ctx context.Context, tx *sqlx.Tx, name, avatar, userType string) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO users (name, avatar, type) VALUES (?, ?, ?);`, name, avatar, userType)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *sqlxStore) insertConversation(ctx context.Context, tx *sqlx.Tx, userID int64, lastMessage string) (int64, error) {
	lastTime, lastTimestamp := s.stamp()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (user_id, last_message, last_time, last_timestamp, unread, muted) VALUES (?, ?, ?, ?, 0, 0);`,
		userID, lastMessage, lastTime, lastTimestamp)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
