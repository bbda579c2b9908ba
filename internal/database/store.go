package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the data access operations of the chat database.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// ListConversations returns every conversation joined with its user, most recent activity first.
	ListConversations(ctx context.Context) ([]Conversation, error)
	// GetConversation returns a single conversation by id.
	GetConversation(ctx context.Context, conversationID int64) (*Conversation, error)
	// GetConversationByUserID returns the conversation owned by userID.
	GetConversationByUserID(ctx context.Context, userID int64) (*Conversation, error)
	// IncrementUnread adds one to the unread counter.
	IncrementUnread(ctx context.Context, conversationID int64) error
	// ClearUnread resets the unread counter to zero.
	ClearUnread(ctx context.Context, conversationID int64) error
	// GetTotalUnread sums unread over conversations that are not muted.
	GetTotalUnread(ctx context.Context) (int64, error)
	// ToggleMuted flips the muted flag and returns the new value.
	ToggleMuted(ctx context.Context, conversationID int64) (bool, error)
	// IsConversationMuted reports the muted flag.
	IsConversationMuted(ctx context.Context, conversationID int64) (bool, error)

	// ListMessages returns the messages of a conversation in insertion order.
	ListMessages(ctx context.Context, conversationID int64) ([]Message, error)
	// RecentMessages returns up to limit of the newest messages, oldest first.
	RecentMessages(ctx context.Context, conversationID int64, limit int) ([]Message, error)
	// SendMessage appends a message and refreshes the conversation's last-message fields.
	SendMessage(ctx context.Context, msg NewMessage) (int64, error)
	// DeliverBotMessage stores a message from a bot and bumps unread in one transaction.
	DeliverBotMessage(ctx context.Context, userID int64, content, format string) (*BotDelivery, error)

	// GetUsers returns all users, newest first.
	GetUsers(ctx context.Context) ([]User, error)
	// GetUser returns a single user.
	GetUser(ctx context.Context, userID int64) (*User, error)
	// AddUser creates a user together with its conversation.
	AddUser(ctx context.Context, name, avatar, userType string) (int64, error)
	// UpdateUser overwrites a user's name and avatar.
	UpdateUser(ctx context.Context, userID int64, name, avatar string) error
	// DeleteUser removes a user, its conversation and the conversation's messages.
	DeleteUser(ctx context.Context, userID int64) error

	// EnsureSeed populates an empty database with the operator and the given bots.
	EnsureSeed(ctx context.Context, seed Seed) (bool, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// Option configures a store.
type Option func(*sqlxStore)

// WithClock overrides the time source used for last-message timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *sqlxStore) {
		if now != nil {
			s.now = now
		}
	}
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance; a nil logger discards output.
func NewStore(db *sqlx.DB, logger *slog.Logger, opts ...Option) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, committing when fn returns nil.
func (s *sqlxStore) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "op", op, "error", err)
		return fmt.Errorf("failed to begin transaction for %s: %w", op, err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "op", op, "error", rollbackErr)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "op", op, "error", err)
		return fmt.Errorf("failed to commit %s: %w", op, err)
	}
	tx = nil
	return nil
}

// queryFailed logs and wraps a query error, passing context errors through unchanged.
func (s *sqlxStore) queryFailed(ctx context.Context, op string, err error, attrs ...any) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "Context timeout or cancellation during query", append(attrs, "op", op, "error", err)...)
		return err
	}
	s.logger.ErrorContext(ctx, "Query failed", append(attrs, "op", op, "error", err)...)
	return fmt.Errorf("%s: %w", op, err)
}

// stamp returns the display time (HH:MM, local) and epoch milliseconds of now.
func (s *sqlxStore) stamp() (string, int64) {
	now := s.now()
	return now.Local().Format("15:04"), now.UnixMilli()
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")
	start := time.Now()

	// VACUUM cannot run inside a transaction.
	if _, err := s.db.ExecContext(ctx, "VACUUM;"); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			s.logger.WarnContext(ctx, "VACUUM interrupted", "error", err)
			return err
		}
		s.logger.ErrorContext(ctx, "Error running VACUUM", "error", err)
		return fmt.Errorf("failed to run VACUUM: %w", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully", "duration", time.Since(start))
	return nil
}
