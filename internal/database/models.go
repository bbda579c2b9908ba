package database

import "errors"

// OperatorID is the reserved id of the human using the app.
const OperatorID int64 = 0

// User types.
const (
	UserTypeUser = "user"
	UserTypeBot  = "bot"
)

// Message sender roles, relative to the operator.
const (
	SenderMe    = "me"
	SenderOther = "other"
)

// Message content formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

var (
	// ErrNotFound is returned when the addressed user or conversation does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOperatorImmutable is returned when trying to delete the operator user.
	ErrOperatorImmutable = errors.New("operator user cannot be deleted")
)

// User is either the operator (id 0) or a bot the operator chats with.
// CreatedAt is kept as the raw SQLite text so rows written by older
// builds decode regardless of their timestamp layout.
type User struct {
	ID        int64  `db:"id"         json:"id"`
	Name      string `db:"name"       json:"name"`
	Avatar    string `db:"avatar"     json:"avatar"`
	Type      string `db:"type"       json:"type"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// Conversation is the single chat thread of a non-operator user, joined with
// the user's display fields for listing.
type Conversation struct {
	ID            int64  `db:"id"             json:"id"`
	UserID        int64  `db:"user_id"        json:"user_id"`
	Name          string `db:"name"           json:"name"`
	Avatar        string `db:"avatar"         json:"avatar"`
	Type          string `db:"type"           json:"type"`
	LastMessage   string `db:"last_message"   json:"last_message"`
	LastTime      string `db:"last_time"      json:"last_time"`
	LastTimestamp int64  `db:"last_timestamp" json:"last_timestamp"`
	Unread        int64  `db:"unread"         json:"unread"`
	Muted         bool   `db:"muted"          json:"muted"`
	CreatedAt     string `db:"created_at"     json:"created_at"`
}

// Message is an immutable entry in a conversation.
type Message struct {
	ID             int64  `db:"id"              json:"id"`
	ConversationID int64  `db:"conversation_id" json:"conversation_id"`
	SenderID       int64  `db:"sender_id"       json:"sender_id"`
	SenderType     string `db:"sender_type"     json:"sender_type"`
	SenderName     string `db:"sender_name"     json:"sender_name"`
	Content        string `db:"content"         json:"content"`
	Format         string `db:"format"          json:"format"`
	CreatedAt      string `db:"created_at"      json:"created_at"`
}

// NewMessage holds the fields of a message about to be inserted.
type NewMessage struct {
	ConversationID int64  `db:"conversation_id"`
	SenderID       int64  `db:"sender_id"`
	SenderType     string `db:"sender_type"`
	Content        string `db:"content"`
	Format         string `db:"format"`
}

// BotDelivery is the committed result of delivering a bot message.
// Conversation reflects the state after the unread increment.
type BotDelivery struct {
	MessageID    int64
	Conversation Conversation
}
