package database_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/edgard/chatdesk/internal/database"
)

// newTestStore opens a migrated database in a temp dir. The clock advances one
// second per call so last_timestamp ordering is deterministic.
func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(filepath.Join(t.TempDir(), "nested", "data.db"))
	if err != nil {
		t.Fatalf("NewDB() error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	var tick atomic.Int64
	clock := func() time.Time {
		return base.Add(time.Duration(tick.Add(1)) * time.Second)
	}
	return database.NewStore(db, nil, database.WithClock(clock))
}

func addBot(t *testing.T, s database.Store, name string) (int64, *database.Conversation) {
	t.Helper()
	ctx := context.Background()

	id, err := s.AddUser(ctx, name, name+".png", "")
	if err != nil {
		t.Fatalf("AddUser(%q) error = %v", name, err)
	}
	conv, err := s.GetConversationByUserID(ctx, id)
	if err != nil {
		t.Fatalf("GetConversationByUserID(%d) error = %v", id, err)
	}
	return id, conv
}

func TestAddUserCreatesConversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	id, conv := addBot(t, s, "TestBot")

	users, err := s.GetUsers(ctx)
	if err != nil {
		t.Fatalf("GetUsers() error = %v", err)
	}
	found := 0
	for _, u := range users {
		if u.ID == id {
			found++
			if u.Name != "TestBot" || u.Avatar != "TestBot.png" || u.Type != database.UserTypeBot {
				t.Errorf("unexpected user %+v", u)
			}
		}
	}
	if found != 1 {
		t.Fatalf("user %d found %d times, want 1", id, found)
	}

	if conv.UserID != id || conv.Unread != 0 || conv.LastMessage != "" || conv.Muted {
		t.Errorf("unexpected companion conversation %+v", conv)
	}
	if conv.LastTime != "09:00" {
		t.Errorf("LastTime = %q, want 09:00", conv.LastTime)
	}
}

func TestGetUsersNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	first, _ := addBot(t, s, "first")
	second, _ := addBot(t, s, "second")

	users, err := s.GetUsers(ctx)
	if err != nil {
		t.Fatalf("GetUsers() error = %v", err)
	}
	if len(users) != 2 || users[0].ID != second || users[1].ID != first {
		t.Fatalf("GetUsers() = %+v, want ids [%d %d]", users, second, first)
	}
}

func TestUnreadLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	botID, conv := addBot(t, s, "TestBot")

	before, err := s.GetTotalUnread(ctx)
	if err != nil {
		t.Fatalf("GetTotalUnread() error = %v", err)
	}

	if _, err := s.SendMessage(ctx, database.NewMessage{
		ConversationID: conv.ID, SenderID: botID, SenderType: database.SenderOther, Content: "hi",
	}); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	// SendMessage alone leaves unread untouched.
	if total, _ := s.GetTotalUnread(ctx); total != before {
		t.Fatalf("total after SendMessage = %d, want %d", total, before)
	}

	if err := s.IncrementUnread(ctx, conv.ID); err != nil {
		t.Fatalf("IncrementUnread() error = %v", err)
	}
	if total, _ := s.GetTotalUnread(ctx); total != before+1 {
		t.Fatalf("total after increment = %d, want %d", total, before+1)
	}

	if err := s.ClearUnread(ctx, conv.ID); err != nil {
		t.Fatalf("ClearUnread() error = %v", err)
	}
	if total, _ := s.GetTotalUnread(ctx); total != before {
		t.Fatalf("total after clear = %d, want %d", total, before)
	}

	got, err := s.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation() error = %v", err)
	}
	if got.Unread != 0 || got.LastMessage != "hi" {
		t.Errorf("conversation = %+v, want unread 0 and last message hi", got)
	}
}

func TestMuteExcludesFromTotal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	_, a := addBot(t, s, "a")
	_, b := addBot(t, s, "b")
	for range 2 {
		if err := s.IncrementUnread(ctx, a.ID); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.IncrementUnread(ctx, b.ID); err != nil {
		t.Fatal(err)
	}

	if total, _ := s.GetTotalUnread(ctx); total != 3 {
		t.Fatalf("total = %d, want 3", total)
	}

	muted, err := s.ToggleMuted(ctx, a.ID)
	if err != nil || !muted {
		t.Fatalf("ToggleMuted() = %v, %v; want true, nil", muted, err)
	}
	if total, _ := s.GetTotalUnread(ctx); total != 1 {
		t.Fatalf("total with a muted = %d, want 1", total)
	}
	conv, _ := s.GetConversation(ctx, a.ID)
	if conv.Unread != 2 {
		t.Errorf("muting changed stored unread to %d", conv.Unread)
	}
	if isMuted, _ := s.IsConversationMuted(ctx, a.ID); !isMuted {
		t.Errorf("IsConversationMuted() = false after mute")
	}

	muted, err = s.ToggleMuted(ctx, a.ID)
	if err != nil || muted {
		t.Fatalf("second ToggleMuted() = %v, %v; want false, nil", muted, err)
	}
	if total, _ := s.GetTotalUnread(ctx); total != 3 {
		t.Fatalf("total after unmute = %d, want 3", total)
	}
}

func TestNotFoundErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	tests := []struct {
		name string
		call func() error
	}{
		{"toggle muted", func() error { _, err := s.ToggleMuted(ctx, 999); return err }},
		{"is muted", func() error { _, err := s.IsConversationMuted(ctx, 999); return err }},
		{"conversation by user", func() error { _, err := s.GetConversationByUserID(ctx, 999); return err }},
		{"get user", func() error { _, err := s.GetUser(ctx, 999); return err }},
		{"update user", func() error { return s.UpdateUser(ctx, 999, "x", "") }},
		{"delete user", func() error { return s.DeleteUser(ctx, 999) }},
		{"bot delivery", func() error { _, err := s.DeliverBotMessage(ctx, 999, "hi", ""); return err }},
		{"send message", func() error {
			_, err := s.SendMessage(ctx, database.NewMessage{ConversationID: 999, SenderType: database.SenderMe, Content: "x"})
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, database.ErrNotFound) {
				t.Errorf("error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestSendMessageRollsBackForUnknownConversation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	_, _ = s.SendMessage(ctx, database.NewMessage{ConversationID: 42, SenderType: database.SenderMe, Content: "lost"})

	msgs, err := s.ListMessages(ctx, 42)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 0 {
		t.Fatalf("orphan message persisted: %+v", msgs)
	}
}

func TestListMessagesOrderAndDefaults(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	botID, conv := addBot(t, s, "Echo")
	contents := []string{"one", "two", "three"}
	var ids []int64
	for i, c := range contents {
		format := ""
		if i == 2 {
			format = database.FormatMarkdown
		}
		id, err := s.SendMessage(ctx, database.NewMessage{
			ConversationID: conv.ID, SenderID: botID, SenderType: database.SenderOther, Content: c, Format: format,
		})
		if err != nil {
			t.Fatalf("SendMessage(%q) error = %v", c, err)
		}
		ids = append(ids, id)
	}

	msgs, err := s.ListMessages(ctx, conv.ID)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != len(contents) {
		t.Fatalf("got %d messages, want %d", len(msgs), len(contents))
	}
	for i, m := range msgs {
		if m.ID != ids[i] || m.Content != contents[i] {
			t.Errorf("msgs[%d] = %+v, want id %d content %q", i, m, ids[i], contents[i])
		}
		if i > 0 && m.ID <= msgs[i-1].ID {
			t.Errorf("ids not increasing at %d", i)
		}
		if m.SenderName != "Echo" {
			t.Errorf("SenderName = %q, want Echo", m.SenderName)
		}
	}
	if msgs[0].Format != database.FormatText || msgs[2].Format != database.FormatMarkdown {
		t.Errorf("formats = %q, %q", msgs[0].Format, msgs[2].Format)
	}

	recent, err := s.RecentMessages(ctx, conv.ID, 2)
	if err != nil {
		t.Fatalf("RecentMessages() error = %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "two" || recent[1].Content != "three" {
		t.Errorf("RecentMessages() = %+v", recent)
	}
}

func TestListConversationsByActivity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	_, older := addBot(t, s, "older")
	_, newer := addBot(t, s, "newer")

	list, err := s.ListConversations(ctx)
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(list) != 2 || list[0].ID != newer.ID {
		t.Fatalf("expected newer first, got %+v", list)
	}

	if _, err := s.SendMessage(ctx, database.NewMessage{
		ConversationID: older.ID, SenderID: database.OperatorID, SenderType: database.SenderMe, Content: "bump",
	}); err != nil {
		t.Fatal(err)
	}

	list, _ = s.ListConversations(ctx)
	if list[0].ID != older.ID || list[0].LastMessage != "bump" || list[0].Name != "older" {
		t.Fatalf("expected bumped conversation first, got %+v", list[0])
	}
}

func TestDeleteUserCascades(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	botID, conv := addBot(t, s, "Doomed")
	if _, err := s.SendMessage(ctx, database.NewMessage{
		ConversationID: conv.ID, SenderID: botID, SenderType: database.SenderOther, Content: "bye",
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteUser(ctx, botID); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}

	msgs, err := s.ListMessages(ctx, conv.ID)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("ListMessages() after delete = %v, %v", msgs, err)
	}
	if _, err := s.GetConversation(ctx, conv.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("conversation still present: %v", err)
	}
	if _, err := s.GetUser(ctx, botID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("user still present: %v", err)
	}
}

func TestDeleteOperatorRejected(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	if err := s.DeleteUser(context.Background(), database.OperatorID); !errors.Is(err, database.ErrOperatorImmutable) {
		t.Fatalf("DeleteUser(0) error = %v, want ErrOperatorImmutable", err)
	}
}

func TestUpdateUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	id, conv := addBot(t, s, "before")
	if err := s.UpdateUser(ctx, id, "after", "after.png"); err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if u.Name != "after" || u.Avatar != "after.png" {
		t.Errorf("user = %+v", u)
	}
	c, _ := s.GetConversation(ctx, conv.ID)
	if c.Name != "after" {
		t.Errorf("conversation join still shows %q", c.Name)
	}
}

func TestDeliverBotMessage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	botID, conv := addBot(t, s, "Pinger")

	delivery, err := s.DeliverBotMessage(ctx, botID, "**ping**", database.FormatMarkdown)
	if err != nil {
		t.Fatalf("DeliverBotMessage() error = %v", err)
	}
	if delivery.Conversation.ID != conv.ID || delivery.Conversation.Unread != 1 || delivery.Conversation.LastMessage != "**ping**" {
		t.Errorf("delivery = %+v", delivery)
	}

	msgs, _ := s.ListMessages(ctx, conv.ID)
	if len(msgs) != 1 || msgs[0].ID != delivery.MessageID || msgs[0].SenderType != database.SenderOther || msgs[0].SenderID != botID {
		t.Errorf("messages = %+v", msgs)
	}
	if total, _ := s.GetTotalUnread(ctx); total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestEnsureSeed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)
	seed := database.DefaultSeed()

	seeded, err := s.EnsureSeed(ctx, seed)
	if err != nil || !seeded {
		t.Fatalf("EnsureSeed() = %v, %v; want true, nil", seeded, err)
	}

	users, _ := s.GetUsers(ctx)
	if len(users) != len(seed.Bots)+1 {
		t.Fatalf("got %d users, want %d", len(users), len(seed.Bots)+1)
	}
	op, err := s.GetUser(ctx, database.OperatorID)
	if err != nil || op.Type != database.UserTypeUser {
		t.Fatalf("operator = %+v, %v", op, err)
	}

	convs, _ := s.ListConversations(ctx)
	if len(convs) != len(seed.Bots) {
		t.Fatalf("got %d conversations, want %d", len(convs), len(seed.Bots))
	}
	msgs, _ := s.ListMessages(ctx, convs[0].ID)
	if len(msgs) != 2 || msgs[0].SenderType != database.SenderOther || msgs[1].SenderType != database.SenderMe {
		t.Errorf("seed messages = %+v", msgs)
	}
	if msgs[1].SenderName != seed.Operator.Name {
		t.Errorf("operator sender name = %q", msgs[1].SenderName)
	}

	again, err := s.EnsureSeed(ctx, seed)
	if err != nil || again {
		t.Errorf("second EnsureSeed() = %v, %v; want false, nil", again, err)
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data.db")

	for i := range 2 {
		db, err := database.NewDB(path)
		if err != nil {
			t.Fatalf("NewDB() run %d error = %v", i, err)
		}
		database.CloseDB(db)
	}
}

func TestMessageCreatedAtIsISO(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := newTestStore(t)

	botID, conv := addBot(t, s, "Clock")
	if _, err := s.SendMessage(ctx, database.NewMessage{
		ConversationID: conv.ID, SenderID: botID, SenderType: database.SenderOther, Content: "tick",
	}); err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}

	msgs, err := s.ListMessages(ctx, conv.ID)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("ListMessages() = %+v, %v", msgs, err)
	}
	got, err := time.Parse("2006-01-02T15:04:05.000Z", msgs[0].CreatedAt)
	if err != nil {
		t.Fatalf("created_at %q is not ISO-8601 UTC: %v", msgs[0].CreatedAt, err)
	}
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.Local)
	if got.Before(base) || got.After(base.Add(time.Minute)) {
		t.Errorf("created_at = %v, want the store clock near %v", got, base.UTC())
	}
}

func TestNewDBUpgradesLegacySchema(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.db")

	legacy, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, avatar TEXT,
			type TEXT NOT NULL DEFAULT 'user', created_at DATETIME DEFAULT CURRENT_TIMESTAMP)`,
		`CREATE TABLE conversations (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id INTEGER NOT NULL,
			last_message TEXT, last_time TEXT, unread INTEGER DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP)`,
		`CREATE TABLE messages (id INTEGER PRIMARY KEY AUTOINCREMENT, conversation_id INTEGER NOT NULL,
			sender_id INTEGER NOT NULL, sender_type TEXT NOT NULL, content TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP)`,
		`INSERT INTO users (id, name, avatar, type) VALUES (0, '我', '', 'user'), (1, '张三', 'a.png', 'bot')`,
		`INSERT INTO conversations (id, user_id, last_message, last_time, unread) VALUES (1, 1, '你好', '09:00', 2)`,
		`INSERT INTO messages (conversation_id, sender_id, sender_type, content) VALUES (1, 1, 'other', '你好')`,
	} {
		if _, err := legacy.Exec(stmt); err != nil {
			t.Fatalf("legacy schema %q: %v", stmt, err)
		}
	}
	if err := legacy.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	before := time.Now().UnixMilli()
	db, err := database.NewDB(path)
	if err != nil {
		t.Fatalf("NewDB() on legacy database error = %v", err)
	}
	t.Cleanup(func() { database.CloseDB(db) })
	s := database.NewStore(db, nil)

	convs, err := s.ListConversations(ctx)
	if err != nil {
		t.Fatalf("ListConversations() error = %v", err)
	}
	if len(convs) != 1 {
		t.Fatalf("got %d conversations, want 1", len(convs))
	}
	c := convs[0]
	if c.LastTimestamp < before || c.Muted || c.Unread != 2 || c.Name != "张三" {
		t.Errorf("upgraded conversation = %+v, want backfilled timestamp >= %d", c, before)
	}

	msgs, err := s.ListMessages(ctx, 1)
	if err != nil {
		t.Fatalf("ListMessages() error = %v", err)
	}
	if len(msgs) != 1 || msgs[0].Format != database.FormatText {
		t.Errorf("upgraded messages = %+v, want one text message", msgs)
	}

	if _, err := s.SendMessage(ctx, database.NewMessage{
		ConversationID: 1, SenderID: 0, SenderType: database.SenderMe, Content: "hi", Format: database.FormatMarkdown,
	}); err != nil {
		t.Fatalf("SendMessage() after upgrade error = %v", err)
	}

	database.CloseDB(db)
	again, err := database.NewDB(path)
	if err != nil {
		t.Fatalf("NewDB() reopen error = %v", err)
	}
	database.CloseDB(again)
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"/tmp/data.db", "/tmp/data.db"},
		{"file:/tmp/data.db?_pragma=busy_timeout(5000)", "/tmp/data.db"},
		{"file:/tmp/my%20data.db", "/tmp/my data.db"},
	}
	for _, tt := range tests {
		if got := database.ExtractDBNameFromPath(tt.in); got != tt.want {
			t.Errorf("ExtractDBNameFromPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
