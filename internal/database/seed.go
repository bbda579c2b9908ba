package database

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// SeedUser is a user created on first start.
type SeedUser struct {
	Name   string
	Avatar string
}

// Seed describes the initial content of an empty database. Every bot gets a
// conversation holding Greeting from the bot followed by Reply from the operator.
type Seed struct {
	Operator SeedUser
	Bots     []SeedUser
	Greeting string
	Reply    string
}

// DefaultSeed mirrors the first-run data of the desktop app.
func DefaultSeed() Seed {
	return Seed{
		Operator: SeedUser{Name: "我", Avatar: "https://api.dicebear.com/7.x/avataaars/svg?seed=me"},
		Bots: []SeedUser{
			{Name: "张三", Avatar: "https://api.dicebear.com/7.x/avataaars/svg?seed=1"},
			{Name: "李四", Avatar: "https://api.dicebear.com/7.x/avataaars/svg?seed=2"},
			{Name: "王五", Avatar: "https://api.dicebear.com/7.x/avataaars/svg?seed=3"},
		},
		Greeting: "你好",
		Reply:    "你好啊",
	}
}

// EnsureSeed inserts the seed when the users table is empty and reports whether it did.
func (s *sqlxStore) EnsureSeed(ctx context.Context, seed Seed) (bool, error) {
	seeded := false
	err := s.withTx(ctx, "seed", func(tx *sqlx.Tx) error {
		var count int
		if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM users;`); err != nil {
			return s.queryFailed(ctx, "count users", err)
		}
		if count > 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `INSERT INTO users (id, name, avatar, type) VALUES (?, ?, ?, ?);`,
			OperatorID, seed.Operator.Name, seed.Operator.Avatar, UserTypeUser); err != nil {
			return s.queryFailed(ctx, "insert operator", err)
		}

		for _, bot := range seed.Bots {
			userID, err := insertUser(ctx, tx, bot.Name, bot.Avatar, UserTypeBot)
			if err != nil {
				return s.queryFailed(ctx, "insert seed bot", err, "name", bot.Name)
			}
			convID, err := s.insertConversation(ctx, tx, userID, seed.Greeting)
			if err != nil {
				return s.queryFailed(ctx, "insert seed conversation", err, "user_id", userID)
			}
			if seed.Greeting == "" {
				continue
			}
			greeting := []NewMessage{
				{ConversationID: convID, SenderID: userID, SenderType: SenderOther, Content: seed.Greeting, Format: FormatText},
			}
			if seed.Reply != "" {
				greeting = append(greeting, NewMessage{ConversationID: convID, SenderID: OperatorID, SenderType: SenderMe, Content: seed.Reply, Format: FormatText})
			}
			for _, msg := range greeting {
				if _, err := s.insertMessage(ctx, tx, msg); err != nil {
					return err
				}
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if seeded {
		s.logger.InfoContext(ctx, "Seeded empty database", "bots", len(seed.Bots))
	}
	return seeded, nil
}
