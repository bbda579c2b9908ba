// Package poller keeps a local view of conversations and messages in sync with the API by polling.
//
// Every fetch takes a sequence stamp when it is issued. A response only replaces cached state
// whose stamp is older, so a slow response can never overwrite a newer one.
package poller

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/edgard/chatdesk/internal/database"
)

const (
	DefaultListInterval    = 3 * time.Second
	DefaultMessageInterval = 2 * time.Second
)

// API is the part of the HTTP client the poller needs.
type API interface {
	Conversations(ctx context.Context) ([]database.Conversation, error)
	Messages(ctx context.Context, conversationID int64) ([]database.Message, error)
	ClearUnread(ctx context.Context, conversationID int64) error
}

type messageCache struct {
	stamp    uint64
	messages []database.Message
}

// Poller reconciles conversation and message state.
type Poller struct {
	api             API
	logger          *slog.Logger
	listInterval    time.Duration
	messageInterval time.Duration
	onChange        func()

	mu            sync.Mutex
	seq           uint64
	listStamp     uint64
	conversations []database.Conversation
	messages      map[int64]messageCache
	current       int64

	reselect chan struct{}
}

// Option configures a Poller.
type Option func(*Poller)

// WithIntervals overrides the polling periods. Non-positive values keep the defaults.
func WithIntervals(list, messages time.Duration) Option {
	return func(p *Poller) {
		if list > 0 {
			p.listInterval = list
		}
		if messages > 0 {
			p.messageInterval = messages
		}
	}
}

// WithOnChange registers fn to run after any accepted update. It is called without locks held.
func WithOnChange(fn func()) Option {
	return func(p *Poller) { p.onChange = fn }
}

// New creates a poller over api.
func New(api API, logger *slog.Logger, opts ...Option) *Poller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	p := &Poller{
		api:             api,
		logger:          logger,
		listInterval:    DefaultListInterval,
		messageInterval: DefaultMessageInterval,
		messages:        make(map[int64]messageCache),
		reselect:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is cancelled. The conversation list is loaded immediately.
func (p *Poller) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.listLoop(ctx) })
	g.Go(func() error { return p.messageLoop(ctx) })
	return g.Wait()
}

func (p *Poller) listLoop(ctx context.Context) error {
	p.RefreshConversations(ctx)

	ticker := time.NewTicker(p.listInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.RefreshConversations(ctx)
		}
	}
}

func (p *Poller) messageLoop(ctx context.Context) error {
	ticker := time.NewTicker(p.messageInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.reselect:
			ticker.Reset(p.messageInterval)
		case <-ticker.C:
			if id := p.Current(); id != 0 {
				p.RefreshMessages(ctx, id)
			}
		}
	}
}

func (p *Poller) issue() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return p.seq
}

func (p *Poller) changed() {
	if p.onChange != nil {
		p.onChange()
	}
}

// RefreshConversations fetches the conversation list once. The first successful load
// selects the first conversation when nothing is selected.
func (p *Poller) RefreshConversations(ctx context.Context) {
	stamp := p.issue()
	convs, err := p.api.Conversations(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("Failed to fetch conversations", "error", err)
		}
		return
	}

	p.mu.Lock()
	if stamp <= p.listStamp {
		p.mu.Unlock()
		p.logger.Debug("Discarded stale conversation list", "stamp", stamp, "current_stamp", p.listStamp)
		return
	}
	p.listStamp = stamp
	p.conversations = convs
	var autoSelect int64
	if p.current == 0 && len(convs) > 0 {
		autoSelect = convs[0].ID
	}
	p.mu.Unlock()
	p.changed()

	if autoSelect != 0 {
		p.Select(ctx, autoSelect)
	}
}

// RefreshMessages fetches one conversation's messages once.
func (p *Poller) RefreshMessages(ctx context.Context, conversationID int64) {
	stamp := p.issue()
	msgs, err := p.api.Messages(ctx, conversationID)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Warn("Failed to fetch messages", "error", err, "conversation_id", conversationID)
		}
		return
	}

	p.mu.Lock()
	if cached, ok := p.messages[conversationID]; ok && stamp <= cached.stamp {
		p.mu.Unlock()
		p.logger.Debug("Discarded stale messages", "conversation_id", conversationID, "stamp", stamp)
		return
	}
	p.messages[conversationID] = messageCache{stamp: stamp, messages: msgs}
	p.mu.Unlock()
	p.changed()
}

// Select makes conversationID current, loads its messages, clears its unread counter
// and then refreshes the list so the counter change is visible.
func (p *Poller) Select(ctx context.Context, conversationID int64) {
	p.mu.Lock()
	p.current = conversationID
	p.mu.Unlock()

	select {
	case p.reselect <- struct{}{}:
	default:
	}

	p.RefreshMessages(ctx, conversationID)
	if err := p.api.ClearUnread(ctx, conversationID); err != nil && ctx.Err() == nil {
		p.logger.Warn("Failed to clear unread", "error", err, "conversation_id", conversationID)
	}
	p.RefreshConversations(ctx)
}

// Deselect stops message polling until the next Select.
func (p *Poller) Deselect() {
	p.mu.Lock()
	p.current = 0
	p.mu.Unlock()
	p.changed()
}

// Current returns the selected conversation id, or 0.
func (p *Poller) Current() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// CurrentConversation returns the selected conversation as it appears in the
// last accepted list. ok is false when nothing is selected or the selection
// is not in the list.
func (p *Poller) CurrentConversation() (conv database.Conversation, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == 0 {
		return database.Conversation{}, false
	}
	for _, c := range p.conversations {
		if c.ID == p.current {
			return c, true
		}
	}
	return database.Conversation{}, false
}

// Conversations returns a copy of the last accepted conversation list.
func (p *Poller) Conversations() []database.Conversation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]database.Conversation(nil), p.conversations...)
}

// Messages returns the cached messages of the current conversation.
func (p *Poller) Messages() []database.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]database.Message(nil), p.messages[p.current].messages...)
}

// MessagesOf returns the cached messages of any conversation.
func (p *Poller) MessagesOf(conversationID int64) []database.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]database.Message(nil), p.messages[conversationID].messages...)
}
