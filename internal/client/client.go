// Package client is a typed Go client for the chatdesk HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/edgard/chatdesk/internal/database"
	"github.com/edgard/chatdesk/internal/monitor"
)

// DefaultBaseURL is the address the server listens on by default.
const DefaultBaseURL = "http://127.0.0.1:38765"

// APIError is a failed call: either a non-2xx status or a code -1 envelope.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (http %d, code %d): %s", e.Status, e.Code, e.Message)
}

// Client calls the API at BaseURL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for baseURL. A nil httpClient gets a 10 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// call POSTs body to path and decodes the envelope's data into out (if non-nil).
func (c *Client) call(ctx context.Context, path string, body, out any) error {
	var payload io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, payload)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &APIError{Status: resp.StatusCode, Code: -1, Message: fmt.Sprintf("undecodable response: %v", err)}
	}
	if resp.StatusCode >= 300 || env.Code != 0 {
		return &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode %s data: %w", path, err)
		}
	}
	return nil
}

// Conversations lists every conversation, most recent first.
func (c *Client) Conversations(ctx context.Context) ([]database.Conversation, error) {
	var out []database.Conversation
	err := c.call(ctx, "/api/conversations", nil, &out)
	return out, err
}

// Messages lists a conversation's messages in order.
func (c *Client) Messages(ctx context.Context, conversationID int64) ([]database.Message, error) {
	var out []database.Message
	err := c.call(ctx, "/api/messages", map[string]any{"conversationId": conversationID}, &out)
	return out, err
}

// SendMessage posts a message and returns its id.
func (c *Client) SendMessage(ctx context.Context, conversationID, senderID int64, senderType, content, format string) (int64, error) {
	body := map[string]any{
		"conversationId": conversationID,
		"senderId":       senderID,
		"senderType":     senderType,
		"content":        content,
	}
	if format != "" {
		body["format"] = format
	}
	var out struct {
		ID int64 `json:"id"`
	}
	err := c.call(ctx, "/api/send-message", body, &out)
	return out.ID, err
}

// ClearUnread resets a conversation's unread counter.
func (c *Client) ClearUnread(ctx context.Context, conversationID int64) error {
	return c.call(ctx, "/api/clear-unread", map[string]any{"conversationId": conversationID}, nil)
}

// ToggleMute flips the muted flag and returns the new value.
func (c *Client) ToggleMute(ctx context.Context, conversationID int64) (bool, error) {
	var out struct {
		Muted bool `json:"muted"`
	}
	err := c.call(ctx, "/api/toggle-mute", map[string]any{"conversationId": conversationID}, &out)
	return out.Muted, err
}

// TotalUnread returns the unread sum over unmuted conversations.
func (c *Client) TotalUnread(ctx context.Context) (int64, error) {
	var out struct {
		Total int64 `json:"total"`
	}
	err := c.call(ctx, "/api/unread/total", nil, &out)
	return out.Total, err
}

// Users lists users, newest first.
func (c *Client) Users(ctx context.Context) ([]database.User, error) {
	var out []database.User
	err := c.call(ctx, "/api/users", nil, &out)
	return out, err
}

// User fetches one user.
func (c *Client) User(ctx context.Context, userID int64) (*database.User, error) {
	var out database.User
	if err := c.call(ctx, "/api/user/info", map[string]any{"userId": userID}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddUser creates a user and returns its id. An empty userType means bot.
func (c *Client) AddUser(ctx context.Context, name, avatar, userType string) (int64, error) {
	body := map[string]any{"name": name, "avatar": avatar}
	if userType != "" {
		body["type"] = userType
	}
	var out struct {
		ID int64 `json:"id"`
	}
	err := c.call(ctx, "/api/user/add", body, &out)
	return out.ID, err
}

// UpdateUser renames a user and replaces the avatar.
func (c *Client) UpdateUser(ctx context.Context, userID int64, name, avatar string) error {
	return c.call(ctx, "/api/user/update", map[string]any{"id": userID, "name": name, "avatar": avatar}, nil)
}

// DeleteUser removes a user with its conversation and messages.
func (c *Client) DeleteUser(ctx context.Context, userID int64) error {
	return c.call(ctx, "/api/user/delete", map[string]any{"id": userID}, nil)
}

// BotDelivery is the result of BotSend.
type BotDelivery struct {
	MessageID      int64 `json:"messageId"`
	ConversationID int64 `json:"conversationId"`
}

// BotSend delivers content as the bot userID.
func (c *Client) BotSend(ctx context.Context, userID int64, content, format string) (*BotDelivery, error) {
	body := map[string]any{"userId": userID, "content": content}
	if format != "" {
		body["format"] = format
	}
	var out BotDelivery
	if err := c.call(ctx, "/api/bot/send", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MonitorLogs returns the probe entries of the last 24 hours.
func (c *Client) MonitorLogs(ctx context.Context) ([]monitor.Entry, error) {
	var out []monitor.Entry
	err := c.call(ctx, "/api/monitor/logs", nil, &out)
	return out, err
}

// MonitorStats returns the uptime summary.
func (c *Client) MonitorStats(ctx context.Context) (*monitor.Stats, error) {
	var out monitor.Stats
	if err := c.call(ctx, "/api/monitor/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
